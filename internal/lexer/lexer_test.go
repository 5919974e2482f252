package lexer

import (
	"strings"
	"testing"
)

func TestNextToken(t *testing.T) {
	input := `PROGRAM prg
	VAR
		x : INT := 5;
	END_VAR
	x := x + 10;
	END_PROGRAM`

	tests := []struct {
		expectedLiteral string
		expectedType    TokenType
	}{
		{"PROGRAM", KwProgram},
		{"prg", IDENT},
		{"VAR", KwVar},
		{"x", IDENT},
		{":", COLON},
		{"INT", IDENT},
		{":=", ASSIGN},
		{"5", INT},
		{";", SEMICOLON},
		{"END_VAR", KwEndVar},
		{"x", IDENT},
		{":=", ASSIGN},
		{"x", IDENT},
		{"+", PLUS},
		{"10", INT},
		{";", SEMICOLON},
		{"END_PROGRAM", KwEndProgram},
		{"", EOF},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (literal=%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestKeywordsAreCaseInsensitive(t *testing.T) {
	for keyword, expected := range keywords {
		for _, variant := range []string{keyword, strings.ToUpper(keyword), strings.Title(keyword)} {
			if got := LookupIdent(variant); got != expected {
				t.Errorf("LookupIdent(%q) = %v, want %v", variant, got, expected)
			}
		}
	}
}

func TestOriginalCasingPreservedInLiteral(t *testing.T) {
	l := New("Program End_Program")
	tok := l.NextToken()
	if tok.Type != KwProgram || tok.Literal != "Program" {
		t.Fatalf("got %v %q", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != KwEndProgram || tok.Literal != "End_Program" {
		t.Fatalf("got %v %q", tok.Type, tok.Literal)
	}
}

func TestOperators(t *testing.T) {
	input := `:= = <> < <= > >= + - * ** / .. . ^ & =>`
	expected := []TokenType{
		ASSIGN, EQ, NOT_EQ, LESS, LESS_EQ, GREATER, GREATER_EQ,
		PLUS, MINUS, ASTERISK, POWER, SLASH, DOTDOT, DOT, CARET,
		AMPERSAND, ARROW_OUT, EOF,
	}
	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("token[%d] = %v (%q), want %v", i, tok.Type, tok.Literal, want)
		}
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input        string
		expectedType TokenType
	}{
		{"42", INT},
		{"16#FF", INT},
		{"2#1010", INT},
		{"8#17", INT},
		{"1_000", INT},
		{"3.14", REAL},
		{"1.5e10", REAL},
		{"2E-3", REAL},
	}
	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Errorf("lexing %q: got %v, want %v", tt.input, tok.Type, tt.expectedType)
		}
		if tok.Literal != tt.input {
			t.Errorf("lexing %q: literal = %q", tt.input, tok.Literal)
		}
	}
}

func TestTypedLiteralPrefixes(t *testing.T) {
	tests := []struct {
		input        string
		expectedType TokenType
		literal      string
	}{
		{"INT#42", TYPE_PREFIX, "INT"},
		{"BOOL#TRUE", TYPE_PREFIX, "BOOL"},
		{"WSTRING#5", TYPE_PREFIX, "WSTRING"},
		{"T#1h30m", TIME_LIT, "T#1h30m"},
		{"TIME#12ms", TIME_LIT, "TIME#12ms"},
		{"LTIME#1.5s", TIME_LIT, "LTIME#1.5s"},
		{"DATE#2020-01-01", DATE_LIT, "DATE#2020-01-01"},
		{"D#2021-12-31", DATE_LIT, "D#2021-12-31"},
		{"TOD#12:00:00", TOD_LIT, "TOD#12:00:00"},
		{"DT#2020-01-01-12:00:00", DATETIME_LIT, "DT#2020-01-01-12:00:00"},
	}
	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Errorf("lexing %q: got %v, want %v", tt.input, tok.Type, tt.expectedType)
			continue
		}
		if tok.Literal != tt.literal {
			t.Errorf("lexing %q: literal = %q, want %q", tt.input, tok.Literal, tt.literal)
		}
	}
}

func TestStringLiterals(t *testing.T) {
	tests := []struct {
		input        string
		expectedType TokenType
		value        string
	}{
		{`'hello'`, STRING, "hello"},
		{`"wide"`, WSTRING, "wide"},
		{`'it$'s'`, STRING, "it's"},
		{`'tab$Tend'`, STRING, "tab\tend"},
		{`'line$Nnext'`, STRING, "line\nnext"},
		{`'a$$b'`, STRING, "a$b"},
		{`'A$41B'`, STRING, "AAB"},
	}
	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.expectedType || tok.Literal != tt.value {
			t.Errorf("lexing %s: got %v %q, want %v %q",
				tt.input, tok.Type, tok.Literal, tt.expectedType, tt.value)
		}
	}
}

func TestUnterminatedStringReportsError(t *testing.T) {
	l := New("'no end")
	tok := l.NextToken()
	if tok.Type != STRING {
		t.Fatalf("got %v", tok.Type)
	}
	if len(l.Errors()) == 0 {
		t.Fatal("expected a lexer error for the unterminated string")
	}
}

func TestDirectAddresses(t *testing.T) {
	l := New("%IX1.0 %QW5 %X3")
	tests := []string{"IX1.0", "QW5", "X3"}
	for _, want := range tests {
		tok := l.NextToken()
		if tok.Type != DIRECT_ADDRESS || tok.Literal != want {
			t.Errorf("got %v %q, want DIRECT_ADDRESS %q", tok.Type, tok.Literal, want)
		}
	}
}

func TestPragmas(t *testing.T) {
	l := New("{ref} {external} VAR")
	tok := l.NextToken()
	if tok.Type != PRAGMA || tok.Literal != "ref" {
		t.Fatalf("got %v %q", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != PRAGMA || tok.Literal != "external" {
		t.Fatalf("got %v %q", tok.Type, tok.Literal)
	}
	if tok = l.NextToken(); tok.Type != KwVar {
		t.Fatalf("got %v", tok.Type)
	}
}

func TestComments(t *testing.T) {
	input := `// line comment
	(* block
	comment *) x /* c style */ y`
	l := New(input)
	tok := l.NextToken()
	if tok.Type != IDENT || tok.Literal != "x" {
		t.Fatalf("got %v %q", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != IDENT || tok.Literal != "y" {
		t.Fatalf("got %v %q", tok.Type, tok.Literal)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	l := New("a b c")
	if tok := l.Peek(1); tok.Literal != "b" {
		t.Fatalf("Peek(1) = %q", tok.Literal)
	}
	if tok := l.NextToken(); tok.Literal != "a" {
		t.Fatalf("NextToken after Peek = %q", tok.Literal)
	}
}

func TestPositions(t *testing.T) {
	l := New("a\n  b")
	a := l.NextToken()
	if a.Pos.Line != 1 || a.Pos.Column != 1 {
		t.Fatalf("a at %d:%d", a.Pos.Line, a.Pos.Column)
	}
	b := l.NextToken()
	if b.Pos.Line != 2 || b.Pos.Column != 3 {
		t.Fatalf("b at %d:%d", b.Pos.Line, b.Pos.Column)
	}
}

func TestUtf8Bom(t *testing.T) {
	l := New("\xEF\xBB\xBFx")
	tok := l.NextToken()
	if tok.Type != IDENT || tok.Literal != "x" {
		t.Fatalf("got %v %q", tok.Type, tok.Literal)
	}
}
