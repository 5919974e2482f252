package parser

import (
	"strconv"
	"strings"

	"github.com/plc-foundry/go-stc/internal/ast"
)

// timeUnitNanos maps duration unit spellings to nanoseconds. Longer
// spellings must be tried first (ms before m).
var timeUnitNanos = []struct {
	unit  string
	nanos int64
}{
	{"ms", 1_000_000},
	{"us", 1_000},
	{"ns", 1},
	{"d", 86_400_000_000_000},
	{"h", 3_600_000_000_000},
	{"m", 60_000_000_000},
	{"s", 1_000_000_000},
}

// splitTypedLiteral splits "T#1h30m" into prefix and body.
func splitTypedLiteral(literal string) (prefix, body string) {
	idx := strings.IndexByte(literal, '#')
	if idx < 0 {
		return "", literal
	}
	return literal[:idx], literal[idx+1:]
}

func isLongPrefix(prefix string) bool {
	lower := strings.ToLower(prefix)
	return strings.HasPrefix(lower, "l")
}

// parseTimeLiteral decodes T#1h30m / TIME#-5m / LTIME#1.5s into
// nanoseconds.
func (p *Parser) parseTimeLiteral() ast.Expression {
	base := p.base()
	prefix, body := splitTypedLiteral(p.curToken.Literal)
	p.nextToken()

	negative := false
	if strings.HasPrefix(body, "-") {
		negative = true
		body = body[1:]
	} else if strings.HasPrefix(body, "+") {
		body = body[1:]
	}

	var total int64
	rest := strings.ToLower(body)
	for rest != "" {
		// leading number, possibly fractional
		end := 0
		for end < len(rest) && (rest[end] >= '0' && rest[end] <= '9' || rest[end] == '.' || rest[end] == '_') {
			end++
		}
		if end == 0 {
			p.syntaxErrorf("invalid duration literal %q", body)
			return &ast.TimeLiteral{NodeBase: base, Long: isLongPrefix(prefix)}
		}
		number, err := strconv.ParseFloat(strings.ReplaceAll(rest[:end], "_", ""), 64)
		if err != nil {
			p.syntaxErrorf("invalid duration literal %q", body)
			return &ast.TimeLiteral{NodeBase: base, Long: isLongPrefix(prefix)}
		}
		rest = rest[end:]

		matched := false
		for _, u := range timeUnitNanos {
			if strings.HasPrefix(rest, u.unit) {
				total += int64(number * float64(u.nanos))
				rest = rest[len(u.unit):]
				matched = true
				break
			}
		}
		if !matched {
			p.syntaxErrorf("invalid duration unit in %q", body)
			return &ast.TimeLiteral{NodeBase: base, Long: isLongPrefix(prefix)}
		}
		rest = strings.TrimPrefix(rest, "_")
	}

	if negative {
		total = -total
	}
	return &ast.TimeLiteral{NodeBase: base, Nanos: total, Long: isLongPrefix(prefix)}
}

// parseDateLiteral decodes DATE#2020-01-01.
func (p *Parser) parseDateLiteral() ast.Expression {
	base := p.base()
	prefix, body := splitTypedLiteral(p.curToken.Literal)
	p.nextToken()

	parts := strings.Split(body, "-")
	if len(parts) != 3 {
		p.syntaxErrorf("invalid date literal %q", body)
		return &ast.DateLiteral{NodeBase: base, Long: isLongPrefix(prefix)}
	}
	year, errY := strconv.Atoi(parts[0])
	month, errM := strconv.Atoi(parts[1])
	day, errD := strconv.Atoi(parts[2])
	if errY != nil || errM != nil || errD != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		p.syntaxErrorf("invalid date literal %q", body)
		return &ast.DateLiteral{NodeBase: base, Long: isLongPrefix(prefix)}
	}
	return &ast.DateLiteral{NodeBase: base, Year: year, Month: month, Day: day, Long: isLongPrefix(prefix)}
}

// parseClock decodes hh:mm:ss[.frac] into components.
func (p *Parser) parseClock(body string) (hour, minute, second, nanos int, ok bool) {
	parts := strings.Split(body, ":")
	if len(parts) != 3 {
		return 0, 0, 0, 0, false
	}
	var errH, errM error
	hour, errH = strconv.Atoi(parts[0])
	minute, errM = strconv.Atoi(parts[1])

	secondPart := parts[2]
	if idx := strings.IndexByte(secondPart, '.'); idx >= 0 {
		frac := secondPart[idx+1:]
		secondPart = secondPart[:idx]
		// pad/truncate to nanoseconds
		for len(frac) < 9 {
			frac += "0"
		}
		nanos, _ = strconv.Atoi(frac[:9])
	}
	second, errS := strconv.Atoi(secondPart)
	if errH != nil || errM != nil || errS != nil ||
		hour > 23 || minute > 59 || second > 59 {
		return 0, 0, 0, 0, false
	}
	return hour, minute, second, nanos, true
}

// parseTimeOfDayLiteral decodes TOD#12:00:00.123.
func (p *Parser) parseTimeOfDayLiteral() ast.Expression {
	base := p.base()
	prefix, body := splitTypedLiteral(p.curToken.Literal)
	p.nextToken()

	hour, minute, second, nanos, ok := p.parseClock(body)
	if !ok {
		p.syntaxErrorf("invalid time-of-day literal %q", body)
	}
	return &ast.TimeOfDayLiteral{
		NodeBase: base,
		Hour:     hour, Minute: minute, Second: second, Nanos: nanos,
		Long: isLongPrefix(prefix),
	}
}

// parseDateAndTimeLiteral decodes DT#2020-01-01-12:00:00.
func (p *Parser) parseDateAndTimeLiteral() ast.Expression {
	base := p.base()
	prefix, body := splitTypedLiteral(p.curToken.Literal)
	p.nextToken()

	// split after the third '-': date part, then clock
	dashCount := 0
	split := -1
	for i, ch := range body {
		if ch == '-' {
			dashCount++
			if dashCount == 3 {
				split = i
				break
			}
		}
	}
	lit := &ast.DateAndTimeLiteral{NodeBase: base, Long: isLongPrefix(prefix)}
	if split < 0 {
		p.syntaxErrorf("invalid date-and-time literal %q", body)
		return lit
	}

	dateParts := strings.Split(body[:split], "-")
	if len(dateParts) != 3 {
		p.syntaxErrorf("invalid date-and-time literal %q", body)
		return lit
	}
	lit.Year, _ = strconv.Atoi(dateParts[0])
	lit.Month, _ = strconv.Atoi(dateParts[1])
	lit.Day, _ = strconv.Atoi(dateParts[2])

	hour, minute, second, nanos, ok := p.parseClock(body[split+1:])
	if !ok {
		p.syntaxErrorf("invalid date-and-time literal %q", body)
		return lit
	}
	lit.Hour, lit.Minute, lit.Second, lit.Nanos = hour, minute, second, nanos
	return lit
}
