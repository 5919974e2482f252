package project

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names accepted as explicit hints.
const (
	EncodingUtf8     = "utf-8"
	EncodingUtf16Le  = "utf-16le"
	EncodingUtf16Be  = "utf-16be"
	EncodingWindows  = "windows-1252"
	EncodingAutoBOM  = ""
)

// Source is the decoded contents of one source file.
type Source struct {
	Path string
	Text string
}

// SourceContainer supplies a named source text. FileContainer reads from
// disk; InMemoryContainer backs tests and generated sources.
type SourceContainer interface {
	Location() string
	LoadSource(encodingHint string) (*Source, error)
}

// FileContainer loads a source file from disk.
type FileContainer struct {
	Path string
}

// Location implements SourceContainer.
func (f FileContainer) Location() string { return f.Path }

// LoadSource implements SourceContainer, decoding the file per the hint
// or, absent one, the BOM.
func (f FileContainer) LoadSource(encodingHint string) (*Source, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	text, err := DecodeSource(raw, encodingHint)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return &Source{Path: f.Path, Text: text}, nil
}

// InMemoryContainer is a source held in memory.
type InMemoryContainer struct {
	Name string
	Text string
}

// Location implements SourceContainer.
func (m InMemoryContainer) Location() string { return m.Name }

// LoadSource implements SourceContainer.
func (m InMemoryContainer) LoadSource(string) (*Source, error) {
	return &Source{Path: m.Name, Text: m.Text}, nil
}

// DecodeSource transcodes raw bytes into UTF-8 text. With no hint, the
// BOM decides between UTF-8 and UTF-16; BOM-less input that is valid
// UTF-8 passes through, anything else decodes as Windows-1252.
func DecodeSource(raw []byte, encodingHint string) (string, error) {
	var enc encoding.Encoding
	switch encodingHint {
	case EncodingUtf8:
		return string(stripUtf8Bom(raw)), nil
	case EncodingUtf16Le:
		enc = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case EncodingUtf16Be:
		enc = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	case EncodingWindows:
		enc = charmap.Windows1252
	case EncodingAutoBOM:
		switch {
		case bytes.HasPrefix(raw, []byte{0xFF, 0xFE}):
			enc = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
		case bytes.HasPrefix(raw, []byte{0xFE, 0xFF}):
			enc = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
		case utf8.Valid(raw):
			return string(stripUtf8Bom(raw)), nil
		default:
			enc = charmap.Windows1252
		}
	default:
		return "", fmt.Errorf("unsupported encoding %q", encodingHint)
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("cannot decode source: %w", err)
	}
	return string(decoded), nil
}

func stripUtf8Bom(raw []byte) []byte {
	return bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
}
