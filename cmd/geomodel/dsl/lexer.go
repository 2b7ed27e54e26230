package dsl

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
)

// dslLexer is the token grammar. Rule order matters where patterns overlap:
// Time must be tried before Number and Ident.
var dslLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "String", Pattern: `"(?:[^"\\\n]|\\.)*"`},
	{Name: "Time", Pattern: `[0-9]+(?:\.[0-9]+)?(?i:ga|ma|ka)\b`},
	{Name: "Number", Pattern: `[0-9]+(?:\.[0-9]+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[\[\];:,]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

var (
	symbols = dslLexer.Symbols()

	tokComment    = symbols["Comment"]
	tokString     = symbols["String"]
	tokTime       = symbols["Time"]
	tokNumber     = symbols["Number"]
	tokIdent      = symbols["Ident"]
	tokPunct      = symbols["Punct"]
	tokWhitespace = symbols["Whitespace"]
)

// tokenize lexes src and drops comments and whitespace. The returned slice
// always ends with an EOF token.
func tokenize(src string) ([]lexer.Token, error) {
	lex, err := dslLexer.LexString("", src)
	if err != nil {
		return nil, lexFailure(src, err)
	}
	var toks []lexer.Token
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, lexFailure(src, err)
		}
		switch tok.Type {
		case tokComment, tokWhitespace:
			continue
		}
		toks = append(toks, tok)
		if tok.EOF() {
			return toks, nil
		}
	}
}

// lexFailure turns a lexer error into a SyntaxError pointing at the
// offending character.
func lexFailure(src string, err error) error {
	var lerr *lexer.Error
	if !errors.As(err, &lerr) {
		return &ParseError{Message: fmt.Sprintf("tokenizing input: %v", err)}
	}
	pos := lerr.Pos
	char := ""
	if pos.Offset >= 0 && pos.Offset < len(src) {
		r, _ := utf8.DecodeRuneInString(src[pos.Offset:])
		char = string(r)
	}
	msg := fmt.Sprintf("Unexpected character '%s'", char)
	if strings.HasPrefix(src[min(pos.Offset, len(src)):], `"`) {
		msg = "Unterminated string literal"
	}
	return &SyntaxError{
		Message:     msg,
		Line:        pos.Line,
		Column:      pos.Column,
		ContextLine: sourceLine(src, pos.Line),
	}
}

// sourceLine returns the 1-based line n of src, or "" when out of range.
func sourceLine(src string, n int) string {
	if n < 1 {
		return ""
	}
	lines := strings.Split(src, "\n")
	if n > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[n-1], "\r")
}
