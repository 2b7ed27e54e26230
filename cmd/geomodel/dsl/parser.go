package dsl

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Statement keywords are case-sensitive.
const (
	kwRock       = "ROCK"
	kwDeposition = "DEPOSITION"
	kwErosion    = "EROSION"
	kwIntrusion  = "INTRUSION"
)

var (
	statementKeywords = []string{kwRock, kwDeposition, kwErosion, kwIntrusion}

	rockKeys       = []string{"name", "type", "age"}
	depositionKeys = []string{"rock", "time", "after"}
	erosionKeys    = []string{"time", "after"}
	intrusionKeys  = []string{"rock", "style", "time", "after"}
)

// Parser turns DSL text into a Program. It holds no state and is safe for
// concurrent use.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (*Parser) Parse(text string) (*Program, error) {
	return Parse(text)
}

// Parse parses text into a Program. The first syntax error aborts parsing;
// no partial program is returned.
func Parse(text string) (*Program, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	ps := &parser{src: text, toks: toks}
	return ps.program()
}

// parser is the per-call recursive descent state.
type parser struct {
	src  string
	toks []lexer.Token
	pos  int
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

func (ps *parser) peek() lexer.Token {
	return ps.toks[ps.pos]
}

func (ps *parser) next() lexer.Token {
	tok := ps.toks[ps.pos]
	if !tok.EOF() {
		ps.pos++
	}
	return tok
}

func isPunct(tok lexer.Token, s string) bool {
	return tok.Type == tokPunct && tok.Value == s
}

// unexpected builds the syntax error for tok with the alternatives that
// would have been accepted.
func (ps *parser) unexpected(tok lexer.Token, expected ...string) *SyntaxError {
	msg := fmt.Sprintf("Unexpected token '%s'", tok.Value)
	if tok.EOF() {
		msg = "Unexpected end of input"
	}
	return ps.errorAt(tok, msg, expected...)
}

func (ps *parser) errorAt(tok lexer.Token, msg string, expected ...string) *SyntaxError {
	return &SyntaxError{
		Message:     msg,
		Line:        tok.Pos.Line,
		Column:      tok.Pos.Column,
		ContextLine: sourceLine(ps.src, tok.Pos.Line),
		Expected:    expected,
	}
}

func (ps *parser) expectPunct(s string) (lexer.Token, error) {
	tok := ps.peek()
	if !isPunct(tok, s) {
		return tok, ps.unexpected(tok, quote(s))
	}
	return ps.next(), nil
}

func (ps *parser) expectIdent(what string) (lexer.Token, error) {
	tok := ps.peek()
	if tok.Type != tokIdent {
		return tok, ps.unexpected(tok, what)
	}
	return ps.next(), nil
}

func quote(s string) string { return `"` + s + `"` }

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = quote(s)
	}
	return out
}

// span covers from the statement keyword to the closing bracket.
func span(start, end lexer.Token) *SourceLocation {
	return &SourceLocation{
		Line:      start.Pos.Line,
		Column:    start.Pos.Column,
		EndLine:   end.Pos.Line,
		EndColumn: end.Pos.Column + len(end.Value),
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (ps *parser) program() (*Program, error) {
	prog := &Program{}
	for {
		tok := ps.peek()
		if tok.EOF() {
			return prog, nil
		}
		if tok.Type != tokIdent || !slices.Contains(statementKeywords, tok.Value) {
			return nil, ps.unexpected(tok, statementKeywords...)
		}
		kw := ps.next()
		switch kw.Value {
		case kwRock:
			r, err := ps.rock(kw)
			if err != nil {
				return nil, err
			}
			prog.Rocks = append(prog.Rocks, r)
		case kwDeposition:
			e, err := ps.deposition(kw)
			if err != nil {
				return nil, err
			}
			prog.Depositions = append(prog.Depositions, e)
		case kwErosion:
			e, err := ps.erosion(kw)
			if err != nil {
				return nil, err
			}
			prog.Erosions = append(prog.Erosions, e)
		case kwIntrusion:
			e, err := ps.intrusion(kw)
			if err != nil {
				return nil, err
			}
			prog.Intrusions = append(prog.Intrusions, e)
		}
	}
}

func (ps *parser) rock(kw lexer.Token) (*RockDefinition, error) {
	id, err := ps.expectIdent("rock identifier")
	if err != nil {
		return nil, err
	}
	r := &RockDefinition{ID: id.Value, Type: Sedimentary}
	end, err := ps.properties(rockKeys, func(key string) error {
		var err error
		switch key {
		case "name":
			r.Name, err = ps.stringValue()
		case "type":
			r.Type, err = ps.rockType()
		case "age":
			r.Age, err = ps.timeValue()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	r.Location = span(kw, end)
	return r, nil
}

func (ps *parser) deposition(kw lexer.Token) (*DepositionEvent, error) {
	id, err := ps.expectIdent("event identifier")
	if err != nil {
		return nil, err
	}
	e := &DepositionEvent{ID: id.Value}
	end, err := ps.properties(depositionKeys, func(key string) error {
		var err error
		switch key {
		case "rock":
			e.RockID, err = ps.reference()
		case "time":
			e.Time, err = ps.timeValue()
		case "after":
			e.After, err = ps.idList()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	e.Location = span(kw, end)
	return e, nil
}

func (ps *parser) erosion(kw lexer.Token) (*ErosionEvent, error) {
	id, err := ps.expectIdent("event identifier")
	if err != nil {
		return nil, err
	}
	e := &ErosionEvent{ID: id.Value}
	end, err := ps.properties(erosionKeys, func(key string) error {
		var err error
		switch key {
		case "time":
			e.Time, err = ps.timeValue()
		case "after":
			e.After, err = ps.idList()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	e.Location = span(kw, end)
	return e, nil
}

func (ps *parser) intrusion(kw lexer.Token) (*IntrusionEvent, error) {
	id, err := ps.expectIdent("event identifier")
	if err != nil {
		return nil, err
	}
	e := &IntrusionEvent{ID: id.Value}
	end, err := ps.properties(intrusionKeys, func(key string) error {
		var err error
		switch key {
		case "rock":
			e.RockID, err = ps.reference()
		case "style":
			e.Style, err = ps.intrusionStyle()
		case "time":
			e.Time, err = ps.timeValue()
		case "after":
			e.After, err = ps.idList()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	e.Location = span(kw, end)
	return e, nil
}

// properties parses `[ key: value; ... ]`. Empty entries and a trailing
// separator are accepted. value is called after the colon with the key
// already consumed; a repeated key simply assigns again.
func (ps *parser) properties(keys []string, value func(key string) error) (lexer.Token, error) {
	if _, err := ps.expectPunct("["); err != nil {
		return lexer.Token{}, err
	}
	for {
		tok := ps.peek()
		switch {
		case isPunct(tok, "]"):
			return ps.next(), nil
		case isPunct(tok, ";"):
			ps.next()
		case tok.Type == tokIdent && slices.Contains(keys, tok.Value):
			ps.next()
			if _, err := ps.expectPunct(":"); err != nil {
				return lexer.Token{}, err
			}
			if err := value(tok.Value); err != nil {
				return lexer.Token{}, err
			}
			if follow := ps.peek(); !isPunct(follow, ";") && !isPunct(follow, "]") {
				return lexer.Token{}, ps.unexpected(follow, `";"`, `"]"`)
			}
		default:
			return lexer.Token{}, ps.unexpected(tok, append(quoteAll(keys), `"]"`)...)
		}
	}
}

// ---------------------------------------------------------------------------
// Values
// ---------------------------------------------------------------------------

// stringValue strips the quotes and trims the content.
func (ps *parser) stringValue() (string, error) {
	tok := ps.peek()
	if tok.Type != tokString {
		return "", ps.unexpected(tok, "quoted string")
	}
	ps.next()
	return unquote(tok.Value), nil
}

func unquote(lit string) string {
	return strings.TrimSpace(lit[1 : len(lit)-1])
}

func (ps *parser) reference() (string, error) {
	tok, err := ps.expectIdent("identifier")
	if err != nil {
		return "", err
	}
	return tok.Value, nil
}

func (ps *parser) rockType() (RockType, error) {
	tok := ps.peek()
	t, ok := ParseRockType(tok.Value)
	if tok.Type != tokIdent || !ok {
		return 0, ps.unexpected(tok, rockTypeNames[:]...)
	}
	ps.next()
	return t, nil
}

func (ps *parser) intrusionStyle() (IntrusionStyle, error) {
	tok := ps.peek()
	s, ok := ParseIntrusionStyle(tok.Value)
	if tok.Type != tokIdent || !ok {
		return StyleUnset, ps.unexpected(tok, styleNames[1:]...)
	}
	ps.next()
	return s, nil
}

// timeValue accepts `<number><unit>`, `"?"` or a quoted epoch name.
func (ps *parser) timeValue() (TimeValue, error) {
	tok := ps.peek()
	switch tok.Type {
	case tokTime:
		ps.next()
		num, unit := tok.Value[:len(tok.Value)-2], tok.Value[len(tok.Value)-2:]
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return nil, ps.errorAt(tok, fmt.Sprintf("Invalid number '%s'", num))
		}
		u, _ := ParseTimeUnit(unit)
		return AbsoluteTime{Value: v, Unit: u}, nil
	case tokString:
		ps.next()
		s := unquote(tok.Value)
		if s == "?" {
			return UnknownTime{}, nil
		}
		return EpochTime{Name: s}, nil
	case tokNumber:
		return nil, ps.errorAt(tok, fmt.Sprintf("Time value '%s' is missing a unit", tok.Value), "Ga", "Ma", "ka")
	}
	return nil, ps.unexpected(tok, "time literal (e.g. 100Ma)", `"?"`, "quoted epoch name")
}

// idList parses `ID (, ID)*`, keeping order and duplicates.
func (ps *parser) idList() ([]string, error) {
	first, err := ps.expectIdent("identifier")
	if err != nil {
		return nil, err
	}
	ids := []string{first.Value}
	for isPunct(ps.peek(), ",") {
		ps.next()
		tok, err := ps.expectIdent("identifier")
		if err != nil {
			return nil, err
		}
		ids = append(ids, tok.Value)
	}
	return ids, nil
}
