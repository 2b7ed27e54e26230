package dsl

// Engine chains parsing and validation.
type Engine struct {
	parser    *Parser
	validator *Validator
}

func NewEngine() *Engine {
	return &Engine{parser: NewParser(), validator: NewValidator()}
}

// Build parses text and validates the result. A parse failure is returned
// as the error with a nil program; semantic problems are reported only in
// the ValidationResult so callers can still inspect an invalid program.
func (e *Engine) Build(text string) (*Program, *ValidationResult, error) {
	prog, err := e.parser.Parse(text)
	if err != nil {
		return nil, nil, err
	}
	return prog, e.validator.Validate(prog), nil
}

// ParseAndValidate is shorthand for NewEngine().Build(text).
func ParseAndValidate(text string) (*Program, *ValidationResult, error) {
	return NewEngine().Build(text)
}
