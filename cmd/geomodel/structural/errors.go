package structural

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrTransformation       = errors.New("transformation failed")
	ErrRockNotFound         = errors.New("rock not found")
	ErrInsufficientSurfaces = errors.New("need at least 2 surfaces")
	ErrCyclicOrder          = errors.New("circular dependency detected in event ordering")
	ErrInvalidOptions       = errors.New("invalid model options")

	ErrSpatialGeneration = errors.New("spatial generation failed")

	ErrTooFewSurfaces          = errors.New("too few surfaces")
	ErrSurfaceMultiplyAssigned = errors.New("surface assigned to multiple groups")
	ErrSurfaceUnassigned       = errors.New("surface not assigned to any group")
	ErrUnknownSurface          = errors.New("unknown surface in group")
	ErrMultipleBasement        = errors.New("multiple basement groups")
	ErrGroupIndexGap           = errors.New("group indices not sequential")
	ErrTooFewPoints            = errors.New("too few surface points")
	ErrMissingOrientation      = errors.New("group without orientation")
)

// TransformationError is returned by Transform. It matches ErrTransformation
// and its cause sentinel with errors.Is.
type TransformationError struct {
	Cause  error
	Detail string
}

func (e *TransformationError) Error() string {
	return "transform: " + e.Detail
}

func (e *TransformationError) Unwrap() []error {
	return []error{ErrTransformation, e.Cause}
}

func transformErr(cause error, format string, args ...any) *TransformationError {
	return &TransformationError{Cause: cause, Detail: fmt.Sprintf(format, args...)}
}

// describeValidation flattens validator errors into one line.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "ltfield":
			parts = append(parts, fmt.Sprintf("%s must be less than %s", fe.Namespace(), fe.Param()))
		case "gte", "lte":
			parts = append(parts, fmt.Sprintf("%s must be %s %s (got %v)", fe.Namespace(), opWord(fe.Tag()), fe.Param(), fe.Value()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func opWord(tag string) string {
	if tag == "gte" {
		return ">="
	}
	return "<="
}

// ConfigIssue is one error found by ConfigValidator or DataValidator. Kind
// is one of the sentinel errors above.
type ConfigIssue struct {
	Kind     error
	Message  string
	Surfaces []string
	Indices  []int
}

func (i ConfigIssue) Error() string { return i.Message }
func (i ConfigIssue) Unwrap() error { return i.Kind }

// ConfigResult accumulates issues; warnings never invalidate a config.
type ConfigResult struct {
	Errors   []ConfigIssue
	Warnings []string
}

func (r *ConfigResult) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *ConfigResult) addError(issue ConfigIssue) {
	r.Errors = append(r.Errors, issue)
}

func (r *ConfigResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Merge appends other's findings.
func (r *ConfigResult) Merge(other *ConfigResult) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Err joins the errors, or returns nil.
func (r *ConfigResult) Err() error {
	if r.IsValid() {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}
