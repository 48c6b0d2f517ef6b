package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const (
	// MaxCandidates is the largest number of candidate accounts accepted per job.
	MaxCandidates = 5
	// MaxHandleLength mirrors the Instagram username limit enforced by the API.
	MaxHandleLength = 30
)

// Request is the body sent when submitting a new analysis job.
type Request struct {
	Brand      string   `json:"brand_username" validate:"required,notblank,max=30"`
	Candidates []string `json:"influencer_usernames" validate:"required,min=1,max=5,dive,required,notblank,max=30"`
}

// ValidationError lists every problem found in a request before submission.
type ValidationError struct {
	Errors []FieldError
}

type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "invalid analysis request: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("registering notblank validation: %v", err))
	}
	return v
}

// NewRequest normalizes handles (trims whitespace and a leading "@", drops
// empty candidate entries) and validates the result.
func NewRequest(brand string, candidates []string) (*Request, error) {
	req := &Request{
		Brand:      NormalizeHandle(brand),
		Candidates: make([]string, 0, len(candidates)),
	}

	for _, c := range candidates {
		if handle := NormalizeHandle(c); handle != "" {
			req.Candidates = append(req.Candidates, handle)
		}
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return req, nil
}

// NormalizeHandle trims surrounding whitespace and a leading "@".
func NormalizeHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	handle = strings.TrimPrefix(handle, "@")
	return strings.TrimSpace(handle)
}

// Validate checks the request invariants: a non-empty brand handle and
// between one and five non-empty candidate handles.
func (r *Request) Validate() error {
	if r == nil {
		return &ValidationError{Errors: []FieldError{{Field: "request", Message: "is required"}}}
	}

	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating analysis request: %w", err)
	}

	result := &ValidationError{Errors: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		result.Errors = append(result.Errors, FieldError{
			Field:   fieldLabel(fe),
			Message: ruleMessage(fe),
		})
	}

	return result
}

func fieldLabel(fe validator.FieldError) string {
	switch {
	case fe.StructField() == "Brand":
		return "brand_username"
	case strings.HasPrefix(fe.Field(), "Candidates["):
		return "influencer_usernames" + strings.TrimPrefix(fe.Field(), "Candidates")
	default:
		return "influencer_usernames"
	}
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.StructField() == "Candidates" {
			return "at least one candidate handle is required"
		}
		return "must not be empty"
	case "notblank":
		return "must not be blank"
	case "min":
		return fmt.Sprintf("at least %s candidate handle is required", fe.Param())
	case "max":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("at most %s candidate handles are allowed", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %q rule", fe.Tag())
	}
}
