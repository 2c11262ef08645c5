package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Validator defines validation methods
type Validator struct {
	Errors map[string]string
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError adds an error to the validator. The first error per field wins.
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Required checks if a string is not empty
func (v *Validator) Required(field, value string) {
	v.Check(strings.TrimSpace(value) != "", field, "must not be empty")
}

// Positive checks that an identifier was supplied
func (v *Validator) Positive(field string, value int64) {
	v.Check(value > 0, field, "must be a positive integer")
}

// Timestamp parses value with the accepted ISO-8601 layouts and records an
// error when none match.
func (v *Validator) Timestamp(field, value string) time.Time {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "must not be empty")
		return time.Time{}
	}
	t, err := ParseTimestamp(value)
	if err != nil {
		v.AddError(field, "must be an ISO-8601 timestamp")
		return time.Time{}
	}
	return t
}

// Err returns the collected errors as one error, or nil when valid.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	return Errors(v.Errors)
}

// Errors is a field → message set returned by Validator.Err.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e[field]))
	}
	return strings.Join(parts, "; ")
}
