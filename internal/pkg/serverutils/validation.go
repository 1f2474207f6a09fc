package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists the fields that failed their tags.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, rule := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s failed on %s", field, rule))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &ValidationError{Fields: fields}
}
