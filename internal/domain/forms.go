package domain

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("notblank", validators.NotBlank)
	})
	return validate
}

// Credentials is the login and registration form. Only presence is checked, there are no format or
// complexity rules.
type Credentials struct {
	Username string        `validate:"required"`
	Password PrivateString `validate:"required"`
}

// Validate checks that both fields were filled in.
func (c Credentials) Validate() error {
	return validateForm(c, "Username and password are required")
}

// CandidateForm is used to create or rename a candidate.
type CandidateForm struct {
	Name string `validate:"notblank"`
}

// Validate checks that the name contains at least one non-whitespace character.
func (f CandidateForm) Validate() error {
	return validateForm(f, "Candidate name is required")
}

func validateForm(form any, msg string) error {
	err := getValidator().Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Msg: msg}
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return &ValidationError{Fields: fields, Msg: msg}
}
