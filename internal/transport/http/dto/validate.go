package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/darkauth/server/internal/domain"
)

// validate is shared across every request DTO's Validate() method, grounded
// on the teacher's app/handlers/validation.go use of go-playground/validator
// for field-level checks (email format here; the OPAQUE wire fields below
// are opaque byte blobs validator has no useful tag for).
var validate = validator.New()

type emailField struct {
	Email string `validate:"required,email"`
}

func validateEmail(email string) error {
	if err := validate.Struct(emailField{Email: email}); err != nil {
		return domain.ErrInvalidField("email", "invalid format")
	}
	return nil
}
