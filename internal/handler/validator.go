package handler

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/model"
	"github.com/iliyamo/store-rating/internal/utils"
)

// RequestValidator adapts go-playground/validator to echo.Validator.
// Failures come back as apperr.ErrValidation carrying one readable
// message per field.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator registers the custom rules used by the request
// DTOs: "password" (length and character policy) and "role".
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return utils.PasswordPolicyOK(fl.Field().String())
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return model.Role(fl.Field().String()).Valid()
	})
	return &RequestValidator{v: v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.ErrValidation.WithCause(err)
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldMessage(fe))
	}
	return apperr.ErrValidation.WithDetails(details...)
}

// fieldMessages holds the wording for field/tag pairs that need more
// than the generic message.
var fieldMessages = map[string]string{
	"name.min":                 "Name must be between 20 and 60 characters",
	"name.max":                 "Name must be between 20 and 60 characters",
	"email.email":              "Please provide a valid email address",
	"password.password":        "Password must be 8-16 characters and include at least one uppercase letter and one special character",
	"newPassword.password":     "Password must be 8-16 characters and include at least one uppercase letter and one special character",
	"address.max":              "Address cannot exceed 400 characters",
	"address.min":              "Address must not be empty",
	"role.role":                "Invalid role specified",
	"storeId.gt":               "Invalid store ID",
	"ownerId.gt":               "Invalid owner ID",
	"currentPassword.required": "Current password is required",
	"password.required":        "Password is required",
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " cannot exceed " + fe.Param() + " characters"
	}
	return fe.Field() + " is invalid"
}
