package http

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"activityhub.io/notifications/internal/domain"
)

// requestValidator implements echo.Validator on top of go-playground/validator. Field
// names in messages are the JSON or query names the client sent.
type requestValidator struct {
	v *validator.Validate
}

func newValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query", "param"} {
			name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	_ = v.RegisterValidation("notiftype", func(fl validator.FieldLevel) bool {
		return domain.NotificationType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("targettype", func(fl validator.FieldLevel) bool {
		return domain.TargetType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("notifstatus", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseStatus(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		_, err := time.Parse("15:04", s)
		return err == nil
	})
	return &requestValidator{v: v}
}

// Validate returns a domain validation error naming every failing field.
func (rv *requestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return domain.Invalidf("%v", err)
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, describe(fe))
	}
	return domain.Invalidf("%s", strings.Join(parts, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " must be at most " + fe.Param()
	case "min":
		return field + " must be at least " + fe.Param()
	case "gte":
		return field + " must be >= " + fe.Param()
	case "notiftype":
		return field + " is not a known notification type"
	case "targettype":
		return field + " must be one of activity, post, comment, user"
	case "notifstatus":
		return field + " must be one of unread, read, archived"
	case "hhmm":
		return field + " must be HH:MM"
	case "required_with":
		return field + " is required with " + fe.Param()
	}
	if fe.Param() != "" {
		return field + " failed on " + fe.Tag() + "=" + fe.Param()
	}
	return field + " failed on " + fe.Tag()
}
