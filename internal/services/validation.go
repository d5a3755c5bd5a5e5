package services

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func inputValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("course_category", func(fl validator.FieldLevel) bool {
			return types.Category(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("course_level", func(fl validator.FieldLevel) bool {
			return types.Level(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("lesson_type", func(fl validator.FieldLevel) bool {
			return types.LessonType(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("self_role", func(fl validator.FieldLevel) bool {
			return types.Role(fl.Field().String()).SelfAssignable()
		})
		validate = v
	})
	return validate
}

// validateInput turns the first failing field into a 400 with code "<field>_required" or
// "<field>_invalid".
func validateInput(in any) error {
	err := inputValidator().Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apierr.Validation("invalid_input", err)
	}
	fe := verrs[0]
	field := fe.Field()
	if fe.Tag() == "required" {
		return apierr.Validation(field+"_required", errors.New(field+" is required"))
	}
	return apierr.Validation(field+"_invalid", errors.New(field+" is invalid"))
}
