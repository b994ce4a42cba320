package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/urovital/clinic-api/internal/model"
)

// RegisterValidators installs the domain rules on gin's binding validator
// and reports fields by their json name. Call once at startup.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return registerOn(v)
}

func registerOn(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	rules := map[string]validator.Func{
		"role":              validateRole,
		"capability":        validateCapability,
		"notification_type": validateNotificationType,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func validateRole(fl validator.FieldLevel) bool {
	_, err := model.ParseRole(fl.Field().String())
	return err == nil
}

func validateCapability(fl validator.FieldLevel) bool {
	_, err := model.ParseCapability(fl.Field().String())
	return err == nil
}

func validateNotificationType(fl validator.FieldLevel) bool {
	return model.NotificationType(fl.Field().String()).Valid()
}
