package handlers

import (
	"slices"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"rentaudit/internal/models"
)

var registerOnce sync.Once

// registerValidators adds the listing enum tags to gin's validator.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("fueltype", enumValidator(models.FuelTypes))
		_ = v.RegisterValidation("transmission", enumValidator(models.Transmissions))
	})
}

func enumValidator(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return slices.Contains(allowed, fl.Field().String())
	}
}
