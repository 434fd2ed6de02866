package listings

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs the custom binding rules used by listing
// requests. Called once from router setup.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("hourmap", validateHourMap)
	}
}

// validateHourMap accepts open-hour maps keyed by weekday with hour values
// in 0-23
func validateHourMap(fl validator.FieldLevel) bool {
	m, ok := fl.Field().Interface().(map[string][]int)
	if !ok {
		return false
	}

	validDays := map[string]bool{
		"sun": true, "mon": true, "tue": true, "wed": true,
		"thu": true, "fri": true, "sat": true,
	}

	for day, hours := range m {
		if !validDays[day] {
			return false
		}
		for _, h := range hours {
			if h < 0 || h > 23 {
				return false
			}
		}
	}
	return true
}
