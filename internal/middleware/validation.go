package middleware

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/nidahp/portal-api/internal/model"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var errorMessages = map[string]string{
	"required":        "Field is required",
	"min":             "Value is too small",
	"max":             "Value is too large",
	"gt":              "Value is too small",
	"program_type":    "Must be Training or Services",
	"training_status": "Must be Scheduled, Ongoing or Done",
}

var registerOnce sync.Once

// RegisterValidators installs the domain validators on gin's binding engine
// and reports fields by their json names.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		must(v.RegisterValidation("program_type", func(fl validator.FieldLevel) bool {
			return model.ProgramType(fl.Field().String()).Valid()
		}))
		must(v.RegisterValidation("training_status", func(fl validator.FieldLevel) bool {
			return model.TrainingStatus(fl.Field().String()).Valid()
		}))
	})
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func validationErrors(errs validator.ValidationErrors) []ValidationError {
	out := make([]ValidationError, 0, len(errs))
	for _, e := range errs {
		msg := errorMessages[e.Tag()]
		if msg == "" {
			msg = e.Error()
		}
		out = append(out, ValidationError{
			Field:   e.Field(),
			Message: msg,
		})
	}
	return out
}
