package need

import (
	"strings"

	"github.com/nidahp/portal-api/internal/model"
)

var trainingKeywords = []string{
	"training",
	"capacity building",
	"workshop",
	"mentorship",
	"skills development",
	"clinical training",
	"orientation",
	"coaching",
}

// Classify maps a description to its program type. Any training keyword,
// matched case-insensitively anywhere in the text, makes it Training.
func Classify(description string) model.ProgramType {
	d := strings.ToLower(description)
	for _, kw := range trainingKeywords {
		if strings.Contains(d, kw) {
			return model.ProgramTraining
		}
	}
	return model.ProgramServices
}
