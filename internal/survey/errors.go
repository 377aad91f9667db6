package survey

import (
	"fmt"
	"strings"
)

// ValidationError reports input the respondent has to correct before the
// response can be submitted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks the submit preconditions for variant. The action variant
// needs a name and at least one checked action; the opportunity variant only
// needs a name.
func Validate(variant Variant, name string, selection Selection) error {
	if variant.SubmitsSelection() && len(selection) == 0 {
		return &ValidationError{
			Field:   "selection",
			Message: fmt.Sprintf("Please select at least one %s before submitting.", strings.ToLower(variant.ItemLabel())),
		}
	}
	if strings.TrimSpace(name) == "" {
		return &ValidationError{
			Field:   "name",
			Message: "Please enter your name and agency before submitting.",
		}
	}
	return nil
}
