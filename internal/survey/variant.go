package survey

import (
	"fmt"
	"strings"
)

// Variant selects which survey flavour a deployment runs.
type Variant string

const (
	// VariantAction submits only the actions the respondent checked.
	VariantAction Variant = "action"
	// VariantOpportunity submits every barrier/opportunity pair in the
	// session roadmap, regardless of check state.
	VariantOpportunity Variant = "opportunity"
)

// ParseVariant normalizes a configured variant name.
func ParseVariant(value string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(value))) {
	case "", VariantAction:
		return VariantAction, nil
	case VariantOpportunity:
		return VariantOpportunity, nil
	default:
		return "", fmt.Errorf("survey: variant must be %q or %q", VariantAction, VariantOpportunity)
	}
}

// ItemLabel is the column and form label for the right-hand side of a pair.
func (v Variant) ItemLabel() string {
	if v == VariantOpportunity {
		return "Opportunity"
	}
	return "Action"
}

// Title is the default form heading.
func (v Variant) Title() string {
	return fmt.Sprintf("Barrier-%s Survey", v.ItemLabel())
}

// Intro is the instruction paragraph shown above the form.
func (v Variant) Intro() string {
	if v == VariantOpportunity {
		return "Please review the list of barrier-opportunity pairs below. If there is any barrier not mentioned, please add it. " +
			"If there is an opportunity relevant to a barrier, add it too. " +
			"Please use the comment box for any other thoughts particularly regarding road map and scoping."
	}
	return "Please review the list of barrier-action pairs below. If there is any barrier not mentioned, please add it. " +
		"If there is an action that can address a barrier, add it too. When you are done, check any actions your " +
		"agency can take and submit your response."
}

// SubmitsSelection reports whether the variant uses the respondent's checks.
func (v Variant) SubmitsSelection() bool {
	return v != VariantOpportunity
}
