package validation

import "strings"

// LeadForm is the contact form shown on the final funnel step.
type LeadForm struct {
	Name          string `json:"name" validate:"notblank"`
	Email         string `json:"email" validate:"notblank,contains=@"`
	Phone         string `json:"phone"`
	AcceptedTerms bool   `json:"accepted_terms" validate:"eq=true"`
}

// Validate reports whether the form may be submitted.
func (f LeadForm) Validate() error {
	return Struct(f)
}

// Valid is the boolean form of Validate.
func (f LeadForm) Valid() bool {
	return f.Validate() == nil
}

// Normalized trims name and email and masks the phone number.
func (f LeadForm) Normalized() LeadForm {
	return LeadForm{
		Name:          strings.TrimSpace(f.Name),
		Email:         strings.TrimSpace(f.Email),
		Phone:         FormatPhone(f.Phone),
		AcceptedTerms: f.AcceptedTerms,
	}
}
