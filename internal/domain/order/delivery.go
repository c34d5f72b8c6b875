package order

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// DeliveryDetails is where and to whom an order is delivered.
type DeliveryDetails struct {
	FullName string
	Address  string
	City     string
	ZipCode  string
}

// ValidationError lists invalid delivery fields with user-facing messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid delivery details: " + strings.Join(names, ", ")
}

// Normalize trims surrounding whitespace from every field.
func (d DeliveryDetails) Normalize() DeliveryDetails {
	return DeliveryDetails{
		FullName: strings.TrimSpace(d.FullName),
		Address:  strings.TrimSpace(d.Address),
		City:     strings.TrimSpace(d.City),
		ZipCode:  strings.TrimSpace(d.ZipCode),
	}
}

// Validate checks the details and returns a *ValidationError naming every
// invalid field, keyed by its JSON name.
func (d DeliveryDetails) Validate() error {
	fields := make(map[string]string)
	if utf8.RuneCountInString(d.FullName) < 2 {
		fields["fullName"] = "Full name must be at least 2 characters."
	}
	if utf8.RuneCountInString(d.Address) < 5 {
		fields["address"] = "Please enter a valid address."
	}
	if utf8.RuneCountInString(d.City) < 2 {
		fields["city"] = "Please enter a valid city."
	}
	if !zipPattern.MatchString(d.ZipCode) {
		fields["zipCode"] = "Please enter a valid ZIP code."
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
