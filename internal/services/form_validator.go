package services

import (
	"regexp"
	"strings"
	"unicode"

	domain "github.com/shopspark/api/internal/domain"
)

var (
	emailPattern      = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	cardNumberPattern = regexp.MustCompile(`^\d{16}$`)
	expiryPattern     = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cvvPattern        = regexp.MustCompile(`^\d{3,4}$`)
)

// ValidateCheckoutForm checks the shipping fields, and the payment fields when
// the shopper pays by card, returning a field-keyed error map. Every rule is
// evaluated; the map is empty when the form is valid. The function is pure and
// safe to call concurrently.
func ValidateCheckoutForm(values FormValues, method PaymentMethod) ValidationErrors {
	errs := make(ValidationErrors)

	requireField(errs, "firstName", values.FirstName, "First name is required")
	requireField(errs, "lastName", values.LastName, "Last name is required")
	requireField(errs, "address", values.Address, "Address is required")
	requireField(errs, "city", values.City, "City is required")
	requireField(errs, "state", values.State, "State is required")
	requireField(errs, "zipCode", values.ZipCode, "ZIP code is required")

	email := strings.TrimSpace(values.Email)
	switch {
	case email == "":
		errs["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		errs["email"] = "Email is invalid"
	}

	if method == domain.PaymentMethodCreditCard {
		validateCardFields(errs, values)
	}

	return errs
}

func validateCardFields(errs ValidationErrors, values FormValues) {
	cardNumber := stripSpaces(values.CardNumber)
	switch {
	case cardNumber == "":
		errs["cardNumber"] = "Card number is required"
	case !cardNumberPattern.MatchString(cardNumber):
		errs["cardNumber"] = "Card number must be 16 digits"
	}

	requireField(errs, "cardName", values.CardName, "Name on card is required")

	expiry := strings.TrimSpace(values.ExpiryDate)
	switch {
	case expiry == "":
		errs["expiryDate"] = "Expiry date is required"
	case !expiryPattern.MatchString(expiry):
		errs["expiryDate"] = "Expiry date must be MM/YY"
	}

	cvv := strings.TrimSpace(values.CVV)
	switch {
	case cvv == "":
		errs["cvv"] = "CVV is required"
	case !cvvPattern.MatchString(cvv):
		errs["cvv"] = "CVV must be 3 or 4 digits"
	}
}

func requireField(errs ValidationErrors, field, value, message string) {
	if strings.TrimSpace(value) == "" {
		errs[field] = message
	}
}

func stripSpaces(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)
}
