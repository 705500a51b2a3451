package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Func normalizes a raw value or returns a user-facing validation error.
type Func func(raw string) (string, error)

// Registry maps field types to validator functions.
type Registry struct {
	validators map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{validators: map[string]Func{}}
}

func (r *Registry) Register(fieldType string, fn Func) {
	r.validators[fieldType] = fn
}

// Validate runs the registered validator for fieldType. Types without a
// validator fall back to a trim. The error message is returned as data, not
// propagated, so callers can record it on the field state.
func (r *Registry) Validate(fieldType, raw string) (normalized string, errMsg string) {
	fn, ok := r.validators[fieldType]
	if !ok {
		return strings.TrimSpace(raw), ""
	}
	normalized, err := fn(raw)
	if err != nil {
		return strings.TrimSpace(raw), err.Error()
	}
	return normalized, ""
}

// Default returns a registry with the standard validators registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register("date", NormalizeDate)
	r.Register("email", NormalizeEmail)
	r.Register("money", NormalizeMoney)
	r.Register("iban", NormalizeIBAN)
	r.Register("rnokpp", NormalizeRNOKPP)
	r.Register("edrpou", NormalizeEDRPOU)
	r.Register("person_name", NormalizePersonName)
	r.Register("address", NormalizeAddress)
	return r
}

// InferType infers the validation type from a field name. Party fields carry
// no declared type, so naming conventions decide which validator applies.
func InferType(fieldName string) string {
	name := strings.ToLower(fieldName)

	switch {
	case strings.Contains(name, "iban"):
		return "iban"
	case strings.Contains(name, "rnokpp"), strings.Contains(name, "tax_id"), strings.Contains(name, "ipn"):
		return "rnokpp"
	case strings.Contains(name, "edrpou"):
		return "edrpou"
	case strings.Contains(name, "date"), strings.HasSuffix(name, "_at"):
		return "date"
	case strings.Contains(name, "email"), strings.Contains(name, "mail"):
		return "email"
	case strings.Contains(name, "amount"), strings.Contains(name, "price"), strings.Contains(name, "sum"):
		return "money"
	case strings.Contains(name, "name"):
		return "person_name"
	case strings.Contains(name, "address"), strings.Contains(name, "addr"):
		return "address"
	default:
		return "text"
	}
}

var dateLayouts = []string{
	"02.01.2006",
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
}

// NormalizeDate accepts common date spellings and normalizes to DD.MM.YYYY.
func NormalizeDate(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", fmt.Errorf("date must not be empty")
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.Format("02.01.2006"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date format: %q", v)
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func NormalizeEmail(raw string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if !emailRe.MatchString(v) {
		return "", fmt.Errorf("invalid email address")
	}
	return v, nil
}

// NormalizeMoney parses an amount with optional thousands separators and a
// comma or dot decimal part, normalizing to a dot-decimal string with two
// fraction digits.
func NormalizeMoney(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	v = strings.ReplaceAll(v, " ", "")
	v = strings.ReplaceAll(v, " ", "")
	v = strings.ReplaceAll(v, ",", ".")
	if v == "" {
		return "", fmt.Errorf("amount must not be empty")
	}
	amount, err := strconv.ParseFloat(v, 64)
	if err != nil || amount < 0 {
		return "", fmt.Errorf("invalid amount: %q", raw)
	}
	return strconv.FormatFloat(amount, 'f', 2, 64), nil
}

var ibanRe = regexp.MustCompile(`^UA\d{27}$`)

// NormalizeIBAN validates a Ukrainian IBAN (UA + 27 digits), stripping spaces.
func NormalizeIBAN(raw string) (string, error) {
	v := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	if !ibanRe.MatchString(v) {
		return "", fmt.Errorf("invalid IBAN: expected UA followed by 27 digits")
	}
	return v, nil
}

var digitsOnly = regexp.MustCompile(`^\d+$`)

// NormalizeRNOKPP validates a personal tax number (10 digits).
func NormalizeRNOKPP(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if len(v) != 10 || !digitsOnly.MatchString(v) {
		return "", fmt.Errorf("tax number must be exactly 10 digits")
	}
	return v, nil
}

// NormalizeEDRPOU validates a company registry code (8 digits).
func NormalizeEDRPOU(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if len(v) != 8 || !digitsOnly.MatchString(v) {
		return "", fmt.Errorf("company code must be exactly 8 digits")
	}
	return v, nil
}

var spacesRe = regexp.MustCompile(`\s+`)

func NormalizePersonName(raw string) (string, error) {
	v := spacesRe.ReplaceAllString(strings.TrimSpace(raw), " ")
	if v == "" {
		return "", fmt.Errorf("name must not be empty")
	}
	return v, nil
}

func NormalizeAddress(raw string) (string, error) {
	v := spacesRe.ReplaceAllString(strings.TrimSpace(raw), " ")
	if len(v) < 5 {
		return "", fmt.Errorf("address is too short")
	}
	return v, nil
}
