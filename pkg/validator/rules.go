package validator

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Required fails on an empty or whitespace only value.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{
			Field:          field,
			Message:        "is required",
			TranslationKey: "validation.required",
		},
	}
}

// MinLen counts characters, not bytes.
func MinLen(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) >= min },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be at least %d characters long", min),
			TranslationKey: "validation.min_length",
		},
	}
}

// MaxLen counts characters, not bytes.
func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be at most %d characters long", max),
			TranslationKey: "validation.max_length",
		},
	}
}

// MaxBytes limits the encoded size of value.
func MaxBytes(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return len(value) <= max },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be at most %d bytes long", max),
			TranslationKey: "validation.max_bytes",
		},
	}
}

// ValidEmail fails when value is not accepted by IsEmail.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool { return IsEmail(value) },
		Error: ValidationError{
			Field:          field,
			Message:        "must be a valid email address",
			TranslationKey: "validation.email",
		},
	}
}

// IsEmail reports whether value is a bare RFC 5322 address with a dotted
// domain. Display names such as "Alice <a@x.com>" are rejected. Surrounding
// whitespace is ignored.
func IsEmail(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(value, '@')
	domain := value[at+1:]
	return at > 0 && strings.Contains(domain, ".") &&
		!strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
