// Package validate contains the pure input validators used by the
// conversation engine. Each validator accepts a raw user-supplied string and
// either returns a normalized value or fails with one of the sentinel error
// kinds below; malformed-but-checkable input never panics.
package validate

import (
	"errors"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Validation error kinds. The engine maps each of these onto a re-prompt of
// the same conversation step with a field-specific message.
var (
	// ErrName rejects names/surnames containing anything but letters and
	// single hyphens between word parts.
	ErrName = errors.New("name must contain only letters, optionally hyphen-joined")

	// ErrPhone rejects phone numbers not matching +7 followed by 10 digits.
	ErrPhone = errors.New("phone must be +7 followed by 10 digits, no separators")

	// ErrEmail rejects addresses that fail RFC 5322 parsing.
	ErrEmail = errors.New("email address is not valid")

	// ErrSerialNumber rejects serial numbers that are not all digits.
	ErrSerialNumber = errors.New("serial number must contain only digits")

	// ErrDateFormat rejects dates not matching DD.MM.YYYY.
	ErrDateFormat = errors.New("date must be in DD.MM.YYYY format")

	// ErrDateRange rejects dates outside [1900-01-01, today].
	ErrDateRange = errors.New("date must be between 01.01.1900 and today")

	// ErrCodeFormat rejects verification codes that are not all digits.
	ErrCodeFormat = errors.New("verification code must contain only digits")

	// ErrCodeMismatch rejects numeric codes that do not match the issued one.
	ErrCodeMismatch = errors.New("verification code does not match")

	// ErrCity rejects empty or unreasonably long city names.
	ErrCity = errors.New("city name must be non-empty and at most 100 characters")
)

// DateLayout is the only accepted purchase-date format.
const DateLayout = "02.01.2006"

var (
	nameRE   = regexp.MustCompile(`^[A-Za-zА-Яа-яЁё]+(?:-[A-Za-zА-Яа-яЁё]+)*$`)
	phoneRE  = regexp.MustCompile(`^\+7\d{10}$`)
	digitsRE = regexp.MustCompile(`^\d+$`)
)

// minDate is the lower bound of the accepted purchase-date window.
var minDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Name validates a first or last name: letters (Latin or Cyrillic),
// optionally hyphen-joined. Returns the trimmed value.
func Name(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if !nameRE.MatchString(v) {
		return "", ErrName
	}
	return v, nil
}

// Phone validates a phone number of the exact shape +7 plus 10 digits and
// returns it unchanged.
func Phone(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if !phoneRE.MatchString(v) {
		return "", ErrPhone
	}
	return v, nil
}

// Email parses the address per RFC 5322 and returns the normalized form
// (bare address, lowercased) that gets persisted.
func Email(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrEmail
	}
	return strings.ToLower(addr.Address), nil
}

// City accepts any non-empty free-form name up to 100 characters; cities may
// contain spaces and punctuation, so no alphabet restriction applies.
func City(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" || len([]rune(v)) > 100 {
		return "", ErrCity
	}
	return v, nil
}

// SerialNumber validates a device serial: one or more digits, nothing else.
func SerialNumber(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if !digitsRE.MatchString(v) {
		return "", ErrSerialNumber
	}
	return v, nil
}

// PurchaseDate validates a strict DD.MM.YYYY date that additionally falls
// within [1900-01-01, today]. Format and range failures are distinct kinds.
// "Today" is evaluated against now, which callers supply so the window is
// deterministic under test.
func PurchaseDate(raw string, now time.Time) (time.Time, error) {
	v := strings.TrimSpace(raw)
	d, err := time.ParseInLocation(DateLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, ErrDateFormat
	}
	// time.Parse normalizes overflow (32.01 -> 01.02); round-trip to catch it.
	if d.Format(DateLayout) != v {
		return time.Time{}, ErrDateFormat
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.Before(minDate) || d.After(today) {
		return time.Time{}, ErrDateRange
	}
	return d, nil
}

// Code checks a user-entered verification code against the issued one.
// Non-numeric input and numeric mismatch are distinct kinds; the comparison
// is integer-valued so leading zeros do not matter.
func Code(raw string, issued int) error {
	v := strings.TrimSpace(raw)
	if !digitsRE.MatchString(v) {
		return ErrCodeFormat
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return ErrCodeFormat
	}
	if n != issued {
		return ErrCodeMismatch
	}
	return nil
}

// IsInputError reports whether err is one of the validation kinds above, as
// opposed to a domain or infrastructure failure.
func IsInputError(err error) bool {
	for _, kind := range []error{
		ErrName, ErrPhone, ErrEmail, ErrSerialNumber,
		ErrDateFormat, ErrDateRange, ErrCodeFormat, ErrCodeMismatch, ErrCity,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
