package validate

import (
	"errors"
	"testing"
	"time"
)

func TestName(t *testing.T) {
	ok := []string{"Ivan", "Анна", "Anna-Maria", "Салтыков-Щедрин", "ёж"}
	for _, in := range ok {
		if _, err := Name(in); err != nil {
			t.Errorf("Name(%q) unexpected error: %v", in, err)
		}
	}
	bad := []string{"", "Ivan7", "Anna Maria", "-Ivan", "Ivan-", "O'Brien", "Ivan--Petrov"}
	for _, in := range bad {
		if _, err := Name(in); !errors.Is(err, ErrName) {
			t.Errorf("Name(%q) = %v, want ErrName", in, err)
		}
	}
}

func TestPhone(t *testing.T) {
	if v, err := Phone("+79991234567"); err != nil || v != "+79991234567" {
		t.Fatalf("Phone valid: got (%q, %v)", v, err)
	}
	bad := []string{"", "79991234567", "+7999123456", "+799912345678", "+7 999 123 45 67", "+89991234567", "+7999123456a"}
	for _, in := range bad {
		if _, err := Phone(in); !errors.Is(err, ErrPhone) {
			t.Errorf("Phone(%q) = %v, want ErrPhone", in, err)
		}
	}
}

func TestEmail(t *testing.T) {
	v, err := Email("  A@B.Com ")
	if err != nil {
		t.Fatalf("Email: %v", err)
	}
	if v != "a@b.com" {
		t.Fatalf("Email normalized = %q, want a@b.com", v)
	}
	for _, in := range []string{"", "not-an-email", "a@", "@b.com", "a b@c.com"} {
		if _, err := Email(in); !errors.Is(err, ErrEmail) {
			t.Errorf("Email(%q) = %v, want ErrEmail", in, err)
		}
	}
}

func TestSerialNumber(t *testing.T) {
	if v, err := SerialNumber("0012345"); err != nil || v != "0012345" {
		t.Fatalf("SerialNumber: got (%q, %v)", v, err)
	}
	for _, in := range []string{"", "12a45", "12 345", "SN-1"} {
		if _, err := SerialNumber(in); !errors.Is(err, ErrSerialNumber) {
			t.Errorf("SerialNumber(%q) = %v, want ErrSerialNumber", in, err)
		}
	}
}

func TestPurchaseDate(t *testing.T) {
	now := time.Date(2024, 6, 15, 13, 45, 0, 0, time.UTC)

	d, err := PurchaseDate("01.06.2024", now)
	if err != nil {
		t.Fatalf("valid date: %v", err)
	}
	if !d.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("parsed = %v", d)
	}

	// Today inclusive, tomorrow out of range.
	if _, err := PurchaseDate("15.06.2024", now); err != nil {
		t.Fatalf("today should be accepted: %v", err)
	}
	if _, err := PurchaseDate("16.06.2024", now); !errors.Is(err, ErrDateRange) {
		t.Fatalf("tomorrow = %v, want ErrDateRange", err)
	}
	if _, err := PurchaseDate("31.12.1899", now); !errors.Is(err, ErrDateRange) {
		t.Fatalf("pre-1900 = %v, want ErrDateRange", err)
	}
	if _, err := PurchaseDate("01.01.1900", now); err != nil {
		t.Fatalf("lower bound should be accepted: %v", err)
	}

	// Format failures, including normalized-overflow dates.
	for _, in := range []string{"", "2024-06-01", "1.6.2024", "32.01.2020", "29.02.2023", "01.13.2020"} {
		if _, err := PurchaseDate(in, now); !errors.Is(err, ErrDateFormat) {
			t.Errorf("PurchaseDate(%q) = %v, want ErrDateFormat", in, err)
		}
	}
}

func TestCode(t *testing.T) {
	if err := Code("1234", 1234); err != nil {
		t.Fatalf("matching code: %v", err)
	}
	// Integer comparison: leading zeros are fine.
	if err := Code("0000", 0); err != nil {
		t.Fatalf("zero code with leading zeros: %v", err)
	}
	if err := Code("12a4", 1234); !errors.Is(err, ErrCodeFormat) {
		t.Fatalf("non-numeric = %v, want ErrCodeFormat", err)
	}
	if err := Code("9999", 1234); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("mismatch = %v, want ErrCodeMismatch", err)
	}
}

func TestCity(t *testing.T) {
	if v, err := City("  Нижний Новгород "); err != nil || v != "Нижний Новгород" {
		t.Fatalf("City: got (%q, %v)", v, err)
	}
	if _, err := City("   "); !errors.Is(err, ErrCity) {
		t.Fatalf("blank city = %v, want ErrCity", err)
	}
}

func TestIsInputError(t *testing.T) {
	if !IsInputError(ErrPhone) || !IsInputError(ErrCodeMismatch) {
		t.Fatal("validation kinds must be input errors")
	}
	if IsInputError(errors.New("db down")) {
		t.Fatal("arbitrary errors must not be input errors")
	}
}
