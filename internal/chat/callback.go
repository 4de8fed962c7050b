// Callback payload codec. Button payloads are colon-separated strings that
// must round-trip exactly between Encode and DecodeCallback; the engine never
// parses raw payloads itself.
package chat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/warrantyhub/warranty-bot/internal/domain"
)

// ErrBadCallback is returned for payloads that do not decode. The engine
// treats these as stale buttons.
var ErrBadCallback = errors.New("chat: bad callback payload")

// Field names a single editable profile or device attribute.
type Field string

const (
	FieldSurname      Field = "surname"
	FieldName         Field = "name"
	FieldPhone        Field = "phone"
	FieldEmail        Field = "email"
	FieldCity         Field = "city"
	FieldSource       Field = "source"
	FieldSerial       Field = "serial"
	FieldPurchaseDate Field = "purchase_date"
)

func parseField(s string) (Field, bool) {
	switch f := Field(s); f {
	case FieldSurname, FieldName, FieldPhone, FieldEmail, FieldCity,
		FieldSource, FieldSerial, FieldPurchaseDate:
		return f, true
	default:
		return "", false
	}
}

// Callback is a decoded button press. Exactly one concrete type below.
type Callback interface {
	isCallback()
}

// Cancel aborts the active flow from any step.
type Cancel struct{}

// ConsentPD accepts the personal-data terms.
type ConsentPD struct{}

// ConsentMarketing answers the marketing-consent question.
type ConsentMarketing struct{ Granted bool }

// PickSource answers the where-did-you-buy question.
type PickSource struct{ Source domain.OrderSource }

// Approve confirms the review card for a device registration.
type Approve struct{ DeviceID int64 }

// Edit requests re-entry of a single field from the review card.
type Edit struct {
	Field    Field
	DeviceID int64
}

// PickTier selects a warranty tier for a device.
type PickTier struct {
	DeviceID int64
	Tier     domain.Tier
}

// ResendEmail returns to the email step to get a fresh code.
type ResendEmail struct{}

// AdminDeleteConfirm answers the device-deletion confirmation prompt.
type AdminDeleteConfirm struct{ Confirmed bool }

func (Cancel) isCallback()             {}
func (ConsentPD) isCallback()          {}
func (ConsentMarketing) isCallback()   {}
func (PickSource) isCallback()         {}
func (Approve) isCallback()            {}
func (Edit) isCallback()               {}
func (PickTier) isCallback()           {}
func (ResendEmail) isCallback()        {}
func (AdminDeleteConfirm) isCallback() {}

// Encode serializes a callback into a button payload.
func Encode(cb Callback) string {
	switch c := cb.(type) {
	case Cancel:
		return "cancel"
	case ConsentPD:
		return "consent:pd"
	case ConsentMarketing:
		return "consent:marketing:" + boolToken(c.Granted)
	case PickSource:
		return "source:" + string(c.Source)
	case Approve:
		return "approve:" + strconv.FormatInt(c.DeviceID, 10)
	case Edit:
		return fmt.Sprintf("edit:%s:%d", c.Field, c.DeviceID)
	case PickTier:
		return fmt.Sprintf("tier:%d:%s", c.DeviceID, c.Tier)
	case ResendEmail:
		return "resend_email"
	case AdminDeleteConfirm:
		return "admin_delete:" + boolToken(c.Confirmed)
	default:
		// Unreachable while the Callback set above stays closed.
		panic(fmt.Sprintf("chat: unknown callback type %T", cb))
	}
}

// DecodeCallback parses a button payload back into its typed form.
func DecodeCallback(payload string) (Callback, error) {
	parts := strings.Split(payload, ":")
	switch parts[0] {
	case "cancel":
		if len(parts) == 1 {
			return Cancel{}, nil
		}
	case "resend_email":
		if len(parts) == 1 {
			return ResendEmail{}, nil
		}
	case "consent":
		if len(parts) == 2 && parts[1] == "pd" {
			return ConsentPD{}, nil
		}
		if len(parts) == 3 && parts[1] == "marketing" {
			if granted, ok := parseBoolToken(parts[2]); ok {
				return ConsentMarketing{Granted: granted}, nil
			}
		}
	case "source":
		if len(parts) == 2 {
			if src, err := domain.ParseOrderSource(parts[1]); err == nil {
				return PickSource{Source: src}, nil
			}
		}
	case "approve":
		if len(parts) == 2 {
			if id, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
				return Approve{DeviceID: id}, nil
			}
		}
	case "edit":
		if len(parts) == 3 {
			f, ok := parseField(parts[1])
			id, err := strconv.ParseInt(parts[2], 10, 64)
			if ok && err == nil {
				return Edit{Field: f, DeviceID: id}, nil
			}
		}
	case "tier":
		if len(parts) == 3 {
			id, err := strconv.ParseInt(parts[1], 10, 64)
			tier, terr := domain.ParseTier(parts[2])
			if err == nil && terr == nil {
				return PickTier{DeviceID: id, Tier: tier}, nil
			}
		}
	case "admin_delete":
		if len(parts) == 2 {
			if confirmed, ok := parseBoolToken(parts[1]); ok {
				return AdminDeleteConfirm{Confirmed: confirmed}, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrBadCallback, payload)
}

func boolToken(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func parseBoolToken(s string) (value, ok bool) {
	switch s {
	case "yes":
		return true, true
	case "no":
		return false, true
	default:
		return false, false
	}
}
