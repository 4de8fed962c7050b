// Package crm integrates with a Bitrix-style CRM over inbound webhook REST
// calls. The engine treats the whole CRM surface as best-effort: failures are
// logged by callers and never block warranty registration.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// ErrContactNotFound is returned by FindContactByPhone when no contact
// matches the phone number.
var ErrContactNotFound = errors.New("crm: contact not found")

// Contact is the subset of CRM contact fields the bot maintains.
type Contact struct {
	ID      int64
	Name    string
	Surname string
	Phone   string
	Email   string
	City    string
}

// Deal describes a warranty registration pushed to the CRM pipeline.
type Deal struct {
	Title       string
	CategoryID  int
	Opportunity int
	ContactID   int64
	Comments    string

	// Custom device fields, keyed by the CRM field code (e.g.
	// "UF_CRM_SERIAL_NUMBER"). Configured per portal.
	Custom map[string]string
}

// Gateway is the CRM operations surface used by the service layer.
type Gateway interface {
	FindContactByPhone(ctx context.Context, phone string) (*Contact, error)
	CreateContact(ctx context.Context, c *Contact) (int64, error)
	UpdateContact(ctx context.Context, c *Contact) error
	CreateDeal(ctx context.Context, d *Deal) (int64, error)
}

// Bitrix implements Gateway against a Bitrix24 inbound webhook.
type Bitrix struct {
	// WebhookURL is the portal webhook base, e.g.
	// "https://example.bitrix24.ru/rest/1/abcdef". Methods are appended as
	// "<base>/<method>.json".
	WebhookURL string

	// Client must be provided by the caller; timeouts come from the request
	// context or the client itself.
	Client *http.Client
}

// NewBitrix constructs a Bitrix gateway over the given webhook URL.
func NewBitrix(webhookURL string, client *http.Client) *Bitrix {
	if client == nil {
		client = http.DefaultClient
	}
	return &Bitrix{WebhookURL: webhookURL, Client: client}
}

func (b *Bitrix) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("crm: marshal %s: %w", method, err)
	}
	url := b.WebhookURL + "/" + method + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("crm: build %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("crm: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("crm: %s: unexpected status %d", method, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("crm: decode %s: %w", method, err)
	}
	return nil
}

// FindContactByPhone looks a contact up by exact phone match.
func (b *Bitrix) FindContactByPhone(ctx context.Context, phone string) (*Contact, error) {
	payload := map[string]any{
		"filter": map[string]any{"PHONE": phone},
		"select": []string{"ID", "NAME", "LAST_NAME"},
	}
	var out struct {
		Result []struct {
			ID       string `json:"ID"`
			Name     string `json:"NAME"`
			LastName string `json:"LAST_NAME"`
		} `json:"result"`
	}
	if err := b.call(ctx, "crm.contact.list", payload, &out); err != nil {
		return nil, err
	}
	if len(out.Result) == 0 {
		return nil, ErrContactNotFound
	}
	id, err := strconv.ParseInt(out.Result[0].ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("crm: parse contact id %q: %w", out.Result[0].ID, err)
	}
	return &Contact{
		ID:      id,
		Name:    out.Result[0].Name,
		Surname: out.Result[0].LastName,
		Phone:   phone,
	}, nil
}

func contactFields(c *Contact) map[string]any {
	return map[string]any{
		"NAME":         c.Name,
		"LAST_NAME":    c.Surname,
		"ADDRESS_CITY": c.City,
		"PHONE": []map[string]string{
			{"VALUE": c.Phone, "VALUE_TYPE": "MOBILE"},
		},
		"EMAIL": []map[string]string{
			{"VALUE": c.Email, "VALUE_TYPE": "WORK"},
		},
	}
}

// CreateContact creates a contact and returns its CRM id.
func (b *Bitrix) CreateContact(ctx context.Context, c *Contact) (int64, error) {
	var out struct {
		Result int64 `json:"result"`
	}
	payload := map[string]any{"fields": contactFields(c)}
	if err := b.call(ctx, "crm.contact.add", payload, &out); err != nil {
		return 0, err
	}
	return out.Result, nil
}

// UpdateContact overwrites the maintained fields of an existing contact.
// c.ID must be set.
func (b *Bitrix) UpdateContact(ctx context.Context, c *Contact) error {
	payload := map[string]any{
		"id":     c.ID,
		"fields": contactFields(c),
	}
	return b.call(ctx, "crm.contact.update", payload, nil)
}

// CreateDeal pushes a warranty deal and returns its CRM id.
func (b *Bitrix) CreateDeal(ctx context.Context, d *Deal) (int64, error) {
	fields := map[string]any{
		"TITLE":       d.Title,
		"CATEGORY_ID": d.CategoryID,
		"CURRENCY_ID": "RUB",
		"OPPORTUNITY": d.Opportunity,
		"CONTACT_IDS": []int64{d.ContactID},
		"COMMENTS":    d.Comments,
	}
	for k, v := range d.Custom {
		fields[k] = v
	}
	var out struct {
		Result int64 `json:"result"`
	}
	if err := b.call(ctx, "crm.deal.add", map[string]any{"fields": fields}, &out); err != nil {
		return 0, err
	}
	return out.Result, nil
}
