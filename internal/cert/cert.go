// Package cert renders warranty certificates into temporary files so they can
// be sent to the chat as documents. Certificate failures never block warranty
// activation: callers log and move on.
package cert

import (
	"fmt"
	"os"
	"text/template"
	"time"

	"github.com/warrantyhub/warranty-bot/internal/domain"
)

// Generator renders a certificate artifact. The returned cleanup removes the
// file and must always be called, including on send failures.
type Generator interface {
	Generate(u *domain.User, d *domain.Device, g *domain.Guarantee) (path string, cleanup func(), err error)
}

var certTmpl = template.Must(template.New("cert").Parse(`СЕРТИФИКАТ РАСШИРЕННОЙ ГАРАНТИИ

Владелец: {{.Surname}} {{.Name}}
Телефон: {{.Phone}}
Email: {{.Email}}

Устройство: {{.Model}}
Серийный номер: {{.Serial}}

Тариф: {{.Tier}}
{{if .HasPeriod}}Срок действия: с {{.Start}} по {{.End}}
{{end}}Дата выдачи: {{.Issued}}
`))

type certData struct {
	Surname, Name, Phone, Email string
	Model, Serial               string
	Tier                        string
	HasPeriod                   bool
	Start, End                  string
	Issued                      string
}

// File renders plain-text certificates into the OS temp directory.
type File struct{}

// Generate writes the certificate and returns its path plus a cleanup that
// removes it.
func (File) Generate(u *domain.User, d *domain.Device, g *domain.Guarantee) (string, func(), error) {
	const layout = "02.01.2006"

	data := certData{
		Surname: u.Surname,
		Name:    u.Name,
		Phone:   u.Phone,
		Email:   u.Email,
		Model:   d.Model,
		Serial:  d.SerialNumber,
		Tier:    g.Tier.Title(),
		Issued:  time.Now().UTC().Format(layout),
	}
	if g.StartDate != nil && g.EndDate != nil {
		data.HasPeriod = true
		data.Start = g.StartDate.Format(layout)
		data.End = g.EndDate.Format(layout)
	}

	f, err := os.CreateTemp("", fmt.Sprintf("certificate_%s_*.txt", d.SerialNumber))
	if err != nil {
		return "", nil, fmt.Errorf("cert: create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if err := certTmpl.Execute(f, data); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("cert: render: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("cert: close: %w", err)
	}
	return f.Name(), cleanup, nil
}
