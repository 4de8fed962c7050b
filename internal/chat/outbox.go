// Outbound transport bridge. The bot does not speak to any chat platform
// directly: outgoing messages are POSTed to a gateway that owns the actual
// transport, mirroring how incoming updates arrive on the webhook endpoint.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// HTTPMessenger delivers outgoing messages to a transport gateway over HTTP.
type HTTPMessenger struct {
	// BaseURL of the gateway; "/sendMessage" and "/sendDocument" are
	// appended.
	BaseURL string
	Client  *http.Client
}

// NewHTTPMessenger wraps a gateway URL.
func NewHTTPMessenger(baseURL string, client *http.Client) *HTTPMessenger {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPMessenger{BaseURL: baseURL, Client: client}
}

type outboundMessage struct {
	ChatID   int64      `json:"chat_id"`
	Text     string     `json:"text"`
	Keyboard [][]button `json:"keyboard,omitempty"`
}

type button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// SendMessage posts the text and keyboard as JSON.
func (m *HTTPMessenger) SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) error {
	out := outboundMessage{ChatID: chatID, Text: text}
	for _, row := range kb {
		var r []button
		for _, b := range row {
			r = append(r, button{Label: b.Label, Data: b.Data})
		}
		out.Keyboard = append(out.Keyboard, r)
	}
	body, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("chat: marshal outbound message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("chat: build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return m.do(req)
}

// SendDocument uploads the file as multipart form data.
func (m *HTTPMessenger) SendDocument(ctx context.Context, chatID int64, path, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("chat: open document: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chat_id", fmt.Sprintf("%d", chatID)); err != nil {
		return fmt.Errorf("chat: write field: %w", err)
	}
	if err := mw.WriteField("caption", caption); err != nil {
		return fmt.Errorf("chat: write field: %w", err)
	}
	fw, err := mw.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("chat: create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return fmt.Errorf("chat: copy document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("chat: finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/sendDocument", &buf)
	if err != nil {
		return fmt.Errorf("chat: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return m.do(req)
}

func (m *HTTPMessenger) do(req *http.Request) error {
	resp, err := m.Client.Do(req)
	if err != nil {
		return fmt.Errorf("chat: gateway call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chat: gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// LogMessenger writes outgoing traffic to the log instead of a transport.
// Used for local development when no gateway is configured.
type LogMessenger struct {
	Log zerolog.Logger
}

func (m LogMessenger) SendMessage(_ context.Context, chatID int64, text string, kb Keyboard) error {
	m.Log.Info().Int64("chat_id", chatID).Str("text", text).Int("keyboard_rows", len(kb)).Msg("outgoing message")
	return nil
}

func (m LogMessenger) SendDocument(_ context.Context, chatID int64, path, caption string) error {
	m.Log.Info().Int64("chat_id", chatID).Str("path", path).Str("caption", caption).Msg("outgoing document")
	return nil
}
