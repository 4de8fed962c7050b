package engine

import "strconv"

// Data bag keys. Everything flow-scoped lives here and dies with the
// conversation: restarting a flow invalidates pending codes and stashed ids.
const (
	keyFlow     = "flow"
	keyDeviceID = "device_id"
	keyEmail    = "email"
	keyCode     = "code"
)

// Conversation is the per-chat dialogue state. The zero value is not used;
// absence of a conversation means the chat is idle.
type Conversation struct {
	Step Step              `json:"step"`
	Data map[string]string `json:"data,omitempty"`
}

// NewConversation starts a conversation for the given flow.
func NewConversation(flow Flow, step Step) *Conversation {
	return &Conversation{
		Step: step,
		Data: map[string]string{keyFlow: string(flow)},
	}
}

// Flow reports which scenario owns the conversation.
func (c *Conversation) Flow() Flow {
	return Flow(c.Data[keyFlow])
}

// Set stores a flow-scoped value.
func (c *Conversation) Set(key, value string) {
	if c.Data == nil {
		c.Data = map[string]string{}
	}
	c.Data[key] = value
}

// Get reads a flow-scoped value; missing keys return "".
func (c *Conversation) Get(key string) string {
	return c.Data[key]
}

// SetInt and GetInt cover the id and code values kept in the bag.
func (c *Conversation) SetInt(key string, v int64) {
	c.Set(key, strconv.FormatInt(v, 10))
}

func (c *Conversation) GetInt(key string) (int64, bool) {
	v, err := strconv.ParseInt(c.Data[key], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// clone returns an independent copy so store implementations never alias the
// caller's map.
func (c *Conversation) clone() *Conversation {
	cp := &Conversation{Step: c.Step}
	if c.Data != nil {
		cp.Data = make(map[string]string, len(c.Data))
		for k, v := range c.Data {
			cp.Data[k] = v
		}
	}
	return cp
}
