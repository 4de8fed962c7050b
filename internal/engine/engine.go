// Package engine implements the per-chat conversation state machine: command
// dispatch, step routing, validation re-prompts, and the integration calls a
// completed flow triggers. One event is processed at a time per chat; chats
// never block each other.
package engine

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/warrantyhub/warranty-bot/internal/cert"
	"github.com/warrantyhub/warranty-bot/internal/chat"
	"github.com/warrantyhub/warranty-bot/internal/domain"
	"github.com/warrantyhub/warranty-bot/internal/mailer"
	"github.com/warrantyhub/warranty-bot/internal/metrics"
	"github.com/warrantyhub/warranty-bot/internal/services"
)

// Engine routes incoming chat events to flow handlers. All fields except
// Metrics and Certs are required.
type Engine struct {
	Store      Store
	Messenger  chat.Messenger
	Users      *services.UserService
	Devices    *services.DeviceService
	Guarantees *services.GuaranteeService
	Mail       mailer.Sender
	Certs      cert.Generator
	Log        zerolog.Logger
	Metrics    *metrics.Metrics

	// AdminIDs lists the chat ids allowed to run privileged commands.
	AdminIDs map[int64]struct{}

	locks sync.Map // chatID -> *sync.Mutex
}

func (e *Engine) lock(chatID int64) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(chatID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (e *Engine) isAdmin(chatID int64) bool {
	_, ok := e.AdminIDs[chatID]
	return ok
}

func (e *Engine) countEvent(kind string) {
	if e.Metrics != nil {
		e.Metrics.EventsProcessed.WithLabelValues(kind).Inc()
	}
}

func (e *Engine) countRetry() {
	if e.Metrics != nil {
		e.Metrics.ValidationRetries.Inc()
	}
}

// send is a shorthand; delivery failures are logged, not propagated, so one
// failed outgoing message never wedges a flow.
func (e *Engine) send(ctx context.Context, chatID int64, text string, kb chat.Keyboard) {
	if err := e.Messenger.SendMessage(ctx, chatID, text, kb); err != nil {
		e.Log.Error().Err(err).Int64("chat_id", chatID).Msg("send message failed")
	}
}

// HandleMessage processes one text message. Events for the same chat are
// serialized; a panic or internal error yields a generic apology and leaves
// the stored conversation untouched.
func (e *Engine) HandleMessage(ctx context.Context, msg chat.IncomingMessage) {
	mu := e.lock(msg.ChatID)
	mu.Lock()
	defer mu.Unlock()
	defer e.recoverEvent(ctx, msg.ChatID)
	e.countEvent("message")

	u, err := e.Users.GetOrCreate(ctx, msg.ChatID, msg.Username, msg.DisplayName)
	if err != nil {
		e.fail(ctx, msg.ChatID, err)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		e.handleCommand(ctx, u, text)
		return
	}

	conv, err := e.Store.Get(ctx, msg.ChatID)
	if err != nil {
		e.fail(ctx, msg.ChatID, err)
		return
	}
	if conv == nil {
		e.send(ctx, msg.ChatID, msgIdleHint, nil)
		return
	}
	if err := e.handleTextStep(ctx, u, conv, text); err != nil {
		e.fail(ctx, msg.ChatID, err)
	}
}

// HandleCallback processes one button press under the same per-chat lock and
// failure policy as HandleMessage. Undecodable payloads count as stale
// buttons.
func (e *Engine) HandleCallback(ctx context.Context, cb chat.IncomingCallback) {
	mu := e.lock(cb.ChatID)
	mu.Lock()
	defer mu.Unlock()
	defer e.recoverEvent(ctx, cb.ChatID)
	e.countEvent("callback")

	decoded, err := chat.DecodeCallback(cb.Payload)
	if err != nil {
		e.Log.Debug().Str("payload", cb.Payload).Int64("chat_id", cb.ChatID).Msg("undecodable callback")
		e.send(ctx, cb.ChatID, msgStaleButton, nil)
		return
	}

	u, err := e.Users.GetOrCreate(ctx, cb.ChatID, "", "")
	if err != nil {
		e.fail(ctx, cb.ChatID, err)
		return
	}

	if err := e.dispatchCallback(ctx, u, decoded); err != nil {
		e.fail(ctx, cb.ChatID, err)
	}
}

// recoverEvent converts a handler panic into a logged apology. The stored
// conversation is whatever the last successful Put left, so the user can
// retry the same step.
func (e *Engine) recoverEvent(ctx context.Context, chatID int64) {
	if r := recover(); r != nil {
		e.Log.Error().Interface("panic", r).Int64("chat_id", chatID).Msg("recovered panic in chat handler")
		e.send(ctx, chatID, msgApology, nil)
	}
}

// fail logs an internal error and apologizes without touching state.
func (e *Engine) fail(ctx context.Context, chatID int64, err error) {
	e.Log.Error().Err(err).Int64("chat_id", chatID).Msg("chat event failed")
	e.send(ctx, chatID, msgApology, nil)
}

func (e *Engine) handleCommand(ctx context.Context, u *domain.User, text string) {
	cmd := strings.Fields(text)[0]
	switch cmd {
	case "/start":
		e.send(ctx, u.ChatID, msgStart, nil)

	case "/register":
		e.startRegistration(ctx, u)

	case "/activate":
		e.startQuickActivation(ctx, u)

	case "/my_devices":
		devices, err := e.Devices.ListByOwner(ctx, u.ChatID)
		if err != nil {
			e.fail(ctx, u.ChatID, err)
			return
		}
		if len(devices) == 0 {
			e.send(ctx, u.ChatID, msgNoDevices, nil)
			return
		}
		e.send(ctx, u.ChatID, deviceList(devices), nil)

	case "/device_delete":
		if !e.isAdmin(u.ChatID) {
			e.send(ctx, u.ChatID, msgAdminOnly, nil)
			return
		}
		conv := NewConversation(FlowAdmin, StepAdminSerial)
		if err := e.Store.Put(ctx, u.ChatID, conv); err != nil {
			e.fail(ctx, u.ChatID, err)
			return
		}
		e.send(ctx, u.ChatID, msgAdminAskSerial, nil)

	case "/cancel":
		conv, err := e.Store.Get(ctx, u.ChatID)
		if err != nil {
			e.fail(ctx, u.ChatID, err)
			return
		}
		if conv == nil {
			e.send(ctx, u.ChatID, msgNothingCancel, nil)
			return
		}
		if err := e.Store.Clear(ctx, u.ChatID); err != nil {
			e.fail(ctx, u.ChatID, err)
			return
		}
		e.send(ctx, u.ChatID, msgCancelled, nil)

	default:
		e.send(ctx, u.ChatID, msgUnknownCommand, nil)
	}
}

// startRegistration enters the full flow, skipping consent steps the user has
// already answered.
func (e *Engine) startRegistration(ctx context.Context, u *domain.User) {
	var conv *Conversation
	switch {
	case !u.PDConsent:
		conv = NewConversation(FlowRegister, StepPDConsent)
	case !u.MarketingConsent:
		conv = NewConversation(FlowRegister, StepMarketingConsent)
	default:
		conv = NewConversation(FlowRegister, StepSurname)
	}
	if err := e.Store.Put(ctx, u.ChatID, conv); err != nil {
		e.fail(ctx, u.ChatID, err)
		return
	}
	e.promptStep(ctx, u.ChatID, conv.Step)
}

// startQuickActivation enters the short serial-and-date flow for consented
// users with a complete profile; anyone else is routed into registration.
func (e *Engine) startQuickActivation(ctx context.Context, u *domain.User) {
	if !u.PDConsent || !u.ProfileComplete() {
		e.send(ctx, u.ChatID, msgProfileNeeded, nil)
		e.startRegistration(ctx, u)
		return
	}
	conv := NewConversation(FlowQuick, StepSerial)
	if err := e.Store.Put(ctx, u.ChatID, conv); err != nil {
		e.fail(ctx, u.ChatID, err)
		return
	}
	e.send(ctx, u.ChatID, msgAskSerial, nil)
}

// promptStep re-sends the prompt (and keyboard, if any) for a step. Used on
// flow entry and when a text message arrives while a keyboard step waits.
func (e *Engine) promptStep(ctx context.Context, chatID int64, step Step) {
	switch step {
	case StepPDConsent:
		e.send(ctx, chatID, msgPDConsent, pdConsentKeyboard())
	case StepMarketingConsent:
		e.send(ctx, chatID, msgMarketing, marketingKeyboard())
	case StepSurname:
		e.send(ctx, chatID, msgAskSurname, nil)
	case StepName:
		e.send(ctx, chatID, msgAskName, nil)
	case StepPhone:
		e.send(ctx, chatID, msgAskPhone, nil)
	case StepEmail:
		e.send(ctx, chatID, msgAskEmail, nil)
	case StepCity:
		e.send(ctx, chatID, msgAskCity, nil)
	case StepSource:
		e.send(ctx, chatID, msgAskSource, sourceKeyboard())
	case StepSerial:
		e.send(ctx, chatID, msgAskSerial, nil)
	case StepPurchaseDate:
		e.send(ctx, chatID, msgAskDate, nil)
	case StepAdminSerial:
		e.send(ctx, chatID, msgAdminAskSerial, nil)
	case StepReview, StepAdminConfirm:
		e.send(ctx, chatID, msgUseButtons, nil)
	}
}

// advance persists the next step and sends its prompt.
func (e *Engine) advance(ctx context.Context, chatID int64, conv *Conversation, next Step) error {
	conv.Step = next
	if err := e.Store.Put(ctx, chatID, conv); err != nil {
		return err
	}
	e.promptStep(ctx, chatID, next)
	return nil
}

var errStale = errors.New("engine: stale reference in conversation")
