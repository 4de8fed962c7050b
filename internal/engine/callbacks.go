// Button-press handlers. Keyboard steps check that the conversation is
// actually waiting for this kind of press; anything else is treated as a
// stale button and changes no state. Tier selection is deliberately
// stateless: the card may outlive the conversation it came from.
package engine

import (
	"context"
	"errors"

	"github.com/warrantyhub/warranty-bot/internal/chat"
	"github.com/warrantyhub/warranty-bot/internal/domain"
	"github.com/warrantyhub/warranty-bot/internal/services"
)

func (e *Engine) dispatchCallback(ctx context.Context, u *domain.User, cb chat.Callback) error {
	// Stateless callbacks first.
	switch c := cb.(type) {
	case chat.Cancel:
		return e.cbCancel(ctx, u)
	case chat.PickTier:
		return e.cbPickTier(ctx, u, c)
	}

	conv, err := e.Store.Get(ctx, u.ChatID)
	if err != nil {
		return err
	}
	if conv == nil {
		e.send(ctx, u.ChatID, msgStaleButton, nil)
		return nil
	}

	switch c := cb.(type) {
	case chat.ConsentPD:
		return e.cbConsentPD(ctx, u, conv)
	case chat.ConsentMarketing:
		return e.cbConsentMarketing(ctx, u, conv, c)
	case chat.PickSource:
		return e.cbPickSource(ctx, u, conv, c)
	case chat.Approve:
		return e.cbApprove(ctx, u, conv, c)
	case chat.Edit:
		return e.cbEdit(ctx, u, conv, c)
	case chat.ResendEmail:
		return e.cbResendEmail(ctx, u, conv)
	case chat.AdminDeleteConfirm:
		return e.cbAdminDelete(ctx, u, conv, c)
	default:
		e.send(ctx, u.ChatID, msgStaleButton, nil)
		return nil
	}
}

func (e *Engine) cbCancel(ctx context.Context, u *domain.User) error {
	conv, err := e.Store.Get(ctx, u.ChatID)
	if err != nil {
		return err
	}
	if conv == nil {
		e.send(ctx, u.ChatID, msgNothingCancel, nil)
		return nil
	}
	if err := e.Store.Clear(ctx, u.ChatID); err != nil {
		return err
	}
	e.send(ctx, u.ChatID, msgCancelled, nil)
	return nil
}

func (e *Engine) cbConsentPD(ctx context.Context, u *domain.User, conv *Conversation) error {
	if conv.Step != StepPDConsent {
		e.send(ctx, u.ChatID, msgStaleButton, nil)
		return nil
	}
	if err := e.Users.GrantPDConsent(ctx, u.ChatID); err != nil {
		return err
	}
	next := StepMarketingConsent
	if u.MarketingConsent {
		next = StepSurname
	}
	return e.advance(ctx, u.ChatID, conv, next)
}

func (e *Engine) cbConsentMarketing(ctx context.Context, u *domain.User, conv *Conversation, c chat.ConsentMarketing) error {
	if conv.Step != StepMarketingConsent {
		e.send(ctx, u.ChatID, msgStaleButton, nil)
		return nil
	}
	if err := e.Users.SetMarketingConsent(ctx, u.ChatID, c.Granted); err != nil {
		return err
	}
	return e.advance(ctx, u.ChatID, conv, StepSurname)
}

func (e *Engine) cbPickSource(ctx context.Context, u *domain.User, conv *Conversation, c chat.PickSource) error {
	if conv.Step != StepSource {
		e.send(ctx, u.ChatID, msgStaleButton, nil)
		return nil
	}
	if err := e.Users.SetOrderSource(ctx, u.ChatID, c.Source); err != nil {
		return err
	}
	if conv.Flow() == FlowEdit {
		return e.finishEdit(ctx, u, conv)
	}
	return e.advance(ctx, u.ChatID, conv, StepSerial)
}

func (e *Engine) cbApprove(ctx context.Context, u *domain.User, conv *Conversation, c chat.Approve) error {
	deviceID, ok := conv.GetInt(keyDeviceID)
	if conv.Step != StepReview || !ok || deviceID != c.DeviceID {
		e.send(ctx, u.ChatID, msgStaleButton, nil)
		return nil
	}
	if _, err := e.Devices.Get(ctx, deviceID); err != nil {
		if errors.Is(err, services.ErrDeviceNotFound) {
			e.send(ctx, u.ChatID, msgStaleButton, nil)
			return e.Store.Clear(ctx, u.ChatID)
		}
		return err
	}

	// The flow is done; the tier card stands on its own.
	if err := e.Store.Clear(ctx, u.ChatID); err != nil {
		return err
	}
	e.send(ctx, u.ChatID, msgTierChoose, tierKeyboard(deviceID, e.Guarantees.Prices))
	return nil
}

func (e *Engine) cbEdit(ctx context.Context, u *domain.User, conv *Conversation, c chat.Edit) error {
	if conv.Step != StepReview {
		e.send(ctx, u.ChatID, msgStaleButton, nil)
		return nil
	}

	var step Step
	switch c.Field {
	case chat.FieldSurname:
		step = StepSurname
	case chat.FieldName:
		step = StepName
	case chat.FieldPhone:
		step = StepPhone
	case chat.FieldEmail:
		step = StepEmail
	case chat.FieldCity:
		step = StepCity
	case chat.FieldSource:
		step = StepSource
	case chat.FieldSerial:
		step = StepSerial
	case chat.FieldPurchaseDate:
		step = StepPurchaseDate
	default:
		e.send(ctx, u.ChatID, msgStaleButton, nil)
		return nil
	}

	conv.Set(keyFlow, string(FlowEdit))
	conv.SetInt(keyDeviceID, c.DeviceID)
	return e.advance(ctx, u.ChatID, conv, step)
}

func (e *Engine) cbResendEmail(ctx context.Context, u *domain.User, conv *Conversation) error {
	if conv.Step != StepCode {
		e.send(ctx, u.ChatID, msgStaleButton, nil)
		return nil
	}
	conv.Set(keyCode, "")
	conv.Step = StepEmail
	if err := e.Store.Put(ctx, u.ChatID, conv); err != nil {
		return err
	}
	e.send(ctx, u.ChatID, msgEmailBackPrompt, nil)
	return nil
}

func (e *Engine) cbPickTier(ctx context.Context, u *domain.User, c chat.PickTier) error {
	d, err := e.Devices.Get(ctx, c.DeviceID)
	if err != nil {
		if errors.Is(err, services.ErrDeviceNotFound) {
			e.send(ctx, u.ChatID, msgStaleButton, nil)
			return nil
		}
		return err
	}
	if d.UserID != u.ChatID {
		e.send(ctx, u.ChatID, msgStaleButton, nil)
		return nil
	}

	g, err := e.Guarantees.Activate(ctx, u, d.ID, c.Tier)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrStandardAlreadyActive):
			e.send(ctx, u.ChatID, msgTierDup, nil)
			return nil
		case errors.Is(err, services.ErrNoPurchaseDate), errors.Is(err, services.ErrDeviceNotFound):
			e.send(ctx, u.ChatID, msgStaleButton, nil)
			return nil
		}
		return err
	}
	if e.Metrics != nil {
		e.Metrics.Activations.WithLabelValues(string(g.Tier)).Inc()
	}

	if c.Tier != domain.TierStandard {
		e.send(ctx, u.ChatID, msgTierPaid, nil)
		return nil
	}
	e.send(ctx, u.ChatID, msgTierStandard, nil)
	e.sendCertificate(ctx, u, d, g)
	return nil
}

// sendCertificate is fire-and-forget: any failure is logged and the warranty
// stays activated.
func (e *Engine) sendCertificate(ctx context.Context, u *domain.User, d *domain.Device, g *domain.Guarantee) {
	if e.Certs == nil {
		return
	}
	path, cleanup, err := e.Certs.Generate(u, d, g)
	if err != nil {
		e.Log.Warn().Err(err).Int64("chat_id", u.ChatID).Msg("certificate generation failed")
		return
	}
	defer cleanup()
	if err := e.Messenger.SendDocument(ctx, u.ChatID, path, "Ваш гарантийный сертификат"); err != nil {
		e.Log.Warn().Err(err).Int64("chat_id", u.ChatID).Msg("certificate delivery failed")
	}
}

func (e *Engine) cbAdminDelete(ctx context.Context, u *domain.User, conv *Conversation, c chat.AdminDeleteConfirm) error {
	if conv.Step != StepAdminConfirm || !e.isAdmin(u.ChatID) {
		e.send(ctx, u.ChatID, msgStaleButton, nil)
		return nil
	}
	deviceID, ok := conv.GetInt(keyDeviceID)
	if !ok {
		return errStale
	}
	if err := e.Store.Clear(ctx, u.ChatID); err != nil {
		return err
	}
	if !c.Confirmed {
		e.send(ctx, u.ChatID, msgAdminKept, nil)
		return nil
	}
	if err := e.Devices.SoftDelete(ctx, deviceID); err != nil {
		if errors.Is(err, services.ErrDeviceNotFound) {
			e.send(ctx, u.ChatID, msgStaleButton, nil)
			return nil
		}
		return err
	}
	e.send(ctx, u.ChatID, msgAdminDeleted, nil)
	return nil
}
