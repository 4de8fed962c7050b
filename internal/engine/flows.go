// Text-step handlers. Each handler validates the input, persists or stashes
// the value, and advances the conversation; a validation failure re-prompts
// and stays on the same step.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/warrantyhub/warranty-bot/internal/domain"
	"github.com/warrantyhub/warranty-bot/internal/services"
	"github.com/warrantyhub/warranty-bot/internal/validate"
)

func (e *Engine) handleTextStep(ctx context.Context, u *domain.User, conv *Conversation, text string) error {
	switch conv.Step {
	case StepSurname:
		return e.textField(ctx, u, conv, text, validate.Name, e.Users.SetSurname, StepName)
	case StepName:
		return e.textField(ctx, u, conv, text, validate.Name, e.Users.SetName, StepPhone)
	case StepPhone:
		return e.textField(ctx, u, conv, text, validate.Phone, e.Users.SetPhone, StepEmail)
	case StepEmail:
		return e.stepEmail(ctx, u, conv, text)
	case StepCode:
		return e.stepCode(ctx, u, conv, text)
	case StepCity:
		return e.textField(ctx, u, conv, text, validate.City, e.Users.SetCity, StepSource)
	case StepSerial:
		return e.stepSerial(ctx, u, conv, text)
	case StepPurchaseDate:
		return e.stepPurchaseDate(ctx, u, conv, text)
	case StepAdminSerial:
		return e.stepAdminSerial(ctx, u, conv, text)
	default:
		// A keyboard step got a text message: repeat the keyboard prompt.
		e.promptStep(ctx, u.ChatID, conv.Step)
		return nil
	}
}

// textField is the shared validate-persist-advance shape of the simple
// profile steps.
func (e *Engine) textField(
	ctx context.Context,
	u *domain.User,
	conv *Conversation,
	text string,
	validator func(string) (string, error),
	persist func(context.Context, int64, string) error,
	next Step,
) error {
	v, err := validator(text)
	if err != nil {
		e.countRetry()
		e.send(ctx, u.ChatID, validationText(err), nil)
		return nil
	}
	if err := persist(ctx, u.ChatID, v); err != nil {
		return err
	}
	if conv.Flow() == FlowEdit {
		return e.finishEdit(ctx, u, conv)
	}
	return e.advance(ctx, u.ChatID, conv, next)
}

// stepEmail stashes the candidate address and issues a verification code. The
// address is persisted only after the code matches.
func (e *Engine) stepEmail(ctx context.Context, u *domain.User, conv *Conversation, text string) error {
	email, err := validate.Email(text)
	if err != nil {
		e.countRetry()
		e.send(ctx, u.ChatID, validationText(err), nil)
		return nil
	}

	code, err := e.Mail.SendVerificationCode(ctx, email)
	if err != nil {
		// Mail outage: apologize, stay on the email step.
		e.Log.Error().Err(err).Int64("chat_id", u.ChatID).Msg("verification mail failed")
		e.send(ctx, u.ChatID, msgApology, nil)
		return nil
	}

	conv.Set(keyEmail, email)
	conv.SetInt(keyCode, int64(code))
	conv.Step = StepCode
	if err := e.Store.Put(ctx, u.ChatID, conv); err != nil {
		return err
	}
	prompt := msgCodeSent
	if code == 0 {
		prompt = msgCodeDisabled
	}
	e.send(ctx, u.ChatID, prompt, codeKeyboard())
	return nil
}

func (e *Engine) stepCode(ctx context.Context, u *domain.User, conv *Conversation, text string) error {
	issued, ok := conv.GetInt(keyCode)
	if !ok {
		// Restarted flow lost the code; send the user back to the address.
		return e.advance(ctx, u.ChatID, conv, StepEmail)
	}
	if err := validate.Code(text, int(issued)); err != nil {
		e.countRetry()
		e.send(ctx, u.ChatID, validationText(err), codeKeyboard())
		return nil
	}
	if err := e.Users.SetEmail(ctx, u.ChatID, conv.Get(keyEmail)); err != nil {
		return err
	}
	if conv.Flow() == FlowEdit {
		return e.finishEdit(ctx, u, conv)
	}
	return e.advance(ctx, u.ChatID, conv, StepCity)
}

func (e *Engine) stepSerial(ctx context.Context, u *domain.User, conv *Conversation, text string) error {
	serial, err := validate.SerialNumber(text)
	if err != nil {
		e.countRetry()
		e.send(ctx, u.ChatID, validationText(err), nil)
		return nil
	}

	d, err := e.Devices.GetOrRegister(ctx, u.ChatID, serial)
	if err != nil {
		if errors.Is(err, services.ErrDeviceOwnedByOther) {
			e.countRetry()
			e.send(ctx, u.ChatID, msgSerialOther, nil)
			return nil
		}
		return err
	}

	conv.SetInt(keyDeviceID, d.ID)
	if conv.Flow() == FlowEdit {
		// Serial edit may switch to a different device; the review card
		// always needs a fresh purchase date for it.
		if d.PurchaseDate != nil {
			return e.finishEdit(ctx, u, conv)
		}
	}
	return e.advance(ctx, u.ChatID, conv, StepPurchaseDate)
}

func (e *Engine) stepPurchaseDate(ctx context.Context, u *domain.User, conv *Conversation, text string) error {
	d, err := validate.PurchaseDate(text, time.Now().UTC())
	if err != nil {
		e.countRetry()
		e.send(ctx, u.ChatID, validationText(err), nil)
		return nil
	}
	deviceID, ok := conv.GetInt(keyDeviceID)
	if !ok {
		return errStale
	}
	if err := e.Devices.SetPurchaseDate(ctx, deviceID, d); err != nil {
		return err
	}
	return e.showReview(ctx, u, conv, deviceID)
}

// finishEdit returns an edit flow to the review card of its device.
func (e *Engine) finishEdit(ctx context.Context, u *domain.User, conv *Conversation) error {
	deviceID, ok := conv.GetInt(keyDeviceID)
	if !ok {
		return errStale
	}
	return e.showReview(ctx, u, conv, deviceID)
}

// showReview reloads the data and presents the check-your-data card.
func (e *Engine) showReview(ctx context.Context, u *domain.User, conv *Conversation, deviceID int64) error {
	fresh, err := e.Users.Get(ctx, u.ChatID)
	if err != nil {
		return err
	}
	d, err := e.Devices.Get(ctx, deviceID)
	if err != nil {
		if errors.Is(err, services.ErrDeviceNotFound) {
			if cerr := e.Store.Clear(ctx, u.ChatID); cerr != nil {
				return cerr
			}
			e.send(ctx, u.ChatID, msgStaleButton, nil)
			return nil
		}
		return err
	}

	conv.Step = StepReview
	conv.SetInt(keyDeviceID, deviceID)
	if err := e.Store.Put(ctx, u.ChatID, conv); err != nil {
		return err
	}
	e.send(ctx, u.ChatID, reviewCard(fresh, d), reviewKeyboard(deviceID))
	return nil
}

func (e *Engine) stepAdminSerial(ctx context.Context, u *domain.User, conv *Conversation, text string) error {
	serial, err := validate.SerialNumber(text)
	if err != nil {
		e.countRetry()
		e.send(ctx, u.ChatID, validationText(err), nil)
		return nil
	}
	d, err := e.Devices.GetBySerial(ctx, serial)
	if err != nil {
		if errors.Is(err, services.ErrDeviceNotFound) {
			e.send(ctx, u.ChatID, msgAdminNotFound, nil)
			return nil
		}
		return err
	}

	conv.SetInt(keyDeviceID, d.ID)
	conv.Step = StepAdminConfirm
	if err := e.Store.Put(ctx, u.ChatID, conv); err != nil {
		return err
	}
	e.send(ctx, u.ChatID, "Удалить устройство S/N "+d.SerialNumber+" вместе с его гарантиями?", adminConfirmKeyboard())
	return nil
}
