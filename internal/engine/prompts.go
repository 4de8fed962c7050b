package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/warrantyhub/warranty-bot/internal/chat"
	"github.com/warrantyhub/warranty-bot/internal/domain"
	"github.com/warrantyhub/warranty-bot/internal/validate"
)

// All user-facing texts live here so flow code stays free of literals.
const (
	msgStart = "Здравствуйте! Я помогу зарегистрировать расширенную гарантию на вашу технику.\n\n" +
		"Команды:\n/register — регистрация гарантии\n/activate — быстрая активация (если профиль уже заполнен)\n/my_devices — мои устройства\n/cancel — отменить текущий диалог"
	msgIdleHint      = "Сейчас нет активного диалога. Начните с команды /register."
	msgCancelled     = "Диалог отменён. Данные не сохранены."
	msgNothingCancel = "Отменять нечего — активного диалога нет."
	msgApology       = "Что-то пошло не так. Попробуйте ещё раз, ваш прогресс сохранён."
	msgStaleButton   = "Эта кнопка устарела. Начните заново с команды /register."

	msgPDConsent = "Для регистрации гарантии нужно согласие на обработку персональных данных."
	msgMarketing = "Хотите получать полезные материалы и сезонные напоминания?"

	msgAskSurname  = "Введите вашу фамилию:"
	msgAskName     = "Введите ваше имя:"
	msgAskPhone    = "Введите номер телефона в формате +7XXXXXXXXXX:"
	msgAskEmail    = "Введите ваш email:"
	msgAskCity     = "Из какого вы города?"
	msgAskSource   = "Где вы приобрели устройство?"
	msgAskSerial   = "Введите серийный номер устройства (только цифры):"
	msgAskDate     = "Введите дату покупки в формате ДД.ММ.ГГГГ:"
	msgSerialOther = "Этот серийный номер уже зарегистрирован другим пользователем. Проверьте номер и попробуйте снова:"

	msgCodeSent     = "Мы отправили код подтверждения на ваш email. Введите его:"
	msgCodeDisabled = "Подтверждение почты отключено. Введите код 0000:"

	msgTierChoose   = "Выберите тариф гарантии:"
	msgTierStandard = "Готово! Базовая гарантия активирована."
	msgTierPaid     = "Заявка принята. Менеджер свяжется с вами для оформления расширенной гарантии."
	msgTierDup      = "На этом устройстве уже есть активная базовая гарантия."

	msgAdminOnly        = "Команда доступна только администраторам."
	msgAdminAskSerial   = "Введите серийный номер устройства для удаления:"
	msgAdminNotFound    = "Устройство с таким серийным номером не найдено. Введите другой номер или /cancel:"
	msgAdminDeleted     = "Устройство и его гарантии удалены."
	msgAdminKept        = "Удаление отменено."
	msgNoDevices        = "У вас пока нет зарегистрированных устройств."
	msgProfileNeeded    = "Профиль ещё не заполнен. Начнём с регистрации."
	msgUnknownCommand   = "Неизвестная команда. Список команд: /start"
	msgEmailBackPrompt  = "Хорошо, введите email ещё раз:"
	msgUseButtons       = "Пожалуйста, воспользуйтесь кнопками выше."
)

// validationText maps validator sentinels to re-prompt texts.
func validationText(err error) string {
	switch {
	case errors.Is(err, validate.ErrName):
		return "Используйте только буквы и дефис. Попробуйте ещё раз:"
	case errors.Is(err, validate.ErrPhone):
		return "Номер должен быть в формате +7XXXXXXXXXX. Попробуйте ещё раз:"
	case errors.Is(err, validate.ErrEmail):
		return "Это не похоже на email. Попробуйте ещё раз:"
	case errors.Is(err, validate.ErrSerialNumber):
		return "Серийный номер состоит только из цифр. Попробуйте ещё раз:"
	case errors.Is(err, validate.ErrDateFormat):
		return "Дата должна быть в формате ДД.ММ.ГГГГ. Попробуйте ещё раз:"
	case errors.Is(err, validate.ErrDateRange):
		return "Дата покупки не может быть в будущем. Попробуйте ещё раз:"
	case errors.Is(err, validate.ErrCodeFormat):
		return "Код состоит только из цифр. Попробуйте ещё раз:"
	case errors.Is(err, validate.ErrCodeMismatch):
		return "Неверный код. Проверьте письмо и попробуйте ещё раз:"
	default:
		return "Некорректное значение. Попробуйте ещё раз:"
	}
}

func pdConsentKeyboard() chat.Keyboard {
	return chat.Row(
		chat.Button{Label: "Согласен", Data: chat.Encode(chat.ConsentPD{})},
		chat.Button{Label: "Отмена", Data: chat.Encode(chat.Cancel{})},
	)
}

func marketingKeyboard() chat.Keyboard {
	return chat.Row(
		chat.Button{Label: "Да", Data: chat.Encode(chat.ConsentMarketing{Granted: true})},
		chat.Button{Label: "Нет", Data: chat.Encode(chat.ConsentMarketing{Granted: false})},
	)
}

func sourceKeyboard() chat.Keyboard {
	var kb chat.Keyboard
	for _, src := range domain.AllOrderSources() {
		kb = append(kb, []chat.Button{{
			Label: src.Title(),
			Data:  chat.Encode(chat.PickSource{Source: src}),
		}})
	}
	return kb
}

func codeKeyboard() chat.Keyboard {
	return chat.Row(
		chat.Button{Label: "Ввести email заново", Data: chat.Encode(chat.ResendEmail{})},
	)
}

func reviewKeyboard(deviceID int64) chat.Keyboard {
	edit := func(label string, f chat.Field) chat.Button {
		return chat.Button{Label: label, Data: chat.Encode(chat.Edit{Field: f, DeviceID: deviceID})}
	}
	return chat.Keyboard{
		{chat.Button{Label: "Всё верно", Data: chat.Encode(chat.Approve{DeviceID: deviceID})}},
		{edit("Фамилия", chat.FieldSurname), edit("Имя", chat.FieldName)},
		{edit("Телефон", chat.FieldPhone), edit("Email", chat.FieldEmail)},
		{edit("Город", chat.FieldCity), edit("Где куплено", chat.FieldSource)},
		{edit("Серийный номер", chat.FieldSerial), edit("Дата покупки", chat.FieldPurchaseDate)},
		{chat.Button{Label: "Отмена", Data: chat.Encode(chat.Cancel{})}},
	}
}

func tierKeyboard(deviceID int64, prices map[domain.Tier]int) chat.Keyboard {
	label := func(t domain.Tier) string {
		if p := prices[t]; p > 0 {
			return fmt.Sprintf("%s — %d ₽", t.Title(), p)
		}
		return t.Title() + " — бесплатно"
	}
	var kb chat.Keyboard
	for _, t := range []domain.Tier{domain.TierStandard, domain.TierComfort, domain.TierPremium} {
		kb = append(kb, []chat.Button{{
			Label: label(t),
			Data:  chat.Encode(chat.PickTier{DeviceID: deviceID, Tier: t}),
		}})
	}
	return kb
}

func adminConfirmKeyboard() chat.Keyboard {
	return chat.Row(
		chat.Button{Label: "Удалить", Data: chat.Encode(chat.AdminDeleteConfirm{Confirmed: true})},
		chat.Button{Label: "Оставить", Data: chat.Encode(chat.AdminDeleteConfirm{Confirmed: false})},
	)
}

func reviewCard(u *domain.User, d *domain.Device) string {
	var b strings.Builder
	b.WriteString("Проверьте данные:\n\n")
	fmt.Fprintf(&b, "Фамилия: %s\nИмя: %s\nТелефон: %s\nEmail: %s\nГород: %s\n", u.Surname, u.Name, u.Phone, u.Email, u.City)
	if src, err := domain.ParseOrderSource(u.OrderSource); err == nil {
		fmt.Fprintf(&b, "Где куплено: %s\n", src.Title())
	}
	fmt.Fprintf(&b, "\nСерийный номер: %s\n", d.SerialNumber)
	if d.PurchaseDate != nil {
		fmt.Fprintf(&b, "Дата покупки: %s\n", d.PurchaseDate.Format(validate.DateLayout))
	}
	return b.String()
}

func deviceList(devices []domain.Device) string {
	var b strings.Builder
	b.WriteString("Ваши устройства:\n")
	for i, d := range devices {
		fmt.Fprintf(&b, "\n%d. S/N %s", i+1, d.SerialNumber)
		if d.Model != "" {
			fmt.Fprintf(&b, " (%s)", d.Model)
		}
		if d.PurchaseDate != nil {
			fmt.Fprintf(&b, ", куплено %s", d.PurchaseDate.Format(validate.DateLayout))
		}
	}
	return b.String()
}
