// Package notify implements the scheduled follow-up messages: post-activation
// content on day 3, a review ask on day 15, and the spring/autumn seasonal
// reminders. Every message is deduplicated through the automated message log,
// so re-running a scan never sends twice.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/warrantyhub/warranty-bot/internal/chat"
	"github.com/warrantyhub/warranty-bot/internal/metrics"
	"github.com/warrantyhub/warranty-bot/internal/repo"
)

// Message type tags recorded in the log. Seasonal tags carry the year so the
// same season fires again next year.
const (
	TypeDay3Content = "day3_content"
	TypeDay15Review = "day15_review"

	seasonSpringFmt = "season_spring_%d"
	seasonAutumnFmt = "season_autumn_%d"
)

const (
	day3After  = 3 * 24 * time.Hour
	day15After = 15 * 24 * time.Hour
)

const (
	textDay3 = "Спасибо за регистрацию гарантии! Подготовили для вас материалы по уходу за техникой: советы по эксплуатации и частые вопросы."
	textDay15 = "Прошло две недели с активации гарантии. Поделитесь, пожалуйста, впечатлениями о покупке — ваш отзыв помогает другим покупателям."
	textSpring = "Весна пришла! Самое время проверить вашу технику после зимнего сезона. Напоминаем, что ваша гарантия действует."
	textAutumn = "Осень на пороге. Проверьте технику перед холодным сезоном — и помните, что ваша гарантия действует."
)

// Seasonal trigger days.
var (
	springDay = struct{ month time.Month; day int }{time.March, 15}
	autumnDay = struct{ month time.Month; day int }{time.September, 15}
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Notifier scans for due messages and delivers them.
type Notifier struct {
	DB        *gorm.DB
	Messenger chat.Messenger
	Log       zerolog.Logger
	Clock     Clock
	Metrics   *metrics.Metrics

	// Limiter paces fan-out so a large scan does not flood the transport.
	Limiter *rate.Limiter
}

// RunOnce executes one full scan: warranty follow-ups first, then seasonal
// broadcasts when today is a trigger day. Errors on individual sends are
// logged and do not stop the scan.
func (n *Notifier) RunOnce(ctx context.Context) error {
	if err := n.guaranteeFollowUps(ctx); err != nil {
		return err
	}
	return n.seasonal(ctx)
}

func (n *Notifier) guaranteeFollowUps(ctx context.Context) error {
	now := n.Clock.Now()

	due, err := repo.ListDueGuarantees(ctx, n.DB, now.Add(-day3After))
	if err != nil {
		return fmt.Errorf("notify: scan guarantees: %w", err)
	}

	for _, row := range due {
		age := now.Sub(row.Guarantee.CreatedAt)
		gid := row.Guarantee.ID

		if age >= day3After {
			n.deliver(ctx, row.User.ChatID, TypeDay3Content, &gid, textDay3)
		}
		if age >= day15After {
			n.deliver(ctx, row.User.ChatID, TypeDay15Review, &gid, textDay15)
		}
	}
	return nil
}

func (n *Notifier) seasonal(ctx context.Context) error {
	now := n.Clock.Now()

	var msgType, text string
	switch {
	case now.Month() == springDay.month && now.Day() == springDay.day:
		msgType, text = fmt.Sprintf(seasonSpringFmt, now.Year()), textSpring
	case now.Month() == autumnDay.month && now.Day() == autumnDay.day:
		msgType, text = fmt.Sprintf(seasonAutumnFmt, now.Year()), textAutumn
	default:
		return nil
	}

	chatIDs, err := repo.ListUserChatIDs(ctx, n.DB, true)
	if err != nil {
		return fmt.Errorf("notify: list recipients: %w", err)
	}
	for _, chatID := range chatIDs {
		n.deliver(ctx, chatID, msgType, nil, text)
	}
	return nil
}

// deliver sends one deduplicated message. The fast-path check avoids the send
// entirely; the log row is written only after a successful send, under a
// transaction with a re-check, so the ledger never records a message that was
// not delivered (the unique index backs this up at the schema level). Scans
// come from a single sequential runner, so at most one deliver runs at a time.
func (n *Notifier) deliver(ctx context.Context, chatID int64, msgType string, gid *int64, text string) {
	sent, err := repo.HasMessageLog(ctx, n.DB, chatID, msgType, gid)
	if err != nil {
		n.Log.Error().Err(err).Int64("chat_id", chatID).Str("type", msgType).Msg("dedup check failed")
		return
	}
	if sent {
		return
	}

	if n.Limiter != nil {
		if err := n.Limiter.Wait(ctx); err != nil {
			return
		}
	}

	if err := n.Messenger.SendMessage(ctx, chatID, text, nil); err != nil {
		n.Log.Warn().Err(err).Int64("chat_id", chatID).Str("type", msgType).Msg("notification send failed")
		return
	}

	err = n.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sent, err := repo.HasMessageLog(ctx, tx, chatID, msgType, gid)
		if err != nil {
			return err
		}
		if sent {
			return nil
		}
		return repo.CreateMessageLog(ctx, tx, chatID, msgType, gid)
	})
	if err != nil {
		n.Log.Error().Err(err).Int64("chat_id", chatID).Str("type", msgType).Msg("message log write failed")
		return
	}

	if n.Metrics != nil {
		n.Metrics.NotificationsSent.WithLabelValues(msgType).Inc()
	}
}
