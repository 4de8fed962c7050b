package notify

import (
	"context"
	"time"
)

// Run executes RunOnce immediately and then on every tick until ctx is done.
// Scan errors are logged and the loop keeps going.
func (n *Notifier) Run(ctx context.Context, interval time.Duration) {
	n.Log.Info().Dur("interval", interval).Msg("notification runner started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := n.RunOnce(ctx); err != nil {
			n.Log.Error().Err(err).Msg("notification scan failed")
		}
		select {
		case <-ctx.Done():
			n.Log.Info().Msg("notification runner stopped")
			return
		case <-ticker.C:
		}
	}
}
