package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"coin-wallet-engine/internal/model"
)

// Notifier dispatches user-facing pushes to resource apps after a financial
// mutation has committed. Each push runs on its own goroutine with its own
// timeout context, detached from the request: a slow or failing notification
// endpoint can never abort or fail the committed operation.
type Notifier struct {
	client  RegistryClient
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewNotifier creates a Notifier. timeout bounds each individual push.
func NewNotifier(client RegistryClient, timeout time.Duration) *Notifier {
	return &Notifier{
		client:  client,
		timeout: timeout,
	}
}

// Push sends a notification asynchronously. Failures are logged and dropped.
func (n *Notifier) Push(app *model.ResourceApp, userID, title, message string) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.client.Notify(ctx, app, userID, title, message); err != nil {
			log.Warn().Err(err).
				Str("app_name", app.AppName).
				Str("user_id", userID).
				Str("title", title).
				Msg("Notification delivery failed")
			return
		}

		log.Debug().
			Str("app_name", app.AppName).
			Str("user_id", userID).
			Str("title", title).
			Msg("Notification delivered")
	}()
}

// Wait blocks until all in-flight pushes finish. Used on shutdown and in
// tests.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
