package mailer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/berealtors/wrapsheet/internal/metrics"
)

// Dispatcher sends messages in the background. A send never blocks or fails
// the request that triggered it.
type Dispatcher struct {
	mailers map[string]Mailer
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher routes each message kind to its mailer. Kinds without a
// mailer are logged and dropped. m may be nil.
func NewDispatcher(mailers map[string]Mailer, logger *slog.Logger, m *metrics.Metrics, timeout time.Duration) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{mailers: mailers, logger: logger, metrics: m, timeout: timeout}
}

// Go sends msg on its own goroutine with a detached timeout context.
func (d *Dispatcher) Go(msg Message) {
	mailer, ok := d.mailers[msg.Kind]
	if !ok || mailer == nil {
		d.logger.Warn("mail disabled, dropping message", "kind", msg.Kind, "subject", msg.Subject)
		d.count(msg.Kind, "skipped")
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		err := mailer.Send(ctx, msg)
		d.count(msg.Kind, metrics.Result(err))
		if err != nil {
			d.logger.Error("send email failed", "kind", msg.Kind, "subject", msg.Subject, "error", err)
			return
		}
		d.logger.Info("email sent", "kind", msg.Kind, "recipients", len(msg.To))
	}()
}

// Wait blocks until every in-flight send has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) count(kind, result string) {
	if d.metrics != nil {
		d.metrics.Emails.WithLabelValues(kind, result).Inc()
	}
}
