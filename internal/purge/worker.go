package purge

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/wikistore/cosbackend/internal/mq"
)

// Worker consumes purge tasks and forwards them to a Purger.
type Worker struct {
	purger Purger
	log    zerolog.Logger
}

// NewWorker constructs a Worker.
func NewWorker(purger Purger, log zerolog.Logger) *Worker {
	return &Worker{
		purger: purger,
		log:    log.With().Str("component", "purge-worker").Logger(),
	}
}

// Handle executes one task. Failures are logged and the message is
// acknowledged anyway: purges are best effort and never retried.
func (w *Worker) Handle(ctx context.Context, msg mq.Message) error {
	task, err := DecodeTask(msg.Data)
	if err != nil {
		w.log.Error().Err(err).Str("message_id", msg.ID).Msg("dropping malformed purge task")
		return nil
	}
	if err := w.purger.PurgeURLs(ctx, task.URLs); err != nil {
		w.log.Error().Err(err).Str("message_id", msg.ID).Strs("urls", task.URLs).Msg("cdn purge failed")
		return nil
	}
	w.log.Info().Str("message_id", msg.ID).Int("urls", len(task.URLs)).Msg("cdn purge done")
	return nil
}

// Run consumes channel until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, queue *mq.MQ, channel string) error {
	if channel == "" {
		channel = DefaultChannel
	}
	return queue.Subscribe(ctx, channel, w.Handle)
}
