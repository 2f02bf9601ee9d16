package purge

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wikistore/cosbackend/internal/mq"
)

// DefaultChannel is the queue purge tasks are published to.
const DefaultChannel = "cdn-purge"

// Publisher is the queue side the scheduler needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Scheduler turns purge requests into queued tasks.
type Scheduler struct {
	pub     Publisher
	channel string
	log     zerolog.Logger
	now     func() time.Time
}

// NewScheduler constructs a Scheduler publishing on channel.
func NewScheduler(pub Publisher, channel string, log zerolog.Logger) *Scheduler {
	if strings.TrimSpace(channel) == "" {
		channel = DefaultChannel
	}
	return &Scheduler{
		pub:     pub,
		channel: channel,
		log:     log.With().Str("component", "purge-scheduler").Logger(),
		now:     time.Now,
	}
}

// Schedule publishes a task purging urls. It returns once the task is queued.
func (s *Scheduler) Schedule(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return errors.New("no urls to purge")
	}
	data, err := Task{URLs: urls, ScheduledAt: s.now().UTC()}.Encode()
	if err != nil {
		return err
	}
	id, err := s.pub.Publish(ctx, s.channel, data, map[string]string{mq.AttrContentType: "application/json"})
	if err != nil {
		return err
	}
	s.log.Debug().Str("message_id", id).Strs("urls", urls).Msg("purge scheduled")
	return nil
}

// Channel returns the queue name.
func (s *Scheduler) Channel() string {
	return s.channel
}
