package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tazhate/freetime/config"
	"github.com/tazhate/freetime/internal/domain"
)

// digestTimeout bounds the CalDAV work for a single subscription
const digestTimeout = 2 * time.Minute

type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

// Reporter builds the digest text for a subscription
type Reporter interface {
	SubscriptionReport(ctx context.Context, sub *domain.Subscription) (string, error)
}

// SubscriptionStore lists the chats that receive the digest
type SubscriptionStore interface {
	ListSubscriptions() ([]*domain.Subscription, error)
}

type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	storage  SubscriptionStore
	reporter Reporter
	sender   MessageSender
}

func New(cfg *config.Config, storage SubscriptionStore, reporter Reporter) *Scheduler {
	c := cron.New(cron.WithLocation(cfg.Timezone))

	return &Scheduler{
		cron:     c,
		cfg:      cfg,
		storage:  storage,
		reporter: reporter,
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

// digestSpec turns "HH:MM" into a daily cron spec
func digestSpec(digestTime string) (string, error) {
	t, err := domain.ParseTimeOfDay(digestTime)
	if err != nil {
		return "", fmt.Errorf("parse digest time: %w", err)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute, t.Hour), nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	spec, err := digestSpec(s.cfg.DigestTime)
	if err != nil {
		return err
	}

	// Daily free-time digest
	if _, err := s.cron.AddFunc(spec, func() { s.sendDigests(ctx) }); err != nil {
		return fmt.Errorf("add daily digest: %w", err)
	}

	s.cron.Start()
	log.Printf("Scheduler started (TZ: %s, digest: %s)", s.cfg.Timezone, s.cfg.DigestTime)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

// sendDigests sends the digest to every subscription; one failing chat
// does not stop the others
func (s *Scheduler) sendDigests(ctx context.Context) int {
	if s.sender == nil {
		return 0
	}

	subs, err := s.storage.ListSubscriptions()
	if err != nil {
		log.Printf("Error listing subscriptions: %v", err)
		return 0
	}

	sent := 0
	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		if s.sendDigestTo(ctx, sub) {
			sent++
		}
	}

	if len(subs) > 0 {
		log.Printf("Daily digest sent to %d/%d chats", sent, len(subs))
	}
	return sent
}

func (s *Scheduler) sendDigestTo(ctx context.Context, sub *domain.Subscription) bool {
	ctx, cancel := context.WithTimeout(ctx, digestTimeout)
	defer cancel()

	text, err := s.reporter.SubscriptionReport(ctx, sub)
	if err != nil {
		log.Printf("Error building digest for chat %d: %v", sub.ChatID, err)
		return false
	}

	if err := s.sender.SendMessage(sub.ChatID, text); err != nil {
		log.Printf("Error sending digest to %d: %v", sub.ChatID, err)
		return false
	}
	return true
}
