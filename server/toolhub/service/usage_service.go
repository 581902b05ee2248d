package service

import (
	"context"
	"time"

	"toolhub/server/common/log"
	"toolhub/server/toolhub/domain"
	"toolhub/server/toolhub/repository"
)

const recordTimeout = 5 * time.Second

type activityStore interface {
	InsertActivity(ctx context.Context, entry domain.ActivityEntry) error
	IncrementCounter(ctx context.Context, endpoint string) error
}

type usagePublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// UsageService does best-effort accounting. Every failure in here is logged
// and swallowed: accounting must never surface into a caller's response.
type UsageService struct {
	repo      activityStore
	publisher usagePublisher
}

// NewUsageService accepts a nil publisher when no broker is configured.
func NewUsageService(repo activityStore, publisher usagePublisher) *UsageService {
	return &UsageService{repo: repo, publisher: publisher}
}

func (s *UsageService) Record(ctx context.Context, entry domain.ActivityEntry) {
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	if entry.CallerID == "" {
		entry.CallerID = "anonymous"
	}
	if err := s.repo.InsertActivity(ctx, entry); err != nil {
		log.Warnf("record activity for %s: %v", entry.Endpoint, err)
	}
	if err := s.repo.IncrementCounter(ctx, entry.Endpoint); err != nil {
		log.Warnf("increment counter for %s: %v", entry.Endpoint, err)
	}
	if err := s.repo.IncrementCounter(ctx, repository.TotalCounterKey); err != nil {
		log.Warnf("increment total counter: %v", err)
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, "usage.recorded", entry); err != nil {
			log.Warnf("publish usage event for %s: %v", entry.Endpoint, err)
		}
	}
}
