package service

import (
	"context"
	"time"

	"toolhub/server/common/infra/object"
	"toolhub/server/common/log"
)

const DefaultRetention = 7 * 24 * time.Hour

type sweepStore interface {
	List(ctx context.Context) ([]object.ObjectInfo, error)
	Remove(ctx context.Context, keys []string) error
}

// Sweeper deletes stored objects older than the retention window. Unlike
// accounting it reports failures to its caller: sweeps are explicitly
// invoked and whoever invokes one wants to know it worked.
type Sweeper struct {
	store     sweepStore
	retention time.Duration
	now       func() time.Time
}

func NewSweeper(store sweepStore, retention time.Duration) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Sweeper{store: store, retention: retention, now: time.Now}
}

// Sweep removes every object last modified strictly before the cutoff and
// returns how many were deleted. Running it again immediately deletes
// nothing.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	objects, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-s.retention)
	var expired []string
	for _, obj := range objects {
		if obj.LastModified.Before(cutoff) {
			expired = append(expired, obj.Key)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	if err := s.store.Remove(ctx, expired); err != nil {
		return 0, err
	}
	log.Infof("retention sweep deleted %d objects older than %s", len(expired), s.retention)
	return len(expired), nil
}
