package run

import (
	"context"
	"fmt"

	rds "harvester/internal/platform/redis"
)

type Service struct{ redis *rds.Service }

func NewService(redis *rds.Service) *Service { return &Service{redis: redis} }

func (s *Service) Get(ctx context.Context, runID string) (*Run, error) {
	var r Run
	if err := s.redis.CacheGet(ctx, key(runID), &r); err != nil {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	return &r, nil
}

func (s *Service) InitPending(ctx context.Context, runID, source string) error {
	return s.store(ctx, Run{RunID: runID, Source: source, Status: StatusPending})
}

func (s *Service) SetProcessing(ctx context.Context, runID, source string) error {
	return s.store(ctx, Run{RunID: runID, Source: source, Status: StatusProcessing})
}

func (s *Service) Complete(ctx context.Context, runID, source string, summary *Summary) error {
	return s.store(ctx, Run{RunID: runID, Source: source, Status: StatusCompleted, Summary: summary})
}

func (s *Service) Fail(ctx context.Context, runID, source string, cause error, summary *Summary) error {
	r := Run{RunID: runID, Source: source, Status: StatusFailed, Summary: summary}
	if cause != nil {
		r.Error = cause.Error()
	}
	return s.store(ctx, r)
}

func (s *Service) store(ctx context.Context, r Run) error {
	if err := s.redis.CacheSet(ctx, key(r.RunID), r, ttl(r.Status)); err != nil {
		return err
	}
	// Publish an update event for status pollers
	_ = s.redis.Client().Publish(ctx, key(r.RunID), "updated").Err()
	return nil
}

func key(id string) string { return "run:" + id }

func ttl(s Status) int {
	if s == StatusCompleted || s == StatusFailed {
		return 3600
	}
	return 600
}
