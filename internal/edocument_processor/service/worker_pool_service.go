package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/logger"
	"github.com/panjf2000/ants/v2"
)

// drainTimeout bounds how long Shutdown waits for running submissions.
const drainTimeout = 10 * time.Second

// ErrPoolClosed is returned by Submit after Shutdown.
var ErrPoolClosed = errors.New("submission worker pool is shut down")

// WorkerPoolSubmissionService bounds how many submissions run at once. Submit
// blocks until its request was handled, so the Kafka offset is only committed
// for finished work.
type WorkerPoolSubmissionService struct {
	next    SubmissionService
	pool    *ants.Pool
	logger  *slog.Logger
	waiting atomic.Int64
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolSubmissionService(
	next SubmissionService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolSubmissionService, error) {
	// ants treats a non-positive size as unbounded
	if config.Size <= 0 {
		return nil, fmt.Errorf("worker pool size must be positive, got %d", config.Size)
	}
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &WorkerPoolSubmissionService{next: next, pool: pool, logger: logger}, nil
}

// Submit runs request on a pool worker and returns its outcome. When ctx ends
// first Submit returns ctx.Err() and the worker finishes on its own.
func (s *WorkerPoolSubmissionService) Submit(ctx context.Context, request *shared.SubmissionRequest) error {
	s.waiting.Add(1)
	defer s.waiting.Add(-1)

	req := *request
	done := make(chan error, 1)
	err := s.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("submission of %s panicked: %v", req.Key(), r)
			}
		}()
		done <- s.next.Submit(ctx, &req)
	})
	if err != nil {
		logger.FromContext(ctx, s.logger).Error("Failed to hand request to worker pool",
			"request_id", req.RequestID.String(), "error", err)
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
		return fmt.Errorf("failed to schedule submission: %w", err)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of Submit calls that have not returned yet.
func (s *WorkerPoolSubmissionService) Pending() int {
	return int(s.waiting.Load())
}

// Shutdown stops accepting work and waits up to drainTimeout for running
// submissions.
func (s *WorkerPoolSubmissionService) Shutdown() {
	s.logger.Info("Draining worker pool", "running_workers", s.pool.Running(), "waiting", s.Pending())
	if err := s.pool.ReleaseTimeout(drainTimeout); err != nil {
		s.logger.Warn("Worker pool did not drain in time", "error", err)
	}
}

func (s *WorkerPoolSubmissionService) Running() int {
	return s.pool.Running()
}

func (s *WorkerPoolSubmissionService) Capacity() int {
	return s.pool.Cap()
}
