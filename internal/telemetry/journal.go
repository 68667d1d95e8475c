package telemetry

import (
	"context"

	"codeberg.org/mutker/perfgov/internal/errors"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopJournal struct{}

func NewService(cfg Config) (Journal, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		return &noopJournal{}, nil
	}

	repo, err := NewRepository(cfg)
	if err != nil {
		return nil, err // Already wrapped with appropriate error
	}

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, t *Transition) error {
	errFactory := errors.New()

	if t == nil || !t.Old.Valid() || !t.New.Valid() {
		return errFactory.New(ErrInvalidTransition)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		return s.repo.Store(ctx, t)
	}
}

func (s *service) Recent(ctx context.Context, limit int) ([]Transition, error) {
	if limit <= 0 {
		return nil, nil
	}

	return s.repo.Recent(ctx, limit)
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrServiceShutdown, err)
	}
	return nil
}

func (*noopJournal) Record(_ context.Context, _ *Transition) error {
	return nil
}

func (*noopJournal) Recent(_ context.Context, _ int) ([]Transition, error) {
	return nil, nil
}

func (*noopJournal) Close() error {
	return nil
}
