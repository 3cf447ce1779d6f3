package service

import (
	"context"

	"BountyBot/internal/biz"
	pkglog "BountyBot/pkg/log"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// BreakerRequest names one breaker.
type BreakerRequest struct {
	Name string `json:"name"`
}

// ListBreakersReply lists every known breaker.
type ListBreakersReply struct {
	Breakers []*biz.BreakerStats `json:"breakers"`
}

// BreakerService is the admin surface of the breaker registry.
type BreakerService struct {
	registry *biz.BreakerRegistry
	logger   *pkglog.LogHelper
}

// NewBreakerService creates the admin service.
func NewBreakerService(registry *biz.BreakerRegistry, logger log.Logger) *BreakerService {
	return &BreakerService{
		registry: registry,
		logger:   pkglog.NewLogHelper(logger),
	}
}

// ListBreakers returns a snapshot of every breaker, applying due OPEN to HALF_OPEN transitions.
func (s *BreakerService) ListBreakers(ctx context.Context, _ *BreakerRequest) (*ListBreakersReply, error) {
	stats, err := s.registry.Stats(ctx)
	if err != nil {
		s.logger.Errorw("msg", "failed to list breakers", "error", err)
		return nil, toHTTPError(err)
	}
	return &ListBreakersReply{Breakers: stats}, nil
}

// GetBreaker returns one breaker's snapshot.
func (s *BreakerService) GetBreaker(ctx context.Context, req *BreakerRequest) (*biz.BreakerStats, error) {
	cb, err := s.lookup(req.Name)
	if err != nil {
		return nil, err
	}
	stats, err := cb.GetStats(ctx)
	if err != nil {
		s.logger.Errorw("msg", "failed to read breaker", "breaker", req.Name, "error", err)
		return nil, toHTTPError(err)
	}
	return stats, nil
}

// ResetBreaker forces a breaker CLOSED.
func (s *BreakerService) ResetBreaker(ctx context.Context, req *BreakerRequest) (*biz.BreakerStats, error) {
	cb, err := s.lookup(req.Name)
	if err != nil {
		return nil, err
	}
	if err := cb.Reset(ctx); err != nil {
		s.logger.Errorw("msg", "failed to reset breaker", "breaker", req.Name, "error", err)
		return nil, toHTTPError(err)
	}
	s.logger.Audit("breaker reset", "breaker", req.Name)

	stats, err := cb.Peek(ctx)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return stats, nil
}

func (s *BreakerService) lookup(name string) (*biz.CircuitBreaker, error) {
	if name == "" {
		return nil, kerrors.BadRequest(ReasonBadRequest, "breaker name is required")
	}
	cb, ok := s.registry.Lookup(name)
	if !ok {
		return nil, kerrors.NotFound(ReasonBreakerNotFound, "unknown breaker: "+name)
	}
	return cb, nil
}
