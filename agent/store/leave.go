package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

// LeaveStore is the structured-record adapter. Every read runs a health check
// first and maps driver failures onto the contract error taxonomy.
//
// The pool is the only shared mutable resource. Reads hold the read lock for
// their whole duration and ResetPool takes the write lock, so a reset never
// tears down a pool another session is using.
type LeaveStore struct {
	open PoolOpener
	cfg  Config

	mu     sync.RWMutex
	pool   Pool
	closed bool
	resets atomic.Int64
}

var _ contractx.LeaveReader = (*LeaveStore)(nil)

func NewLeaveStore(ctx context.Context, open PoolOpener, cfg Config) (*LeaveStore, error) {
	if open == nil {
		return nil, fmt.Errorf("%w: pool opener is required", contractx.ErrValidation)
	}
	if cfg.AnnualEntitlementDays <= 0 {
		return nil, fmt.Errorf("%w: annual entitlement must be positive", contractx.ErrValidation)
	}

	pool, err := open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open pool: %v", contractx.ErrStoreUnavailable, err)
	}

	return &LeaveStore{open: open, cfg: cfg, pool: pool}, nil
}

// CheckHealth runs a trivial round-trip query against the current pool.
func (s *LeaveStore) CheckHealth(ctx context.Context) bool {
	if err := s.ensurePool(ctx); err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ping(ctx) == nil
}

// ResetPool discards the current pool and opens a new one. Concurrent callers
// are serialised.
func (s *LeaveStore) ResetPool(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			log.Warn().Err(err).Msg("close leave store pool")
		}
		s.pool = nil
	}
	s.resets.Add(1)

	pool, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("%w: reopen pool: %v", contractx.ErrStoreUnavailable, err)
	}
	s.pool = pool
	return nil
}

func (s *LeaveStore) Resets() int64 {
	return s.resets.Load()
}

func (s *LeaveStore) FetchUsedDays(ctx context.Context, employeeID string) (int, error) {
	return s.read(ctx, "fetch_used_days", employeeID, func(ctx context.Context, p Pool, id string) (int, error) {
		return p.UsedDays(ctx, id)
	})
}

// FetchEntitlement returns the configured annual entitlement for employees
// with a current-year record.
func (s *LeaveStore) FetchEntitlement(ctx context.Context, employeeID string) (int, error) {
	return s.read(ctx, "fetch_entitlement", employeeID, func(ctx context.Context, p Pool, id string) (int, error) {
		if _, err := p.UsedDays(ctx, id); err != nil {
			return 0, err
		}
		return s.cfg.AnnualEntitlementDays, nil
	})
}

// FetchBalance is the direct-balance lookup kept for older callers. It is
// derived from the current schema; the legacy table is consulted only for
// employees missing from it.
func (s *LeaveStore) FetchBalance(ctx context.Context, employeeID string) (int, error) {
	return s.read(ctx, "fetch_balance", employeeID, func(ctx context.Context, p Pool, id string) (int, error) {
		used, err := p.UsedDays(ctx, id)
		if err == nil {
			return s.cfg.AnnualEntitlementDays - used, nil
		}
		if !errors.Is(err, sql.ErrNoRows) || !s.cfg.LegacyFallback {
			return 0, err
		}
		return p.LegacyBalance(ctx, id)
	})
}

func (s *LeaveStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.pool == nil {
		return nil
	}
	err := s.pool.Close()
	s.pool = nil
	return err
}

type readFunc func(ctx context.Context, p Pool, employeeID string) (int, error)

func (s *LeaveStore) read(ctx context.Context, op, employeeID string, fn readFunc) (int, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return 0, fmt.Errorf("%w: employee id is empty", contractx.ErrInvalidArgument)
	}

	logger := log.Ctx(ctx).With().Str("op", op).Str("employee_id", employeeID).Logger()

	if err := s.ensurePool(ctx); err != nil {
		logger.Warn().Err(err).Msg("leave store pool unavailable")
		return 0, fmt.Errorf("%w: no open pool", contractx.ErrStoreUnavailable)
	}

	s.mu.RLock()
	if err := s.ping(ctx); err != nil {
		s.mu.RUnlock()
		logger.Warn().Err(err).Msg("leave store health check failed")
		return 0, fmt.Errorf("%w: health check failed", contractx.ErrStoreUnavailable)
	}
	n, err := fn(ctx, s.pool, employeeID)
	s.mu.RUnlock()

	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("%w: no leave record for %s", contractx.ErrNotFound, employeeID)
	case isTransactionAbort(err):
		logger.Warn().Err(err).Msg("transaction aborted, resetting pool")
		if resetErr := s.ResetPool(ctx); resetErr != nil {
			logger.Error().Err(resetErr).Msg("reset leave store pool")
		}
		return 0, fmt.Errorf("%w: %s aborted", contractx.ErrTransientStore, op)
	default:
		logger.Warn().Err(err).Msg("leave store read failed")
		return 0, fmt.Errorf("%w: %s failed", contractx.ErrStoreUnavailable, op)
	}
}

// ensurePool opens a pool when a failed reset left none behind, so the store
// recovers once the database is reachable again.
func (s *LeaveStore) ensurePool(ctx context.Context) error {
	s.mu.RLock()
	ok := s.pool != nil
	s.mu.RUnlock()
	if ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("leave store is closed")
	}
	if s.pool != nil {
		return nil
	}
	pool, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("reopen pool: %w", err)
	}
	s.pool = pool
	return nil
}

// ping must be called with s.mu held.
func (s *LeaveStore) ping(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("no open pool")
	}
	if s.cfg.HealthTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.HealthTimeout)
		defer cancel()
	}
	return s.pool.Ping(ctx)
}
