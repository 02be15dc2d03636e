package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

func testConfig() Config {
	return Config{Driver: DriverSQLite, DSN: "unused", AnnualEntitlementDays: 20, LegacyFallback: true}
}

func newSQLiteStore(t *testing.T) *LeaveStore {
	t.Helper()

	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "leaves.db")
	open := OpenSQLite(dsn)

	seed, err := open(ctx)
	require.NoError(t, err)
	db := seed.(*BunPool).DB()
	_, err = db.NewInsert().Model(&[]EmployeeLeave{
		{EmployeeName: "Alice", LeavesTakenCurrentYear: 5},
		{EmployeeName: "Bob", LeavesTakenCurrentYear: 12},
	}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&[]LegacyLeave{
		{Employee: "Alice", Balance: 99},
		{Employee: "Carol", Balance: 7},
	}).Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	s, err := NewLeaveStore(ctx, open, testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteReads(t *testing.T) {
	t.Parallel()

	s := newSQLiteStore(t)
	ctx := context.Background()

	assert.True(t, s.CheckHealth(ctx))

	used, err := s.FetchUsedDays(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, 5, used)

	entitlement, err := s.FetchEntitlement(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, 20, entitlement)

	_, err = s.FetchUsedDays(ctx, "Zed")
	assert.ErrorIs(t, err, contractx.ErrNotFound)

	_, err = s.FetchEntitlement(ctx, "Zed")
	assert.ErrorIs(t, err, contractx.ErrNotFound)
}

func TestSQLiteFetchBalance(t *testing.T) {
	t.Parallel()

	s := newSQLiteStore(t)
	ctx := context.Background()

	balance, err := s.FetchBalance(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, 15, balance, "current schema wins over the legacy row")

	balance, err = s.FetchBalance(ctx, "Carol")
	require.NoError(t, err)
	assert.Equal(t, 7, balance)

	_, err = s.FetchBalance(ctx, "Zed")
	assert.ErrorIs(t, err, contractx.ErrNotFound)
}

func TestSQLiteResetKeepsServing(t *testing.T) {
	t.Parallel()

	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.ResetPool(ctx))
	assert.EqualValues(t, 1, s.Resets())

	used, err := s.FetchUsedDays(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, 12, used)
}

type pgError struct {
	code string
}

func (e pgError) Field(k byte) string {
	if k == 'C' {
		return e.code
	}
	return ""
}

func (e pgError) Error() string { return "ERROR #" + e.code }

type fakePool struct {
	pingErr  error
	readErr  error
	used     map[string]int
	reads    *atomic.Int64
	closed   atomic.Bool
	inflight *atomic.Int64
	block    chan struct{}
}

func (p *fakePool) Ping(context.Context) error { return p.pingErr }

func (p *fakePool) UsedDays(_ context.Context, employee string) (int, error) {
	p.reads.Add(1)
	if p.inflight != nil {
		p.inflight.Add(1)
		defer p.inflight.Add(-1)
	}
	if p.block != nil {
		<-p.block
	}
	if p.closed.Load() {
		return 0, errors.New("pool used after close")
	}
	if p.readErr != nil {
		return 0, p.readErr
	}
	days, ok := p.used[employee]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return days, nil
}

func (p *fakePool) LegacyBalance(context.Context, string) (int, error) {
	return 0, sql.ErrNoRows
}

func (p *fakePool) Close() error {
	p.closed.Store(true)
	return nil
}

type fakeOpener struct {
	mu     sync.Mutex
	pools  []*fakePool
	next   func() *fakePool
	opened int
	// fail reports whether the given 1-based open attempt is refused.
	fail     func(attempt int) bool
	attempts int
}

func (o *fakeOpener) open(context.Context) (Pool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts++
	if o.fail != nil && o.fail(o.attempts) {
		return nil, errors.New("connection refused")
	}
	p := o.next()
	o.pools = append(o.pools, p)
	o.opened++
	return p, nil
}

func TestHealthFailureShortCircuitsRead(t *testing.T) {
	t.Parallel()

	reads := &atomic.Int64{}
	opener := &fakeOpener{next: func() *fakePool {
		return &fakePool{pingErr: errors.New("connection refused"), reads: reads}
	}}
	s, err := NewLeaveStore(context.Background(), opener.open, testConfig())
	require.NoError(t, err)

	assert.False(t, s.CheckHealth(context.Background()))
	_, err = s.FetchUsedDays(context.Background(), "Alice")
	assert.ErrorIs(t, err, contractx.ErrStoreUnavailable)
	assert.Zero(t, reads.Load())
	assert.Zero(t, s.Resets())
}

func TestTransactionAbortResetsOnce(t *testing.T) {
	t.Parallel()

	for name, readErr := range map[string]error{
		"serialization failure": pgError{code: "40001"},
		"in failed transaction": pgError{code: "25P02"},
		"bad conn":              driver.ErrBadConn,
		"sqlite busy":           errors.New("database is locked (5) (SQLITE_BUSY)"),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			reads := &atomic.Int64{}
			opener := &fakeOpener{}
			opener.next = func() *fakePool {
				if len(opener.pools) == 0 {
					return &fakePool{readErr: readErr, reads: reads}
				}
				return &fakePool{used: map[string]int{"Alice": 5}, reads: reads}
			}
			s, err := NewLeaveStore(context.Background(), opener.open, testConfig())
			require.NoError(t, err)

			_, err = s.FetchUsedDays(context.Background(), "Alice")
			assert.ErrorIs(t, err, contractx.ErrTransientStore)
			assert.True(t, contractx.Retryable(err))
			assert.EqualValues(t, 1, s.Resets())
			assert.Equal(t, 2, opener.opened)
			assert.True(t, opener.pools[0].closed.Load())

			used, err := s.FetchUsedDays(context.Background(), "Alice")
			require.NoError(t, err)
			assert.Equal(t, 5, used)
			assert.EqualValues(t, 1, s.Resets())
		})
	}
}

func TestFailedReopenRecoversOnNextRead(t *testing.T) {
	t.Parallel()

	reads := &atomic.Int64{}
	opener := &fakeOpener{fail: func(attempt int) bool { return attempt == 2 }}
	opener.next = func() *fakePool {
		if len(opener.pools) == 0 {
			return &fakePool{readErr: pgError{code: "25P02"}, reads: reads}
		}
		return &fakePool{used: map[string]int{"Alice": 5}, reads: reads}
	}
	s, err := NewLeaveStore(context.Background(), opener.open, testConfig())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.FetchUsedDays(ctx, "Alice")
	assert.ErrorIs(t, err, contractx.ErrTransientStore)
	assert.Equal(t, 2, opener.attempts, "reset tried to reopen and failed")

	used, err := s.FetchUsedDays(ctx, "Alice")
	require.NoError(t, err, "store must reopen lazily once the database is back")
	assert.Equal(t, 5, used)
	assert.Equal(t, 3, opener.attempts)
	assert.True(t, s.CheckHealth(ctx))
	assert.EqualValues(t, 1, s.Resets())
}

func TestClosedStoreDoesNotReopen(t *testing.T) {
	t.Parallel()

	reads := &atomic.Int64{}
	opener := &fakeOpener{next: func() *fakePool { return &fakePool{used: map[string]int{"Alice": 5}, reads: reads} }}
	s, err := NewLeaveStore(context.Background(), opener.open, testConfig())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.FetchUsedDays(context.Background(), "Alice")
	assert.ErrorIs(t, err, contractx.ErrStoreUnavailable)
	assert.Equal(t, 1, opener.attempts)
}

func TestOtherReadFailureIsUnavailableWithoutReset(t *testing.T) {
	t.Parallel()

	reads := &atomic.Int64{}
	opener := &fakeOpener{next: func() *fakePool {
		return &fakePool{readErr: pgError{code: "42P01"}, reads: reads}
	}}
	s, err := NewLeaveStore(context.Background(), opener.open, testConfig())
	require.NoError(t, err)

	_, err = s.FetchUsedDays(context.Background(), "Alice")
	assert.ErrorIs(t, err, contractx.ErrStoreUnavailable)
	assert.Zero(t, s.Resets())
}

func TestResetWaitsForInflightReads(t *testing.T) {
	t.Parallel()

	reads := &atomic.Int64{}
	inflight := &atomic.Int64{}
	block := make(chan struct{})
	opener := &fakeOpener{}
	opener.next = func() *fakePool {
		if len(opener.pools) == 0 {
			return &fakePool{used: map[string]int{"Alice": 5}, reads: reads, inflight: inflight, block: block}
		}
		return &fakePool{used: map[string]int{"Alice": 5}, reads: reads}
	}
	s, err := NewLeaveStore(context.Background(), opener.open, testConfig())
	require.NoError(t, err)

	readDone := make(chan error, 1)
	go func() {
		_, err := s.FetchUsedDays(context.Background(), "Alice")
		readDone <- err
	}()
	for inflight.Load() == 0 {
		// wait until the read holds the pool
	}

	resetDone := make(chan error, 1)
	go func() { resetDone <- s.ResetPool(context.Background()) }()

	select {
	case <-resetDone:
		t.Fatal("reset must not complete while a read is in flight")
	default:
	}

	close(block)
	require.NoError(t, <-readDone, "in-flight read must finish on the pool it started with")
	require.NoError(t, <-resetDone)
	assert.EqualValues(t, 1, s.Resets())
}

func TestEmptyEmployeeIsInvalidArgument(t *testing.T) {
	t.Parallel()

	reads := &atomic.Int64{}
	opener := &fakeOpener{next: func() *fakePool { return &fakePool{reads: reads} }}
	s, err := NewLeaveStore(context.Background(), opener.open, testConfig())
	require.NoError(t, err)

	_, err = s.FetchUsedDays(context.Background(), "  ")
	assert.ErrorIs(t, err, contractx.ErrInvalidArgument)
	assert.Zero(t, reads.Load())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	cfg.Driver = "mysql"
	assert.ErrorIs(t, cfg.Validate(), contractx.ErrValidation)

	cfg = testConfig()
	cfg.AnnualEntitlementDays = 0
	_, err := cfg.Opener()
	assert.ErrorIs(t, err, contractx.ErrValidation)
}
