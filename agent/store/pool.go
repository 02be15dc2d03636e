package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

// EmployeeLeave is a row of the current schema.
type EmployeeLeave struct {
	bun.BaseModel `bun:"table:employee_leaves"`

	EmployeeName           string `bun:"employee_name,pk"`
	LeavesTakenCurrentYear int    `bun:"leaves_taken_current_year,notnull"`
}

// LegacyLeave is a row of the earlier direct-balance schema.
type LegacyLeave struct {
	bun.BaseModel `bun:"table:leaves"`

	Employee string `bun:"employee,pk"`
	Balance  int    `bun:"balance,notnull"`
}

// Pool is one generation of database connections. LeaveStore swaps the whole
// pool on reset, so implementations never need to recover in place.
type Pool interface {
	Ping(ctx context.Context) error
	UsedDays(ctx context.Context, employee string) (int, error)
	LegacyBalance(ctx context.Context, employee string) (int, error)
	Close() error
}

type PoolOpener func(ctx context.Context) (Pool, error)

type BunPool struct {
	db *bun.DB
}

var _ Pool = (*BunPool)(nil)

func NewBunPool(db *bun.DB) *BunPool {
	return &BunPool{db: db}
}

func (p *BunPool) DB() *bun.DB {
	return p.db
}

func (p *BunPool) Ping(ctx context.Context) error {
	var one int
	return p.db.NewRaw("SELECT 1").Scan(ctx, &one)
}

func (p *BunPool) UsedDays(ctx context.Context, employee string) (int, error) {
	var row EmployeeLeave
	err := p.db.NewSelect().
		Model(&row).
		Where("employee_name = ?", employee).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return 0, err
	}
	return row.LeavesTakenCurrentYear, nil
}

func (p *BunPool) LegacyBalance(ctx context.Context, employee string) (int, error) {
	var row LegacyLeave
	err := p.db.NewSelect().
		Model(&row).
		Where("employee = ?", employee).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return 0, err
	}
	return row.Balance, nil
}

// EnsureSchema creates both tables when they are missing.
func (p *BunPool) EnsureSchema(ctx context.Context) error {
	models := []any{(*EmployeeLeave)(nil), (*LegacyLeave)(nil)}
	for _, m := range models {
		if _, err := p.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

func (p *BunPool) Close() error {
	return p.db.Close()
}

// OpenPostgres opens pools through pgdriver. Each call builds a fresh
// connector so a reset never reuses a broken connection.
func OpenPostgres(dsn string, maxOpenConns int) PoolOpener {
	return func(ctx context.Context) (Pool, error) {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		if maxOpenConns > 0 {
			sqldb.SetMaxOpenConns(maxOpenConns)
			sqldb.SetMaxIdleConns(maxOpenConns)
		}
		return NewBunPool(bun.NewDB(sqldb, pgdialect.New())), nil
	}
}

// OpenSQLite opens a local database file and creates the schema on first use.
func OpenSQLite(dsn string) PoolOpener {
	return func(ctx context.Context) (Pool, error) {
		sqldb, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// modernc serialises writers; a single connection avoids SQLITE_BUSY.
		sqldb.SetMaxOpenConns(1)

		pool := NewBunPool(bun.NewDB(sqldb, sqlitedialect.New()))
		if err := pool.EnsureSchema(ctx); err != nil {
			_ = pool.Close()
			return nil, err
		}
		return pool, nil
	}
}
