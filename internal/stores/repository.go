package stores

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no store matches the lookup.
var ErrNotFound = errors.New("store not found")

// Repository provides access to store records.
type Repository interface {
	Get(ctx context.Context, id int64) (*Store, error)
	GetByDomain(ctx context.Context, domain string) (*Store, error)
	List(ctx context.Context) ([]Store, error)
	Upsert(ctx context.Context, domain string, sealedToken []byte, scope string) (int64, error)
	Disconnect(ctx context.Context, id int64) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const storeColumns = `id, domain, access_token_sealed, scope, plan, installed_at, disconnected_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Store, error) {
	row := r.db.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id)
	return scanStore(row)
}

func (r *repository) GetByDomain(ctx context.Context, domain string) (*Store, error) {
	row := r.db.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE domain = $1`, domain)
	return scanStore(row)
}

func (r *repository) List(ctx context.Context) ([]Store, error) {
	rows, err := r.db.Query(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY domain`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Upsert records a completed installation. Re-installing an existing store
// replaces the sealed token and clears any disconnect marker.
func (r *repository) Upsert(ctx context.Context, domain string, sealedToken []byte, scope string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO stores (domain, access_token_sealed, scope, installed_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (domain) DO UPDATE
		SET access_token_sealed = EXCLUDED.access_token_sealed,
		    scope = EXCLUDED.scope,
		    disconnected_at = NULL,
		    updated_at = NOW()
		RETURNING id`, domain, sealedToken, scope).Scan(&id)
	return id, err
}

func (r *repository) Disconnect(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE stores SET disconnected_at = NOW(), updated_at = NOW() WHERE id = $1 AND disconnected_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Already disconnected or missing; check which.
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stores WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStore(row rowScanner) (*Store, error) {
	var s Store
	var scope, plan pgtype.Text
	var installedAt, updatedAt, disconnectedAt pgtype.Timestamptz

	err := row.Scan(&s.ID, &s.Domain, &s.TokenSealed, &scope, &plan, &installedAt, &disconnectedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if scope.Valid {
		s.Scope = scope.String
	}
	if plan.Valid {
		s.Plan = plan.String
	}
	if installedAt.Valid {
		s.InstalledAt = installedAt.Time
	}
	if updatedAt.Valid {
		s.UpdatedAt = updatedAt.Time
	}
	if disconnectedAt.Valid {
		t := disconnectedAt.Time
		s.DisconnectedAt = &t
	}
	return &s, nil
}
