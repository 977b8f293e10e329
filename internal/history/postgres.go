package history

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/eventscout/internal/config"
	"github.com/sells-group/eventscout/internal/model"
)

// Pool is the subset of pgxpool.Pool used by the history store. It is
// satisfied by pgxmock for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
	cfg  config.HistoryConfig
	now  func() time.Time
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS seen_queries (
	text    TEXT PRIMARY KEY,
	seen_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS seen_leads (
	id          TEXT PRIMARY KEY,
	url         TEXT NOT NULL,
	registry_id TEXT,
	org_name    TEXT NOT NULL,
	event_date  TIMESTAMPTZ,
	seen_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_seen_leads_url ON seen_leads(url);
CREATE INDEX IF NOT EXISTS idx_seen_leads_registry_id ON seen_leads(registry_id);
CREATE INDEX IF NOT EXISTS idx_seen_leads_org_name ON seen_leads(org_name);
`

// OpenPostgres creates a PostgresStore with a connection pool and runs
// the migration.
func OpenPostgres(ctx context.Context, cfg config.HistoryConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "history: parse postgres config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "history: connect postgres")
	}

	s := NewPostgresWithPool(pool, cfg)
	if _, err := pool.Exec(ctx, postgresMigration); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "history: migrate")
	}
	return s, nil
}

// NewPostgresWithPool creates a PostgresStore over an existing pool.
// Used by tests to inject a mock pool.
func NewPostgresWithPool(pool Pool, cfg config.HistoryConfig) *PostgresStore {
	return &PostgresStore{pool: pool, cfg: cfg, now: time.Now}
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) IsDuplicateQuery(ctx context.Context, text string) (bool, error) {
	now := s.now().UTC()

	var seenAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT seen_at FROM seen_queries WHERE text = $1`, text,
	).Scan(&seenAt)
	switch {
	case err == nil:
		if now.Sub(seenAt) < s.cfg.QueryWindow() {
			return true, nil
		}
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return false, eris.Wrap(err, "history: query lookup")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO seen_queries (text, seen_at) VALUES ($1, $2)
		 ON CONFLICT (text) DO UPDATE SET seen_at = EXCLUDED.seen_at`,
		text, now,
	)
	if err != nil {
		return false, eris.Wrap(err, "history: record query")
	}
	return false, nil
}

func (s *PostgresStore) IsDuplicateLead(ctx context.Context, lead model.Lead) (bool, error) {
	now := s.now().UTC()

	var n int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM seen_leads WHERE url = $1`, lead.URL,
	).Scan(&n); err != nil {
		return false, eris.Wrap(err, "history: lead url lookup")
	}
	if n > 0 {
		return true, nil
	}

	if lead.RegistryID != "" {
		if err := s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM seen_leads WHERE registry_id = $1`, lead.RegistryID,
		).Scan(&n); err != nil {
			return false, eris.Wrap(err, "history: lead registry lookup")
		}
		if n > 0 {
			return true, nil
		}
	}

	rows, err := s.pool.Query(ctx,
		`SELECT event_date, seen_at FROM seen_leads WHERE org_name = $1`, lead.OrgName,
	)
	if err != nil {
		return false, eris.Wrap(err, "history: lead org lookup")
	}
	defer rows.Close()

	for rows.Next() {
		var eventDate *time.Time
		var seenAt time.Time
		if err := rows.Scan(&eventDate, &seenAt); err != nil {
			return false, eris.Wrap(err, "history: scan lead row")
		}
		prior := nullTime(eventDate)
		if orgMatchIsDuplicate(lead, prior, seenAt, now, s.cfg) {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, eris.Wrap(err, "history: iterate lead rows")
	}

	id := lead.ID
	if id == "" {
		id = uuid.New().String()
	}
	var eventDate *time.Time
	if lead.EventDate != nil {
		d := lead.EventDate.UTC()
		eventDate = &d
	}
	var registryID *string
	if lead.RegistryID != "" {
		registryID = &lead.RegistryID
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO seen_leads (id, url, registry_id, org_name, event_date, seen_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, lead.URL, registryID, lead.OrgName, eventDate, now,
	)
	return false, eris.Wrap(err, "history: record lead")
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (s *PostgresStore) PruneExpired(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	var total int64

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM seen_queries WHERE seen_at < $1`, now.Add(-s.cfg.QueryWindow()),
	)
	if err != nil {
		return 0, eris.Wrap(err, "history: prune queries")
	}
	total += tag.RowsAffected()

	tag, err = s.pool.Exec(ctx,
		`DELETE FROM seen_leads WHERE seen_at < $1`, now.Add(-s.cfg.LeadWindow()),
	)
	if err != nil {
		return 0, eris.Wrap(err, "history: prune leads")
	}
	total += tag.RowsAffected()

	return total, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM seen_queries`).Scan(&st.Queries); err != nil {
		return st, eris.Wrap(err, "history: count queries")
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM seen_leads`).Scan(&st.Leads); err != nil {
		return st, eris.Wrap(err, "history: count leads")
	}
	return st, nil
}
