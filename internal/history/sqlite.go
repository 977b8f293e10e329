package history

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/eventscout/internal/config"
	"github.com/sells-group/eventscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	cfg config.HistoryConfig
	now func() time.Time
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS seen_queries (
	text    TEXT PRIMARY KEY,
	seen_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS seen_leads (
	id          TEXT PRIMARY KEY,
	url         TEXT NOT NULL,
	registry_id TEXT,
	org_name    TEXT NOT NULL,
	event_date  DATETIME,
	seen_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_seen_leads_url ON seen_leads(url);
CREATE INDEX IF NOT EXISTS idx_seen_leads_registry_id ON seen_leads(registry_id);
CREATE INDEX IF NOT EXISTS idx_seen_leads_org_name ON seen_leads(org_name);
CREATE INDEX IF NOT EXISTS idx_seen_queries_seen_at ON seen_queries(seen_at);
`

// OpenSQLite opens (or creates) the history database at cfg.Path,
// configures WAL mode, and verifies the state is readable. Synchronous
// journaling keeps every accepted write durable before the call returns.
func OpenSQLite(ctx context.Context, cfg config.HistoryConfig) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, eris.Wrap(err, "history: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=FULL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "history: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "history: migrate")
	}

	// Loading state must succeed before any run starts; a corrupt file
	// here is fatal upstream.
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen_queries`).Scan(&n); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "history: verify state")
	}

	return &SQLiteStore{db: db, cfg: cfg, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) IsDuplicateQuery(ctx context.Context, text string) (bool, error) {
	now := s.now().UTC()

	var seenAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT seen_at FROM seen_queries WHERE text = ?`, text,
	).Scan(&seenAt)
	switch {
	case err == nil:
		if now.Sub(seenAt) < s.cfg.QueryWindow() {
			return true, nil
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return false, eris.Wrap(err, "history: query lookup")
	}

	// Novel or aged out: re-admit with a fresh timestamp.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO seen_queries (text, seen_at) VALUES (?, ?)
		 ON CONFLICT(text) DO UPDATE SET seen_at = excluded.seen_at`,
		text, now,
	)
	if err != nil {
		return false, eris.Wrap(err, "history: record query")
	}
	return false, nil
}

func (s *SQLiteStore) IsDuplicateLead(ctx context.Context, lead model.Lead) (bool, error) {
	now := s.now().UTC()

	// Rule 1: identical source URL.
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seen_leads WHERE url = ?`, lead.URL,
	).Scan(&n); err != nil {
		return false, eris.Wrap(err, "history: lead url lookup")
	}
	if n > 0 {
		return true, nil
	}

	// Rule 2: identical registry id, when both records have one.
	if lead.RegistryID != "" {
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM seen_leads WHERE registry_id = ?`, lead.RegistryID,
		).Scan(&n); err != nil {
			return false, eris.Wrap(err, "history: lead registry lookup")
		}
		if n > 0 {
			return true, nil
		}
	}

	// Rules 3 and 4: organization name against the re-admission window,
	// with the distinct-event-date carve-out.
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_date, seen_at FROM seen_leads WHERE org_name = ?`, lead.OrgName,
	)
	if err != nil {
		return false, eris.Wrap(err, "history: lead org lookup")
	}
	defer rows.Close()

	for rows.Next() {
		var eventDate sql.NullTime
		var seenAt time.Time
		if err := rows.Scan(&eventDate, &seenAt); err != nil {
			return false, eris.Wrap(err, "history: scan lead row")
		}
		if orgMatchIsDuplicate(lead, eventDate, seenAt, now, s.cfg) {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, eris.Wrap(err, "history: iterate lead rows")
	}

	return false, s.recordLead(ctx, lead, now)
}

// orgMatchIsDuplicate applies rules 3 and 4 for one prior record with
// the same organization name.
func orgMatchIsDuplicate(lead model.Lead, priorEventDate sql.NullTime, seenAt, now time.Time, cfg config.HistoryConfig) bool {
	if now.Sub(seenAt) > cfg.LeadWindow() {
		// Aged out: the organization may run another campaign.
		return false
	}
	if lead.EventDate != nil && priorEventDate.Valid {
		gap := lead.EventDate.Sub(priorEventDate.Time)
		if gap < 0 {
			gap = -gap
		}
		if gap > cfg.EventDateTolerance() {
			// Distinct events for the same organization.
			return false
		}
	}
	return true
}

func (s *SQLiteStore) recordLead(ctx context.Context, lead model.Lead, now time.Time) error {
	id := lead.ID
	if id == "" {
		id = uuid.New().String()
	}
	var eventDate any
	if lead.EventDate != nil {
		eventDate = lead.EventDate.UTC()
	}
	var registryID any
	if lead.RegistryID != "" {
		registryID = lead.RegistryID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO seen_leads (id, url, registry_id, org_name, event_date, seen_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, lead.URL, registryID, lead.OrgName, eventDate, now,
	)
	return eris.Wrap(err, "history: record lead")
}

func (s *SQLiteStore) PruneExpired(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	var total int64

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM seen_queries WHERE seen_at < ?`, now.Add(-s.cfg.QueryWindow()),
	)
	if err != nil {
		return 0, eris.Wrap(err, "history: prune queries")
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}

	res, err = s.db.ExecContext(ctx,
		`DELETE FROM seen_leads WHERE seen_at < ?`, now.Add(-s.cfg.LeadWindow()),
	)
	if err != nil {
		return 0, eris.Wrap(err, "history: prune leads")
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}

	return total, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen_queries`).Scan(&st.Queries); err != nil {
		return st, eris.Wrap(err, "history: count queries")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen_leads`).Scan(&st.Leads); err != nil {
		return st, eris.Wrap(err, "history: count leads")
	}
	return st, nil
}
