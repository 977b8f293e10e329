package history

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/eventscout/internal/config"
	"github.com/sells-group/eventscout/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	cfg := config.HistoryConfig{
		Driver:                 "postgres",
		QueryWindowHours:       24,
		LeadWindowDays:         7,
		EventDateToleranceDays: 7,
	}
	s := NewPostgresWithPool(mock, cfg)
	return s, mock
}

func TestPostgresStore_IsDuplicateQuery_Novel(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	mock.ExpectQuery(`SELECT seen_at FROM seen_queries WHERE text = \$1`).
		WithArgs("charity gala April 2026").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO seen_queries`).
		WithArgs("charity gala April 2026", base).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dup, err := s.IsDuplicateQuery(context.Background(), "charity gala April 2026")
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IsDuplicateQuery_WithinWindow(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	mock.ExpectQuery(`SELECT seen_at FROM seen_queries WHERE text = \$1`).
		WithArgs("charity gala April 2026").
		WillReturnRows(pgxmock.NewRows([]string{"seen_at"}).AddRow(base.Add(-time.Hour)))

	dup, err := s.IsDuplicateQuery(context.Background(), "charity gala April 2026")
	require.NoError(t, err)
	assert.True(t, dup)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IsDuplicateQuery_AgedOutReadmits(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	mock.ExpectQuery(`SELECT seen_at FROM seen_queries WHERE text = \$1`).
		WithArgs("benefit dinner May 2026").
		WillReturnRows(pgxmock.NewRows([]string{"seen_at"}).AddRow(base.Add(-25 * time.Hour)))
	mock.ExpectExec(`INSERT INTO seen_queries`).
		WithArgs("benefit dinner May 2026", base).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dup, err := s.IsDuplicateQuery(context.Background(), "benefit dinner May 2026")
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IsDuplicateLead_ByURL(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM seen_leads WHERE url = \$1`).
		WithArgs("https://hope.org/gala").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	dup, err := s.IsDuplicateLead(context.Background(), model.Lead{
		OrgName: "Hope Foundation",
		URL:     "https://hope.org/gala",
	})
	require.NoError(t, err)
	assert.True(t, dup)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IsDuplicateLead_ByRegistryID(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM seen_leads WHERE url = \$1`).
		WithArgs("https://hope.org/gala").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM seen_leads WHERE registry_id = \$1`).
		WithArgs("12-3456789").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	dup, err := s.IsDuplicateLead(context.Background(), model.Lead{
		OrgName:    "Hope Foundation",
		URL:        "https://hope.org/gala",
		RegistryID: "12-3456789",
	})
	require.NoError(t, err)
	assert.True(t, dup)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IsDuplicateLead_NovelRecorded(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM seen_leads WHERE url = \$1`).
		WithArgs("https://hope.org/gala").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT event_date, seen_at FROM seen_leads WHERE org_name = \$1`).
		WithArgs("Hope Foundation").
		WillReturnRows(pgxmock.NewRows([]string{"event_date", "seen_at"}))
	mock.ExpectExec(`INSERT INTO seen_leads`).
		WithArgs(pgxmock.AnyArg(), "https://hope.org/gala", pgxmock.AnyArg(), "Hope Foundation", pgxmock.AnyArg(), base).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dup, err := s.IsDuplicateLead(context.Background(), model.Lead{
		OrgName: "Hope Foundation",
		URL:     "https://hope.org/gala",
	})
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IsDuplicateLead_OrgWithinWindow(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM seen_leads WHERE url = \$1`).
		WithArgs("https://hope.org/other").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT event_date, seen_at FROM seen_leads WHERE org_name = \$1`).
		WithArgs("Hope Foundation").
		WillReturnRows(pgxmock.NewRows([]string{"event_date", "seen_at"}).
			AddRow((*time.Time)(nil), base.Add(-48*time.Hour)))

	dup, err := s.IsDuplicateLead(context.Background(), model.Lead{
		OrgName: "Hope Foundation",
		URL:     "https://hope.org/other",
	})
	require.NoError(t, err)
	assert.True(t, dup)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PruneExpired(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	mock.ExpectExec(`DELETE FROM seen_queries WHERE seen_at < \$1`).
		WithArgs(base.Add(-24 * time.Hour)).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`DELETE FROM seen_leads WHERE seen_at < \$1`).
		WithArgs(base.Add(-7 * 24 * time.Hour)).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := s.PruneExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM seen_queries`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM seen_leads`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, st.Queries)
	assert.Equal(t, 4, st.Leads)
	assert.NoError(t, mock.ExpectationsWereMet())
}
