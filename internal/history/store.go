// Package history maintains the cross-run identity state that keeps the
// pipeline from re-surfacing queries and leads it has already emitted.
package history

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/eventscout/internal/config"
	"github.com/sells-group/eventscout/internal/model"
)

// Store is the durable identity history. Both duplicate checks record
// the item as seen when they return false, and every accepted write is
// persisted synchronously, so a crash between runs loses at most the
// in-flight batch.
type Store interface {
	// IsDuplicateQuery reports whether the exact query text was seen
	// within the query re-admission window. Novel or aged-out text is
	// recorded with a fresh timestamp.
	IsDuplicateQuery(ctx context.Context, text string) (bool, error)

	// IsDuplicateLead applies the lead duplicate rules in priority
	// order: identical URL, identical registry id, then organization
	// name within the lead re-admission window (unless both records
	// carry event dates further apart than the tolerance). Novel leads
	// are recorded.
	IsDuplicateLead(ctx context.Context, lead model.Lead) (bool, error)

	// PruneExpired removes entries older than their re-admission
	// windows and returns the number deleted.
	PruneExpired(ctx context.Context) (int64, error)

	// Stats reports entry counts for operator inspection.
	Stats(ctx context.Context) (Stats, error)

	Close() error
}

// Stats summarizes the stored history.
type Stats struct {
	Queries int `json:"queries"`
	Leads   int `json:"leads"`
}

// Open constructs a Store for the configured driver. An unreadable or
// unparsable backing store is a fatal error: the pipeline must not run
// without its history.
func Open(ctx context.Context, cfg config.HistoryConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return OpenSQLite(ctx, cfg)
	case "postgres":
		return OpenPostgres(ctx, cfg)
	default:
		return nil, eris.Errorf("history: unknown driver %q", cfg.Driver)
	}
}
