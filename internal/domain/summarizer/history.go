package summarizer

import "context"

// HistoryRepository is the append-only store of completed summaries.
type HistoryRepository interface {
	// Append stores rec and returns it with its assigned ID.
	Append(ctx context.Context, rec Record) (Record, error)
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
}
