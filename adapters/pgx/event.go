package pgx

import (
	"context"
	"encoding/json"

	"github.com/samber/oops"

	"github.com/lborres/tala/core"
)

func (a *Adapter) AppendEvent(ctx context.Context, event *core.Event) error {
	err := a.db.QueryRow(ctx,
		`INSERT INTO events (username, event_type, target_type, target_id, event_data)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		event.Username, event.EventType, event.TargetType, string(event.TargetID), nullableJSON(event.EventData),
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return oops.With("operation", "append event").
			With("username", event.Username).
			Wrap(translateError(err))
	}
	return nil
}

// nullableJSON stores an absent payload as SQL NULL rather than JSON null
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
