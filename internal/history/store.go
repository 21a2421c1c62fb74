// Package history records past explain, generate and repository requests
// per user.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"repolens/internal/types"
)

const DefaultListLimit = 50

// Store persists history records.
type Store interface {
	Save(ctx context.Context, rec types.HistoryRecord) error
	// List returns the user's records, newest first.
	List(ctx context.Context, userID string, limit int) ([]types.HistoryRecord, error)
	Get(ctx context.Context, id string) (types.HistoryRecord, error)
	Delete(ctx context.Context, id string) error
}

var ErrNotFound = errors.New("history record not found")

func validateRecord(rec types.HistoryRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(rec.UserID) == "" {
		return fmt.Errorf("user_id is required")
	}
	switch rec.Kind {
	case types.KindExplain, types.KindGenerate, types.KindRepository:
	default:
		return fmt.Errorf("unknown kind %q", rec.Kind)
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return DefaultListLimit
	}
	return limit
}
