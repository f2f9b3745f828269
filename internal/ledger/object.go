package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bail-wils/Support-Knowledge-Agent/internal/storage"
)

// ObjectLedger keeps the latest entry as a single JSON object.
type ObjectLedger struct {
	store storage.ObjectStorage
	key   string
}

func NewObjectLedger(store storage.ObjectStorage, key string) *ObjectLedger {
	return &ObjectLedger{store: store, key: key}
}

func (l *ObjectLedger) Record(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal ledger entry: %w", err)
	}
	return l.store.PutObject(ctx, l.key, data, "application/json")
}

func (l *ObjectLedger) Last(ctx context.Context) (*Entry, error) {
	data, err := l.store.GetObject(ctx, l.key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrNoEntry
	}
	if err != nil {
		return nil, err
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode ledger entry %s: %w", l.key, err)
	}
	return &e, nil
}
