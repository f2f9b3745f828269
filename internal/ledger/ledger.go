// Package ledger records which report was relayed last, keyed by the
// LAST_PROCESSED_BLOB_NAME setting.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bail-wils/Support-Knowledge-Agent/internal/config"
	"github.com/bail-wils/Support-Knowledge-Agent/internal/storage"
)

// ErrNoEntry is returned by Last before anything has been recorded.
var ErrNoEntry = errors.New("no run recorded")

// Entry describes one successful relay.
type Entry struct {
	InputFile   string    `json:"inputFile"`
	ItemPath    string    `json:"itemPath"`
	DriveID     string    `json:"driveId"`
	Parser      string    `json:"parser"`
	Uploaded    []string  `json:"uploaded"`
	ProcessedAt time.Time `json:"processedAt"`
}

type Ledger interface {
	Record(ctx context.Context, e Entry) error
	Last(ctx context.Context) (*Entry, error)
}

// Historian is implemented by ledgers that keep previous entries.
type Historian interface {
	History(ctx context.Context, limit int64) ([]Entry, error)
}

// Noop discards records. It is used when no ledger is configured.
type Noop struct{}

func (Noop) Record(context.Context, Entry) error { return nil }

func (Noop) Last(context.Context) (*Entry, error) { return nil, ErrNoEntry }

// New returns the ledger selected by cfg.Ledger.Backend, or Noop when
// recording is disabled.
func New(cfg *config.Config) (Ledger, error) {
	if !cfg.LedgerEnabled() {
		return Noop{}, nil
	}

	switch cfg.Ledger.Backend {
	case config.LedgerBackendS3:
		store, err := storage.NewS3Client(storage.S3Config{
			Endpoint:  cfg.Ledger.Endpoint,
			AccessKey: cfg.Ledger.AccessKey,
			SecretKey: cfg.Ledger.SecretKey,
			Bucket:    cfg.Ledger.Bucket,
			Region:    cfg.Ledger.Region,
			UseSSL:    cfg.Ledger.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return NewObjectLedger(store, cfg.Ledger.BlobName), nil
	case config.LedgerBackendRedis:
		client, err := newRedisClient(cfg.Cache)
		if err != nil {
			return nil, err
		}
		return NewRedisLedger(client, cfg.Ledger.BlobName), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}
