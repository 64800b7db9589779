package db

import (
	"context"
	"fmt"

	"bill_spider/internal/config"
	"bill_spider/internal/models"
)

// Store persists the whole bill set. Save replaces the stored set with the
// given one in a single operation.
type Store interface {
	Load(ctx context.Context) (models.BillSet, error)
	Save(ctx context.Context, bills models.BillSet) error
	Close() error
}

// RunRecorder is implemented by stores that keep a crawl history.
type RunRecorder interface {
	SaveRun(ctx context.Context, run *models.CrawlRun) error
}

func Open(cfg *config.SpiderConfig) (Store, error) {
	switch cfg.Output.Driver {
	case "json":
		return NewJSONStore(cfg.Output.Path), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Output.Path)
	case "mongo":
		return NewMongoDB(cfg.DB)
	default:
		return nil, &config.ConfigurationError{Reason: fmt.Sprintf("unknown output.driver %q", cfg.Output.Driver)}
	}
}

// Merge combines a persisted set with freshly crawled bills. Fresh bills win
// on key collision, so re-fetched bills replace stale copies.
func Merge(existing, fresh models.BillSet) models.BillSet {
	merged := make(models.BillSet, len(existing)+len(fresh))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range fresh {
		merged[k] = v
	}
	return merged
}
