package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"bill_spider/internal/checkpoint"
	"bill_spider/internal/config"
	"bill_spider/internal/db"
	"bill_spider/internal/extract"
	"bill_spider/internal/models"
	unitqueue "bill_spider/internal/unit_queue"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type CrawlApp struct {
	config  *config.SpiderConfig
	store   db.Store
	fetcher BillFetcher
	log     *logrus.Logger
	now     func() time.Time
}

func NewCrawlApp(cfg *config.SpiderConfig, store db.Store, fetcher BillFetcher, log *logrus.Logger) (*CrawlApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &CrawlApp{
		config:  cfg,
		store:   store,
		fetcher: fetcher,
		log:     log,
		now:     time.Now,
	}, nil
}

// Run crawls every configured session, then writes the result: merged with
// the stored bills in incremental mode, as-is in full mode. Nothing is
// written when the crawl is interrupted.
func (a *CrawlApp) Run(ctx context.Context) (*models.CrawlRun, error) {
	incremental := a.config.Crawl.Incremental
	run := &models.CrawlRun{
		ID:          uuid.NewString(),
		Incremental: incremental,
		Sessions:    a.config.Crawl.Sessions,
		Started:     a.now(),
	}
	log := a.log.WithField("run", run.ID)
	log.WithFields(logrus.Fields{
		"sessions":    run.Sessions,
		"incremental": incremental,
		"delay_ms":    a.config.Logic.DelayMS,
	}).Info("starting crawl")

	existing := models.BillSet{}
	if incremental {
		loaded, err := a.store.Load(ctx)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Warn("no existing bill info found, starting every chamber from its first bill")
		case err != nil:
			return nil, fmt.Errorf("load existing bills: %w", err)
		default:
			existing = loaded
		}
	}

	acc, err := a.Crawl(ctx, existing, models.BillSet{}, run)
	if err != nil {
		return run, err
	}

	out := acc
	if incremental {
		out = db.Merge(existing, acc)
	}
	if err := a.store.Save(ctx, out); err != nil {
		return run, fmt.Errorf("save bills: %w", err)
	}

	run.Total = len(out)
	run.Finished = a.now()
	if recorder, ok := a.store.(db.RunRecorder); ok {
		if err := recorder.SaveRun(ctx, run); err != nil {
			log.WithError(err).Warn("failed to record crawl run")
		}
	}

	log.WithFields(logrus.Fields{
		"fetched":   run.Fetched,
		"invalid":   run.Invalid,
		"transient": run.Transient,
		"malformed": run.Malformed,
		"total":     run.Total,
		"elapsed":   run.Finished.Sub(run.Started).Round(time.Second).String(),
	}).Info("bill information saved")

	return run, nil
}

// Crawl fetches every pending unit of the configured sessions into acc and
// returns it. existing only supplies resume points.
func (a *CrawlApp) Crawl(ctx context.Context, existing, acc models.BillSet, run *models.CrawlRun) (models.BillSet, error) {
	for _, sessionID := range a.config.Crawl.Sessions {
		label, err := a.config.SessionLabel(sessionID)
		if err != nil {
			return acc, err
		}

		for _, chamber := range models.Chambers {
			r := a.config.Jurisdiction.Chambers[chamber]
			start := a.startFor(existing, label, chamber)
			q := unitqueue.NewUnitQueue(sessionID, label, chamber, r, start)

			a.log.WithFields(logrus.Fields{
				"session":       sessionID,
				"session_label": label,
				"chamber":       chamber.String(),
				"start":         start,
				"candidates":    q.Size(),
			}).Info("processing chamber")

			if err := a.crawlChamber(ctx, q, acc, run); err != nil {
				return acc, err
			}
		}
	}
	return acc, nil
}

// startFor resumes after the last recorded bill in incremental mode and
// falls back to the chamber's first bill when nothing is recorded.
func (a *CrawlApp) startFor(existing models.BillSet, label string, chamber models.Chamber) int {
	first := a.config.Jurisdiction.Chambers[chamber].First
	if !a.config.Crawl.Incremental {
		return first
	}

	last, err := checkpoint.LastSeen(existing, label, chamber)
	var noData *checkpoint.NoPriorDataError
	if errors.As(err, &noData) {
		a.log.WithFields(logrus.Fields{
			"session_label": label,
			"chamber":       chamber.String(),
		}).Info("no prior bills, starting from the first bill")
		return first
	}
	return last + 1
}

func (a *CrawlApp) crawlChamber(ctx context.Context, q *unitqueue.UnitQueue, acc models.BillSet, run *models.CrawlRun) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		unit, ok := q.Get()
		if !ok {
			return nil
		}

		entry := a.log.WithFields(unitFields(unit))
		record, err := a.fetcher.Fetch(ctx, unit)

		var transient *TransientFetchError
		var malformed *extract.MalformedPageError
		switch {
		case err == nil:
			acc.Put(record)
			run.Fetched++
			entry.WithField("sponsors", len(record.Sponsors)).Info("success")
		case errors.Is(err, ErrInvalidBillNumber):
			run.Invalid++
			entry.Info("invalid bill number, end of chamber")
			return nil
		case errors.As(err, &transient):
			run.Transient++
			entry.WithError(err).Warn("fetch failed, skipping")
		case errors.As(err, &malformed):
			run.Malformed++
			entry.WithError(err).Error("malformed bill page, skipping")
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return fmt.Errorf("%s: %w", unit, err)
		}
	}
}

func unitFields(u models.Unit) logrus.Fields {
	return logrus.Fields{
		"session":       u.SessionID,
		"session_label": u.SessionLabel,
		"chamber":       string(u.Chamber),
		"bill":          u.BillNumber,
	}
}
