package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"samscout/opportunity-service/internal/config"
	"samscout/opportunity-service/internal/model"
	"samscout/opportunity-service/internal/samgov"
)

// fetchMaxTries bounds retries of a single page request. Only transport
// failures, 429 and 5xx are retried; everything else fails the category
// immediately.
const fetchMaxTries = 3

// ErrNoCategories is returned when the pass is invoked without any
// configured NAICS category. Fatal: nothing is fetched.
var ErrNoCategories = errors.New("no sync categories configured")

// ErrAllCategoriesFailed is returned when every category in the pass
// failed. Checkpoints are left untouched so the next run retries the same
// window.
var ErrAllCategoriesFailed = errors.New("sync pass failed for every category")

// PageFetcher performs one bounded page request against the external
// source.
type PageFetcher interface {
	FetchPage(ctx context.Context, q samgov.Query) (*samgov.Page, error)
}

// Waiter throttles consecutive external calls.
type Waiter interface {
	Wait(ctx context.Context) error
	Mark()
}

// OpportunityWriter persists normalised opportunities idempotently,
// keyed by notice ID.
type OpportunityWriter interface {
	UpsertOpportunity(ctx context.Context, opp *model.Opportunity) error
}

// CheckpointStore reads and rewrites per-category sync checkpoints.
// GetCheckpoint returns (nil, nil) when no checkpoint exists yet.
type CheckpointStore interface {
	GetCheckpoint(ctx context.Context, category string) (*model.Checkpoint, error)
	SaveCheckpoint(ctx context.Context, cp *model.Checkpoint) error
}

// Orchestrator drives one sync pass: for each configured category it walks
// the paginated search window derived from the category's checkpoint,
// feeding every record through transform → upsert. Categories fail in
// isolation; checkpoints are written once at the end of the pass and only
// when at least one category succeeded.
type Orchestrator struct {
	fetcher     PageFetcher
	store       OpportunityWriter
	checkpoints CheckpointStore
	throttle    Waiter
	cfg         config.SyncConfig
	pageSize    int
	logger      *zap.Logger

	now func() time.Time
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(
	fetcher PageFetcher,
	store OpportunityWriter,
	checkpoints CheckpointStore,
	throttle Waiter,
	cfg config.SyncConfig,
	pageSize int,
	logger *zap.Logger,
) *Orchestrator {
	if pageSize < 1 || pageSize > samgov.MaxPageSize {
		pageSize = samgov.MaxPageSize
	}
	return &Orchestrator{
		fetcher:     fetcher,
		store:       store,
		checkpoints: checkpoints,
		throttle:    throttle,
		cfg:         cfg,
		pageSize:    pageSize,
		logger:      logger,
		now:         time.Now,
	}
}

// Run executes one sync pass and returns its report. The returned error is
// non-nil only for configuration errors or when every category failed;
// partial failures are recorded in the report.
func (o *Orchestrator) Run(ctx context.Context) (*model.SyncReport, error) {
	if len(o.cfg.Categories) == 0 {
		return nil, ErrNoCategories
	}

	passStart := o.now().UTC()
	report := &model.SyncReport{StartedAt: passStart}

	o.logger.Info("sync pass started",
		zap.Int("categories", len(o.cfg.Categories)),
		zap.Int("record_cap", o.cfg.MaxRecordsPerRun),
	)

	remaining := o.cfg.MaxRecordsPerRun
	var updates []model.Checkpoint
	succeeded := 0

	for _, cat := range o.cfg.Categories {
		if remaining <= 0 {
			// Cap exhausted by earlier categories; this one keeps its
			// checkpoint and is picked up on the next invocation.
			report.Capped = true
			report.Categories = append(report.Categories, model.CategoryResult{
				Code:  cat.Code,
				State: model.CategoryPending,
			})
			continue
		}

		res, update := o.syncCategory(ctx, cat, passStart, &remaining)
		report.Categories = append(report.Categories, res)
		report.TotalProcessed += res.Processed
		report.TotalSkipped += res.Skipped
		report.TotalFailed += res.Failed

		if res.State == model.CategorySuccess {
			succeeded++
			updates = append(updates, *update)
		}
	}
	if remaining <= 0 {
		report.Capped = true
	}

	report.FinishedAt = o.now().UTC()

	if succeeded == 0 {
		o.logger.Error("sync pass failed for every category",
			zap.Strings("categories", report.FailedCategories()))
		return report, ErrAllCategoriesFailed
	}

	// Checkpoint write happens once, after all codes were attempted. A
	// category that failed keeps its previous checkpoint.
	for i := range updates {
		if err := o.checkpoints.SaveCheckpoint(ctx, &updates[i]); err != nil {
			o.logger.Error("checkpoint write failed",
				zap.String("category", updates[i].Category), zap.Error(err))
			return report, err
		}
	}

	o.logger.Info("sync pass complete",
		zap.Int("processed", report.TotalProcessed),
		zap.Int("skipped", report.TotalSkipped),
		zap.Int("failed", report.TotalFailed),
		zap.Bool("capped", report.Capped),
	)

	return report, nil
}

// syncCategory walks one category through the state machine
// PENDING → FETCHING → SUCCESS|FAILED. On success it returns the checkpoint
// update to apply at the end of the pass.
func (o *Orchestrator) syncCategory(
	ctx context.Context,
	cat config.NAICSCategory,
	passStart time.Time,
	remaining *int,
) (model.CategoryResult, *model.Checkpoint) {
	res := model.CategoryResult{Code: cat.Code, State: model.CategoryFetching}

	prev, err := o.checkpoints.GetCheckpoint(ctx, cat.Code)
	if err != nil {
		res.State = model.CategoryFailed
		res.Error = err.Error()
		o.logger.Error("loading checkpoint failed", zap.String("category", cat.Code), zap.Error(err))
		return res, nil
	}

	from := passStart.AddDate(0, 0, -o.cfg.LookbackDays)
	offset := 0
	if prev != nil {
		if !prev.LastSyncedThrough.IsZero() {
			from = prev.LastSyncedThrough
		}
		// A non-zero offset means the previous run was capped
		// mid-pagination: resume the same window instead of restarting it.
		offset = prev.LastOffset
	}

	drained := false
	for {
		page, err := o.fetchPage(ctx, samgov.Query{
			NAICS:  cat.Code,
			From:   from,
			To:     passStart,
			Offset: offset,
			Limit:  o.pageSize,
		})
		if err != nil {
			res.State = model.CategoryFailed
			res.Error = err.Error()
			o.logger.Error("category fetch failed — continuing with remaining categories",
				zap.String("category", cat.Code),
				zap.Int("offset", offset),
				zap.Error(err),
			)
			return res, nil
		}

		if len(page.Records) == 0 {
			drained = true
			break
		}

		consumed := 0
		for _, raw := range page.Records {
			consumed++

			opp, err := Transform(raw)
			if err != nil {
				// Malformed record: skipped, not counted against the cap.
				res.Skipped++
				o.logger.Debug("skipping invalid record",
					zap.String("category", cat.Code), zap.Error(err))
				continue
			}
			opp.NAICSDesc = cat.Desc

			if err := o.store.UpsertOpportunity(ctx, opp); err != nil {
				res.Failed++
				o.logger.Error("upsert failed",
					zap.String("notice_id", opp.NoticeID), zap.Error(err))
				continue
			}

			res.Processed++
			*remaining = *remaining - 1
			if *remaining <= 0 {
				break
			}
		}
		offset += consumed

		if *remaining <= 0 {
			break
		}
		if offset >= page.Total {
			drained = true
			break
		}
	}

	res.State = model.CategorySuccess

	update := &model.Checkpoint{
		Category:     cat.Code,
		LastRunCount: res.Processed,
		LastRunAt:    o.now().UTC(),
	}
	if drained {
		update.LastSyncedThrough = passStart
	} else {
		// Capped mid-pagination: keep the window and record where to
		// resume.
		if prev != nil {
			update.LastSyncedThrough = prev.LastSyncedThrough
		}
		update.LastOffset = offset
	}

	o.logger.Info("category synced",
		zap.String("category", cat.Code),
		zap.Int("processed", res.Processed),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Bool("drained", drained),
	)

	return res, update
}

// fetchPage throttles, fetches and retries transient failures with
// exponential backoff. The throttle is marked after every attempt so the
// minimum spacing holds across retries too.
func (o *Orchestrator) fetchPage(ctx context.Context, q samgov.Query) (*samgov.Page, error) {
	operation := func() (*samgov.Page, error) {
		if err := o.throttle.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		page, err := o.fetcher.FetchPage(ctx, q)
		o.throttle.Mark()
		if err != nil {
			var fe *samgov.FetchError
			if errors.As(err, &fe) && fe.Temporary() {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return page, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(fetchMaxTries),
	)
}
