package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"samscout/opportunity-service/internal/config"
	"samscout/opportunity-service/internal/ingest"
	"samscout/opportunity-service/internal/match"
	"samscout/opportunity-service/internal/samgov"
	"samscout/opportunity-service/internal/scheduler"
	"samscout/opportunity-service/internal/store"
)

// syncLockTTL bounds how long a crashed pass can block the next one.
const syncLockTTL = 30 * time.Minute

// application wires the full dependency graph once at process start; the
// storage handle is threaded into each component explicitly.
type application struct {
	cfg       *config.Config
	logger    *zap.Logger
	pool      *pgxpool.Pool
	rdb       *redis.Client
	store     *store.Store
	orch      *ingest.Orchestrator
	ranker    *match.Ranker
	scheduler *scheduler.Scheduler
}

func newApplication(ctx context.Context, logger *zap.Logger) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	pool, err := store.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	rdb, err := store.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, err
	}

	st := store.New(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		rdb.Close()
		return nil, err
	}

	client := samgov.NewClient(cfg.SAM, logger.Named("samgov"))
	throttle := samgov.NewThrottle(time.Duration(cfg.SAM.ThrottleSeconds) * time.Second)

	orch := ingest.NewOrchestrator(
		client, st, st, throttle,
		cfg.Sync, cfg.SAM.PageSize,
		logger.Named("ingest"),
	)

	ranker := match.NewRanker(st, st, st, match.DefaultWeights, logger.Named("match"))

	lock := store.NewRunLock(rdb, syncLockTTL)
	sched := scheduler.New(orch, st, lock, cfg.Sync.IntervalHours, logger.Named("scheduler"))

	return &application{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		rdb:       rdb,
		store:     st,
		orch:      orch,
		ranker:    ranker,
		scheduler: sched,
	}, nil
}

func (a *application) close() {
	a.pool.Close()
	if err := a.rdb.Close(); err != nil {
		a.logger.Warn("closing redis client", zap.Error(err))
	}
}
