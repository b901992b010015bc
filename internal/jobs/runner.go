package jobs

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bookstore/services/comics/internal/catalog"
	"github.com/bookstore/services/comics/internal/config"
	"github.com/bookstore/services/comics/internal/db"
	"github.com/bookstore/services/comics/internal/events"
	"github.com/bookstore/services/comics/internal/loader"
	"github.com/bookstore/services/comics/internal/metrics"
	"github.com/bookstore/services/comics/internal/repo"
	"github.com/bookstore/services/comics/internal/source"
	"github.com/bookstore/services/comics/internal/synthetic"
	"github.com/bookstore/services/comics/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const publishTimeout = 10 * time.Second

// Runner executes one mode against the database
type Runner struct {
	db        *db.DB
	cfg       *config.Config
	recorder  *metrics.Recorder
	publisher events.Notifier
	log       *zap.Logger
}

// NewRunner creates a runner
func NewRunner(database *db.DB, cfg *config.Config, recorder *metrics.Recorder, publisher events.Notifier, log *zap.Logger) *Runner {
	return &Runner{
		db:        database,
		cfg:       cfg,
		recorder:  recorder,
		publisher: publisher,
		log:       log,
	}
}

// Run dispatches to the job for mode
func (r *Runner) Run(ctx context.Context, mode Mode) error {
	switch mode {
	case ModeIngestCatalog:
		_, err := r.IngestCatalog(ctx)
		return err
	case ModeGenerateTestData:
		_, err := r.GenerateTestData(ctx)
		return err
	case ModeClearTestData:
		return r.ClearTestData(ctx)
	case ModeMaintainCatalog:
		_, err := r.MaintainCatalog(ctx)
		return err
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// IngestCatalog reads the three input streams, replaces the catalog with
// the validated graph and reports what was written
func (r *Runner) IngestCatalog(ctx context.Context) (sum loader.Summary, err error) {
	ctx, log, done := r.begin(ctx, ModeIngestCatalog)
	defer func() { done(err) }()

	data := r.cfg.Data
	log.Info("Reading catalog",
		zap.String("authors", data.AuthorsPath()),
		zap.String("books", data.BooksPath()),
		zap.String("reviews", data.ReviewsPath()),
	)

	g, err := buildGraph(data)
	if err != nil {
		return sum, err
	}
	r.recorder.ObserveBuild(g.Stats)
	logStats(log, g.Stats)

	sum, err = loader.New(repo.NewCatalogRepository(r.db, log), log).Replace(ctx, g)
	r.recorder.ObserveLoad(sum)
	if err != nil {
		return sum, err
	}

	r.publish(ctx, log, events.EventTypeCatalogIngested, map[string]interface{}{
		"authors":      sum.Authors,
		"publishers":   sum.Publishers,
		"books":        sum.Books,
		"book_authors": sum.BookAuthors,
		"reviews":      sum.Reviews,
	})
	return sum, nil
}

// GenerateTestData replaces the synthetic users, addresses and orders
func (r *Runner) GenerateTestData(ctx context.Context) (g *synthetic.Graph, err error) {
	ctx, log, done := r.begin(ctx, ModeGenerateTestData)
	defer func() { done(err) }()

	p := r.cfg.Params()
	gen := synthetic.NewGenerator(synthetic.NewFaker(r.cfg.TestData.Seed))
	seeder := synthetic.NewSeeder(repo.NewTestDataRepository(r.db, log), gen, log)

	g, err = seeder.Seed(ctx, p)
	if err != nil {
		return nil, err
	}
	r.recorder.ObserveSeed(g)

	r.publish(ctx, log, events.EventTypeTestDataGenerated, map[string]interface{}{
		"users":       len(g.Users),
		"addresses":   len(g.Addresses),
		"orders":      len(g.Orders),
		"book_orders": len(g.BookOrders),
		"ownership":   string(p.Ownership),
	})
	return g, nil
}

// ClearTestData removes the synthetic data and keeps the catalog
func (r *Runner) ClearTestData(ctx context.Context) (err error) {
	ctx, log, done := r.begin(ctx, ModeClearTestData)
	defer func() { done(err) }()

	// The generator is never used by Clear
	seeder := synthetic.NewSeeder(repo.NewTestDataRepository(r.db, log), nil, log)
	if err = seeder.Clear(ctx); err != nil {
		return err
	}

	r.publish(ctx, log, events.EventTypeTestDataCleared, nil)
	return nil
}

// MaintainCatalog fills prices, publisher addresses and author demographics
func (r *Runner) MaintainCatalog(ctx context.Context) (sum synthetic.MaintenanceSummary, err error) {
	ctx, log, done := r.begin(ctx, ModeMaintainCatalog)
	defer func() { done(err) }()

	m := synthetic.NewMaintainer(repo.NewCatalogRepository(r.db, log), synthetic.NewFaker(r.cfg.TestData.Seed), log)
	sum, err = m.Run(ctx)
	if err != nil {
		return sum, err
	}

	r.publish(ctx, log, events.EventTypeCatalogMaintained, map[string]interface{}{
		"books_priced":         sum.BooksPriced,
		"publishers_addressed": sum.PublishersAddressed,
		"authors_updated":      sum.AuthorsUpdated,
	})
	return sum, nil
}

// begin assigns a run id and returns a scoped logger and a completion hook
func (r *Runner) begin(ctx context.Context, mode Mode) (context.Context, *zap.Logger, func(error)) {
	runID := uuid.NewString()
	log := logger.ForRun(r.log, string(mode), runID)
	ctx = events.WithCorrelationID(ctx, runID)
	started := time.Now()

	log.Info("Run started")
	return ctx, log, func(err error) {
		r.recorder.ObserveRun(string(mode), started, err)
		if err != nil {
			log.Error("Run failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
			return
		}
		log.Info("Run completed", zap.Duration("elapsed", time.Since(started)))
	}
}

// publish announces a completed run. A failed publish does not fail the run.
func (r *Runner) publish(ctx context.Context, log *zap.Logger, eventType string, payload map[string]interface{}) {
	eventCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := r.publisher.PublishRunCompleted(eventCtx, eventType, events.CorrelationID(ctx), payload); err != nil {
		log.Error("Failed to publish run completed event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func buildGraph(data config.DataConfig) (*catalog.Graph, error) {
	authors, err := os.Open(data.AuthorsPath())
	if err != nil {
		return nil, fmt.Errorf("open authors: %w", err)
	}
	defer authors.Close()

	books, err := os.Open(data.BooksPath())
	if err != nil {
		return nil, fmt.Errorf("open books: %w", err)
	}
	defer books.Close()

	reviews, err := os.Open(data.ReviewsPath())
	if err != nil {
		return nil, fmt.Errorf("open reviews: %w", err)
	}
	defer reviews.Close()

	return catalog.Build(
		source.NewReader(source.StreamAuthors, authors),
		source.NewReader(source.StreamBooks, books),
		source.NewReader(source.StreamReviews, reviews),
	)
}

func logStats(log *zap.Logger, stats catalog.Stats) {
	for _, s := range []struct {
		stream string
		stats  catalog.StreamStats
	}{
		{source.StreamAuthors, stats.Authors},
		{source.StreamBooks, stats.Books},
		{source.StreamReviews, stats.Reviews},
	} {
		log.Info("Stream validated",
			zap.String("stream", s.stream),
			zap.Int("read", s.stats.Read),
			zap.Int("accepted", s.stats.Accepted),
			zap.Int("rejected", s.stats.Rejected()),
		)
	}
	if stats.DroppedAuthorRefs > 0 {
		log.Info("Author references dropped", zap.Int("count", stats.DroppedAuthorRefs))
	}
}
