// Command lending-api serves the lending engine over HTTP.
//
// @title        Lending System API
// @version      1.0
// @description  Institutional lending engine: catalog, patrons and loans.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/univlib/lending-system/internal/api"
	"github.com/univlib/lending-system/internal/core/domain"
	"github.com/univlib/lending-system/internal/core/ports"
	"github.com/univlib/lending-system/internal/core/service"
	"github.com/univlib/lending-system/internal/infrastructure/catalog"
	"github.com/univlib/lending-system/internal/infrastructure/config"
	"github.com/univlib/lending-system/internal/infrastructure/db/mongo"
	"github.com/univlib/lending-system/internal/infrastructure/db/redis"
	"github.com/univlib/lending-system/internal/infrastructure/db/sqlite"
	"github.com/univlib/lending-system/internal/infrastructure/messaging/kafka"
	"github.com/univlib/lending-system/internal/infrastructure/queue"
	"github.com/univlib/lending-system/pkg/logger"
)

const serviceName = "lending-api"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// backends collects the optional infrastructure so shutdown can release it.
type backends struct {
	mongoClient *mongodriver.Client
	mongoDB     *mongodriver.Database
	redis       *goredis.Client
	sqlite      *sqlite.Journal
	kafka       *kafka.Publisher

	catalogStore ports.CatalogStore
	patronStore  ports.PatronStore
	history      ports.LoanHistory
	idem         ports.IdempotencyStore
	journals     []ports.LoanJournal
	idSources    []ports.LoanIDSource
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: serviceName,
		Env:     cfg.Env,
	})

	base, err := cfg.BasePolicy()
	if err != nil {
		return err
	}

	b, err := connect(ctx, cfg, log)
	defer b.close(log)
	if err != nil {
		return err
	}

	firstID, err := nextLoanID(ctx, b.idSources)
	if err != nil {
		return err
	}
	ids := domain.NewIDIssuer(firstID)

	// The dispatcher outlives the signal context so queued events drain on shutdown.
	dispatchCtx, cancelDispatch := context.WithCancel(context.Background())
	defer cancelDispatch()
	dispatcher := queue.NewDispatcher(cfg.Dispatch.Workers, b.journals, logger.Component("dispatcher"))
	dispatcher.Start(dispatchCtx)
	defer dispatcher.Close()

	lib := service.NewLibrary(base, ids, logger.Component("engine"), service.WithEventSink(dispatcher))
	if err := seed(ctx, lib, cfg.Lending.CatalogDir, b, log); err != nil {
		return err
	}

	svc := service.NewLendingService(lib, b.idem, logger.Component("service"),
		service.WithCatalogStore(b.catalogStore),
		service.WithPatronStore(b.patronStore),
		service.WithLoanHistory(b.history),
	)

	deps := api.Dependencies{
		Service: svc,
		Mongo:   b.mongoDB,
		Redis:   b.redis,
		Log:     logger.Component("http"),
	}
	if b.sqlite != nil {
		deps.SQLite = b.sqlite
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("policy", base.String()).
			Int("first_loan_id", firstID).
			Msg("http server starting")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	log.Info().Msg("http server stopped")
	return nil
}

// connect opens every configured backend. Empty settings leave a backend disabled.
func connect(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backends, error) {
	b := &backends{}

	if cfg.Mongo.URI != "" {
		client, db, err := mongo.Connect(ctx, mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Timeout:  cfg.Mongo.Timeout,
			AppName:  serviceName,
		})
		if err != nil {
			return b, err
		}
		b.mongoClient, b.mongoDB = client, db
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			return b, err
		}
		journal := mongo.NewLoanJournal(db)
		b.catalogStore = mongo.NewCatalogRepository(db)
		b.patronStore = mongo.NewPatronRepository(db)
		b.history = journal
		b.journals = append(b.journals, journal)
		b.idSources = append(b.idSources, journal)
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb connected")
	}

	if cfg.SQLite.Path != "" {
		journal, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return b, err
		}
		b.sqlite = journal
		b.journals = append(b.journals, journal)
		b.idSources = append(b.idSources, journal)
		if b.history == nil {
			b.history = journal
		}
		log.Info().Str("path", cfg.SQLite.Path).Msg("sqlite journal opened")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return b, err
		}
		b.kafka = publisher
		b.journals = append(b.journals, publisher)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher ready")
	}

	if cfg.Redis.Addr != "" {
		client, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return b, err
		}
		b.redis = client
		b.idem = redis.NewIdempotencyStore(client, cfg.Redis.IdempotencyTTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
	}

	return b, nil
}

// close releases backends in reverse order of dependency. Safe on a partial set.
func (b *backends) close(log zerolog.Logger) {
	if b.kafka != nil {
		if err := b.kafka.Close(); err != nil {
			log.Error().Err(err).Msg("kafka close")
		}
	}
	if b.sqlite != nil {
		if err := b.sqlite.Close(); err != nil {
			log.Error().Err(err).Msg("sqlite close")
		}
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			log.Error().Err(err).Msg("redis close")
		}
	}
	if b.mongoClient != nil {
		if err := mongo.Disconnect(context.Background(), b.mongoClient); err != nil {
			log.Error().Err(err).Msg("mongodb disconnect")
		}
	}
}

// nextLoanID continues numbering after the highest loan id any journal has seen.
func nextLoanID(ctx context.Context, sources []ports.LoanIDSource) (int, error) {
	highest := 0
	for _, src := range sources {
		id, err := src.MaxLoanID(ctx)
		if err != nil {
			return 0, err
		}
		highest = max(highest, id)
	}
	return highest + 1, nil
}

// seed fills the engine from the CSV catalog (mirrored to Mongo when
// configured) or else from Mongo, then restores the patron registry.
func seed(ctx context.Context, lib *service.Library, catalogDir string, b *backends, log zerolog.Logger) error {
	var items []*domain.Item
	switch {
	case catalogDir != "":
		loaded, err := catalog.LoadDir(catalogDir, log)
		if err != nil {
			return err
		}
		items = loaded
		if b.catalogStore != nil {
			if err := b.catalogStore.SaveItems(ctx, items); err != nil {
				return fmt.Errorf("mirror catalog: %w", err)
			}
		}
	case b.catalogStore != nil:
		loaded, err := b.catalogStore.LoadCatalog(ctx)
		if err != nil {
			return err
		}
		items = loaded
	}
	if _, err := lib.LoadItems(items); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	if b.patronStore != nil {
		patrons, err := b.patronStore.LoadPatrons(ctx)
		if err != nil {
			return err
		}
		if _, err := lib.LoadPatrons(patrons); err != nil {
			return fmt.Errorf("seed patrons: %w", err)
		}
	}

	log.Info().
		Int("items", len(lib.Items(""))).
		Int("patrons", len(lib.Patrons())).
		Msg("engine seeded")
	return nil
}
