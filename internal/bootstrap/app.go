package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kbqa/internal/ai"
	"kbqa/internal/app"
	"kbqa/internal/blobstore"
	"kbqa/internal/chunker"
	"kbqa/internal/config"
	"kbqa/internal/logging"
	"kbqa/internal/metrics"
	mysqlClient "kbqa/internal/platform/mysql"
	rabbitmqClient "kbqa/internal/platform/rabbitmq"
	redisClient "kbqa/internal/platform/redis"
	"kbqa/internal/repository"
	"kbqa/internal/session"
	"kbqa/internal/vectorindex"
	"kbqa/internal/worker"
)

type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	RAG      *app.RAGService
	Index    *vectorindex.Store
	Blobs    *blobstore.Store
	Sessions session.Store

	// Set only for the redis session backend.
	Redis *redis.Client
	// Set only when the transcript archive is enabled.
	MySQL         *gorm.DB
	MQConn        *amqp.Connection
	Publisher     *rabbitmqClient.TurnPublisher
	ArchiveWorker *worker.TurnArchiveWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("build logger failed: %w", err)
	}
	return Build(ctx, cfg, logger)
}

// Build wires every component from cfg. Optional backends are connected only
// when configured.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)
	a := &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics.New(),
		StartedAt: time.Now(),
	}

	for _, dir := range []string{cfg.RAG.UploadDir, cfg.RAG.IndexDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir %s failed: %w", dir, err)
		}
	}

	embedder, err := newEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	completer := ai.NewChatClient(ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})

	a.Index = vectorindex.NewStore(vectorindex.Options{
		Dir:           cfg.RAG.IndexDir,
		Compress:      cfg.RAG.IndexCompress,
		EncryptionKey: cfg.RAG.IndexEncryptionKey,
	}, embedder, logger.Named("index"))
	a.Blobs = blobstore.New(cfg.RAG.UploadDir)

	if err := a.connectSessions(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	var publisher app.TurnPublisher
	if cfg.Archive.Enabled {
		if err := a.connectArchive(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
		publisher = a.Publisher
	}

	a.RAG = app.NewRAGService(app.RAGDeps{
		Index:     a.Index,
		Blobs:     a.Blobs,
		Splitter:  chunker.New(chunker.WithChunkSize(cfg.RAG.ChunkSize), chunker.WithChunkOverlap(cfg.RAG.ChunkOverlap)),
		Sessions:  a.Sessions,
		Completer: completer,
		Publisher: publisher,
		Metrics:   a.Metrics,
		Logger:    logger.Named("rag"),
		TopK:      cfg.RAG.TopK,
	})

	logger.Info("application wired",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", embedder.Model()),
		zap.String("llm_model", completer.Model()),
		zap.String("session_backend", cfg.Session.Backend),
		zap.Bool("archive", cfg.Archive.Enabled),
	)
	return a, nil
}

func newEmbedder(cfg config.EmbeddingConfig) (ai.Embedder, error) {
	ec := ai.EmbeddingConfig{
		BaseURL:           cfg.BaseURL,
		APIKey:            cfg.APIKey,
		Model:             cfg.Model,
		BatchSize:         cfg.BatchSize,
		Timeout:           time.Duration(cfg.TimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}
	switch cfg.Provider {
	case "langchaingo":
		e, err := ai.NewLangchainEmbedder(ec)
		if err != nil {
			return nil, fmt.Errorf("create langchaingo embedder failed: %w", err)
		}
		return e, nil
	default:
		return ai.NewHTTPEmbedder(ec), nil
	}
}

func (a *App) connectSessions(ctx context.Context) error {
	cfg := a.Config
	if cfg.Session.Backend != "redis" {
		a.Sessions = session.NewMemoryStore(cfg.Session.MaxTurns)
		return nil
	}
	client, err := redisClient.New(ctx, redisClient.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	a.Redis = client
	a.Sessions = session.NewRedisStore(client, session.RedisOptions{
		KeyPrefix: cfg.Redis.KeyPrefix,
		MaxTurns:  cfg.Session.MaxTurns,
		TTL:       time.Duration(cfg.Redis.SessionTTLSeconds) * time.Second,
	})
	return nil
}

func (a *App) connectArchive(ctx context.Context) error {
	cfg := a.Config
	db, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return err
	}
	a.MySQL = db
	repo := repository.NewTurnRepository(db)
	if err := repo.Migrate(); err != nil {
		return err
	}

	conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.TurnArchiveQueue)
	if err != nil {
		return err
	}
	a.MQConn = conn
	a.Publisher = rabbitmqClient.NewTurnPublisher(conn, cfg.RabbitMQ.TurnArchiveQueue)

	a.ArchiveWorker = worker.NewTurnArchiveWorker(conn, repo, cfg.RabbitMQ.TurnArchiveQueue, a.Logger.Named("archive"))
	if err := a.ArchiveWorker.Start(ctx); err != nil {
		return fmt.Errorf("start archive worker failed: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.ArchiveWorker != nil {
		a.ArchiveWorker.Close()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
