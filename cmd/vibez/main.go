package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/xaenox/vibez/internal/bot"
	"github.com/xaenox/vibez/internal/classifier"
	"github.com/xaenox/vibez/internal/engine"
	"github.com/xaenox/vibez/internal/models"
	"github.com/xaenox/vibez/internal/semantic"
	"github.com/xaenox/vibez/internal/storage"
	"github.com/xaenox/vibez/internal/synthesis"
	"github.com/xaenox/vibez/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}
		store, err = storage.NewPostgresStorage(dbConfig, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize the vector index when enabled. Without it semantic
	// analytics report as disabled rather than failing.
	var index *semantic.Index
	if cfg.Vector.Enabled && !cfg.Database.UseInMemory {
		embedder, err := semantic.NewHashingEmbedder(cfg.Vector.Dimensions)
		if err != nil {
			logger.Fatal("Failed to create embedder", zap.Error(err))
		}
		index, err = semantic.NewIndex(cfg.Database.DSN(), cfg.Vector.Table, embedder, logger)
		if err != nil {
			logger.Fatal("Failed to connect vector index", zap.Error(err))
		}
		defer index.Close()
		if err := index.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("Failed to ensure vector index schema", zap.Error(err))
		}
	} else {
		logger.Info("Vector index disabled")
	}

	scope := models.RoomScope{
		Mode:           models.ScopeMode(cfg.Scope.Mode),
		ActiveGroups:   cfg.Scope.ActiveGroups,
		ExcludedGroups: cfg.Scope.ExcludedGroups,
	}

	// The nil interface dance matters: a typed nil *semantic.Index must not
	// reach the engine as a non-nil NeighborSource.
	var source engine.NeighborSource
	var indexer bot.Indexer
	if index != nil {
		source = index
		indexer = index
	}

	eng := engine.New(store, source, scope, logger)

	// Initialize classifier
	var clf classifier.Classifier
	if cfg.OpenAI.APIKey != "" {
		clf = classifier.NewGPTClassifier(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.Model,
			cfg.OpenAI.MaxTokens,
			cfg.OpenAI.Temperature,
			logger,
		)
	} else {
		logger.Info("No OpenAI key set, using heuristic classifier")
		clf = classifier.NewSimpleClassifier()
	}

	subject := models.Subject{
		Name:    cfg.Subject.Name,
		Aliases: cfg.Subject.Aliases,
	}
	synth := synthesis.New(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		subject,
		store,
		logger,
	)

	// Initialize bot
	defaults := bot.Defaults{
		WindowDays:     cfg.Engine.WindowDays,
		LookbackDays:   cfg.Engine.LookbackDays,
		CandidateLimit: cfg.Engine.CandidateLimit,
	}
	b, err := bot.New(cfg.Telegram.Token, store, eng, clf, synth, indexer, defaults, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the bot
	if err := b.Start(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}
