package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/repository"
	"github.com/m-mizutani/kioku/pkg/usecase/chat"
	"github.com/m-mizutani/kioku/pkg/usecase/memory"
	"github.com/m-mizutani/kioku/pkg/usecase/search"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
	"github.com/m-mizutani/kioku/pkg/vector"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	logLevel string

	// Repository
	repoBackend string
	dbPath      string
	project     string
	database    string

	// Vector store
	vectorBackend string
	bucket        string
	postgresDSN   string

	// Adapters
	embedderBackend  string
	generatorBackend string
	anthropicAPIKey  string
	openaiAPIKey     string
	geminiProject    string
	geminiLocation   string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("KIOKU_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "repository",
			Aliases:     []string{"r"},
			Usage:       "Memory backend (firestore, sqlite, memory)",
			Value:       "sqlite",
			Sources:     cli.EnvVars("KIOKU_REPOSITORY"),
			Destination: &cfg.repoBackend,
		},
		&cli.StringFlag{
			Name:        "db-path",
			Usage:       "Path to the SQLite database file",
			Value:       "kioku.db",
			Sources:     cli.EnvVars("KIOKU_DB_PATH"),
			Destination: &cfg.dbPath,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "vector-store",
			Usage:       "Vector store backend (gcs, postgres, memory)",
			Value:       "memory",
			Sources:     cli.EnvVars("KIOKU_VECTOR_STORE"),
			Destination: &cfg.vectorBackend,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for vector documents",
			Sources:     cli.EnvVars("KIOKU_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "postgres-dsn",
			Usage:       "PostgreSQL DSN for the vector store",
			Sources:     cli.EnvVars("KIOKU_POSTGRES_DSN"),
			Destination: &cfg.postgresDSN,
		},
	}
}

// llmFlags returns flags for model-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "embedder",
			Usage:       "Embedding backend (gemini, openai, local)",
			Value:       "local",
			Sources:     cli.EnvVars("KIOKU_EMBEDDER"),
			Destination: &cfg.embedderBackend,
		},
		&cli.StringFlag{
			Name:        "generator",
			Usage:       "Reply generation backend (gemini, claude)",
			Value:       "gemini",
			Sources:     cli.EnvVars("KIOKU_GENERATOR"),
			Destination: &cfg.generatorBackend,
		},
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("ANTHROPIC_API_KEY"),
			Destination: &cfg.anthropicAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("OPENAI_API_KEY"),
			Destination: &cfg.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
	}
}

// setupLogging replaces the default logger according to the flags
func (cfg *config) setupLogging() {
	logging.SetDefault(logging.New(cfg.logLevel, os.Stderr))
}

// newRepository creates a repository for the selected backend
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	switch cfg.repoBackend {
	case "firestore":
		if cfg.project == "" {
			return nil, goerr.New("project is required for firestore")
		}
		return repository.NewFirestore(ctx, cfg.project, cfg.database)
	case "sqlite":
		return repository.NewSQLite(ctx, cfg.dbPath)
	case "memory":
		return repository.NewMemory(), nil
	default:
		return nil, goerr.New("unknown repository backend", goerr.V("backend", cfg.repoBackend))
	}
}

// newVectorStore creates a vector store for the selected backend
func (cfg *config) newVectorStore(ctx context.Context) (vector.Store, error) {
	switch cfg.vectorBackend {
	case "gcs":
		if cfg.bucket == "" {
			return nil, goerr.New("bucket is required for gcs")
		}
		storage, err := adapter.NewStorage(ctx, cfg.bucket)
		if err != nil {
			return nil, err
		}
		return vector.NewCloudStorageStore(storage), nil
	case "postgres":
		if cfg.postgresDSN == "" {
			return nil, goerr.New("postgres-dsn is required for postgres")
		}
		return vector.NewPostgresStore(ctx, cfg.postgresDSN)
	case "memory":
		return vector.NewMemoryStore(), nil
	default:
		return nil, goerr.New("unknown vector store backend", goerr.V("backend", cfg.vectorBackend))
	}
}

// newGemini creates a Gemini client
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation)
}

// newEmbedder creates an embedder for the selected backend
func (cfg *config) newEmbedder(ctx context.Context) (adapter.Embedder, error) {
	switch cfg.embedderBackend {
	case "gemini":
		gemini, err := cfg.newGemini(ctx)
		if err != nil {
			return nil, err
		}
		return adapter.NewGeminiEmbedder(gemini), nil
	case "openai":
		if cfg.openaiAPIKey == "" {
			return nil, goerr.New("openai-api-key is required")
		}
		return adapter.NewOpenAIEmbedder(cfg.openaiAPIKey), nil
	case "local":
		return adapter.NewHashEmbedder(0), nil
	default:
		return nil, goerr.New("unknown embedder backend", goerr.V("backend", cfg.embedderBackend))
	}
}

// newGenerator creates a reply generator for the selected backend
func (cfg *config) newGenerator(ctx context.Context) (adapter.Generator, error) {
	switch cfg.generatorBackend {
	case "gemini":
		gemini, err := cfg.newGemini(ctx)
		if err != nil {
			return nil, err
		}
		return adapter.NewGeminiGenerator(gemini), nil
	case "claude":
		if cfg.anthropicAPIKey == "" {
			return nil, goerr.New("anthropic-api-key is required")
		}
		return adapter.NewClaudeGenerator(adapter.NewClaude(cfg.anthropicAPIKey)), nil
	default:
		return nil, goerr.New("unknown generator backend", goerr.V("backend", cfg.generatorBackend))
	}
}

// newMemoryUseCase wires a memory usecase with the configured repository
func (cfg *config) newMemoryUseCase(ctx context.Context) (*memory.UseCase, repository.Repository, error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	return memory.New(repo), repo, nil
}

// newSearchUseCase wires a search usecase with the configured store and embedder
func (cfg *config) newSearchUseCase(ctx context.Context) (*search.UseCase, error) {
	store, err := cfg.newVectorStore(ctx)
	if err != nil {
		return nil, err
	}
	embedder, err := cfg.newEmbedder(ctx)
	if err != nil {
		return nil, err
	}
	return search.New(store, embedder), nil
}

// newChatUseCase wires the full retrieval-augmented chat stack
func (cfg *config) newChatUseCase(ctx context.Context) (*chat.UseCase, repository.Repository, error) {
	memoryUC, repo, err := cfg.newMemoryUseCase(ctx)
	if err != nil {
		return nil, nil, err
	}
	searchUC, err := cfg.newSearchUseCase(ctx)
	if err != nil {
		_ = repo.Close()
		return nil, nil, err
	}
	generator, err := cfg.newGenerator(ctx)
	if err != nil {
		_ = repo.Close()
		return nil, nil, err
	}
	return chat.New(memoryUC, searchUC, generator), repo, nil
}
