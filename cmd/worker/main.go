package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/kgimport/internal/db"
	"github.com/OFFIS-RIT/kgimport/internal/queue"
	"github.com/OFFIS-RIT/kgimport/internal/storage"
	"github.com/OFFIS-RIT/kgimport/internal/util"
	"github.com/OFFIS-RIT/kgimport/pkg/ai"
	"github.com/OFFIS-RIT/kgimport/pkg/ai/ailog"
	oai "github.com/OFFIS-RIT/kgimport/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/kgimport/pkg/ai/openai"
	"github.com/OFFIS-RIT/kgimport/pkg/chunker"
	"github.com/OFFIS-RIT/kgimport/pkg/graph"
	"github.com/OFFIS-RIT/kgimport/pkg/loader"
	ioloader "github.com/OFFIS-RIT/kgimport/pkg/loader/io"
	s3loader "github.com/OFFIS-RIT/kgimport/pkg/loader/s3"
	"github.com/OFFIS-RIT/kgimport/pkg/logger"
	"github.com/OFFIS-RIT/kgimport/pkg/logger/console"
	"github.com/OFFIS-RIT/kgimport/pkg/prompt"
	"github.com/OFFIS-RIT/kgimport/pkg/store/neo4j"
	graphstorage "github.com/OFFIS-RIT/kgimport/pkg/store/pgx"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Format: util.GetEnv("LOG_FORMAT"),
		Prefix: "worker",
	})
	logger.Init(consoleLogger)

	aiClient := newAIClient()

	prompts, err := prompt.Load(util.GetEnv("PROMPTS_FILE"))
	if err != nil {
		logger.Fatal("Failed to load prompts", "err", err)
	}
	pricing, err := ailog.LoadPricing(util.GetEnv("AI_PRICING_FILE"))
	if err != nil {
		logger.Fatal("Failed to load AI pricing", "err", err)
	}

	c, err := chunker.New(
		chunker.WithSize(util.GetEnvPositiveInt("CHUNK_SIZE", chunker.DefaultSize)),
		chunker.WithOverlap(int(util.GetEnvNumeric("CHUNK_OVERLAP", chunker.DefaultOverlap))),
		chunker.WithTokenLength(util.GetEnv("CHUNK_ENCODING")),
	)
	if err != nil {
		logger.Fatal("Invalid chunker configuration", "err", err)
	}
	graphClient, err := graph.NewGraphClient(graph.NewGraphClientParams{
		Chunker:         c,
		ValidationModel: util.GetEnv("AI_VALIDATION_MODEL"),
		MaxRetries:      util.GetEnvPositiveInt("AI_MAX_RETRIES", 2),
		RetryDelay:      util.GetEnvDuration("AI_RETRY_DELAY", 2*time.Second),
	})
	if err != nil {
		logger.Fatal("Failed to create graph client", "err", err)
	}

	// Init postgres
	databaseURL := util.GetEnv("DATABASE_URL")
	if err := db.Migrate(databaseURL); err != nil {
		logger.Fatal("Failed to migrate database", "err", err)
	}
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pool.Close()
	importStorage := graphstorage.NewImportStorage(pool)

	// Init neo4j
	graphDB, err := neo4j.NewGraphExecutor(ctx, neo4j.ConfigFromEnv())
	if err != nil {
		logger.Fatal("Unable to connect to Neo4j", "err", err)
	}
	defer graphDB.Close(context.Background())

	textLoader := newTextLoader(ctx)

	// Init rabbitmq
	conn, err := queue.Init(ctx, queue.URLFromEnv())
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()
	if err := queue.SetupQueues(ch, queue.ImportQueue); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	processor := &queue.ImportProcessor{
		Graph:    graphClient,
		Client:   aiClient,
		CallLog:  ailog.New(aiClient, ailog.WithSink(importStorage), ailog.WithPricing(pricing)),
		Embedder: aiClient,
		Prompts:  prompts,
		Loader:   textLoader,
		Imports:  importStorage,
		GraphDB:  graphDB,
	}

	handle := func(ctx context.Context, body []byte) error {
		aiClient.ResetMetrics()
		err := processor.ProcessImportMessage(ctx, body)
		metrics := aiClient.GetMetrics()
		logger.Info("AI Metrics",
			"requests", metrics.Requests,
			"input_tokens", metrics.InputTokens,
			"output_tokens", metrics.OutputTokens,
			"total_tokens", metrics.TotalTokens,
			"tokens_per_second", metrics.TokenPerSecond,
			"duration", time.Duration(metrics.DurationMs)*time.Millisecond,
		)
		return err
	}

	if err := queue.Consume(ctx, conn, queue.ImportQueue, handle); err != nil {
		logger.Fatal("Consumer stopped", "err", err)
	}
	logger.Info("Shutdown signal received, exiting...")
}

func newAIClient() ai.GraphAIClient {
	switch util.GetEnv("AI_ADAPTER") {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			EmbeddingDim:   int(util.GetEnvNumeric("AI_EMBED_DIM", 0)),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvPositiveInt("AI_PARALLEL_REQ", 4)),
			Timeout:               util.GetEnvDuration("AI_TIMEOUT", 0),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		return client
	default:
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			EmbeddingDim:   int(util.GetEnvNumeric("AI_EMBED_DIM", 0)),

			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),
			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),

			Timeout: util.GetEnvDuration("AI_TIMEOUT", 0),
		})
	}
}

// newTextLoader reads documents from S3 unless DOCUMENT_ROOT points at a
// local directory.
func newTextLoader(ctx context.Context) loader.TextLoader {
	if root := util.GetEnv("DOCUMENT_ROOT"); root != "" {
		return ioloader.NewIOTextLoader(root)
	}
	client, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Failed to create S3 client", "err", err)
	}
	return s3loader.NewS3TextLoader(storage.Bucket(), client)
}
