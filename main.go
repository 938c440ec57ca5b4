package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"google.golang.org/genai"

	"github.com/Jadir123-w/repli-post/internal/agent/graph"
	"github.com/Jadir123-w/repli-post/internal/agent/graph/conversations"
	"github.com/Jadir123-w/repli-post/internal/agent/graph/nodes"
	"github.com/Jadir123-w/repli-post/internal/agent/graph/prompts"
	"github.com/Jadir123-w/repli-post/internal/agent/graph/tools"
	"github.com/Jadir123-w/repli-post/internal/agent/media"
	"github.com/Jadir123-w/repli-post/internal/agent/model"
	"github.com/Jadir123-w/repli-post/internal/agent/rag"
	"github.com/Jadir123-w/repli-post/internal/agent/repo"
	"github.com/Jadir123-w/repli-post/internal/agent/service"
	"github.com/Jadir123-w/repli-post/internal/agent/session"
	"github.com/Jadir123-w/repli-post/internal/api"
	"github.com/Jadir123-w/repli-post/internal/core"
	pkggemini "github.com/Jadir123-w/repli-post/pkg/gemini"
	logx "github.com/Jadir123-w/repli-post/pkg/logger"
	pkgmongo "github.com/Jadir123-w/repli-post/pkg/mongo"
	pkgqdrant "github.com/Jadir123-w/repli-post/pkg/qdrant"
	pkgredis "github.com/Jadir123-w/repli-post/pkg/redis"
)

// AppConfig defines all configurable parameters of the service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Gemini pkggemini.Config
	Redis  pkgredis.Config
	Mongo  pkgmongo.Config
	Qdrant pkgqdrant.Config

	// Agent configs
	LLM          model.LLMConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
	Store        model.StoreConfig
	RAG          model.RAGConfig
	TimeAPI      model.TimeAPIConfig
	Media        model.MediaConfig
	HTTP         model.HTTPConfig
}

type store interface {
	model.ConversationRepository
	model.CVRepository
}

func main() {
	envErr := godotenv.Load(".env")

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to process environment config: %v\n", err)
		os.Exit(1)
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env, Level: cfg.LogLevel})
	if envErr != nil {
		logx.Warn().Err(envErr).Msg("Could not load .env file, using process environment")
	}
	if env.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logx.Fatal().Err(err).Msg("Service stopped with error")
	}
	logx.Info().Msg("Service stopped")
}

func run(ctx context.Context, cfg AppConfig) error {
	checks := map[string]api.Checker{}

	st, closeStore, err := newStore(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := cfg.Gemini.New(ctx)
	if err != nil {
		return err
	}

	chatModel, err := nodes.NewChatModel(ctx, client, cfg.LLM)
	if err != nil {
		return err
	}

	analyzer, closeRAG, err := newAnalyzer(cfg, client, checks)
	if err != nil {
		return err
	}
	defer closeRAG()

	systemPrompt, err := prompts.RenderSystem(ctx, cfg.Prompt, "", "")
	if err != nil {
		return err
	}

	timeClient := tools.NewTimeClient(cfg.TimeAPI.BaseURL, time.Duration(cfg.TimeAPI.Timeout)*time.Second)
	runner, err := graph.NewRunner(ctx, &graph.GraphConfig{
		ChatModel:    chatModel,
		ModelName:    cfg.LLM.Model,
		Tools:        tools.GetTools(timeClient),
		Analyzer:     analyzer,
		SystemPrompt: systemPrompt,
		ToolMaxCalls: cfg.Conversation.Tools.MaxCalls,
	})
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	messages := conversations.NewMessagesManager(st, cfg.Prompt)
	conv := service.NewConversation(service.Deps{
		Sessions:      session.NewManager(messages, st, cfg.Prompt),
		Messages:      messages,
		CVRepo:        st,
		Runner:        runner,
		Media:         media.NewReader(client, cfg.Media.Model, cfg.Media.MaxFileBytes),
		ExportDir:     cfg.Conversation.ExportDir,
		AssistantName: cfg.Prompt.AssistantName,
	})

	router := api.NewRouter(api.RouterConfig{
		ConversationHandler: api.NewConversationHandler(conv, cfg.Media.MaxFileBytes),
		HealthHandler:       api.NewHealthHandler(checks),
		AllowOrigins:        cfg.HTTP.AllowOrigins,
	})

	return serve(ctx, cfg.HTTP.Addr, router)
}

func newStore(ctx context.Context, cfg AppConfig, checks map[string]api.Checker) (store, func(), error) {
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Store.Driver)); driver {
	case "mongo", "":
		db, err := cfg.Mongo.DB(ctx)
		if err != nil {
			return nil, nil, err
		}
		r := repo.NewMongoConversationRepository(db)
		if err := r.EnsureIndexes(ctx); err != nil {
			logx.Warn().Err(err).Msg("Failed to ensure mongo indexes")
		}
		checks["database"] = func(ctx context.Context) error { return db.Client().Ping(ctx, nil) }
		logx.Info().Str("database", cfg.Mongo.Database).Msg("Using mongo conversation store")
		return r, func() { _ = pkgmongo.Close(context.Background()) }, nil

	case "redis":
		ttl, err := time.ParseDuration(cfg.Conversation.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid CONVERSATION_TTL '%s': %w", cfg.Conversation.TTL, err)
		}
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialise redis client: %w", err)
		}
		checks["database"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		logx.Info().Dur("ttl", ttl).Msg("Using redis conversation store")
		return repo.NewRedisConversationRepository(rdb, ttl), func() { _ = rdb.Close() }, nil

	case "memory":
		logx.Warn().Msg("Using in-memory conversation store, transcripts are lost on restart")
		return repo.NewMemoryConversationRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
}

// newAnalyzer returns a nil analyzer when RAG is disabled; the rag node is
// then a no-op.
func newAnalyzer(cfg AppConfig, client *genai.Client, checks map[string]api.Checker) (model.CVAnalyzer, func(), error) {
	if !cfg.RAG.Enabled {
		logx.Info().Msg("RAG analysis disabled")
		return nil, func() {}, nil
	}

	qc, err := cfg.Qdrant.New()
	if err != nil {
		return nil, nil, err
	}
	checks["vector_store"] = func(ctx context.Context) error {
		_, err := qc.HealthCheck(ctx)
		return err
	}

	searcher := rag.NewQdrantSearcher(qc, cfg.Qdrant.Collection)
	embedder := rag.NewGeminiEmbedder(client, cfg.RAG.EmbeddingModel)
	logx.Info().
		Str("collection", cfg.Qdrant.Collection).
		Str("embedding_model", cfg.RAG.EmbeddingModel).
		Msg("RAG analysis enabled")

	return rag.NewAnalyzer(embedder, searcher, cfg.RAG), func() { _ = searcher.Close() }, nil
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logx.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
