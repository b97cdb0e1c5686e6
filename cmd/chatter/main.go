package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/redis/go-redis/v9"
	"github.com/w-h-a/chatter/embedder"
	cachedembedder "github.com/w-h-a/chatter/embedder/cached"
	googleembedder "github.com/w-h-a/chatter/embedder/google"
	openaiembedder "github.com/w-h-a/chatter/embedder/openai"
	"github.com/w-h-a/chatter/generator"
	anthropicgenerator "github.com/w-h-a/chatter/generator/anthropic"
	googlegenerator "github.com/w-h-a/chatter/generator/google"
	openaigenerator "github.com/w-h-a/chatter/generator/openai"
	"github.com/w-h-a/chatter/ingestor"
	"github.com/w-h-a/chatter/responder"
	"github.com/w-h-a/chatter/retriever"
	httpserver "github.com/w-h-a/chatter/server/http"
	"github.com/w-h-a/chatter/server/websocket"
	sessionstore "github.com/w-h-a/chatter/session_store"
	memorysession "github.com/w-h-a/chatter/session_store/memory"
	redissession "github.com/w-h-a/chatter/session_store/redis"
	"github.com/w-h-a/chatter/storer"
	memorystorer "github.com/w-h-a/chatter/storer/memory"
	postgresstorer "github.com/w-h-a/chatter/storer/postgres"
	qdrantstorer "github.com/w-h-a/chatter/storer/qdrant"
)

var (
	cfg struct {
		// Server config
		Address string `help:"HTTP listen address" default:":8080" env:"CHATTER_ADDRESS"`

		// Embedder config
		Embedder      string `help:"Embedding provider (openai or google)" default:"openai" env:"CHATTER_EMBEDDER"`
		EmbedderKey   string `help:"API key for the embedder" default:"" env:"CHATTER_EMBEDDER_KEY"`
		EmbedderModel string `help:"Model identifier for the embedder" default:"text-embedding-3-small" env:"CHATTER_EMBEDDER_MODEL"`

		// Generator config
		Generator      string `help:"Generation provider (openai, google, or anthropic)" default:"openai" env:"CHATTER_GENERATOR"`
		GeneratorKey   string `help:"API key for the generator" default:"" env:"CHATTER_GENERATOR_KEY"`
		GeneratorModel string `help:"Model identifier for the generator" default:"gpt-4o-mini" env:"CHATTER_GENERATOR_MODEL"`

		// Vector index config
		Storer         string `help:"Vector index provider (qdrant, postgres, or memory)" default:"qdrant" env:"CHATTER_STORER"`
		StorerLocation string `help:"Address or DSN of the vector index" default:"http://localhost:6333" env:"CHATTER_STORER_LOCATION"`
		StorerKey      string `help:"API key for the vector index" default:"" env:"CHATTER_STORER_KEY"`
		Collection     string `help:"Vector collection or table name" default:"chatter" env:"CHATTER_COLLECTION"`

		// Session config
		SessionStore string        `help:"Session store provider (redis or memory)" default:"redis" env:"CHATTER_SESSION_STORE"`
		SessionTTL   time.Duration `help:"Idle lifetime of a session" default:"24h" env:"CHATTER_SESSION_TTL"`

		// Redis config
		RedisAddr     string `help:"Redis address for sessions and the embedding cache" default:"localhost:6379" env:"CHATTER_REDIS_ADDR"`
		RedisPassword string `help:"Redis password" default:"" env:"CHATTER_REDIS_PASSWORD"`
	}
)

func main() {
	// Parse inputs
	_ = kong.Parse(&cfg)

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One redis client backs both the session store and the embedding cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		slog.Error("failed to reach redis", slog.String("addr", cfg.RedisAddr), slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create the embedder behind the redis-backed cache
	var inner embedder.Embedder
	switch cfg.Embedder {
	case "google":
		inner = googleembedder.NewEmbedder(
			embedder.WithApiKey(cfg.EmbedderKey),
			embedder.WithModel(cfg.EmbedderModel),
		)
	default:
		inner = openaiembedder.NewEmbedder(
			embedder.WithApiKey(cfg.EmbedderKey),
			embedder.WithModel(cfg.EmbedderModel),
		)
	}

	emb := cachedembedder.NewEmbedder(
		inner,
		cachedembedder.WithCache(cachedembedder.NewRedisCache(redisClient)),
	)

	// Create the vector index
	var index storer.Storer
	switch cfg.Storer {
	case "postgres":
		index = postgresstorer.NewStorer(
			storer.WithLocation(cfg.StorerLocation),
			storer.WithCollection(cfg.Collection),
		)
	case "memory":
		index = memorystorer.NewStorer()
	default:
		index = qdrantstorer.NewStorer(
			storer.WithLocation(cfg.StorerLocation),
			storer.WithApiKey(cfg.StorerKey),
			storer.WithCollection(cfg.Collection),
		)
	}

	// Create the session store
	var sessions sessionstore.Store
	switch cfg.SessionStore {
	case "memory":
		sessions = memorysession.NewStore(
			sessionstore.WithTTL(cfg.SessionTTL),
		)
	default:
		sessions = redissession.NewStore(
			redisClient,
			sessionstore.WithTTL(cfg.SessionTTL),
		)
	}

	// Create the generator
	var gen generator.Generator
	switch cfg.Generator {
	case "google":
		gen = googlegenerator.NewGenerator(
			generator.WithApiKey(cfg.GeneratorKey),
			generator.WithModel(cfg.GeneratorModel),
		)
	case "anthropic":
		gen = anthropicgenerator.NewGenerator(
			generator.WithApiKey(cfg.GeneratorKey),
			generator.WithModel(cfg.GeneratorModel),
		)
	default:
		gen = openaigenerator.NewGenerator(
			generator.WithApiKey(cfg.GeneratorKey),
			generator.WithModel(cfg.GeneratorModel),
		)
	}

	// Wire the pipeline
	rt := retriever.New(emb, index)
	rsp := responder.New(rt, sessions, gen)
	ing := ingestor.New(emb, index)

	coordinator := websocket.New(sessions, rsp)
	coordinator.Start()
	defer coordinator.Stop()

	srv := httpserver.NewServer(
		sessions,
		rsp,
		ing,
		index,
		coordinator.Handler(),
		httpserver.WithAddress(cfg.Address),
		httpserver.WithMiddleware(httpserver.LoggingMiddleware),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("http server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", slog.String("error", err.Error()))
		}
	}
}
