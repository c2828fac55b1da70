package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"github.com/muhammadolammi/jobmatchassistant/internal/assistant"
	"github.com/muhammadolammi/jobmatchassistant/internal/checkpoint"
	"github.com/muhammadolammi/jobmatchassistant/internal/config"
	"github.com/muhammadolammi/jobmatchassistant/internal/database"
	"github.com/muhammadolammi/jobmatchassistant/internal/jobposting"
	"github.com/muhammadolammi/jobmatchassistant/internal/llm/openaicompat"
	"github.com/muhammadolammi/jobmatchassistant/internal/resume"
	"github.com/muhammadolammi/jobmatchassistant/internal/search"
	"github.com/muhammadolammi/jobmatchassistant/internal/storage"
	"github.com/muhammadolammi/jobmatchassistant/internal/tools"
	"github.com/muhammadolammi/jobmatchassistant/internal/tracing"
)

const agentName = "jd_analyzer"

func newModel(ctx context.Context, cfg config.Config) (model.LLM, error) {
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		m, err := gemini.NewModel(ctx, cfg.LLM.Model, &genai.ClientConfig{
			APIKey: cfg.GoogleAPIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create model: %v", err)
		}
		return m, nil
	default:
		temp := cfg.LLM.TemperatureOrDefault()
		return openaicompat.New(openaicompat.Config{
			BaseURL:     cfg.KimiBaseURL,
			APIKey:      cfg.KimiAPIKey,
			Model:       cfg.LLM.Model,
			Temperature: &temp,
			Timeout:     cfg.LLM.TimeoutDuration(),
		}), nil
	}
}

func newStore(ctx context.Context, dbURL string) (checkpoint.Store, *sql.DB, error) {
	if dbURL == "" {
		log.Println("DB_URL not set, sessions are kept in memory")
		return checkpoint.NewMemory(), nil, nil
	}
	db, err := database.Open(dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening db. err: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return checkpoint.NewSQL(db), db, nil
}

// buildAssistant wires the assistant from cfg. The returned func releases
// the database and flushes traces.
func buildAssistant(ctx context.Context, cfg config.Config) (*assistant.Assistant, func(), error) {
	llm, err := newModel(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	store, db, err := newStore(ctx, cfg.DBURL)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if db != nil {
			db.Close()
		}
	}

	var objects resume.ObjectFetcher
	if cfg.R2 != nil {
		r2, err := storage.NewR2(ctx, *cfg.R2)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		objects = r2
	}

	searcher := search.NewClient(cfg.BraveAPIKey)
	if searcher.Simulated() {
		log.Println("BRAVE_API_KEY not set, search tools run in simulated mode")
	}
	specs := tools.Default(search.NewTools(searcher), resume.NewExtractor(objects), jobposting.NewFetcher(nil))

	var tracer tracing.Sink = tracing.Noop{}
	if cfg.TracingEnabled {
		tp, shutdown := tracing.Setup()
		tracer = tracing.NewOTel(tp, "jobmatchassistant")
		closeDB := cleanup
		cleanup = func() {
			if err := shutdown(context.Background()); err != nil {
				log.Printf("error flushing traces: %v", err)
			}
			closeDB()
		}
	}

	instruction := cfg.SystemPrompt
	if instruction == "" {
		instruction = defaultPrompt()
	}

	a, err := assistant.New(ctx, assistant.Config{
		AgentName:   agentName,
		Model:       llm,
		Instruction: instruction,
		Tools:       specs,
		MaxMessages: cfg.MaxMessages,
		Store:       store,
		Tracer:      tracer,
		Streaming:   cfg.LLM.StreamingEnabled(),
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return a, cleanup, nil
}
