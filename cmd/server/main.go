package main

import (
	"log"

	_ "github.com/joho/godotenv/autoload"

	"github.com/sp4m-08/crop-chat-agent/config"
	"github.com/sp4m-08/crop-chat-agent/providers/farm"
	"github.com/sp4m-08/crop-chat-agent/providers/farm/agmarket"
	"github.com/sp4m-08/crop-chat-agent/providers/history"
	"github.com/sp4m-08/crop-chat-agent/providers/llm/gemini"
	"github.com/sp4m-08/crop-chat-agent/providers/observability/slogobs"
	"github.com/sp4m-08/crop-chat-agent/server"
	"github.com/sp4m-08/crop-chat-agent/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	observer := slogobs.New()

	model := gemini.New().WithAPIKey(cfg.GeminiAPIKey)
	if cfg.GeminiModel != "" {
		model = model.WithModel(cfg.GeminiModel)
	}

	store, err := history.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("opening history store: %v", err)
	}
	defer store.Close()

	var market farm.MarketProvider = farm.MockMarketProvider{}
	if cfg.MarketAPIURL != "" {
		market = agmarket.New().WithBaseURL(cfg.MarketAPIURL)
	}

	flow, err := workflow.New(model,
		workflow.WithHistoryStore(store),
		workflow.WithMarketProvider(market),
		workflow.WithObserver(observer),
	)
	if err != nil {
		log.Fatalf("building workflow: %v", err)
	}

	router := server.New(flow, observer).Router(cfg.AllowedOrigins, cfg.Debug)
	if err := router.Run(cfg.Addr()); err != nil {
		log.Fatalf("server: %v", err)
	}
}
