// Package workflow wires the farmer-assistant conversation pipeline: a DAG
// of fetch and reasoning nodes that gathers farm context, runs the
// analysis branches concurrently and synthesizes one clean reply per
// message.
package workflow

import (
	"context"
	"time"

	"github.com/sp4m-08/crop-chat-agent/patterns/graph"
	"github.com/sp4m-08/crop-chat-agent/providers/farm"
	"github.com/sp4m-08/crop-chat-agent/providers/history"
	"github.com/sp4m-08/crop-chat-agent/providers/llm"
	"github.com/sp4m-08/crop-chat-agent/providers/observability"
)

// FallbackResponse is returned when a run completes without producing a
// final response.
const FallbackResponse = "Sorry, something went wrong."

// Workflow owns the compiled conversation graph and its collaborators.
// The graph is built once and reused across concurrent Run calls.
type Workflow struct {
	llm      llm.Provider
	profiles farm.ProfileProvider
	sensors  farm.SensorProvider
	weather  farm.WeatherProvider
	market   farm.MarketProvider
	store    history.Store
	observer observability.Provider

	runTimeout     time.Duration
	maxConcurrency int

	graph *graph.Graph[string]
}

// Option configures a Workflow at construction time.
type Option func(*Workflow)

// WithProfileProvider overrides the farmer profile source.
func WithProfileProvider(provider farm.ProfileProvider) Option {
	return func(workflow *Workflow) { workflow.profiles = provider }
}

// WithSensorProvider overrides the field sensor source.
func WithSensorProvider(provider farm.SensorProvider) Option {
	return func(workflow *Workflow) { workflow.sensors = provider }
}

// WithWeatherProvider overrides the weather source.
func WithWeatherProvider(provider farm.WeatherProvider) Option {
	return func(workflow *Workflow) { workflow.weather = provider }
}

// WithMarketProvider overrides the mandi price source.
func WithMarketProvider(provider farm.MarketProvider) Option {
	return func(workflow *Workflow) { workflow.market = provider }
}

// WithHistoryStore overrides the chat history store.
func WithHistoryStore(store history.Store) Option {
	return func(workflow *Workflow) { workflow.store = store }
}

// WithObserver attaches an observability provider to runs and node logs.
func WithObserver(observer observability.Provider) Option {
	return func(workflow *Workflow) { workflow.observer = observer }
}

// WithRunTimeout bounds a whole conversation turn.
func WithRunTimeout(timeout time.Duration) Option {
	return func(workflow *Workflow) { workflow.runTimeout = timeout }
}

// WithMaxConcurrency limits how many nodes run in parallel per turn.
func WithMaxConcurrency(limit int) Option {
	return func(workflow *Workflow) { workflow.maxConcurrency = limit }
}

// New builds the conversation workflow around the given text-generation
// provider. Unconfigured collaborators fall back to the in-package mocks
// and an in-memory history store.
func New(provider llm.Provider, opts ...Option) (*Workflow, error) {
	workflow := &Workflow{
		llm:      provider,
		profiles: farm.MockProfileProvider{},
		sensors:  farm.NewMockSensorProvider(0),
		weather:  farm.MockWeatherProvider{},
		market:   farm.MockMarketProvider{},
		store:    history.NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(workflow)
	}

	compiled, err := workflow.buildGraph()
	if err != nil {
		return nil, err
	}
	workflow.graph = compiled
	return workflow, nil
}

// buildGraph assembles the node DAG. The fetch chain narrows to the
// profile first, then fans out to the independent data sources, then to
// the analysis branches, and finally fans in on the synthesis node.
func (workflow *Workflow) buildGraph() (*graph.Graph[string], error) {
	graphOpts := []graph.Option{
		graph.WithOutputKey(KeyFinalResponse),
	}
	if workflow.observer != nil {
		graphOpts = append(graphOpts, graph.WithObserver(workflow.observer))
	}
	if workflow.runTimeout > 0 {
		graphOpts = append(graphOpts, graph.WithExecutionTimeout(workflow.runTimeout))
	}
	if workflow.maxConcurrency > 0 {
		graphOpts = append(graphOpts, graph.WithMaxConcurrency(workflow.maxConcurrency))
	}

	return graph.NewBuilder[string](workflow.llm, graphOpts...).
		Fallback(FallbackResponse).
		AddNode("chat_history", workflow.chatHistoryNode()).
		AddNode("interpret", workflow.interpretNode()).
		AddNode("farmer_profile", workflow.farmerProfileNode()).
		AddNode("sensor_data", workflow.sensorDataNode()).
		AddNode("weather", workflow.weatherNode()).
		AddNode("market_price", workflow.marketPriceNode()).
		AddNode("crop_health", workflow.cropHealthNode()).
		AddNode("disease_prediction", workflow.diseasePredictionNode()).
		AddNode("lifecycle_planning", workflow.lifecyclePlanningNode()).
		AddNode("response", workflow.responseNode()).
		SetEntry("chat_history").
		AddEdge("chat_history", "interpret").
		AddEdge("interpret", "farmer_profile").
		AddEdge("farmer_profile", "sensor_data").
		AddEdge("farmer_profile", "weather").
		AddEdge("farmer_profile", "market_price").
		AddEdge("sensor_data", "crop_health").
		AddEdge("sensor_data", "disease_prediction").
		AddEdge("weather", "disease_prediction").
		AddEdge("weather", "lifecycle_planning").
		AddEdge("market_price", "response").
		AddEdge("crop_health", "response").
		AddEdge("disease_prediction", "response").
		AddEdge("lifecycle_planning", "response").
		Build()
}

// Run processes one user message and returns the cleaned assistant reply.
func (workflow *Workflow) Run(ctx context.Context, userID, sessionID, message string) (string, error) {
	initial := map[string]any{
		KeyUserID:    userID,
		KeySessionID: sessionID,
		KeyMessage:   message,
	}

	response, report, err := workflow.graph.Execute(ctx, initial)
	if err != nil {
		if workflow.observer != nil {
			workflow.observer.Error(ctx, "conversation run failed",
				observability.String("run_id", report.RunID),
				observability.String(observability.AttrChatUserID, userID),
				observability.String(observability.AttrChatSessionID, sessionID),
				observability.Error(err),
			)
		}
		return "", err
	}

	if workflow.observer != nil {
		workflow.observer.Info(ctx, "conversation run completed",
			observability.String("run_id", report.RunID),
			observability.String(observability.AttrChatUserID, userID),
			observability.String(observability.AttrChatSessionID, sessionID),
			observability.StringSlice("trace", report.Trace),
		)
	}
	return response, nil
}
