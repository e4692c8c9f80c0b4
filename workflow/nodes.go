package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/sp4m-08/crop-chat-agent/core/parse"
	"github.com/sp4m-08/crop-chat-agent/internal/utils"
	"github.com/sp4m-08/crop-chat-agent/patterns/graph"
	"github.com/sp4m-08/crop-chat-agent/providers/farm"
	"github.com/sp4m-08/crop-chat-agent/providers/history"
	"github.com/sp4m-08/crop-chat-agent/providers/observability"
)

const historyLimit = 20

const unknownCrop = "unknown crop"

// Node instructions. Classification prompts demand strict output so the
// lenient parser has something to work with even when the model drifts.
const (
	historySummaryInstruction = "Summarize this farmer-assistant chat briefly. Keep goals, crops, and unresolved items. <= 120 words."

	interpretInstruction = "You triage farmer queries. Classify the message into one or more intents " +
		"from: status, weather, disease, plan, advice, market, price. Also extract the crop name and " +
		"location if the message mentions them. Respond with strict JSON only: " +
		`{"intents": ["..."], "crop": "", "location": ""}`

	cropHealthInstruction = "You are an expert agronomist. From your knowledge, infer ideal environmental ranges " +
		"for the specified crop (temperature, humidity, soil moisture, rainfall if relevant). " +
		"Compare those inferred ideals with the provided sensor readings. " +
		"Point out any risks or deviations and provide practical, field-ready advice. " +
		"Be concise and avoid hedging."

	diseaseInstruction = "Plant pathologist. Estimate near-term disease risks and preventive actions."

	planInstruction = "You prepare seasonal crop operation plans."

	synthesisInstruction = "Farmer-facing assistant. Concise bullets and a final Action line."
)

// interpretation is the structured output of the interpret node.
type interpretation struct {
	Intents  []string `json:"intents"`
	Crop     string   `json:"crop"`
	Location string   `json:"location"`
}

// chatHistoryNode loads recent turns and summarizes them. Both the fetch
// and the summary degrade rather than fail the run.
func (workflow *Workflow) chatHistoryNode() graph.NodeExecutorFunc {
	return func(ctx context.Context, input *graph.NodeInput) (graph.Patch, error) {
		userID := input.State.String(KeyUserID)
		sessionID := input.State.String(KeySessionID)

		turns, err := workflow.store.History(ctx, userID, sessionID, historyLimit)
		if err != nil {
			workflow.warn(ctx, "history fetch failed", err)
			turns = nil
		}

		rendered := history.Render(turns)
		if rendered == "" {
			rendered = "No prior messages."
		}

		summary, err := input.LLM.Generate(ctx, historySummaryInstruction, rendered)
		if err != nil {
			workflow.warn(ctx, "history summary failed", err)
			summary = ""
		}

		return graph.Trace("history_loaded").
			Set(KeyHistory, turns).
			Set(KeyHistorySummary, strings.TrimSpace(summary)), nil
	}
}

// interpretNode classifies intents and extracts crop/location mentions.
// Any failure degrades to the full default intent set.
func (workflow *Workflow) interpretNode() graph.NodeExecutorFunc {
	return func(ctx context.Context, input *graph.NodeInput) (graph.Patch, error) {
		message := input.State.String(KeyMessage)

		intents := defaultIntents
		var crop, location string

		raw, err := input.LLM.Generate(ctx, interpretInstruction, "User message: "+message)
		if err != nil {
			workflow.warn(ctx, "intent classification failed", err)
		} else {
			parsed, parseErr := parse.ParseStringAs[interpretation](parse.StripCodeFences(raw))
			if parseErr != nil {
				workflow.warn(ctx, "intent parse failed", parseErr)
			} else {
				if normalized := normalizeIntents(parsed.Intents); len(normalized) > 0 {
					intents = normalized
				}
				crop = strings.ToLower(strings.TrimSpace(parsed.Crop))
				location = strings.TrimSpace(parsed.Location)
			}
		}

		return graph.Trace("intents=" + strings.Join(intents, ",")).
			Set(KeyIntents, intents).
			Set(KeyCrop, crop).
			Set(KeyLocation, location), nil
	}
}

// normalizeIntents lower-cases, deduplicates and drops labels the model
// invented.
func normalizeIntents(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	normalized := make([]string, 0, len(raw))
	for _, intent := range raw {
		intent = strings.ToLower(strings.TrimSpace(intent))
		if !knownIntents[intent] || seen[intent] {
			continue
		}
		seen[intent] = true
		normalized = append(normalized, intent)
	}
	return normalized
}

func (workflow *Workflow) farmerProfileNode() graph.NodeExecutorFunc {
	return func(ctx context.Context, input *graph.NodeInput) (graph.Patch, error) {
		profile, err := workflow.profiles.Profile(ctx, input.State.String(KeyUserID))
		if err != nil {
			workflow.warn(ctx, "profile fetch failed", err)
			return graph.Trace("profile").Set(KeyProfile, errTagged(err)), nil
		}
		return graph.Trace("profile").Set(KeyProfile, profile), nil
	}
}

func (workflow *Workflow) sensorDataNode() graph.NodeExecutorFunc {
	return func(ctx context.Context, input *graph.NodeInput) (graph.Patch, error) {
		reading, err := workflow.sensors.LatestReading(ctx, input.State.String(KeyUserID))
		if err != nil {
			workflow.warn(ctx, "sensor fetch failed", err)
			return graph.Trace("sensors").Set(KeySensors, errTagged(err)), nil
		}
		return graph.Trace("sensors").Set(KeySensors, reading), nil
	}
}

func (workflow *Workflow) weatherNode() graph.NodeExecutorFunc {
	return func(ctx context.Context, input *graph.NodeInput) (graph.Patch, error) {
		location := input.State.String(KeyLocation)
		if location == "" {
			location = profileFrom(input.State).locationOrUnknown()
		}

		report, err := workflow.weather.LocalWeather(ctx, location)
		if err != nil {
			workflow.warn(ctx, "weather fetch failed", err)
			return graph.Trace("weather").Set(KeyWeather, errTagged(err)), nil
		}
		return graph.Trace("weather").Set(KeyWeather, report), nil
	}
}

// marketPriceNode looks up mandi prices for the crop the message mentioned,
// falling back to the first profile crop.
func (workflow *Workflow) marketPriceNode() graph.NodeExecutorFunc {
	return func(ctx context.Context, input *graph.NodeInput) (graph.Patch, error) {
		profile := profileFrom(input.State)

		commodity := input.State.String(KeyCrop)
		if commodity == "" {
			commodity = profile.PrimaryCrop("")
		}
		if commodity == "" {
			return graph.Trace("market").Set(KeyMarket, &farm.MarketQuote{Err: "no crop to look up"}), nil
		}

		quote, err := workflow.market.Prices(ctx, commodity, "", profile.locationOrUnknown())
		if err != nil {
			workflow.warn(ctx, "market lookup failed", err)
			return graph.Trace("market").Set(KeyMarket, &farm.MarketQuote{Commodity: commodity, Err: err.Error()}), nil
		}
		return graph.Trace("market").Set(KeyMarket, quote), nil
	}
}

func (workflow *Workflow) cropHealthNode() graph.NodeExecutorFunc {
	return func(ctx context.Context, input *graph.NodeInput) (graph.Patch, error) {
		state := input.State
		payload := fmt.Sprintf(
			"Recent chat summary: %s\nCrop: %s\nFarmer context: %s\nSensors: %s\n"+
				"Output: 3-5 bullets and a line starting with 'Action:'",
			state.String(KeyHistorySummary),
			cropFrom(state),
			jsonField(state, KeyProfile),
			jsonField(state, KeySensors),
		)

		analysis := workflow.generateDegraded(ctx, input, "crop health analysis", cropHealthInstruction, payload)
		return graph.Trace("crop_analysis").Set(KeyCropAnalysis, analysis), nil
	}
}

func (workflow *Workflow) diseasePredictionNode() graph.NodeExecutorFunc {
	return func(ctx context.Context, input *graph.NodeInput) (graph.Patch, error) {
		state := input.State
		payload := fmt.Sprintf(
			"Recent chat summary: %s\nCrop: %s\nSensors: %s\nWeather: %s",
			state.String(KeyHistorySummary),
			cropFrom(state),
			jsonField(state, KeySensors),
			jsonField(state, KeyWeather),
		)

		risk := workflow.generateDegraded(ctx, input, "disease prediction", diseaseInstruction, payload)
		return graph.Trace("disease_risk").Set(KeyDiseaseRisk, risk), nil
	}
}

func (workflow *Workflow) lifecyclePlanningNode() graph.NodeExecutorFunc {
	return func(ctx context.Context, input *graph.NodeInput) (graph.Patch, error) {
		state := input.State
		payload := fmt.Sprintf(
			"Crop: %s\nLocation: %s\nWeather summary: %s\n"+
				"Output: near-term 2-4 week plan (sow/fertilize/irrigate/spray/harvest cues).",
			cropFrom(state),
			profileFrom(state).locationOrUnknown(),
			jsonField(state, KeyWeather),
		)

		plan := workflow.generateDegraded(ctx, input, "lifecycle planning", planInstruction, payload)
		return graph.Trace("plan").Set(KeyPlan, plan), nil
	}
}

// responseNode synthesizes the final answer from the context sections the
// classified intents ask for, cleans it, and persists the turn. This is
// the only node whose generate failure fails the run.
func (workflow *Workflow) responseNode() graph.NodeExecutorFunc {
	return func(ctx context.Context, input *graph.NodeInput) (graph.Patch, error) {
		state := input.State
		message := state.String(KeyMessage)

		payload := fmt.Sprintf(
			"User query: %s\nFarmer profile: %s\nContext parts: %s\n<= 180 words.",
			message,
			jsonField(state, KeyProfile),
			utils.JSONToString(workflow.contextSections(state)),
		)

		generated, err := input.LLM.Generate(ctx, synthesisInstruction, payload)
		if err != nil {
			return nil, fmt.Errorf("response synthesis: %w", err)
		}

		cleaned := CleanResponse(generated)

		userID := state.String(KeyUserID)
		sessionID := state.String(KeySessionID)
		if saveErr := workflow.store.SaveTurn(ctx, userID, sessionID, message, cleaned); saveErr != nil {
			workflow.warn(ctx, "saving chat turn failed", saveErr)
		}

		return graph.Trace("final").Set(KeyFinalResponse, cleaned), nil
	}
}

// contextSections assembles the prompt sections the intent set asks for.
// An intent listed in any section's triggers pulls that section in; with
// no classified intents every section is included.
func (workflow *Workflow) contextSections(state *graph.State) map[string]string {
	intents := state.StringSlice(KeyIntents)

	sections := map[string]string{
		"History": state.String(KeyHistorySummary),
	}

	if wantSection(intents, IntentStatus, IntentAdvice, IntentDisease) {
		sections["Crop health"] = state.String(KeyCropAnalysis)
		sections["Sensors"] = jsonField(state, KeySensors)
	}
	if wantSection(intents, IntentDisease, IntentStatus, IntentAdvice) {
		sections["Disease"] = state.String(KeyDiseaseRisk)
	}
	if wantSection(intents, IntentPlan, IntentAdvice) {
		sections["Plan"] = state.String(KeyPlan)
	}
	if wantSection(intents, IntentWeather, IntentPlan, IntentStatus, IntentAdvice) {
		sections["Weather"] = FormatWeather(weatherFrom(state))
	}
	if wantSection(intents, IntentMarket, IntentPrice, IntentAdvice) {
		sections["Market"] = FormatMarketPrice(marketFrom(state))
	}

	return sections
}

// wantSection reports whether any classified intent triggers the section.
// An empty classification includes everything.
func wantSection(intents []string, triggers ...string) bool {
	if len(intents) == 0 {
		return true
	}
	for _, intent := range intents {
		for _, trigger := range triggers {
			if intent == trigger {
				return true
			}
		}
	}
	return false
}

// generateDegraded runs one generate call, degrading to "" on failure so
// sibling branches and the synthesis node still proceed.
func (workflow *Workflow) generateDegraded(ctx context.Context, input *graph.NodeInput, what, instruction, payload string) string {
	text, err := input.LLM.Generate(ctx, instruction, payload)
	if err != nil {
		workflow.warn(ctx, what+" failed", err)
		return ""
	}
	return strings.TrimSpace(text)
}

func (workflow *Workflow) warn(ctx context.Context, msg string, err error) {
	if workflow.observer == nil {
		return
	}
	workflow.observer.Warn(ctx, msg, observability.Error(err))
}

// errTagged wraps a provider failure as a state value, keeping the run
// alive while making the failure visible to prompts and debugging.
func errTagged(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

// typedProfile is a nil-tolerant view over the profile state field. An
// error-tagged or missing profile reads as empty.
type typedProfile struct {
	*farm.Profile
}

func (profile typedProfile) locationOrUnknown() string {
	if profile.Profile == nil || profile.Location == "" {
		return "Unknown"
	}
	return profile.Location
}

func profileFrom(state *graph.State) typedProfile {
	value, _ := state.Value(KeyProfile)
	profile, _ := value.(*farm.Profile)
	return typedProfile{profile}
}

func weatherFrom(state *graph.State) *farm.WeatherReport {
	value, _ := state.Value(KeyWeather)
	report, _ := value.(*farm.WeatherReport)
	return report
}

func marketFrom(state *graph.State) *farm.MarketQuote {
	value, _ := state.Value(KeyMarket)
	quote, _ := value.(*farm.MarketQuote)
	return quote
}

// cropFrom prefers the crop the message mentioned over the profile's
// first registered crop.
func cropFrom(state *graph.State) string {
	if crop := state.String(KeyCrop); crop != "" {
		return crop
	}
	return profileFrom(state).PrimaryCrop(unknownCrop)
}

// jsonField renders a state field as JSON for prompt payloads, tolerating
// absent values.
func jsonField(state *graph.State, key string) string {
	value, ok := state.Value(key)
	if !ok || value == nil {
		return "{}"
	}
	return utils.JSONToString(value)
}
