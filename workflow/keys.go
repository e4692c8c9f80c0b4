package workflow

// State field names shared between nodes. Each field is written by exactly
// one node per run.
const (
	KeyUserID    = "user_id"
	KeySessionID = "session_id"
	KeyMessage   = "message"

	KeyHistory        = "history"
	KeyHistorySummary = "history_summary"
	KeyIntents        = "intents"
	KeyCrop           = "crop"
	KeyLocation       = "location"
	KeyProfile        = "profile"
	KeySensors        = "sensors"
	KeyWeather        = "weather"
	KeyMarket         = "market"
	KeyCropAnalysis   = "crop_analysis"
	KeyDiseaseRisk    = "disease_risk"
	KeyPlan           = "plan"
	KeyFinalResponse  = "final_response"
)

// Intent labels the interpreter may assign to a message.
const (
	IntentStatus  = "status"
	IntentWeather = "weather"
	IntentDisease = "disease"
	IntentPlan    = "plan"
	IntentAdvice  = "advice"
	IntentMarket  = "market"
	IntentPrice   = "price"
)

// defaultIntents is the degraded classification when the interpreter
// cannot produce one; every context section is then included.
var defaultIntents = []string{
	IntentStatus, IntentWeather, IntentDisease, IntentPlan, IntentAdvice, IntentMarket, IntentPrice,
}

// knownIntents guards against the model inventing labels.
var knownIntents = map[string]bool{
	IntentStatus:  true,
	IntentWeather: true,
	IntentDisease: true,
	IntentPlan:    true,
	IntentAdvice:  true,
	IntentMarket:  true,
	IntentPrice:   true,
}
