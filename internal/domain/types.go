package domain

// IntentKind is the closed set of command intents the interpreter can emit.
type IntentKind string

const (
	IntentTurnOn  IntentKind = "turn_on"
	IntentTurnOff IntentKind = "turn_off"
	IntentOpen    IntentKind = "open"
	IntentClose   IntentKind = "close"
	IntentStatus  IntentKind = "status"
	IntentToggle  IntentKind = "toggle"
	IntentUnknown IntentKind = "unknown"
)

func ParseIntent(s string) IntentKind {
	switch IntentKind(s) {
	case IntentTurnOn, IntentTurnOff, IntentOpen, IntentClose, IntentStatus, IntentToggle:
		return IntentKind(s)
	default:
		return IntentUnknown
	}
}

// RequiresDevice reports whether the confidence gate demands a resolved device
// for this intent. A bare status query ("is everything ok") is answerable
// without one; every actionable intent is not.
func (k IntentKind) RequiresDevice() bool {
	switch k {
	case IntentStatus, IntentUnknown:
		return false
	default:
		return true
	}
}

// Action maps an intent to the device action verb used on command topics and
// endpoint lookups.
func (k IntentKind) Action() string {
	switch k {
	case IntentTurnOn:
		return "on"
	case IntentTurnOff:
		return "off"
	case IntentOpen:
		return "open"
	case IntentClose:
		return "close"
	case IntentStatus:
		return "status"
	case IntentToggle:
		return "toggle"
	default:
		return ""
	}
}

// DeviceCategory is informational only; matching never dispatches on it.
type DeviceCategory string

const (
	CategoryLight   DeviceCategory = "light"
	CategoryFan     DeviceCategory = "fan"
	CategoryDoor    DeviceCategory = "door"
	CategoryWindow  DeviceCategory = "window"
	CategoryCurtain DeviceCategory = "curtain"
	CategoryLock    DeviceCategory = "lock"
	CategoryAlarm   DeviceCategory = "alarm"
	CategorySensor  DeviceCategory = "sensor"
	CategoryClimate DeviceCategory = "climate"
	CategoryOther   DeviceCategory = "other"
)

func ParseCategory(s string) DeviceCategory {
	switch DeviceCategory(s) {
	case CategoryLight, CategoryFan, CategoryDoor, CategoryWindow, CategoryCurtain,
		CategoryLock, CategoryAlarm, CategorySensor, CategoryClimate:
		return DeviceCategory(s)
	default:
		return CategoryOther
	}
}

// NegationType classifies how an utterance negates a command. The declaration
// order here is the detection precedence: when several families match, the
// earlier-listed type wins.
type NegationType string

const (
	NegationDirect      NegationType = "direct"
	NegationPronoun     NegationType = "pronoun"
	NegationCompound    NegationType = "compound"
	NegationProhibitive NegationType = "prohibitive"
	NegationImplicit    NegationType = "implicit"
	NegationNone        NegationType = "none"
)

// MatchStrategy tags which resolver strategy produced a device match.
type MatchStrategy string

const (
	StrategyExact   MatchStrategy = "exact"
	StrategyNGram   MatchStrategy = "ngram"
	StrategyPartial MatchStrategy = "partial"
	StrategyNone    MatchStrategy = "none"
)

// ResultSource records which stage produced the final interpretation.
type ResultSource string

const (
	SourceRules    ResultSource = "rules"
	SourceFallback ResultSource = "fallback"
)

// DeviceEndpoints holds the per-action control URLs of a device. All fields
// are optional.
type DeviceEndpoints struct {
	On     string `json:"on,omitempty"`
	Off    string `json:"off,omitempty"`
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Status string `json:"status,omitempty"`
}

func (e DeviceEndpoints) ForAction(action string) string {
	switch action {
	case "on", "turn_on":
		return e.On
	case "off", "turn_off":
		return e.Off
	case "open":
		return e.Open
	case "close":
		return e.Close
	case "status":
		return e.Status
	default:
		return ""
	}
}

// DeviceRecord is the vocabulary snapshot entry handed to the core at
// construction/reload time. The core never writes back to its source.
type DeviceRecord struct {
	DeviceKey string          `json:"device_key"`
	Name      string          `json:"name"`
	Category  DeviceCategory  `json:"category"`
	Room      string          `json:"room"`
	Aliases   []string        `json:"aliases"`
	Endpoints DeviceEndpoints `json:"endpoints"`
}

// RoomRecord extends the built-in room vocabulary with site-specific rooms.
type RoomRecord struct {
	RoomKey string   `json:"room_key"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

type NegationResult struct {
	Negated    bool
	Type       NegationType
	Trigger    string
	Confidence float64
	Span       string
}

type IntentMatch struct {
	Intent     IntentKind
	Confidence float64
	RuleID     string
	Span       string
	SpanStart  int
}

type DeviceMatch struct {
	DeviceKey  string
	Confidence float64
	Strategy   MatchStrategy
	Room       string
	Alias      string
}

// Interpretation is the final, immutable output of the pipeline.
type Interpretation struct {
	Intent  IntentKind
	Device  string
	Negated bool
	Source  ResultSource
	Note    string
}

type InterpretationPayload struct {
	Intent  string  `json:"intent"`
	Device  *string `json:"device"`
	Negated bool    `json:"negated"`
	Source  string  `json:"source"`
}

func (it Interpretation) Payload() InterpretationPayload {
	out := InterpretationPayload{
		Intent:  string(it.Intent),
		Negated: it.Negated,
		Source:  string(it.Source),
	}
	if it.Device != "" {
		device := it.Device
		out.Device = &device
	}
	return out
}
