package domain

// HTTP payloads

type InterpretRequest struct {
	Text string `json:"text"`
}

type InterpretResponse struct {
	Success        bool                  `json:"success"`
	Data           InterpretationPayload `json:"data"`
	OriginalText   string                `json:"original_text"`
	ConfidenceNote string                `json:"confidence_note,omitempty"`
}

type DeviceCreateRequest struct {
	DeviceKey string          `json:"device_key"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Room      string          `json:"room"`
	Aliases   []string        `json:"aliases,omitempty"`
	Endpoints DeviceEndpoints `json:"endpoints,omitempty"`
}

type DeviceUpdateRequest struct {
	Name      *string          `json:"name,omitempty"`
	Category  *string          `json:"category,omitempty"`
	Room      *string          `json:"room,omitempty"`
	Aliases   *[]string        `json:"aliases,omitempty"`
	Endpoints *DeviceEndpoints `json:"endpoints,omitempty"`
}

type DeviceListResponse struct {
	Success bool           `json:"success"`
	Total   int            `json:"total"`
	Devices []DeviceRecord `json:"devices"`
}

// Fallback collaborator wire contract

type FallbackRequest struct {
	Text        string `json:"text"`
	HintNegated bool   `json:"hint_negated"`
}

type FallbackAnswer struct {
	Intent string  `json:"intent"`
	Device *string `json:"device"`
}

// MQTT payloads

type DeviceCommand struct {
	RequestID string `json:"request_id"`
	DeviceKey string `json:"device_key"`
	Action    string `json:"action"`
	Source    string `json:"source"`
}
