package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"domo/internal/domain"
	"domo/internal/nlp"
)

// Catalog supplies the device inventory embedded in the prompt, so the model
// can only answer with keys that actually exist.
type Catalog func() []domain.DeviceRecord

// Client talks to a local Ollama server. It is a collaborator, not a
// dependency: every error is recoverable by the caller and the client never
// retries on its own.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
	catalog Catalog
	norm    *nlp.Normalizer
}

func NewClient(baseURL, model string, timeout time.Duration, catalog Catalog) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if model == "" {
		model = "llama3.2"
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		model:   model,
		http:    &http.Client{Timeout: timeout},
		catalog: catalog,
		norm:    nlp.NewNormalizer(),
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Available probes the server without generating anything.
func (c *Client) Available(ctx context.Context) bool {
	if !c.Enabled() {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 300
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64  `json:"temperature"`
	NumPredict  int      `json:"num_predict"`
	Stop        []string `json:"stop,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Interpret asks the model for {intent, device} over the original (raw) text.
// The device key in the answer is validated against the catalog; an
// unrecognized key degrades to no device rather than poisoning downstream
// dispatch.
func (c *Client) Interpret(ctx context.Context, req domain.FallbackRequest) (domain.FallbackAnswer, error) {
	if !c.Enabled() {
		return domain.FallbackAnswer{}, fmt.Errorf("fallback interpreter is not configured")
	}

	payload := generateRequest{
		Model:  c.model,
		Prompt: c.buildPrompt(req),
		Stream: false,
		Options: generateOptions{
			Temperature: 0.1,
			NumPredict:  120,
			Stop:        []string{"\n\n"},
		},
	}
	body, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return domain.FallbackAnswer{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.FallbackAnswer{}, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return domain.FallbackAnswer{}, fmt.Errorf("ollama status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var gen generateResponse
	if err := json.Unmarshal(respBody, &gen); err != nil {
		return domain.FallbackAnswer{}, err
	}
	if gen.Error != "" {
		return domain.FallbackAnswer{}, fmt.Errorf("ollama error: %s", gen.Error)
	}

	answer, err := parseAnswer(gen.Response)
	if err != nil {
		return domain.FallbackAnswer{}, err
	}
	if domain.ParseIntent(answer.Intent) == domain.IntentUnknown && answer.Intent != string(domain.IntentUnknown) {
		return domain.FallbackAnswer{}, fmt.Errorf("model returned unrecognized intent %q", answer.Intent)
	}
	answer.Device = c.resolveDeviceKey(answer.Device)
	return answer, nil
}

func (c *Client) buildPrompt(req domain.FallbackRequest) string {
	var b strings.Builder
	b.WriteString("You interpret smart home commands in Spanish or English.\n")
	b.WriteString("Known devices (key | name | room):\n")
	if c.catalog != nil {
		for _, d := range c.catalog() {
			fmt.Fprintf(&b, "- %s | %s | %s\n", d.DeviceKey, d.Name, d.Room)
		}
	}
	b.WriteString("\nIntents: turn_on, turn_off, open, close, status, toggle, unknown.\n")
	b.WriteString("Answer with ONE line of JSON, nothing else: {\"intent\": \"...\", \"device\": \"key-or-null\"}\n")
	b.WriteString("Use null for device when no known device is referenced.\n")
	if req.HintNegated {
		b.WriteString("Note: the command contains a negation; report the action being negated, not its opposite.\n")
	}
	fmt.Fprintf(&b, "\nCommand: %s\nJSON:", req.Text)
	return b.String()
}

var (
	jsonObjectRe  = regexp.MustCompile(`\{[^{}]*\}`)
	intentFieldRe = regexp.MustCompile(`"intent"\s*:\s*"([^"]*)"`)
	deviceFieldRe = regexp.MustCompile(`"device"\s*:\s*(?:"([^"]*)"|null)`)
)

// parseAnswer tolerates the usual small-model sloppiness: leading prose,
// code fences, trailing commentary. Cascade: whole response as JSON, first
// embedded object, then per-field regex scraping.
func parseAnswer(response string) (domain.FallbackAnswer, error) {
	trimmed := strings.TrimSpace(response)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var answer domain.FallbackAnswer
	if err := json.Unmarshal([]byte(trimmed), &answer); err == nil && answer.Intent != "" {
		return answer, nil
	}
	if obj := jsonObjectRe.FindString(trimmed); obj != "" {
		if err := json.Unmarshal([]byte(obj), &answer); err == nil && answer.Intent != "" {
			return answer, nil
		}
	}
	if m := intentFieldRe.FindStringSubmatch(trimmed); m != nil {
		answer.Intent = m[1]
		if dm := deviceFieldRe.FindStringSubmatch(trimmed); dm != nil && dm[1] != "" {
			device := dm[1]
			answer.Device = &device
		}
		return answer, nil
	}
	return domain.FallbackAnswer{}, fmt.Errorf("no parsable answer in model response: %q", trimmed)
}

// resolveDeviceKey maps whatever the model said back to a real catalog key.
// Exact key first, then normalized comparison against keys, names and aliases.
// Nothing matches: drop the device.
func (c *Client) resolveDeviceKey(raw *string) *string {
	if raw == nil || c.catalog == nil {
		return nil
	}
	said := strings.TrimSpace(*raw)
	if said == "" || strings.EqualFold(said, "null") || strings.EqualFold(said, "none") {
		return nil
	}

	devices := c.catalog()
	for _, d := range devices {
		if d.DeviceKey == said {
			key := d.DeviceKey
			return &key
		}
	}

	saidNorm := c.norm.Normalize(said)
	for _, d := range devices {
		surfaces := append([]string{d.DeviceKey, d.Name}, d.Aliases...)
		for _, surface := range surfaces {
			if c.norm.Normalize(surface) == saidNorm {
				key := d.DeviceKey
				return &key
			}
		}
	}
	return nil
}
