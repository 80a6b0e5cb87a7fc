package fallback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"domo/internal/domain"
)

func testCatalog() []domain.DeviceRecord {
	return []domain.DeviceRecord{
		{DeviceKey: "luz_sala", Name: "Luz de la sala", Room: "sala", Aliases: []string{"luz"}},
		{DeviceKey: "puerta_garage", Name: "Puerta del garage", Room: "garage", Aliases: []string{"porton"}},
	}
}

func newGenerateServer(t *testing.T, response string, capture *generateRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode generate request: %v", err)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": response})
	}))
}

func TestInterpretCleanJSON(t *testing.T) {
	var captured generateRequest
	srv := newGenerateServer(t, `{"intent": "turn_on", "device": "luz_sala"}`, &captured)
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", time.Second, testCatalog)
	got, err := c.Interpret(context.Background(), domain.FallbackRequest{Text: "dale claridad a la sala"})
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if got.Intent != "turn_on" {
		t.Fatalf("intent = %q, want turn_on", got.Intent)
	}
	if got.Device == nil || *got.Device != "luz_sala" {
		t.Fatalf("device = %v, want luz_sala", got.Device)
	}

	if captured.Model != "test-model" || captured.Stream {
		t.Fatalf("unexpected generate request: model=%q stream=%v", captured.Model, captured.Stream)
	}
	if captured.Options.Temperature != 0.1 {
		t.Fatalf("temperature = %v, want 0.1", captured.Options.Temperature)
	}
}

func TestInterpretToleratesProseAndFences(t *testing.T) {
	responses := []string{
		"Sure! Here is the answer:\n{\"intent\": \"open\", \"device\": \"puerta_garage\"}\nHope that helps.",
		"```json\n{\"intent\": \"open\", \"device\": \"puerta_garage\"}\n```",
		`the user wants "intent": "open" on "device": "puerta_garage" I think`,
	}
	for _, response := range responses {
		srv := newGenerateServer(t, response, nil)
		c := NewClient(srv.URL, "", time.Second, testCatalog)
		got, err := c.Interpret(context.Background(), domain.FallbackRequest{Text: "abre el porton"})
		srv.Close()
		if err != nil {
			t.Fatalf("Interpret(%q) failed: %v", response, err)
		}
		if got.Intent != "open" || got.Device == nil || *got.Device != "puerta_garage" {
			t.Fatalf("Interpret(%q) = %+v, want open/puerta_garage", response, got)
		}
	}
}

func TestInterpretMapsAliasToKey(t *testing.T) {
	srv := newGenerateServer(t, `{"intent": "open", "device": "Puerta del Garage"}`, nil)
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, testCatalog)
	got, err := c.Interpret(context.Background(), domain.FallbackRequest{Text: "abre el porton"})
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if got.Device == nil || *got.Device != "puerta_garage" {
		t.Fatalf("device = %v, want puerta_garage via name normalization", got.Device)
	}
}

func TestInterpretDropsUnknownDevice(t *testing.T) {
	srv := newGenerateServer(t, `{"intent": "turn_on", "device": "lavadora_misteriosa"}`, nil)
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, testCatalog)
	got, err := c.Interpret(context.Background(), domain.FallbackRequest{Text: "prende la lavadora"})
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if got.Device != nil {
		t.Fatalf("device = %q, want nil for a key outside the catalog", *got.Device)
	}
}

func TestInterpretNullDevice(t *testing.T) {
	srv := newGenerateServer(t, `{"intent": "status", "device": null}`, nil)
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, testCatalog)
	got, err := c.Interpret(context.Background(), domain.FallbackRequest{Text: "como va todo"})
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if got.Intent != "status" || got.Device != nil {
		t.Fatalf("got %+v, want status with nil device", got)
	}
}

func TestInterpretRejectsGarbage(t *testing.T) {
	srv := newGenerateServer(t, "I have no idea what you mean.", nil)
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, testCatalog)
	if _, err := c.Interpret(context.Background(), domain.FallbackRequest{Text: "???"}); err == nil {
		t.Fatalf("expected error for unparsable model output")
	}
}

func TestInterpretRejectsUnknownIntentWord(t *testing.T) {
	srv := newGenerateServer(t, `{"intent": "make_coffee", "device": null}`, nil)
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, testCatalog)
	if _, err := c.Interpret(context.Background(), domain.FallbackRequest{Text: "hazme un cafe"}); err == nil {
		t.Fatalf("expected error for an intent outside the closed set")
	}
}

func TestInterpretServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, testCatalog)
	if _, err := c.Interpret(context.Background(), domain.FallbackRequest{Text: "abre el porton"}); err == nil {
		t.Fatalf("expected error on 5xx")
	}
}

func TestAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, testCatalog)
	if !c.Available(context.Background()) {
		t.Fatalf("Available = false against a healthy server")
	}

	down := NewClient("http://127.0.0.1:1", "", 200*time.Millisecond, testCatalog)
	if down.Available(context.Background()) {
		t.Fatalf("Available = true against a dead endpoint")
	}

	var disabled *Client
	if disabled.Enabled() {
		t.Fatalf("nil client reports enabled")
	}
}

func TestPromptCarriesCatalogAndNegationHint(t *testing.T) {
	c := NewClient("http://localhost:11434", "", time.Second, testCatalog)

	prompt := c.buildPrompt(domain.FallbackRequest{Text: "no abras el porton", HintNegated: true})
	for _, want := range []string{"luz_sala", "puerta_garage", "no abras el porton", "negation"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}

	plain := c.buildPrompt(domain.FallbackRequest{Text: "abre el porton"})
	if strings.Contains(plain, "negation") {
		t.Fatalf("negation hint present on an affirmative request")
	}
}
