package nlp

import (
	"testing"

	"domo/internal/domain"
)

func TestDetectNegationFamilies(t *testing.T) {
	d := NewNegationDetector()

	tests := []struct {
		name           string
		text           string
		wantNegated    bool
		wantType       domain.NegationType
		wantConfidence float64
	}{
		{name: "direct imperative", text: "no enciendas la luz", wantNegated: true, wantType: domain.NegationDirect, wantConfidence: 0.95},
		{name: "direct infinitive", text: "no apagar el ventilador", wantNegated: true, wantType: domain.NegationDirect, wantConfidence: 0.95},
		{name: "direct english", text: "dont turn on the light", wantNegated: true, wantType: domain.NegationDirect, wantConfidence: 0.95},
		{name: "pronoun", text: "no la enciendas todavia por favor", wantNegated: true, wantType: domain.NegationPronoun, wantConfidence: 0.90},
		{name: "compound desire", text: "no quiero que se encienda la luz", wantNegated: true, wantType: domain.NegationCompound, wantConfidence: 0.85},
		{name: "compound prefer", text: "prefiero que no se apague", wantNegated: true, wantType: domain.NegationCompound, wantConfidence: 0.85},
		{name: "prohibitive", text: "deja de encender la lampara", wantNegated: true, wantType: domain.NegationProhibitive, wantConfidence: 0.85},
		{name: "prohibitive sin", text: "sin encender la luz del pasillo", wantNegated: true, wantType: domain.NegationProhibitive, wantConfidence: 0.85},
		{name: "implicit mejor no", text: "mejor no por ahora", wantNegated: true, wantType: domain.NegationImplicit, wantConfidence: 0.75},
		{name: "keyword fallback", text: "luz del comedor no", wantNegated: true, wantType: domain.NegationImplicit, wantConfidence: 0.60},
		{name: "affirmative", text: "enciende la luz de la sala", wantNegated: false, wantType: domain.NegationNone},
		{name: "no inside word", text: "dime el nombre del dispositivo", wantNegated: false, wantType: domain.NegationNone},
		{name: "empty", text: "", wantNegated: false, wantType: domain.NegationNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(tt.text)
			if got.Negated != tt.wantNegated {
				t.Fatalf("Detect(%q).Negated = %v, want %v", tt.text, got.Negated, tt.wantNegated)
			}
			if got.Type != tt.wantType {
				t.Fatalf("Detect(%q).Type = %s, want %s", tt.text, got.Type, tt.wantType)
			}
			if tt.wantNegated && got.Confidence != tt.wantConfidence {
				t.Fatalf("Detect(%q).Confidence = %v, want %v", tt.text, got.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestDirectBeatsPronounOnOverlap(t *testing.T) {
	d := NewNegationDetector()
	// "no apagues" matches the direct family before the pronoun family gets a
	// look, even though "no la apagues" is also present.
	got := d.Detect("no apagues la luz y no la apagues despues")
	if got.Type != domain.NegationDirect {
		t.Fatalf("precedence violated: got %s, want %s", got.Type, domain.NegationDirect)
	}
}

func TestFalsePositivesNotNegated(t *testing.T) {
	d := NewNegationDetector()
	texts := []string{
		"por que no enciendes la luz",
		"no se como encender la lampara",
		"la luz ya no funciona",
	}
	for _, text := range texts {
		if got := d.Detect(text); got.Negated {
			t.Fatalf("Detect(%q) flagged negated (%s), want none", text, got.Type)
		}
	}
}

func TestRemoveNegation(t *testing.T) {
	d := NewNegationDetector()

	tests := []struct {
		text string
		want string
	}{
		{text: "no enciendas la luz", want: "enciendas la luz"},
		{text: "no la enciendas", want: "enciendas"},
		{text: "no quiero que se encienda la lampara", want: "encienda la lampara"},
		{text: "deja de encender la luz", want: "encender la luz"},
		{text: "dont turn on the light", want: "turn on the light"},
		{text: "enciende la luz", want: "enciende la luz"},
	}

	for _, tt := range tests {
		got := d.RemoveNegation(tt.text)
		if got != tt.want {
			t.Fatalf("RemoveNegation(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
