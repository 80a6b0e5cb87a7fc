package nlp

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer canonicalizes raw utterances into a matchable form: lowercase,
// accent-free (ñ survives), no punctuation, collapsed whitespace, common typos
// fixed and colloquial contractions expanded. Normalize is pure and idempotent;
// digit sequences pass through untouched.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

var (
	exclamationRe = regexp.MustCompile(`[¿?¡!]+`)
	punctuationRe = regexp.MustCompile("[.,;:'\"()\\[\\]{}«»“”‘’—–_-]+")
	whitespaceRe  = regexp.MustCompile(`\s+`)
	numberRe      = regexp.MustCompile(`\d+(?:\.\d+)?(?:\s*%)?`)
)

// Common Spanish typos seen in transcripts, token for token.
var typoFixes = map[string]string{
	"ensender":    "encender",
	"ensendido":   "encendido",
	"presder":     "prender",
	"preder":      "prender",
	"abier":       "abrir",
	"cerarr":      "cerrar",
	"lus":         "luz",
	"puertta":     "puerta",
	"ventanna":    "ventana",
	"cocinaa":     "cocina",
	"cuuarto":     "cuarto",
	"dormitiorio": "dormitorio",
	"habiitacion": "habitacion",
	"vanio":       "baño",
	"bano":        "baño",
	"slaa":        "sala",
}

// Colloquial contractions expanded to their full form.
var colloquialForms = map[string]string{
	"porfa":    "por favor",
	"porfavor": "por favor",
	"xfa":      "por favor",
	"xfavor":   "por favor",
	"pls":      "please",
	"q":        "que",
	"k":        "que",
	"xq":       "porque",
	"pq":       "porque",
	"tb":       "tambien",
	"tmb":      "tambien",
	"x":        "por",
	"d":        "de",
	"dl":       "del",
	"pa":       "para",
	"pal":      "para el",
	"toy":      "estoy",
	"ta":       "esta",
}

// enePlaceholder keeps ñ out of the combining-mark strip. Private-use rune so
// it can never collide with real input.
const enePlaceholder = "\uE000"

// Chained transformers carry internal state and are not safe for concurrent
// use, so each call builds its own chain.
func accentStripper() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}

	result := strings.ToLower(text)
	result = whitespaceRe.ReplaceAllString(result, " ")
	result = exclamationRe.ReplaceAllString(result, " ")
	result = punctuationRe.ReplaceAllString(result, " ")
	result = expandTokens(result, colloquialForms)
	result = expandTokens(result, typoFixes)
	result = stripAccents(result)
	result = whitespaceRe.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// Tokenize returns the whitespace-delimited tokens of the normalized text, in
// order.
func (n *Normalizer) Tokenize(text string) []string {
	return strings.Fields(n.Normalize(text))
}

// Numbers extracts digit sequences (with optional decimal part and percent
// sign) from the raw text.
func (n *Normalizer) Numbers(text string) []string {
	return numberRe.FindAllString(text, -1)
}

func expandTokens(text string, table map[string]string) string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if full, ok := table[w]; ok {
			out = append(out, full)
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

func stripAccents(text string) string {
	guarded := strings.ReplaceAll(text, "ñ", enePlaceholder)
	stripped, _, err := transform.String(accentStripper(), guarded)
	if err != nil {
		stripped = guarded
	}
	return strings.ReplaceAll(stripped, enePlaceholder, "ñ")
}
