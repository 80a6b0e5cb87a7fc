package nlp

import (
	"regexp"
	"strings"

	"domo/internal/domain"
)

// NegationDetector classifies whether an utterance negates a command and which
// span carries the negation. It expects normalized (accent-free, lowercase)
// text. Five pattern families are tried in a fixed precedence: direct >
// pronoun > compound > prohibitive > implicit; the first family to match
// decides the type, so overlapping matches resolve deterministically.
type NegationDetector struct {
	families       []negationFamily
	falsePositives []*regexp.Regexp
	removals       []*regexp.Regexp
}

type negationFamily struct {
	kind       domain.NegationType
	confidence float64
	patterns   []*regexp.Regexp
}

// Phrases that look negated but are not ("¿por qué no...?", "cómo no").
var falsePositivePatterns = []string{
	`\bno\s+se\s+(si|como|que)\b`,
	`\bno\s+(puedes|podrias|podes)\b`,
	`\bpor\s?que\s+no\b`,
	`\bcomo\s+no\b`,
	`\b(ya|que)\s+no\s+(esta|funciona)\b`,
}

var directPatterns = []string{
	`\bno\s+(enciendas?|encendas|prendas?|actives?|inicies?)\b`,
	`\bno\s+(apagues?|desactives?|detengas?|pares?)\b`,
	`\bno\s+(abras?|despejes?|descorras?|levantes?)\b`,
	`\bno\s+(cierres?|corras?|bajes?|tapes?|bloquees?)\b`,
	`\bno\s+(encender|prender|activar|iniciar|apagar|desactivar|detener|parar)\b`,
	`\bno\s+(abrir|despejar|descorrer|levantar|cerrar|correr|bajar|tapar|bloquear)\b`,
	`\b(dont|do\s+not)\s+(turn|switch|power|start|stop|open|close|shut|lock|unlock)\b`,
}

var pronounPatterns = []string{
	`\bno\s+(la|lo|las|los|le|les|me)\s+(enciendas?|encendas|prendas?|actives?)\b`,
	`\bno\s+(la|lo|las|los|le|les|me)\s+(apagues?|desactives?)\b`,
	`\bno\s+(la|lo|las|los|le|les|me)\s+(abras?|cierres?)\b`,
	`\bno\s+(me|te)\s+(la|lo|las|los)\s+(enciendas?|prendas?|apagues?|abras?|cierres?)\b`,
}

var compoundPatterns = []string{
	`\bno\s+(quiero|deseo|necesito|me\s+gustaria)\s+(que\s+)?(se\s+)?(encienda|prenda|active)\b`,
	`\bno\s+(quiero|deseo|necesito|me\s+gustaria)\s+(que\s+)?(se\s+)?(apague|desactive)\b`,
	`\bno\s+(quiero|deseo|necesito|me\s+gustaria)\s+(que\s+)?(se\s+)?(abra|cierre)\b`,
	`\bque\s+no\s+se\s+(encienda|prenda|active|apague|desactive|abra|cierre)\b`,
	`\bprefiero\s+(que\s+)?no\s+(enciendas?|prendas?|apagues?|abras?|cierres?)\b`,
	`\bprefiero\s+(que\s+)?no\s+se\s+(encienda|prenda|apague|abra|cierre)\b`,
}

var prohibitivePatterns = []string{
	`\b(deja|para)\s+de\s+(encender|prender|activar|apagar|abrir|cerrar)\b`,
	`\bevitar?\s+(encender|prender|activar|apagar|abrir|cerrar)\b`,
	`\bsin\s+(encender|prender|activar|apagar|abrir|cerrar)\b`,
	`\bstop\s+(turning|switching|opening|closing|locking)\b`,
}

var implicitPatterns = []string{
	`\bmejor\s+(que\s+)?no\b`,
	`\b(todavia|aun)\s+no\b`,
	`\b(nunca|jamas)\s+(enciendas?|prendas?|apagues?|abras?|cierres?)\b`,
	`\bnada\s+de\s+(encender|prender|apagar|abrir|cerrar)\b`,
}

// Bare negation tokens caught when no family pattern applies. Reported as
// implicit with lower confidence.
var negationKeywords = map[string]struct{}{
	"no": {}, "ni": {}, "nunca": {}, "jamas": {}, "tampoco": {},
	"ninguno": {}, "ninguna": {}, "nada": {}, "nadie": {}, "sin": {},
}

// Removal patterns ordered by specificity; RemoveNegation applies each in turn
// so only the negation span and its connecting particles are stripped.
var removalPatterns = []string{
	`\bno\s+(quiero|deseo|necesito)\s+(que\s+)?(se\s+)?`,
	`\bprefiero\s+(que\s+)?no\s+`,
	`\b(deja|para)\s+de\s+`,
	`\bmejor\s+(que\s+)?no\s+`,
	`\b(nunca|jamas)\s+`,
	`\bno\s+(la|lo|las|los|le|les|me|te)\s+`,
	`\bno\s+`,
	`\b(dont|do\s+not)\s+`,
}

func NewNegationDetector() *NegationDetector {
	return &NegationDetector{
		families: []negationFamily{
			{kind: domain.NegationDirect, confidence: 0.95, patterns: compilePatterns(directPatterns)},
			{kind: domain.NegationPronoun, confidence: 0.90, patterns: compilePatterns(pronounPatterns)},
			{kind: domain.NegationCompound, confidence: 0.85, patterns: compilePatterns(compoundPatterns)},
			{kind: domain.NegationProhibitive, confidence: 0.85, patterns: compilePatterns(prohibitivePatterns)},
			{kind: domain.NegationImplicit, confidence: 0.75, patterns: compilePatterns(implicitPatterns)},
		},
		falsePositives: compilePatterns(falsePositivePatterns),
		removals:       compilePatterns(removalPatterns),
	}
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

func (d *NegationDetector) Detect(text string) domain.NegationResult {
	none := domain.NegationResult{Type: domain.NegationNone}
	if text == "" {
		return none
	}

	for _, pattern := range d.falsePositives {
		if pattern.MatchString(text) {
			return none
		}
	}

	for _, family := range d.families {
		for _, pattern := range family.patterns {
			span := pattern.FindString(text)
			if span == "" {
				continue
			}
			return domain.NegationResult{
				Negated:    true,
				Type:       family.kind,
				Trigger:    strings.Fields(span)[0],
				Confidence: family.confidence,
				Span:       span,
			}
		}
	}

	// Token-boundary keyword scan. Never a substring match: "no" inside
	// "nombre" must not trigger.
	for _, token := range strings.Fields(text) {
		if _, ok := negationKeywords[token]; ok {
			return domain.NegationResult{
				Negated:    true,
				Type:       domain.NegationImplicit,
				Trigger:    token,
				Confidence: 0.60,
				Span:       token,
			}
		}
	}

	return none
}

// RemoveNegation strips exactly the matched negation span (trigger plus
// minimal connecting particles) and returns the remainder unchanged otherwise.
func (d *NegationDetector) RemoveNegation(text string) string {
	result := text
	for _, pattern := range d.removals {
		result = pattern.ReplaceAllString(result, "")
	}
	return strings.TrimSpace(result)
}
