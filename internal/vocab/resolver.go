package vocab

import (
	"strings"

	"domo/internal/domain"
)

// Strategy confidences. Calibration constants carried over from the rule
// tuning; treat as configuration, not law.
const (
	exactConfidence   = 0.95
	ngramConfidence   = 0.85
	partialConfidence = 0.70
)

// Tokens too generic to anchor a partial match.
var partialStopTokens = map[string]struct{}{
	"por": {}, "para": {}, "con": {}, "sin": {}, "que": {},
	"del": {}, "las": {}, "los": {}, "una": {}, "uno": {},
}

// Resolver maps free-text device and room references onto the current alias
// table. Three strategies run in order; the first to produce a hit wins, they
// are never combined. A detected room strictly overrides confidence ordering
// among devices sharing the matched alias.
type Resolver struct {
	table *Table
}

func NewResolver(table *Table) *Resolver {
	return &Resolver{table: table}
}

func (r *Resolver) Match(text string) domain.DeviceMatch {
	snap := r.table.snap.Load()
	tokens := r.table.norm.Tokenize(text)
	if len(tokens) == 0 {
		return domain.DeviceMatch{Strategy: domain.StrategyNone}
	}
	filtered := dropSkipWords(tokens)
	room, _ := matchRoom(snap, tokens)

	// Strategy 1: a complete alias present as a token-bounded phrase.
	maxN := snap.maxAliasN
	if maxN > len(tokens) {
		maxN = len(tokens)
	}
	for n := maxN; n >= 1; n-- {
		for i := 0; i+n <= len(tokens); i++ {
			phrase := strings.Join(tokens[i:i+n], " ")
			if cands, ok := snap.exact[phrase]; ok {
				return pick(cands, room, exactConfidence, domain.StrategyExact, phrase)
			}
		}
	}

	// Strategy 2: 2–3 token windows, particles dropped, against the
	// filtered index.
	for _, n := range []int{3, 2} {
		for i := 0; i+n <= len(filtered); i++ {
			phrase := strings.Join(filtered[i:i+n], " ")
			if cands, ok := snap.gram[phrase]; ok {
				return pick(cands, room, ngramConfidence, domain.StrategyNGram, phrase)
			}
		}
	}

	// Strategy 3: a single substantial token inside a multi-word alias.
	for _, token := range filtered {
		if len([]rune(token)) < 4 {
			continue
		}
		if _, stop := partialStopTokens[token]; stop {
			continue
		}
		var cands []candidate
		alias := ""
		for _, mw := range snap.partial {
			if !containsToken(mw.tokens, token) {
				continue
			}
			if alias == "" {
				alias = mw.alias
			}
			cands = addCandidate(cands, mw.cand)
		}
		if len(cands) > 0 {
			return pick(cands, room, partialConfidence, domain.StrategyPartial, alias)
		}
	}

	return domain.DeviceMatch{Strategy: domain.StrategyNone}
}

// MatchRoom resolves a room reference from the text using the same cascade
// over the room vocabulary.
func (r *Resolver) MatchRoom(text string) (string, bool) {
	snap := r.table.snap.Load()
	return matchRoom(snap, r.table.norm.Tokenize(text))
}

func matchRoom(snap *snapshot, tokens []string) (string, bool) {
	if room, ok := roomWindows(snap, tokens); ok {
		return room, true
	}
	// Particle-free pass, mirroring the device n-gram strategy.
	return roomWindows(snap, dropSkipWords(tokens))
}

func roomWindows(snap *snapshot, tokens []string) (string, bool) {
	for n := 3; n >= 1; n-- {
		if n > len(tokens) {
			continue
		}
		for i := 0; i+n <= len(tokens); i++ {
			phrase := strings.Join(tokens[i:i+n], " ")
			if room, ok := snap.rooms[phrase]; ok {
				return room, true
			}
		}
	}
	return "", false
}

// pick applies the room override: among candidates sharing the alias, a
// device whose declared room equals the detected room beats registration
// order, regardless of base confidence.
func pick(cands []candidate, room string, confidence float64, strategy domain.MatchStrategy, alias string) domain.DeviceMatch {
	chosen := cands[0]
	if room != "" {
		for _, c := range cands {
			if c.room == room {
				chosen = c
				break
			}
		}
	}
	return domain.DeviceMatch{
		DeviceKey:  chosen.key,
		Confidence: confidence,
		Strategy:   strategy,
		Room:       chosen.room,
		Alias:      alias,
	}
}

func containsToken(tokens []string, token string) bool {
	for _, t := range tokens {
		if t == token {
			return true
		}
	}
	return false
}
