package nlp

import (
	"math"
	"regexp"
	"sort"

	"domo/internal/domain"
)

// PatternRule is one entry of the intent registry: an intent, an ordered list
// of match expressions, a base confidence and a locale tag. Rules are loaded
// once at startup and never mutated.
type PatternRule struct {
	ID     string
	Intent domain.IntentKind
	Exprs  []*regexp.Regexp
	Base   float64
	Locale string
}

// DefaultLeadingBonus is added when the matched span starts the utterance.
// Imperative commands typically lead with the verb, so leading matches are
// weighted up slightly.
const DefaultLeadingBonus = 0.05

// Classifier scores normalized text against the pattern registry. Registry
// order is part of the contract: it is the final tie-breaker between rules
// with equal confidence and span start.
type Classifier struct {
	rules        []PatternRule
	leadingBonus float64
}

func NewClassifier(rules []PatternRule) *Classifier {
	return &Classifier{rules: rules, leadingBonus: DefaultLeadingBonus}
}

// Match returns the single best intent match, or Unknown with confidence 0
// when no rule matches. Never fails on malformed or empty text.
func (c *Classifier) Match(text string) domain.IntentMatch {
	matches := c.MatchAll(text)
	if len(matches) == 0 {
		return domain.IntentMatch{Intent: domain.IntentUnknown}
	}
	return matches[0]
}

// MatchAll evaluates every rule against the text and returns all that matched,
// ordered by descending confidence, then earliest span start, then
// registration order.
func (c *Classifier) MatchAll(text string) []domain.IntentMatch {
	if text == "" {
		return nil
	}

	type ranked struct {
		match domain.IntentMatch
		order int
	}
	var found []ranked

	for i, rule := range c.rules {
		start, span := earliestMatch(rule.Exprs, text)
		if start < 0 {
			continue
		}
		confidence := rule.Base
		if start == 0 {
			confidence += c.leadingBonus
		}
		// Base and bonus are two-decimal calibration values; keep their sum
		// exact so threshold comparisons don't ride on float drift.
		confidence = math.Round(confidence*100) / 100
		if confidence > 1 {
			confidence = 1
		}
		found = append(found, ranked{
			match: domain.IntentMatch{
				Intent:     rule.Intent,
				Confidence: confidence,
				RuleID:     rule.ID,
				Span:       span,
				SpanStart:  start,
			},
			order: i,
		})
	}
	if len(found) == 0 {
		return nil
	}

	sort.SliceStable(found, func(a, b int) bool {
		if found[a].match.Confidence != found[b].match.Confidence {
			return found[a].match.Confidence > found[b].match.Confidence
		}
		if found[a].match.SpanStart != found[b].match.SpanStart {
			return found[a].match.SpanStart < found[b].match.SpanStart
		}
		return found[a].order < found[b].order
	})

	out := make([]domain.IntentMatch, len(found))
	for i, f := range found {
		out[i] = f.match
	}
	return out
}

// earliestMatch returns the smallest span start any of the expressions
// produces, with the matched literal, or -1 when none match.
func earliestMatch(exprs []*regexp.Regexp, text string) (int, string) {
	best := -1
	span := ""
	for _, expr := range exprs {
		loc := expr.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if best < 0 || loc[0] < best {
			best = loc[0]
			span = text[loc[0]:loc[1]]
		}
	}
	return best, span
}
