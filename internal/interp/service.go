package interp

import (
	"context"
	"log/slog"
	"time"

	"domo/internal/domain"
	"domo/internal/nlp"
	"domo/internal/vocab"
)

// Fallback is the external interpreter consulted when the rule-based result
// does not clear the confidence gate. Implementations must honor the context
// deadline; any error is treated as "no usable answer".
type Fallback interface {
	Interpret(ctx context.Context, req domain.FallbackRequest) (domain.FallbackAnswer, error)
	Enabled() bool
}

type Config struct {
	IntentThreshold float64
	DeviceThreshold float64
	FallbackTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		IntentThreshold: 0.8,
		DeviceThreshold: 0.7,
		FallbackTimeout: 10 * time.Second,
	}
}

// Service runs the interpretation pipeline: normalize, detect negation, strip
// the negation span, classify intent, resolve device/room, then gate. Below
// the gate it delegates to the fallback with the original text; fallback
// failure degrades to the best rule-based guess and is never surfaced as an
// error. The pipeline is stateless per request; the only shared state is the
// read-only rule registry and the alias table snapshot.
type Service struct {
	cfg      Config
	norm     *nlp.Normalizer
	negation *nlp.NegationDetector
	intents  *nlp.Classifier
	table    *vocab.Table
	resolver *vocab.Resolver
	fallback Fallback
	logger   *slog.Logger
}

func New(cfg Config, table *vocab.Table, fallback Fallback, logger *slog.Logger) *Service {
	if cfg.IntentThreshold <= 0 {
		cfg.IntentThreshold = 0.8
	}
	if cfg.DeviceThreshold <= 0 {
		cfg.DeviceThreshold = 0.7
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = 10 * time.Second
	}
	return &Service{
		cfg:      cfg,
		norm:     nlp.NewNormalizer(),
		negation: nlp.NewNegationDetector(),
		intents:  nlp.NewClassifier(nlp.DefaultRules()),
		table:    table,
		resolver: vocab.NewResolver(table),
		fallback: fallback,
		logger:   logger,
	}
}

// Reload swaps in a new vocabulary snapshot. On failure the previous snapshot
// keeps serving.
func (s *Service) Reload(devices []domain.DeviceRecord, rooms []domain.RoomRecord) error {
	return s.table.Reload(devices, rooms)
}

// Interpret turns an utterance into {intent, device, negated}. Every path
// terminates in a well-formed Interpretation; no input aborts the request.
func (s *Service) Interpret(ctx context.Context, text string) domain.Interpretation {
	start := time.Now()

	normalized := s.norm.Normalize(text)
	if normalized == "" {
		return domain.Interpretation{Intent: domain.IntentUnknown, Source: domain.SourceRules}
	}

	negation := s.negation.Detect(normalized)
	clean := normalized
	if negation.Negated {
		clean = s.negation.RemoveNegation(normalized)
	}

	intentMatch := s.intents.Match(clean)
	deviceMatch := s.resolver.Match(clean)

	ruleResult := domain.Interpretation{
		Intent:  intentMatch.Intent,
		Device:  deviceMatch.DeviceKey,
		Negated: negation.Negated,
		Source:  domain.SourceRules,
	}

	if s.gatePasses(intentMatch, deviceMatch) {
		s.logTiming(text, ruleResult, negation, intentMatch, deviceMatch, start, 0)
		return ruleResult
	}

	var fallbackDur time.Duration
	if s.fallback != nil && s.fallback.Enabled() {
		fbStart := time.Now()
		answer, err := s.delegate(ctx, text, negation.Negated)
		fallbackDur = time.Since(fbStart)
		if err == nil {
			result := domain.Interpretation{
				Intent:  domain.ParseIntent(answer.Intent),
				Negated: negation.Negated, // never overridden by the fallback
				Source:  domain.SourceFallback,
			}
			if answer.Device != nil {
				result.Device = *answer.Device
			}
			s.logTiming(text, result, negation, intentMatch, deviceMatch, start, fallbackDur)
			return result
		}
		s.logger.Warn("fallback interpreter unavailable, degrading to rules",
			"error", err,
			"intent_confidence", intentMatch.Confidence,
			"device_confidence", deviceMatch.Confidence,
		)
	}

	degraded := ruleResult
	switch {
	case degraded.Intent == domain.IntentUnknown:
		degraded.Note = "no intent recognized"
	case degraded.Device == "":
		degraded.Note = "intent recognized but device unresolved"
	default:
		degraded.Note = "low-confidence rule match"
	}
	s.logTiming(text, degraded, negation, intentMatch, deviceMatch, start, fallbackDur)
	return degraded
}

func (s *Service) gatePasses(intent domain.IntentMatch, device domain.DeviceMatch) bool {
	if intent.Confidence < s.cfg.IntentThreshold {
		return false
	}
	if !intent.Intent.RequiresDevice() {
		return true
	}
	return device.Confidence >= s.cfg.DeviceThreshold
}

func (s *Service) delegate(ctx context.Context, text string, negated bool) (domain.FallbackAnswer, error) {
	fbCtx, cancel := context.WithTimeout(ctx, s.cfg.FallbackTimeout)
	defer cancel()
	return s.fallback.Interpret(fbCtx, domain.FallbackRequest{Text: text, HintNegated: negated})
}

func (s *Service) logTiming(text string, result domain.Interpretation, negation domain.NegationResult, intent domain.IntentMatch, device domain.DeviceMatch, start time.Time, fallbackDur time.Duration) {
	s.logger.Info("interpret timing",
		"intent", result.Intent,
		"device", result.Device,
		"negated", result.Negated,
		"negation_type", negation.Type,
		"source", result.Source,
		"intent_confidence", intent.Confidence,
		"device_confidence", device.Confidence,
		"device_strategy", device.Strategy,
		"fallback_ms", fallbackDur.Milliseconds(),
		"total_ms", time.Since(start).Milliseconds(),
		"chars", len(text),
	)
}
