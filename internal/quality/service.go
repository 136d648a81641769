// Package quality is the tiered evaluation orchestrator. It sequences the
// free deterministic tiers (fingerprint cache, structural heuristics,
// glossary, language detection) before the paid AI tier, combines the
// dimension scores, and persists every outcome.
package quality

import (
	"context"
	"log/slog"
	"time"

	"github.com/valpere/qualitran/internal"
	"github.com/valpere/qualitran/internal/fingerprint"
	"github.com/valpere/qualitran/internal/langcheck"
	"github.com/valpere/qualitran/internal/provider"
	"github.com/valpere/qualitran/internal/relate"
	"github.com/valpere/qualitran/internal/resilience"
)

// Combined-score weights over the MQM dimensions plus the heuristic format
// score.
const (
	weightAccuracy    = 0.40
	weightFluency     = 0.25
	weightTerminology = 0.15
	weightFormat      = 0.20
)

// Glossary violations cost a flat penalty per missed term, capped so a
// term-dense string is not wiped out by a single systematic mistake.
const (
	glossaryPenaltyPerTerm = 5.0
	glossaryPenaltyCap     = 15.0
)

const (
	defaultPassThreshold = 80.0
	defaultBatchWindow   = 10
	defaultContextSize   = 10
	defaultAITimeout     = 30 * time.Second
)

// PairSource resolves a translation id to its pair under evaluation.
type PairSource interface {
	Pair(ctx context.Context, id string) (*internal.TranslationPair, error)
}

// ScoreStore persists quality scores keyed by translation id. Score returns
// nil without error when no score is stored.
type ScoreStore interface {
	Score(ctx context.Context, translationID string) (*internal.QualityScore, error)
	UpsertScore(ctx context.Context, score *internal.QualityScore) error
}

// GlossarySource returns the approved term map (source term to required
// target term) for a language direction.
type GlossarySource interface {
	Terms(ctx context.Context, sourceLang, targetLang string) (map[string]string, error)
}

// KeySource resolves translation keys for relatedness context and for
// whole-key evaluation.
type KeySource interface {
	Key(ctx context.Context, keyID string) (*relate.Key, error)
	Siblings(ctx context.Context, keyID string) ([]relate.Key, error)
	Pairs(ctx context.Context, keyID string) ([]internal.TranslationPair, error)
}

// Config tunes one orchestrator instance. The zero value of every field has
// a usable default except Evaluator: a nil Evaluator disables the AI tier
// entirely.
type Config struct {
	Evaluator  provider.Evaluator
	CircuitKey string
	Retry      resilience.RetryPolicy
	Breakers   *resilience.Registry
	// LangChecker is optional; nil skips language detection.
	LangChecker   *langcheck.Checker
	AITimeout     time.Duration
	BatchWindow   int
	ContextSize   int
	PassThreshold float64
	Logger        *slog.Logger
}

// Options modifies a single evaluation request.
type Options struct {
	// ForceAI escalates to the AI tier even when heuristics pass. It does
	// not bypass the fingerprint cache.
	ForceAI bool
}

// Service orchestrates tiered evaluation over injected collaborators.
type Service struct {
	pairs    PairSource
	scores   ScoreStore
	glossary GlossarySource
	keys     KeySource
	cfg      Config
	logger   *slog.Logger
}

func NewService(pairs PairSource, scores ScoreStore, glossary GlossarySource, keys KeySource, cfg Config) *Service {
	if cfg.AITimeout == 0 {
		cfg.AITimeout = defaultAITimeout
	}
	if cfg.BatchWindow == 0 {
		cfg.BatchWindow = defaultBatchWindow
	}
	if cfg.ContextSize == 0 {
		cfg.ContextSize = defaultContextSize
	}
	if cfg.PassThreshold == 0 {
		cfg.PassThreshold = defaultPassThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		pairs:    pairs,
		scores:   scores,
		glossary: glossary,
		keys:     keys,
		cfg:      cfg,
		logger:   logger,
	}
}

// CachedScore returns the stored score for a pair when its fingerprint still
// matches the current content, or nil. It never triggers evaluation.
func (s *Service) CachedScore(ctx context.Context, translationID string) (*internal.QualityScore, error) {
	pair, err := s.pairs.Pair(ctx, translationID)
	if err != nil {
		return nil, err
	}

	stored, err := s.scores.Score(ctx, translationID)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.Fingerprint != fingerprint.Pair(pair.SourceText, pair.TargetText) {
		return nil, nil
	}
	stored.Cached = true
	return stored, nil
}

// BuildContext returns the ranked related-key candidates for a key, the same
// set the AI prompt would carry.
func (s *Service) BuildContext(ctx context.Context, keyID, sourceLang, targetLang string) ([]internal.RelatedKeyCandidate, error) {
	if s.keys == nil {
		return nil, nil
	}

	subject, err := s.keys.Key(ctx, keyID)
	if err != nil {
		return nil, err
	}
	siblings, err := s.keys.Siblings(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return relate.Select(*subject, siblings, sourceLang, targetLang, s.cfg.ContextSize), nil
}
