package quality

import (
	"context"
	"strings"

	"github.com/valpere/qualitran/internal"
	"github.com/valpere/qualitran/internal/fingerprint"
	"github.com/valpere/qualitran/internal/metrics"
	"github.com/valpere/qualitran/internal/provider"
)

// EvaluateKey scores every translation of one key, batching the AI tier into
// a single multi-language call for cross-language consistency and fewer
// round-trips. The deterministic tiers still run per language, and cached
// languages never reach the provider.
func (s *Service) EvaluateKey(ctx context.Context, keyID string, opts Options) (map[string]*internal.QualityScore, error) {
	if s.keys == nil {
		return nil, &internal.ValidationError{Field: "key_id", Reason: "no key source configured"}
	}

	pairs, err := s.keys.Pairs(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, &internal.NotFoundError{Kind: "translation key", ID: keyID}
	}

	out := make(map[string]*internal.QualityScore, len(pairs))
	pending := make(map[string]pendingPair)

	for i := range pairs {
		pair := &pairs[i]
		fp := fingerprint.Pair(pair.SourceText, pair.TargetText)

		stored, err := s.scores.Score(ctx, pair.ID)
		if err != nil {
			return nil, err
		}
		if stored != nil && stored.Fingerprint == fp {
			stored.Cached = true
			metrics.CacheHits.Inc()
			out[pair.TargetLang] = stored
			continue
		}
		if strings.TrimSpace(pair.TargetText) == "" {
			continue
		}

		st := s.runDeterministicTiers(ctx, pair)
		if (!st.needsAI() && !opts.ForceAI) || s.cfg.Evaluator == nil {
			score := s.heuristicScore(pair, fp, st, false)
			if err := s.persist(ctx, score); err != nil {
				return nil, err
			}
			out[pair.TargetLang] = score
			continue
		}
		pending[pair.TargetLang] = pendingPair{pair: pair, fp: fp, st: st}
	}

	if len(pending) == 0 {
		return out, nil
	}

	result, aiErr := s.callAIMulti(ctx, pending)
	for lang, p := range pending {
		var score *internal.QualityScore
		if aiErr != nil {
			metrics.AIFallbacks.Inc()
			score = s.heuristicScore(p.pair, p.fp, p.st, true)
		} else {
			dims := result.PerLanguage[lang]
			score = s.combinedScore(p.pair, p.fp, p.st, dims, result.Provider, result.Model, result.Usage)
		}
		if err := s.persist(ctx, score); err != nil {
			return nil, err
		}
		out[lang] = score
	}
	if aiErr != nil {
		s.logger.Warn("multi-language AI evaluation failed, scores fell back to heuristics",
			"key", keyID, "error", aiErr)
	}

	return out, nil
}

type pendingPair struct {
	pair *internal.TranslationPair
	fp   string
	st   staged
}

func (s *Service) callAIMulti(ctx context.Context, pending map[string]pendingPair) (*provider.MultiResult, error) {
	var sourceText, sourceLang string
	targets := make(map[string]string, len(pending))
	var glossary map[string]string
	for lang, p := range pending {
		sourceText = p.pair.SourceText
		sourceLang = p.pair.SourceLang
		targets[lang] = p.pair.TargetText
		if glossary == nil {
			glossary = p.st.glossary
		}
	}

	req := provider.MultiRequest{
		SourceText: sourceText,
		SourceLang: sourceLang,
		Targets:    targets,
		Glossary:   glossary,
	}

	var result *provider.MultiResult
	err := s.withResilience(ctx, func(callCtx context.Context) error {
		var callErr error
		result, callErr = s.cfg.Evaluator.EvaluateMulti(callCtx, req)
		return callErr
	})
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(s.cfg.Evaluator.Name(), "error").Inc()
		return nil, err
	}
	metrics.ProviderRequests.WithLabelValues(s.cfg.Evaluator.Name(), "ok").Inc()
	return result, nil
}
