package quality

import (
	"context"
	"strings"
	"time"

	"github.com/valpere/qualitran/internal"
	"github.com/valpere/qualitran/internal/fingerprint"
	"github.com/valpere/qualitran/internal/heuristic"
	"github.com/valpere/qualitran/internal/metrics"
	"github.com/valpere/qualitran/internal/provider"
	"github.com/valpere/qualitran/internal/relate"
	"github.com/valpere/qualitran/internal/resilience"
)

// Evaluate runs the tiered pipeline for one pair. For a resolvable pair it
// never returns an AI-path error: provider failures degrade to the heuristic
// score with AIFallback set.
func (s *Service) Evaluate(ctx context.Context, translationID string, opts Options) (*internal.QualityScore, error) {
	pair, err := s.pairs.Pair(ctx, translationID)
	if err != nil {
		return nil, err
	}

	fp := fingerprint.Pair(pair.SourceText, pair.TargetText)

	// The cache is consulted unconditionally; ForceAI only changes what a
	// miss escalates to.
	stored, err := s.scores.Score(ctx, translationID)
	if err != nil {
		return nil, err
	}
	if stored != nil && stored.Fingerprint == fp {
		stored.Cached = true
		metrics.CacheHits.Inc()
		return stored, nil
	}

	if strings.TrimSpace(pair.TargetText) == "" {
		return nil, &internal.ValidationError{Field: "target_text", Reason: "translation text is empty"}
	}

	if strings.TrimSpace(pair.SourceText) == "" {
		res := heuristic.CheckFormatOnly(pair.TargetText)
		score := s.heuristicScore(pair, fp, staged{
			issues: res.Issues,
			format: res.Score,
		}, false)
		return score, s.persist(ctx, score)
	}

	st := s.runDeterministicTiers(ctx, pair)

	if !st.needsAI() && !opts.ForceAI {
		score := s.heuristicScore(pair, fp, st, false)
		return score, s.persist(ctx, score)
	}

	if s.cfg.Evaluator == nil {
		score := s.heuristicScore(pair, fp, st, false)
		return score, s.persist(ctx, score)
	}

	result, aiErr := s.callAI(ctx, pair, st)
	if aiErr != nil {
		s.logger.Warn("AI evaluation failed, falling back to heuristic score",
			"translation", translationID, "error", aiErr)
		metrics.AIFallbacks.Inc()
		score := s.heuristicScore(pair, fp, st, true)
		return score, s.persist(ctx, score)
	}

	score := s.combinedScore(pair, fp, st, result.Dimensions, result.Provider, result.Model, result.Usage)
	return score, s.persist(ctx, score)
}

// staged carries the deterministic-tier outcome into score assembly.
type staged struct {
	issues   []internal.QualityIssue
	format   float64
	escalate bool
	allClean bool
	glossary map[string]string
}

func (st staged) needsAI() bool { return st.escalate || !st.allClean }

// runDeterministicTiers executes heuristics, glossary, and language
// detection, producing the format score every later tier builds on.
func (s *Service) runDeterministicTiers(ctx context.Context, pair *internal.TranslationPair) staged {
	res := heuristic.Check(pair.SourceText, pair.TargetText, pair.SourceLang, pair.TargetLang)
	issues := res.Issues
	escalate := res.NeedsAIEvaluation

	if s.cfg.LangChecker != nil {
		if issue := s.cfg.LangChecker.Check(pair.TargetText, pair.TargetLang); issue != nil {
			issues = append(issues, *issue)
			escalate = true
		}
	}

	// Recompute after the language check so its severity weighs in.
	rescored := heuristic.Score(issues)
	format := rescored.Score

	var terms map[string]string
	if s.glossary != nil {
		fetched, err := s.glossary.Terms(ctx, pair.SourceLang, pair.TargetLang)
		if err != nil {
			s.logger.Warn("glossary lookup failed, skipping glossary tier", "error", err)
		} else {
			terms = fetched
		}
	}

	glossaryIssues := checkGlossary(pair.SourceText, pair.TargetText, terms)
	if len(glossaryIssues) > 0 {
		issues = append(issues, glossaryIssues...)
		escalate = true
		penalty := glossaryPenaltyPerTerm * float64(len(glossaryIssues))
		if penalty > glossaryPenaltyCap {
			penalty = glossaryPenaltyCap
		}
		format -= penalty
		if format < 0 {
			format = 0
		}
	}

	return staged{
		issues:   issues,
		format:   format,
		escalate: escalate,
		allClean: len(issues) == 0,
		glossary: terms,
	}
}

// checkGlossary flags source terms whose required target rendering is absent
// from the translation. Matching is case-insensitive and substring-based;
// inflected languages make exact-form matching too strict to be useful.
func checkGlossary(source, target string, terms map[string]string) []internal.QualityIssue {
	if len(terms) == 0 {
		return nil
	}

	lowerSource := strings.ToLower(source)
	lowerTarget := strings.ToLower(target)

	var issues []internal.QualityIssue
	for term, required := range terms {
		if term == "" || required == "" {
			continue
		}
		if !strings.Contains(lowerSource, strings.ToLower(term)) {
			continue
		}
		if strings.Contains(lowerTarget, strings.ToLower(required)) {
			continue
		}
		issues = append(issues, internal.QualityIssue{
			Type:     internal.IssueTerminology,
			Severity: internal.SeverityMinor,
			Message:  "glossary term \"" + term + "\" should be translated as \"" + required + "\"",
		})
	}
	return issues
}

// callAI runs one provider evaluation under the timeout, retry policy, and
// circuit breaker.
func (s *Service) callAI(ctx context.Context, pair *internal.TranslationPair, st staged) (*provider.Result, error) {
	req := provider.Request{
		SourceText: pair.SourceText,
		TargetText: pair.TargetText,
		SourceLang: pair.SourceLang,
		TargetLang: pair.TargetLang,
		Glossary:   st.glossary,
	}

	if pair.KeyID != "" {
		candidates, err := s.BuildContext(ctx, pair.KeyID, pair.SourceLang, pair.TargetLang)
		if err != nil {
			s.logger.Warn("context lookup failed, evaluating without related keys", "error", err)
		} else {
			req.Examples = relate.RenderExamples(candidates, pair.SourceLang, pair.TargetLang)
			req.Context = relate.RenderMarkup(candidates, pair.SourceLang, pair.TargetLang)
		}
	}

	var result *provider.Result
	err := s.withResilience(ctx, func(callCtx context.Context) error {
		var callErr error
		result, callErr = s.cfg.Evaluator.Evaluate(callCtx, req)
		return callErr
	})
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(s.cfg.Evaluator.Name(), "error").Inc()
		return nil, err
	}
	metrics.ProviderRequests.WithLabelValues(s.cfg.Evaluator.Name(), "ok").Inc()
	return result, nil
}

// withResilience applies timeout, circuit breaker, and retry around one
// provider operation. The breaker sits inside the retry loop so an open
// circuit rejects instantly, and breaker rejections are not retried.
func (s *Service) withResilience(ctx context.Context, op func(context.Context) error) error {
	attempt := func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.AITimeout)
		defer cancel()

		if s.cfg.Breakers == nil {
			return op(callCtx)
		}
		return s.cfg.Breakers.Execute(s.cfg.CircuitKey, func() error {
			return op(callCtx)
		})
	}
	return resilience.Do(ctx, s.cfg.Retry, func() error {
		err := attempt()
		if resilience.IsOpen(err) {
			// Fail fast all the way out; retrying an open circuit only
			// burns the backoff budget.
			return &provider.PermanentError{Err: err}
		}
		return err
	})
}

func (s *Service) heuristicScore(pair *internal.TranslationPair, fp string, st staged, aiFallback bool) *internal.QualityScore {
	now := time.Now().UTC()
	metrics.Evaluations.WithLabelValues(string(internal.EvaluationHeuristic)).Inc()
	return &internal.QualityScore{
		TranslationID:  pair.ID,
		Score:          st.format,
		Format:         st.format,
		Passed:         st.format >= s.cfg.PassThreshold,
		Issues:         st.issues,
		EvaluationType: internal.EvaluationHeuristic,
		Fingerprint:    fp,
		AIFallback:     aiFallback,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *Service) combinedScore(pair *internal.TranslationPair, fp string, st staged, dims provider.Dimensions, providerName, model string, usage internal.TokenUsage) *internal.QualityScore {
	combined := weightAccuracy*dims.Accuracy +
		weightFluency*dims.Fluency +
		weightTerminology*dims.Terminology +
		weightFormat*st.format

	now := time.Now().UTC()
	metrics.Evaluations.WithLabelValues(string(internal.EvaluationAI)).Inc()
	return &internal.QualityScore{
		TranslationID:  pair.ID,
		Score:          combined,
		Accuracy:       &dims.Accuracy,
		Fluency:        &dims.Fluency,
		Terminology:    &dims.Terminology,
		Format:         st.format,
		Passed:         combined >= s.cfg.PassThreshold,
		Issues:         append(st.issues, dims.Issues...),
		EvaluationType: internal.EvaluationAI,
		Fingerprint:    fp,
		Provider:       providerName,
		Model:          model,
		Usage:          &usage,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *Service) persist(ctx context.Context, score *internal.QualityScore) error {
	return s.scores.UpsertScore(ctx, score)
}
