package quality

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/valpere/qualitran/internal"
	"github.com/valpere/qualitran/internal/provider"
	"github.com/valpere/qualitran/internal/relate"
	"github.com/valpere/qualitran/internal/resilience"
)

type fakePairs map[string]internal.TranslationPair

func (f fakePairs) Pair(_ context.Context, id string) (*internal.TranslationPair, error) {
	pair, ok := f[id]
	if !ok {
		return nil, &internal.NotFoundError{Kind: "translation", ID: id}
	}
	return &pair, nil
}

type fakeScores struct {
	mu      sync.Mutex
	stored  map[string]*internal.QualityScore
	upserts int
}

func newFakeScores() *fakeScores {
	return &fakeScores{stored: make(map[string]*internal.QualityScore)}
}

func (f *fakeScores) Score(_ context.Context, id string) (*internal.QualityScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if score, ok := f.stored[id]; ok {
		copied := *score
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeScores) UpsertScore(_ context.Context, score *internal.QualityScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *score
	f.stored[score.TranslationID] = &copied
	f.upserts++
	return nil
}

type fakeGlossary map[string]string

func (f fakeGlossary) Terms(_ context.Context, _, _ string) (map[string]string, error) {
	return f, nil
}

type fakeEvaluator struct {
	mu         sync.Mutex
	calls      int
	multiCalls int
	result     *provider.Result
	multi      *provider.MultiResult
	err        error
}

func (f *fakeEvaluator) Name() string { return "fake" }

func (f *fakeEvaluator) Evaluate(_ context.Context, _ provider.Request) (*provider.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeEvaluator) EvaluateMulti(_ context.Context, _ provider.MultiRequest) (*provider.MultiResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.multiCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.multi, nil
}

func (f *fakeEvaluator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls + f.multiCalls
}

type fakeKeys struct {
	subject  relate.Key
	siblings []relate.Key
	pairs    []internal.TranslationPair
}

func (f *fakeKeys) Key(_ context.Context, _ string) (*relate.Key, error) {
	return &f.subject, nil
}

func (f *fakeKeys) Siblings(_ context.Context, _ string) ([]relate.Key, error) {
	return f.siblings, nil
}

func (f *fakeKeys) Pairs(_ context.Context, _ string) ([]internal.TranslationPair, error) {
	return f.pairs, nil
}

func fastRetry() resilience.RetryPolicy {
	return resilience.RetryPolicy{
		MaxRetries:   1,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
	}
}

func cleanPair(id string) internal.TranslationPair {
	return internal.TranslationPair{
		ID:         id,
		KeyID:      "key-" + id,
		KeyName:    "button.save",
		SourceText: "Save changes",
		TargetText: "Зберегти зміни",
		SourceLang: "en",
		TargetLang: "uk",
	}
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 0.0001 }

func TestEvaluateHeuristicOnly(t *testing.T) {
	pairs := fakePairs{"t1": cleanPair("t1")}
	scores := newFakeScores()
	ai := &fakeEvaluator{}
	svc := NewService(pairs, scores, nil, nil, Config{Evaluator: ai, Retry: fastRetry()})

	score, err := svc.Evaluate(context.Background(), "t1", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score.Score != 100 || score.EvaluationType != internal.EvaluationHeuristic {
		t.Errorf("expected clean heuristic score, got %+v", score)
	}
	if !score.Passed {
		t.Error("a clean pair must pass")
	}
	if ai.callCount() != 0 {
		t.Errorf("clean pair must not reach the AI tier, got %d calls", ai.callCount())
	}
	if scores.upserts != 1 {
		t.Errorf("expected 1 persisted score, got %d", scores.upserts)
	}
}

func TestEvaluateIdempotence(t *testing.T) {
	pairs := fakePairs{"t1": cleanPair("t1")}
	scores := newFakeScores()
	ai := &fakeEvaluator{}
	svc := NewService(pairs, scores, nil, nil, Config{Evaluator: ai, Retry: fastRetry()})

	first, err := svc.Evaluate(context.Background(), "t1", Options{})
	if err != nil {
		t.Fatalf("first evaluation: %v", err)
	}
	second, err := svc.Evaluate(context.Background(), "t1", Options{})
	if err != nil {
		t.Fatalf("second evaluation: %v", err)
	}

	if !second.Cached {
		t.Error("second evaluation must be served from cache")
	}
	if second.Score != first.Score || second.Fingerprint != first.Fingerprint {
		t.Errorf("cached score diverged: first %+v, second %+v", first, second)
	}
	if scores.upserts != 1 {
		t.Errorf("cache hit must not re-persist, got %d upserts", scores.upserts)
	}
	if ai.callCount() != 0 {
		t.Errorf("cache hit must make zero AI calls, got %d", ai.callCount())
	}
}

func TestEvaluateChangeDetection(t *testing.T) {
	pair := cleanPair("t1")
	pairs := fakePairs{"t1": pair}
	scores := newFakeScores()
	svc := NewService(pairs, scores, nil, nil, Config{Retry: fastRetry()})

	if _, err := svc.Evaluate(context.Background(), "t1", Options{}); err != nil {
		t.Fatalf("first evaluation: %v", err)
	}

	pair.TargetText = "Зберегти всі зміни"
	pairs["t1"] = pair

	score, err := svc.Evaluate(context.Background(), "t1", Options{})
	if err != nil {
		t.Fatalf("re-evaluation: %v", err)
	}
	if score.Cached {
		t.Error("changed content must not be served from cache")
	}
	if scores.upserts != 2 {
		t.Errorf("expected re-evaluation to persist, got %d upserts", scores.upserts)
	}
}

func TestEvaluateCacheBeatsForceAI(t *testing.T) {
	pairs := fakePairs{"t1": cleanPair("t1")}
	scores := newFakeScores()
	ai := &fakeEvaluator{result: &provider.Result{
		Dimensions: provider.Dimensions{Accuracy: 90, Fluency: 80, Terminology: 70},
		Provider:   "fake", Model: "m",
	}}
	svc := NewService(pairs, scores, nil, nil, Config{Evaluator: ai, Retry: fastRetry()})

	if _, err := svc.Evaluate(context.Background(), "t1", Options{}); err != nil {
		t.Fatalf("first evaluation: %v", err)
	}
	score, err := svc.Evaluate(context.Background(), "t1", Options{ForceAI: true})
	if err != nil {
		t.Fatalf("forced evaluation: %v", err)
	}
	if !score.Cached {
		t.Error("force-AI must still honor a valid cache entry")
	}
	if ai.callCount() != 0 {
		t.Errorf("force-AI on a cache hit must make zero AI calls, got %d", ai.callCount())
	}
}

func TestEvaluateEmptyTarget(t *testing.T) {
	pair := cleanPair("t1")
	pair.TargetText = "   "
	svc := NewService(fakePairs{"t1": pair}, newFakeScores(), nil, nil, Config{Retry: fastRetry()})

	_, err := svc.Evaluate(context.Background(), "t1", Options{})
	var validation *internal.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestEvaluateUnknownPair(t *testing.T) {
	svc := NewService(fakePairs{}, newFakeScores(), nil, nil, Config{Retry: fastRetry()})

	_, err := svc.Evaluate(context.Background(), "missing", Options{})
	var notFound *internal.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestEvaluateFormatOnlyWithoutSource(t *testing.T) {
	pair := cleanPair("t1")
	pair.SourceText = ""
	pair.TargetText = "{count, plural, one {# елемент}}"
	ai := &fakeEvaluator{}
	svc := NewService(fakePairs{"t1": pair}, newFakeScores(), nil, nil, Config{Evaluator: ai, Retry: fastRetry()})

	score, err := svc.Evaluate(context.Background(), "t1", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score.EvaluationType != internal.EvaluationHeuristic {
		t.Errorf("format-only path must stay heuristic, got %s", score.EvaluationType)
	}
	if len(score.Issues) == 0 {
		t.Error("plural argument without an 'other' clause must be flagged")
	}
	if ai.callCount() != 0 {
		t.Error("format-only path must not reach the AI tier")
	}
}

func TestEvaluateCombinedScore(t *testing.T) {
	pairs := fakePairs{"t1": cleanPair("t1")}
	scores := newFakeScores()
	ai := &fakeEvaluator{result: &provider.Result{
		Dimensions: provider.Dimensions{Accuracy: 90, Fluency: 80, Terminology: 70},
		Provider:   "fake",
		Model:      "test-model",
		Usage:      internal.TokenUsage{TotalTokens: 200},
	}}
	svc := NewService(pairs, scores, nil, nil, Config{Evaluator: ai, Retry: fastRetry()})

	score, err := svc.Evaluate(context.Background(), "t1", Options{ForceAI: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(score.Score, 86.5) {
		t.Errorf("expected combined score 86.5, got %g", score.Score)
	}
	if score.EvaluationType != internal.EvaluationAI {
		t.Errorf("expected AI evaluation type, got %s", score.EvaluationType)
	}
	if score.Accuracy == nil || *score.Accuracy != 90 {
		t.Errorf("expected accuracy 90, got %v", score.Accuracy)
	}
	if score.Format != 100 {
		t.Errorf("expected format 100, got %g", score.Format)
	}
	if score.Provider != "fake" || score.Model != "test-model" {
		t.Errorf("unexpected attribution: %s/%s", score.Provider, score.Model)
	}
	if !score.Passed {
		t.Error("86.5 must pass the default threshold")
	}
}

func TestEvaluateFallbackOnAIFailure(t *testing.T) {
	pairs := fakePairs{"t1": cleanPair("t1")}
	scores := newFakeScores()
	ai := &fakeEvaluator{err: &provider.TransientError{Status: 503, Err: errors.New("down")}}
	svc := NewService(pairs, scores, nil, nil, Config{Evaluator: ai, Retry: fastRetry()})

	score, err := svc.Evaluate(context.Background(), "t1", Options{ForceAI: true})
	if err != nil {
		t.Fatalf("AI failure must degrade, not error: %v", err)
	}
	if !score.AIFallback {
		t.Error("fallback score must carry the AIFallback flag")
	}
	if score.EvaluationType != internal.EvaluationHeuristic {
		t.Errorf("fallback must be heuristic, got %s", score.EvaluationType)
	}
	// Initial attempt plus one retry.
	if ai.callCount() != 2 {
		t.Errorf("expected 2 provider attempts, got %d", ai.callCount())
	}
}

func TestEvaluatePermanentFailureNotRetried(t *testing.T) {
	pairs := fakePairs{"t1": cleanPair("t1")}
	ai := &fakeEvaluator{err: &provider.PermanentError{Status: 401, Err: errors.New("bad key")}}
	svc := NewService(pairs, newFakeScores(), nil, nil, Config{Evaluator: ai, Retry: fastRetry()})

	score, err := svc.Evaluate(context.Background(), "t1", Options{ForceAI: true})
	if err != nil {
		t.Fatalf("permanent failure must degrade, not error: %v", err)
	}
	if !score.AIFallback {
		t.Error("expected fallback score")
	}
	if ai.callCount() != 1 {
		t.Errorf("permanent errors must not be retried, got %d attempts", ai.callCount())
	}
}

func TestEvaluateGlossaryPenalty(t *testing.T) {
	pair := cleanPair("t1")
	pair.SourceText = "Click the Save button to keep your changes"
	pair.TargetText = "Натисніть, щоб зберегти ваші зміни"
	glossary := fakeGlossary{"button": "кнопка"}
	svc := NewService(fakePairs{"t1": pair}, newFakeScores(), glossary, nil, Config{Retry: fastRetry()})

	score, err := svc.Evaluate(context.Background(), "t1", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score.Score != 95 {
		t.Errorf("expected one glossary violation to cost 5 points, got %g", score.Score)
	}
	found := false
	for _, issue := range score.Issues {
		if issue.Type == internal.IssueTerminology {
			found = true
		}
	}
	if !found {
		t.Error("expected a terminology issue for the missed glossary term")
	}
}

func TestGlossaryPenaltyCap(t *testing.T) {
	issues := checkGlossary(
		"alpha beta gamma delta",
		"nothing matches here",
		map[string]string{"alpha": "а1", "beta": "б2", "gamma": "г3", "delta": "д4"},
	)
	if len(issues) != 4 {
		t.Fatalf("expected 4 violations, got %d", len(issues))
	}

	pair := cleanPair("t1")
	pair.SourceText = "alpha beta gamma delta"
	pair.TargetText = "переклад без жодного терміна"
	glossary := fakeGlossary{"alpha": "а1", "beta": "б2", "gamma": "г3", "delta": "д4"}
	svc := NewService(fakePairs{"t1": pair}, newFakeScores(), glossary, nil, Config{Retry: fastRetry()})

	score, err := svc.Evaluate(context.Background(), "t1", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score.Score != 85 {
		t.Errorf("glossary penalty must cap at 15, got score %g", score.Score)
	}
}

func TestCachedScoreNeverEvaluates(t *testing.T) {
	pairs := fakePairs{"t1": cleanPair("t1")}
	scores := newFakeScores()
	svc := NewService(pairs, scores, nil, nil, Config{Retry: fastRetry()})

	cached, err := svc.CachedScore(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cached != nil {
		t.Errorf("expected nil for unevaluated pair, got %+v", cached)
	}
	if scores.upserts != 0 {
		t.Error("CachedScore must never persist anything")
	}

	if _, err := svc.Evaluate(context.Background(), "t1", Options{}); err != nil {
		t.Fatalf("evaluation: %v", err)
	}
	cached, err = svc.CachedScore(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cached == nil || !cached.Cached {
		t.Errorf("expected cached score after evaluation, got %+v", cached)
	}
}

func TestEvaluateBatchGracefulDegradation(t *testing.T) {
	pairs := fakePairs{}
	ids := make([]string, 0, 5)
	for _, id := range []string{"t1", "t2", "t3", "t4", "t5"} {
		pairs[id] = cleanPair(id)
		ids = append(ids, id)
	}
	ai := &fakeEvaluator{err: &provider.TransientError{Err: errors.New("unreachable")}}
	svc := NewService(pairs, newFakeScores(), nil, nil, Config{Evaluator: ai, Retry: fastRetry()})

	result := svc.EvaluateBatch(context.Background(), ids, Options{ForceAI: true})

	if len(result.Failures) != 0 {
		t.Fatalf("provider outage must not produce failures, got %+v", result.Failures)
	}
	if len(result.Results) != 5 {
		t.Fatalf("expected 5 scores, got %d", len(result.Results))
	}
	for id, score := range result.Results {
		if !score.AIFallback {
			t.Errorf("pair %s: expected AIFallback, got %+v", id, score)
		}
	}
}

func TestEvaluateBatchIsolatesFailures(t *testing.T) {
	pairs := fakePairs{"t1": cleanPair("t1"), "t3": cleanPair("t3")}
	svc := NewService(pairs, newFakeScores(), nil, nil, Config{Retry: fastRetry()})

	result := svc.EvaluateBatch(context.Background(), []string{"t1", "t2", "t3"}, Options{})

	if len(result.Results) != 2 {
		t.Errorf("expected 2 scores, got %d", len(result.Results))
	}
	if len(result.Failures) != 1 || result.Failures[0].ID != "t2" {
		t.Errorf("expected t2 to fail alone, got %+v", result.Failures)
	}
}

func TestEvaluateBatchRespectsWindow(t *testing.T) {
	pairs := fakePairs{}
	ids := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		id := string(rune('a' + i))
		pairs[id] = cleanPair(id)
		ids = append(ids, id)
	}
	svc := NewService(pairs, newFakeScores(), nil, nil, Config{Retry: fastRetry(), BatchWindow: 10})

	result := svc.EvaluateBatch(context.Background(), ids, Options{})
	if len(result.Results) != 25 {
		t.Errorf("expected 25 scores, got %d", len(result.Results))
	}
}

func TestBuildContext(t *testing.T) {
	keys := &fakeKeys{
		subject: relate.Key{Name: "form.email.label", File: "form.vue", Line: 10},
		siblings: []relate.Key{
			{Name: "form.email.placeholder", File: "form.vue", Line: 12,
				Translations: map[string]string{"en": "Enter email", "uk": "Введіть email"}},
			{Name: "unrelated.key", File: "other.vue", Line: 500,
				Translations: map[string]string{"en": "Other", "uk": "Інше"}},
		},
	}
	svc := NewService(fakePairs{}, newFakeScores(), nil, keys, Config{Retry: fastRetry()})

	candidates, err := svc.BuildContext(context.Background(), "k1", "en", "uk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) == 0 {
		t.Fatal("expected at least one candidate")
	}
	if candidates[0].KeyName != "form.email.placeholder" {
		t.Errorf("expected the same-file sibling first, got %s", candidates[0].KeyName)
	}
}

func TestEvaluateKeyMultiLanguage(t *testing.T) {
	source := "Save changes"
	keys := &fakeKeys{pairs: []internal.TranslationPair{
		{ID: "t-uk", KeyID: "k1", KeyName: "button.save", SourceText: source,
			TargetText: "Зберегти зміни", SourceLang: "en", TargetLang: "uk"},
		{ID: "t-de", KeyID: "k1", KeyName: "button.save", SourceText: source,
			TargetText: "Änderungen speichern", SourceLang: "en", TargetLang: "de"},
	}}
	scores := newFakeScores()
	ai := &fakeEvaluator{multi: &provider.MultiResult{
		PerLanguage: map[string]provider.Dimensions{
			"uk": {Accuracy: 90, Fluency: 80, Terminology: 70},
			"de": {Accuracy: 100, Fluency: 100, Terminology: 100},
		},
		Provider: "fake", Model: "m",
	}}
	svc := NewService(fakePairs{}, scores, nil, keys, Config{Evaluator: ai, Retry: fastRetry()})

	out, err := svc.EvaluateKey(context.Background(), "k1", Options{ForceAI: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 languages, got %d", len(out))
	}
	if ai.multiCalls != 1 || ai.calls != 0 {
		t.Errorf("expected exactly one multi-language call, got multi=%d single=%d", ai.multiCalls, ai.calls)
	}
	if !almostEqual(out["uk"].Score, 86.5) {
		t.Errorf("uk: expected 86.5, got %g", out["uk"].Score)
	}
	if out["de"].Score != 100 {
		t.Errorf("de: expected 100, got %g", out["de"].Score)
	}
	if scores.upserts != 2 {
		t.Errorf("expected both languages persisted, got %d upserts", scores.upserts)
	}
}

func TestEvaluateKeySkipsCachedLanguages(t *testing.T) {
	source := "Save changes"
	keys := &fakeKeys{pairs: []internal.TranslationPair{
		{ID: "t-uk", KeyID: "k1", SourceText: source, TargetText: "Зберегти зміни",
			SourceLang: "en", TargetLang: "uk"},
		{ID: "t-de", KeyID: "k1", SourceText: source, TargetText: "Änderungen speichern",
			SourceLang: "en", TargetLang: "de"},
	}}
	scores := newFakeScores()
	ai := &fakeEvaluator{multi: &provider.MultiResult{
		PerLanguage: map[string]provider.Dimensions{"de": {Accuracy: 100, Fluency: 100, Terminology: 100}},
		Provider:    "fake", Model: "m",
	}}
	svc := NewService(fakePairs{"t-uk": keys.pairs[0]}, scores, nil, keys, Config{Evaluator: ai, Retry: fastRetry()})

	// Prime the uk cache through the single-pair path.
	if _, err := svc.Evaluate(context.Background(), "t-uk", Options{}); err != nil {
		t.Fatalf("priming evaluation: %v", err)
	}

	out, err := svc.EvaluateKey(context.Background(), "k1", Options{ForceAI: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out["uk"].Cached {
		t.Error("uk must be served from cache")
	}
	if out["de"].Cached {
		t.Error("de must be freshly evaluated")
	}
	if ai.multiCalls != 1 {
		t.Errorf("expected one multi call for the uncached language, got %d", ai.multiCalls)
	}
}
