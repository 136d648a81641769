package internal

import "time"

// EvaluationType distinguishes how a quality score was produced.
type EvaluationType string

const (
	EvaluationHeuristic EvaluationType = "heuristic"
	EvaluationAI        EvaluationType = "ai"
)

// IssueType is the MQM dimension an issue belongs to.
type IssueType string

const (
	IssueAccuracy    IssueType = "accuracy"
	IssueFluency     IssueType = "fluency"
	IssueTerminology IssueType = "terminology"
)

// Severity ranks how much an issue degrades the score.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// QualityIssue is a single problem found in a translation.
type QualityIssue struct {
	Type     IssueType `json:"type"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}

// TranslationPair is one source/target text pair under evaluation.
type TranslationPair struct {
	ID         string `json:"id"`
	KeyID      string `json:"key_id"`
	KeyName    string `json:"key_name"`
	SourceText string `json:"source_text"`
	TargetText string `json:"target_text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// TokenUsage records provider token consumption for one AI call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// QualityScore is the persisted outcome of evaluating one translation pair.
// A stored score is valid only while Fingerprint still matches the current
// (source, target) content; otherwise it must be recomputed.
type QualityScore struct {
	TranslationID string         `json:"translation_id"`
	Score         float64        `json:"score"`
	Accuracy      *float64       `json:"accuracy,omitempty"`
	Fluency       *float64       `json:"fluency,omitempty"`
	Terminology   *float64       `json:"terminology,omitempty"`
	Format        float64        `json:"format"`
	Passed        bool           `json:"passed"`
	Issues        []QualityIssue `json:"issues"`
	EvaluationType EvaluationType `json:"evaluation_type"`
	Fingerprint   string         `json:"fingerprint"`
	Provider      string         `json:"provider,omitempty"`
	Model         string         `json:"model,omitempty"`
	Usage         *TokenUsage    `json:"usage,omitempty"`
	AIFallback    bool           `json:"ai_fallback"`
	Cached        bool           `json:"cached"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// RelationshipType classifies how a candidate key relates to the key under
// evaluation.
type RelationshipType string

const (
	RelNearby        RelationshipType = "NEARBY"
	RelKeyPattern    RelationshipType = "KEY_PATTERN"
	RelSameComponent RelationshipType = "SAME_COMPONENT"
	RelSameFile      RelationshipType = "SAME_FILE"
	RelSemantic      RelationshipType = "SEMANTIC"
)

// RelatedKeyCandidate is a key considered for inclusion as AI-prompt context.
type RelatedKeyCandidate struct {
	KeyName      string            `json:"key_name"`
	Relationship RelationshipType  `json:"relationship_type"`
	Confidence   float64           `json:"confidence"`
	Translations map[string]string `json:"translations"`
	Approved     bool              `json:"approved"`
}
