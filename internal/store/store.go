package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/valpere/qualitran/internal"
	"github.com/valpere/qualitran/internal/batch"
	"github.com/valpere/qualitran/internal/relate"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		ai_enabled BOOLEAN DEFAULT FALSE,
		ai_provider TEXT,
		ai_model TEXT,
		ai_api_key TEXT,
		ai_base_url TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS translation_keys (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL,
		file TEXT,
		component TEXT,
		line INTEGER DEFAULT -1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(project_id, name),
		FOREIGN KEY (project_id) REFERENCES projects(id)
	);

	CREATE TABLE IF NOT EXISTS translations (
		id TEXT PRIMARY KEY,
		key_id TEXT NOT NULL,
		lang TEXT NOT NULL,
		text TEXT NOT NULL,
		approved BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(key_id, lang),
		FOREIGN KEY (key_id) REFERENCES translation_keys(id)
	);

	CREATE TABLE IF NOT EXISTS quality_scores (
		translation_id TEXT PRIMARY KEY,
		score REAL NOT NULL,
		accuracy REAL,
		fluency REAL,
		terminology REAL,
		format REAL NOT NULL,
		passed BOOLEAN NOT NULL,
		issues TEXT NOT NULL DEFAULT '[]',
		evaluation_type TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		provider TEXT,
		model TEXT,
		prompt_tokens INTEGER DEFAULT 0,
		completion_tokens INTEGER DEFAULT 0,
		total_tokens INTEGER DEFAULT 0,
		ai_fallback BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (translation_id) REFERENCES translations(id)
	);

	-- glossary stores approved terminology the evaluator enforces
	CREATE TABLE IF NOT EXISTS glossary (
		id TEXT PRIMARY KEY,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		source_term TEXT NOT NULL,
		target_term TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_lang, target_lang, source_term)
	);

	CREATE TABLE IF NOT EXISTS evaluation_jobs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'pending',
		queued TEXT NOT NULL DEFAULT '[]',
		total INTEGER NOT NULL,
		cached INTEGER NOT NULL,
		failed INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_keys_project ON translation_keys(project_id);
	CREATE INDEX IF NOT EXISTS idx_translations_key ON translations(key_id);
	CREATE INDEX IF NOT EXISTS idx_scores_fingerprint ON quality_scores(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_glossary_lookup ON glossary(source_lang, target_lang);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Project holds one project's settings, including its AI evaluator
// configuration.
type Project struct {
	ID         string
	Name       string
	SourceLang string
	AIEnabled  bool
	AIProvider string
	AIModel    string
	AIAPIKey   string
	AIBaseURL  string
	CreatedAt  time.Time
}

func (s *Store) UpsertProject(ctx context.Context, p Project) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, source_lang, ai_enabled, ai_provider, ai_model, ai_api_key, ai_base_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, source_lang = excluded.source_lang,
		   ai_enabled = excluded.ai_enabled, ai_provider = excluded.ai_provider, ai_model = excluded.ai_model,
		   ai_api_key = excluded.ai_api_key, ai_base_url = excluded.ai_base_url`,
		p.ID, p.Name, p.SourceLang, p.AIEnabled, p.AIProvider, p.AIModel, p.AIAPIKey, p.AIBaseURL)
	return err
}

func (s *Store) Project(ctx context.Context, id string) (*Project, error) {
	var p Project
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, source_lang, ai_enabled, COALESCE(ai_provider, ''), COALESCE(ai_model, ''),
		        COALESCE(ai_api_key, ''), COALESCE(ai_base_url, ''), created_at
		 FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.SourceLang, &p.AIEnabled, &p.AIProvider, &p.AIModel, &p.AIAPIKey, &p.AIBaseURL, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &internal.NotFoundError{Kind: "project", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpsertKey(ctx context.Context, id, projectID, name, file, component string, line int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO translation_keys (id, project_id, name, file, component, line)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project_id, name) DO UPDATE SET file = excluded.file,
		   component = excluded.component, line = excluded.line`,
		id, projectID, name, file, component, line)
	return err
}

func (s *Store) UpsertTranslation(ctx context.Context, id, keyID, lang, text string, approved bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO translations (id, key_id, lang, text, approved, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key_id, lang) DO UPDATE SET text = excluded.text,
		   approved = excluded.approved, updated_at = excluded.updated_at`,
		id, keyID, lang, text, approved, time.Now())
	return err
}

// Pair resolves a translation id to its evaluation pair. The source side is
// the same key's translation in the project's source language; a key without
// a source-language row yields an empty SourceText (format-only evaluation).
func (s *Store) Pair(ctx context.Context, id string) (*internal.TranslationPair, error) {
	var pair internal.TranslationPair
	var projectID, sourceLang string
	err := s.db.QueryRowContext(ctx,
		`SELECT t.id, t.key_id, k.name, t.lang, t.text, k.project_id, p.source_lang
		 FROM translations t
		 JOIN translation_keys k ON k.id = t.key_id
		 JOIN projects p ON p.id = k.project_id
		 WHERE t.id = ?`, id).
		Scan(&pair.ID, &pair.KeyID, &pair.KeyName, &pair.TargetLang, &pair.TargetText, &projectID, &sourceLang)
	if err == sql.ErrNoRows {
		return nil, &internal.NotFoundError{Kind: "translation", ID: id}
	}
	if err != nil {
		return nil, err
	}
	pair.SourceLang = sourceLang

	err = s.db.QueryRowContext(ctx,
		`SELECT text FROM translations WHERE key_id = ? AND lang = ?`,
		pair.KeyID, sourceLang).Scan(&pair.SourceText)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	return &pair, nil
}

// Score returns the stored score for a translation, or nil when none exists.
func (s *Store) Score(ctx context.Context, translationID string) (*internal.QualityScore, error) {
	var score internal.QualityScore
	var accuracy, fluency, terminology sql.NullFloat64
	var provider, model sql.NullString
	var issuesJSON string
	var usage internal.TokenUsage

	err := s.db.QueryRowContext(ctx,
		`SELECT translation_id, score, accuracy, fluency, terminology, format, passed, issues,
		        evaluation_type, fingerprint, provider, model, prompt_tokens, completion_tokens,
		        total_tokens, ai_fallback, created_at, updated_at
		 FROM quality_scores WHERE translation_id = ?`, translationID).
		Scan(&score.TranslationID, &score.Score, &accuracy, &fluency, &terminology, &score.Format,
			&score.Passed, &issuesJSON, &score.EvaluationType, &score.Fingerprint, &provider, &model,
			&usage.PromptTokens, &usage.CompletionTokens, &usage.TotalTokens, &score.AIFallback,
			&score.CreatedAt, &score.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if accuracy.Valid {
		score.Accuracy = &accuracy.Float64
	}
	if fluency.Valid {
		score.Fluency = &fluency.Float64
	}
	if terminology.Valid {
		score.Terminology = &terminology.Float64
	}
	score.Provider = provider.String
	score.Model = model.String
	if usage.TotalTokens > 0 {
		score.Usage = &usage
	}
	if err := json.Unmarshal([]byte(issuesJSON), &score.Issues); err != nil {
		return nil, fmt.Errorf("failed to decode stored issues: %w", err)
	}
	return &score, nil
}

func (s *Store) UpsertScore(ctx context.Context, score *internal.QualityScore) error {
	issues := score.Issues
	if issues == nil {
		issues = []internal.QualityIssue{}
	}
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("failed to encode issues: %w", err)
	}

	var usage internal.TokenUsage
	if score.Usage != nil {
		usage = *score.Usage
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quality_scores (translation_id, score, accuracy, fluency, terminology, format,
		   passed, issues, evaluation_type, fingerprint, provider, model, prompt_tokens,
		   completion_tokens, total_tokens, ai_fallback, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(translation_id) DO UPDATE SET score = excluded.score,
		   accuracy = excluded.accuracy, fluency = excluded.fluency, terminology = excluded.terminology,
		   format = excluded.format, passed = excluded.passed, issues = excluded.issues,
		   evaluation_type = excluded.evaluation_type, fingerprint = excluded.fingerprint,
		   provider = excluded.provider, model = excluded.model, prompt_tokens = excluded.prompt_tokens,
		   completion_tokens = excluded.completion_tokens, total_tokens = excluded.total_tokens,
		   ai_fallback = excluded.ai_fallback, updated_at = excluded.updated_at`,
		score.TranslationID, score.Score, score.Accuracy, score.Fluency, score.Terminology,
		score.Format, score.Passed, string(issuesJSON), score.EvaluationType, score.Fingerprint,
		score.Provider, score.Model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens,
		score.AIFallback, score.CreatedAt, score.UpdatedAt)
	return err
}

// InvalidateScore drops a stored score so the next evaluation recomputes it.
func (s *Store) InvalidateScore(ctx context.Context, translationID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM quality_scores WHERE translation_id = ?`, translationID)
	return err
}

// ClearScores removes all stored scores and reports how many were dropped.
func (s *Store) ClearScores(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quality_scores`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ScoreRow is one entry of the score listing.
type ScoreRow struct {
	TranslationID  string
	KeyName        string
	Lang           string
	Score          float64
	Passed         bool
	EvaluationType string
	AIFallback     bool
	UpdatedAt      time.Time
}

// ListScores returns stored scores ordered worst-first, optionally filtered
// by project.
func (s *Store) ListScores(ctx context.Context, projectID string) ([]ScoreRow, error) {
	query := `SELECT q.translation_id, k.name, t.lang, q.score, q.passed, q.evaluation_type, q.ai_fallback, q.updated_at
		 FROM quality_scores q
		 JOIN translations t ON t.id = q.translation_id
		 JOIN translation_keys k ON k.id = t.key_id`
	var args []interface{}
	if projectID != "" {
		query += ` WHERE k.project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY q.score ASC, k.name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ScoreRow
	for rows.Next() {
		var r ScoreRow
		if err := rows.Scan(&r.TranslationID, &r.KeyName, &r.Lang, &r.Score, &r.Passed, &r.EvaluationType, &r.AIFallback, &r.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ScoreStats summarises the stored scores.
type ScoreStats struct {
	Total        int
	Passed       int
	Failed       int
	AIEvaluated  int
	Fallbacks    int
	AverageScore float64
	TotalTokens  int
}

func (s *Store) Stats(ctx context.Context) (*ScoreStats, error) {
	stats := &ScoreStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN passed THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN NOT passed THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN evaluation_type = 'ai' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ai_fallback THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(score), 0),
			COALESCE(SUM(total_tokens), 0)
		FROM quality_scores`).Scan(
		&stats.Total,
		&stats.Passed,
		&stats.Failed,
		&stats.AIEvaluated,
		&stats.Fallbacks,
		&stats.AverageScore,
		&stats.TotalTokens,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Key loads one translation key with all its translations, shaped for the
// relatedness engine.
func (s *Store) Key(ctx context.Context, keyID string) (*relate.Key, error) {
	key, _, err := s.loadKey(ctx, keyID)
	return key, err
}

func (s *Store) loadKey(ctx context.Context, keyID string) (*relate.Key, string, error) {
	var key relate.Key
	var projectID string
	var file, component sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT name, COALESCE(file, ''), COALESCE(component, ''), line, project_id
		 FROM translation_keys WHERE id = ?`, keyID).
		Scan(&key.Name, &file, &component, &key.Line, &projectID)
	if err == sql.ErrNoRows {
		return nil, "", &internal.NotFoundError{Kind: "translation key", ID: keyID}
	}
	if err != nil {
		return nil, "", err
	}
	key.File = file.String
	key.Component = component.String

	key.Translations, key.Approved, err = s.keyTranslations(ctx, keyID)
	if err != nil {
		return nil, "", err
	}
	return &key, projectID, nil
}

func (s *Store) keyTranslations(ctx context.Context, keyID string) (map[string]string, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lang, text, approved FROM translations WHERE key_id = ?`, keyID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	translations := make(map[string]string)
	allApproved := true
	any := false
	for rows.Next() {
		var lang, text string
		var approved bool
		if err := rows.Scan(&lang, &text, &approved); err != nil {
			return nil, false, err
		}
		translations[lang] = text
		allApproved = allApproved && approved
		any = true
	}
	return translations, any && allApproved, rows.Err()
}

// Siblings returns every other key in the same project, with translations,
// as relatedness candidates.
func (s *Store) Siblings(ctx context.Context, keyID string) ([]relate.Key, error) {
	_, projectID, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(file, ''), COALESCE(component, ''), line
		 FROM translation_keys WHERE project_id = ? AND id != ?`, projectID, keyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type keyRow struct {
		id  string
		key relate.Key
	}
	var keyRows []keyRow
	for rows.Next() {
		var r keyRow
		if err := rows.Scan(&r.id, &r.key.Name, &r.key.File, &r.key.Component, &r.key.Line); err != nil {
			return nil, err
		}
		keyRows = append(keyRows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	siblings := make([]relate.Key, 0, len(keyRows))
	for _, r := range keyRows {
		translations, approved, err := s.keyTranslations(ctx, r.id)
		if err != nil {
			return nil, err
		}
		r.key.Translations = translations
		r.key.Approved = approved
		siblings = append(siblings, r.key)
	}
	return siblings, nil
}

// Pairs returns the evaluation pairs for every non-source translation of a
// key, for whole-key evaluation.
func (s *Store) Pairs(ctx context.Context, keyID string) ([]internal.TranslationPair, error) {
	var keyName, projectID, sourceLang string
	err := s.db.QueryRowContext(ctx,
		`SELECT k.name, k.project_id, p.source_lang
		 FROM translation_keys k JOIN projects p ON p.id = k.project_id
		 WHERE k.id = ?`, keyID).Scan(&keyName, &projectID, &sourceLang)
	if err == sql.ErrNoRows {
		return nil, &internal.NotFoundError{Kind: "translation key", ID: keyID}
	}
	if err != nil {
		return nil, err
	}

	translations, _, err := s.keyTranslations(ctx, keyID)
	if err != nil {
		return nil, err
	}
	sourceText := translations[sourceLang]

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lang, text FROM translations WHERE key_id = ? AND lang != ? ORDER BY lang`,
		keyID, sourceLang)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []internal.TranslationPair
	for rows.Next() {
		pair := internal.TranslationPair{
			KeyID:      keyID,
			KeyName:    keyName,
			SourceText: sourceText,
			SourceLang: sourceLang,
		}
		if err := rows.Scan(&pair.ID, &pair.TargetLang, &pair.TargetText); err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, rows.Err()
}

// TranslationIDs lists every non-source translation id in a project, the
// unit set batch evaluation operates on.
func (s *Store) TranslationIDs(ctx context.Context, projectID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id FROM translations t
		 JOIN translation_keys k ON k.id = t.key_id
		 JOIN projects p ON p.id = k.project_id
		 WHERE k.project_id = ? AND t.lang != p.source_lang
		 ORDER BY k.name, t.lang`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GlossaryEntry represents a row in the glossary table.
type GlossaryEntry struct {
	ID         string
	SourceLang string
	TargetLang string
	SourceTerm string
	TargetTerm string
	CreatedAt  time.Time
}

// AddGlossaryTerm inserts or replaces a glossary entry.
func (s *Store) AddGlossaryTerm(ctx context.Context, sourceLang, targetLang, sourceTerm, targetTerm string) error {
	id := fmt.Sprintf("gl_%d", time.Now().UnixNano())
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO glossary (id, source_lang, target_lang, source_term, target_term)
		 VALUES (?, ?, ?, ?, ?)`,
		id, sourceLang, targetLang, sourceTerm, targetTerm)
	return err
}

// Terms returns all glossary terms for a language pair as a source-term →
// target-term map, ready for the glossary tier and the evaluation prompt.
func (s *Store) Terms(ctx context.Context, sourceLang, targetLang string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_term, target_term FROM glossary WHERE source_lang = ? AND target_lang = ?`,
		sourceLang, targetLang)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	terms := make(map[string]string)
	for rows.Next() {
		var src, tgt string
		if err := rows.Scan(&src, &tgt); err != nil {
			return nil, err
		}
		terms[src] = tgt
	}
	return terms, rows.Err()
}

// ListGlossaryTerms returns all glossary entries, optionally filtered by
// language pair (pass empty strings to return everything).
func (s *Store) ListGlossaryTerms(ctx context.Context, sourceLang, targetLang string) ([]GlossaryEntry, error) {
	query := `SELECT id, source_lang, target_lang, source_term, target_term, created_at FROM glossary`
	var args []interface{}

	switch {
	case sourceLang != "" && targetLang != "":
		query += ` WHERE source_lang = ? AND target_lang = ?`
		args = append(args, sourceLang, targetLang)
	case sourceLang != "":
		query += ` WHERE source_lang = ?`
		args = append(args, sourceLang)
	case targetLang != "":
		query += ` WHERE target_lang = ?`
		args = append(args, targetLang)
	}
	query += ` ORDER BY source_lang, target_lang, source_term`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []GlossaryEntry
	for rows.Next() {
		var e GlossaryEntry
		if err := rows.Scan(&e.ID, &e.SourceLang, &e.TargetLang, &e.SourceTerm, &e.TargetTerm, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteGlossaryTerm removes a glossary entry by ID.
func (s *Store) DeleteGlossaryTerm(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM glossary WHERE id = ?`, id)
	return err
}

// CreateJob persists a scheduled evaluation job.
func (s *Store) CreateJob(ctx context.Context, job *batch.Job) error {
	queued, err := json.Marshal(job.Queued)
	if err != nil {
		return fmt.Errorf("failed to encode job queue: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluation_jobs (id, status, queued, total, cached, failed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Status, string(queued), job.Total, job.Cached, job.Failed, job.CreatedAt, job.UpdatedAt)
	return err
}

func (s *Store) UpdateJob(ctx context.Context, job *batch.Job) error {
	queued, err := json.Marshal(job.Queued)
	if err != nil {
		return fmt.Errorf("failed to encode job queue: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE evaluation_jobs SET status = ?, queued = ?, failed = ?, updated_at = ? WHERE id = ?`,
		job.Status, string(queued), job.Failed, job.UpdatedAt, job.ID)
	return err
}

func (s *Store) Job(ctx context.Context, jobID string) (*batch.Job, error) {
	var job batch.Job
	var queued string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, queued, total, cached, failed, created_at, updated_at
		 FROM evaluation_jobs WHERE id = ?`, jobID).
		Scan(&job.ID, &job.Status, &queued, &job.Total, &job.Cached, &job.Failed, &job.CreatedAt, &job.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &internal.NotFoundError{Kind: "evaluation job", ID: jobID}
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(queued), &job.Queued); err != nil {
		return nil, fmt.Errorf("failed to decode job queue: %w", err)
	}
	return &job, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
