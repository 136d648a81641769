package langcheck

import (
	"testing"

	"github.com/valpere/qualitran/internal"
)

func TestCheck_EmptyTargetLang(t *testing.T) {
	c := New()

	if issue := c.Check("Some translated text of sufficient length.", ""); issue != nil {
		t.Errorf("expected no issue for empty target language, got %v", issue)
	}
}

func TestCheck_ShortTextSkipped(t *testing.T) {
	c := New()

	if issue := c.Check("Привіт", "en"); issue != nil {
		t.Errorf("short texts must be skipped, got %v", issue)
	}
}

func TestCheck_MatchingLanguage(t *testing.T) {
	c := New()

	text := "Це є тестовий текст українською мовою для перевірки роботи детектора."
	if issue := c.Check(text, "uk"); issue != nil {
		t.Errorf("expected no issue for matching language, got %v", issue)
	}
}

func TestCheck_MismatchedLanguage(t *testing.T) {
	c := New()

	text := "This is a longer piece of text that is very clearly written in English."
	issue := c.Check(text, "uk")
	if issue == nil {
		t.Fatal("expected an issue for mismatched language")
	}
	if issue.Type != internal.IssueFluency || issue.Severity != internal.SeverityMajor {
		t.Errorf("expected a major fluency issue, got %+v", issue)
	}
}

func TestCheck_CaseInsensitiveCode(t *testing.T) {
	c := New()

	text := "This is a longer piece of text that is very clearly written in English."
	if issue := c.Check(text, "EN"); issue != nil {
		t.Errorf("language codes must compare case-insensitively, got %v", issue)
	}
}
