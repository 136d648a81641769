package relate

import (
	"strings"
	"testing"

	"github.com/valpere/qualitran/internal"
)

func makeKey(name, file, component string, line int, src, tgt string) Key {
	return Key{
		Name:      name,
		File:      file,
		Component: component,
		Line:      line,
		Translations: map[string]string{
			"en": src,
			"uk": tgt,
		},
	}
}

func TestSelect_KeepsHighestConfidencePerKey(t *testing.T) {
	subject := makeKey("form.email.label", "forms.json", "SignupForm", 10, "Email", "Ел. пошта")
	// Same file two lines away: NEARBY ≈0.875, SAME_FILE ≈0.98 — SAME_FILE wins.
	cand := makeKey("form.email.placeholder", "forms.json", "", 12, "Enter email", "Введіть пошту")

	got := Select(subject, []Key{cand}, "en", "uk", 10)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Relationship != internal.RelSameFile {
		t.Errorf("expected SAME_FILE to win, got %s", got[0].Relationship)
	}
	if got[0].Confidence < 0.97 || got[0].Confidence > 1 {
		t.Errorf("unexpected confidence %v", got[0].Confidence)
	}
}

func TestSelect_ExcludesSubjectItself(t *testing.T) {
	subject := makeKey("form.email.label", "forms.json", "", 10, "Email", "Ел. пошта")

	got := Select(subject, []Key{subject}, "en", "uk", 10)
	if len(got) != 0 {
		t.Errorf("subject must not appear among its own candidates, got %v", got)
	}
}

func TestSelect_FiltersMissingTranslations(t *testing.T) {
	subject := makeKey("form.email.label", "forms.json", "", 10, "Email", "Ел. пошта")
	missing := makeKey("form.email.hint", "forms.json", "", 11, "A hint", "")

	got := Select(subject, []Key{missing}, "en", "uk", 10)
	if len(got) != 0 {
		t.Errorf("candidates without both languages must be dropped, got %v", got)
	}
}

func TestSelect_SortsAndTruncates(t *testing.T) {
	subject := makeKey("form.email.label", "forms.json", "SignupForm", 10, "Email", "Ел. пошта")
	candidates := []Key{
		makeKey("unrelated.thing", "other.json", "", 500, "Other", "Інше"),
		makeKey("form.email.placeholder", "forms.json", "", 11, "Enter email", "Введіть пошту"),
		makeKey("form.password.label", "forms.json", "SignupForm", 40, "Password", "Пароль"),
	}

	got := Select(subject, candidates, "en", "uk", 2)
	if len(got) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(got))
	}
	if got[0].Confidence < got[1].Confidence {
		t.Error("expected descending confidence order")
	}
	if got[0].KeyName != "form.email.placeholder" {
		t.Errorf("expected the adjacent key first, got %s", got[0].KeyName)
	}
}

func TestSelect_UnknownPositionsUseStructuralConfidence(t *testing.T) {
	subject := makeKey("menu.title", "menu.json", "MainMenu", -1, "Menu", "Меню")
	cand := makeKey("menu.subtitle", "menu.json", "MainMenu", -1, "Items", "Пункти")

	got := Select(subject, []Key{cand}, "en", "uk", 10)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Confidence != 1.0 {
		t.Errorf("structural relationship without positions should score 1.0, got %v", got[0].Confidence)
	}
}

func TestRenderExamples_CapsAtThree(t *testing.T) {
	var candidates []internal.RelatedKeyCandidate
	for _, name := range []string{"a.one", "a.two", "a.three", "a.four"} {
		candidates = append(candidates, internal.RelatedKeyCandidate{
			KeyName:      name,
			Relationship: internal.RelKeyPattern,
			Confidence:   0.5,
			Translations: map[string]string{"en": "Hello", "uk": "Привіт"},
		})
	}

	out := RenderExamples(candidates, "en", "uk")
	if strings.Count(out, "\n") != 4 { // header + 3 examples
		t.Errorf("expected exactly 3 examples, got:\n%s", out)
	}
	if strings.Contains(out, "a.four") {
		t.Error("fourth candidate must not be rendered")
	}
}

func TestRenderExamples_Empty(t *testing.T) {
	if out := RenderExamples(nil, "en", "uk"); out != "" {
		t.Errorf("expected empty rendering, got %q", out)
	}
}

func TestRenderMarkup_EscapesContent(t *testing.T) {
	candidates := []internal.RelatedKeyCandidate{{
		KeyName:      `weird."key"`,
		Relationship: internal.RelSameFile,
		Confidence:   0.8765,
		Approved:     true,
		Translations: map[string]string{
			"en": `<b>Save & exit</b>`,
			"uk": `'Зберегти' > вийти`,
		},
	}}

	out := RenderMarkup(candidates, "en", "uk")

	if strings.Contains(out, "<b>") {
		t.Error("raw markup leaked into the rendering")
	}
	for _, want := range []string{"&lt;b&gt;", "&amp;", "&quot;key&quot;", "&#39;", "confidence=\"0.88\"", "approved=\"true\"", "relationship=\"SAME_FILE\""} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in rendering:\n%s", want, out)
		}
	}
}

func TestRenderMarkup_ListsEveryCandidate(t *testing.T) {
	candidates := []internal.RelatedKeyCandidate{
		{KeyName: "k.one", Relationship: internal.RelNearby, Confidence: 0.9, Translations: map[string]string{"en": "x", "uk": "y"}},
		{KeyName: "k.two", Relationship: internal.RelKeyPattern, Confidence: 0.4, Translations: map[string]string{"en": "x", "uk": "y"}},
	}

	out := RenderMarkup(candidates, "en", "uk")
	if strings.Count(out, "<translation ") != 2 {
		t.Errorf("expected every candidate listed:\n%s", out)
	}
}
