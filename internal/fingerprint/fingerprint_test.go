package fingerprint

import "testing"

func TestPair_Deterministic(t *testing.T) {
	a := Pair("Hello {name}", "Привіт {name}")
	b := Pair("Hello {name}", "Привіт {name}")
	if a != b {
		t.Errorf("same inputs produced different fingerprints: %s vs %s", a, b)
	}
}

func TestPair_TargetChange(t *testing.T) {
	a := Pair("Hello", "Bonjour")
	b := Pair("Hello", "Bonjour!")
	if a == b {
		t.Error("expected different fingerprint after target change")
	}
}

func TestPair_SourceChange(t *testing.T) {
	a := Pair("Hello", "Bonjour")
	b := Pair("Hello there", "Bonjour")
	if a == b {
		t.Error("expected different fingerprint after source change")
	}
}

func TestPair_FieldBoundary(t *testing.T) {
	// The separator must keep shifted content apart.
	if Pair("ab", "c") == Pair("a", "bc") {
		t.Error("expected shifted field contents to produce different fingerprints")
	}
}

func TestPair_NormalizesWhitespace(t *testing.T) {
	a := Pair("  Hello  ", "Bonjour")
	b := Pair("Hello", "Bonjour")
	if a != b {
		t.Error("expected surrounding whitespace to be ignored")
	}
}

func TestPair_NormalizesUnicode(t *testing.T) {
	// "é" as a single codepoint vs "e" + combining acute.
	a := Pair("caf\u00e9", "x")
	b := Pair("cafe\u0301", "x")
	if a != b {
		t.Error("expected NFC-equivalent texts to share a fingerprint")
	}
}

func TestPair_HexLength(t *testing.T) {
	fp := Pair("a", "b")
	if len(fp) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(fp))
	}
}
