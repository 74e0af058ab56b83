package crisis

import "testing"

func TestDetectMatchesAnyCase(t *testing.T) {
	inputs := []string{
		"I want to die",
		"i WANT TO DIE right now",
		"sometimes I think about SUICIDE",
		"I feel suicidal",
		"I just cant go on anymore",
		"I can't go on",
		"I might hurt myself tonight",
	}
	for _, text := range inputs {
		if !Detect(text) {
			t.Fatalf("expected crisis for %q", text)
		}
	}
}

func TestDetectIgnoresOrdinaryText(t *testing.T) {
	inputs := []string{"", "hi", "I feel so sad and hopeless today", "my plant died"}
	for _, text := range inputs {
		if Detect(text) {
			t.Fatalf("unexpected crisis for %q", text)
		}
	}
}

func TestNewDetectorSkipsBlankPhrases(t *testing.T) {
	d := NewDetector([]string{"", "   ", "Danger Zone"})
	if d.Detect("hello") {
		t.Fatal("blank phrase must not match everything")
	}
	if !d.Detect("entering the danger zone") {
		t.Fatal("expected custom phrase to match case-insensitively")
	}
}
