package emotion

import (
	"encoding/json"
	"testing"
)

func TestClassifyNoMatchesIsNeutral(t *testing.T) {
	c := NewClassifier(DefaultKeywords())
	for _, text := range []string{"", "hi", "what time is it", "the weather report"} {
		if got := c.Classify(text); got != Neutral {
			t.Fatalf("Classify(%q) = %s, want neutral", text, got)
		}
	}
}

func TestClassifyStrictMaximumWins(t *testing.T) {
	c := NewClassifier(DefaultKeywords())
	cases := map[string]Category{
		"I feel so sad and hopeless today":           Sadness,
		"I'm nervous and worried about tomorrow":     Anxiety,
		"so ANGRY and frustrated with work":          Anger,
		"feeling happy and relieved":                 Joy,
		"I am sad but also happy and relieved today": Joy,
	}
	for text, want := range cases {
		if got := c.Classify(text); got != want {
			t.Fatalf("Classify(%q) = %s, want %s", text, got, want)
		}
	}
}

func TestClassifyTieUsesEnumerationOrder(t *testing.T) {
	c := NewClassifier(DefaultKeywords())
	if got := c.Classify("sad and angry"); got != Sadness {
		t.Fatalf("expected sadness to win the tie, got %s", got)
	}
	if got := c.Classify("mad but happy"); got != Anger {
		t.Fatalf("expected anger to win the tie, got %s", got)
	}
	if got := c.Classify("scared yet great"); got != Anxiety {
		t.Fatalf("expected anxiety to win the tie, got %s", got)
	}
}

func TestClassifyUsesWordBoundaries(t *testing.T) {
	c := NewClassifier(DefaultKeywords())
	if got := c.Classify("that was admirable"); got != Neutral {
		t.Fatalf("mad must not match inside admirable, got %s", got)
	}
	if got := c.Classify("downtown is nice"); got != Neutral {
		t.Fatalf("down must not match inside downtown, got %s", got)
	}
	if got := c.Classify("Mad."); got != Anger {
		t.Fatalf("expected anger for standalone word, got %s", got)
	}
}

func TestClassifyWordBoundariesAreUnicodeAware(t *testing.T) {
	c := NewClassifier(DefaultKeywords())

	for _, text := range []string{"résad", "sadé", "fünfmad", "sad_face", "mad2"} {
		if got := c.Classify(text); got != Neutral {
			t.Fatalf("%q: keyword inside a word must not match, got %s", text, got)
		}
	}
	for _, text := range []string{"très sad", "(sad)", "sad, très"} {
		if got := c.Classify(text); got != Sadness {
			t.Fatalf("%q: expected sadness, got %s", text, got)
		}
	}
}

func TestScoresCountEachPhraseOnce(t *testing.T) {
	c := NewClassifier(DefaultKeywords())
	scores := c.Scores("sad sad sad lonely")
	if scores[Sadness] != 2 {
		t.Fatalf("expected sadness score 2, got %d", scores[Sadness])
	}
	if scores[Neutral] != 0 {
		t.Fatalf("neutral must always score 0, got %d", scores[Neutral])
	}
}

func TestParseAndText(t *testing.T) {
	for _, c := range append(Categories[:], Crisis) {
		parsed, ok := Parse(" " + c.String() + " ")
		if !ok || parsed != c {
			t.Fatalf("Parse(%s) = %v, %v", c, parsed, ok)
		}
	}
	if _, ok := Parse("bored"); ok {
		t.Fatal("expected unknown category to fail parsing")
	}

	data, err := json.Marshal(map[string]Category{"emotion": Crisis})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"emotion":"crisis"}` {
		t.Fatalf("unexpected json %s", data)
	}
	if Category(200).Valid() {
		t.Fatal("out of range category reported valid")
	}
}
