package emotion

import (
	"fmt"
	"regexp"
	"strings"
)

// Category is the closed set of labels a turn can be tagged with.
//
// The declaration order of the emotion categories is the tie-break order used
// by Classify: sadness, anxiety, anger, joy, neutral. Crisis is not produced by
// the classifier; it labels turns short-circuited by the safety check.
type Category uint8

const (
	Sadness Category = iota
	Anxiety
	Anger
	Joy
	Neutral
	Crisis

	// NumCategories sizes lookup tables indexed by Category.
	NumCategories
)

// Categories lists the emotion categories in tie-break order.
var Categories = [...]Category{Sadness, Anxiety, Anger, Joy, Neutral}

var categoryNames = [NumCategories]string{
	Sadness: "sadness",
	Anxiety: "anxiety",
	Anger:   "anger",
	Joy:     "joy",
	Neutral: "neutral",
	Crisis:  "crisis",
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", uint8(c))
	}
	return categoryNames[c]
}

// Valid reports whether c is a declared category.
func (c Category) Valid() bool {
	return c < NumCategories
}

// MarshalText renders the category as its lower-case name.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown emotion category %d", uint8(c))
	}
	return []byte(categoryNames[c]), nil
}

// UnmarshalText parses a lower-case category name.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, ok := Parse(string(text))
	if !ok {
		return fmt.Errorf("unknown emotion category %q", string(text))
	}
	*c = parsed
	return nil
}

// Parse resolves a category from its name, ignoring case and surrounding space.
func Parse(raw string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for c, name := range categoryNames {
		if name == normalized {
			return Category(c), true
		}
	}
	return Neutral, false
}

// Keywords maps every category to its trigger words. Neutral and Crisis have none.
type Keywords [NumCategories][]string

// DefaultKeywords returns the built-in trigger word table.
func DefaultKeywords() Keywords {
	return Keywords{
		Sadness: {"sad", "depressed", "down", "hopeless", "unhappy", "miserable", "tearful", "lonely"},
		Anxiety: {"anxious", "anxiety", "panic", "worried", "nervous", "scared", "afraid"},
		Anger:   {"angry", "mad", "furious", "annoyed", "irritated", "frustrated"},
		Joy:     {"happy", "good", "fine", "great", "hopeful", "relieved"},
	}
}

// Word boundaries treat any Unicode letter, digit or underscore as part of a
// word; RE2's \b only knows ASCII.
const (
	wordStart = `(?:^|[^\p{L}\p{N}_])`
	wordEnd   = `(?:$|[^\p{L}\p{N}_])`
)

// Classifier scores text against a fixed keyword table. It is immutable and
// safe for concurrent use.
type Classifier struct {
	patterns [NumCategories][]*regexp.Regexp
}

// NewClassifier compiles whole-word matchers for every trigger phrase.
func NewClassifier(keywords Keywords) *Classifier {
	c := &Classifier{}
	for _, category := range Categories {
		for _, word := range keywords[category] {
			word = strings.ToLower(strings.TrimSpace(word))
			if word == "" {
				continue
			}
			re := regexp.MustCompile(wordStart + regexp.QuoteMeta(word) + wordEnd)
			c.patterns[category] = append(c.patterns[category], re)
		}
	}
	return c
}

// Scores counts, per category, how many distinct trigger phrases occur in text
// as whole words. Neutral always scores zero.
func (c *Classifier) Scores(text string) map[Category]int {
	normalized := strings.ToLower(text)
	scores := make(map[Category]int, len(Categories))
	for _, category := range Categories {
		scores[category] = 0
		for _, re := range c.patterns[category] {
			if re.MatchString(normalized) {
				scores[category]++
			}
		}
	}
	return scores
}

// Classify returns the category with the highest score, preferring earlier
// categories on ties and Neutral when nothing matches.
func (c *Classifier) Classify(text string) Category {
	scores := c.Scores(text)

	best := Neutral
	bestScore := 0
	for _, category := range Categories {
		if scores[category] > bestScore {
			best = category
			bestScore = scores[category]
		}
	}
	return best
}
