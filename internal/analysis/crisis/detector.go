// Package crisis flags messages that mention self-harm so the pipeline can
// answer with a fixed safety reply instead of generated text.
package crisis

import "strings"

// DefaultPhrases is the built-in list of crisis phrases, lower-cased.
var DefaultPhrases = []string{
	"suicide",
	"kill myself",
	"end my life",
	"i want to die",
	"hurt myself",
	"cant go on",
	"can't go on",
	"cut myself",
}

// Detector matches text against an immutable phrase list.
type Detector struct {
	phrases []string
}

// NewDetector builds a detector for the supplied phrases. Blank phrases are
// ignored so a misconfigured entry can never match every message.
func NewDetector(phrases []string) *Detector {
	normalized := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase != "" {
			normalized = append(normalized, phrase)
		}
	}
	return &Detector{phrases: normalized}
}

// Detect reports whether text contains any crisis phrase, ignoring case.
// Matching is by substring, so "suicidal" also triggers.
func (d *Detector) Detect(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range d.phrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

var defaultDetector = NewDetector(DefaultPhrases)

// Detect checks text against DefaultPhrases.
func Detect(text string) bool {
	return defaultDetector.Detect(text)
}
