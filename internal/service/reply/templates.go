// Package reply holds the pre-authored replies used when generation is
// bypassed or fails.
package reply

import (
	"math/rand/v2"

	"github.com/zhouzirui/haven/backend/internal/analysis/emotion"
)

// Pools maps every category to its candidate replies.
type Pools [emotion.NumCategories][]string

// DefaultPools returns the built-in reply templates. Every pool is non-empty.
func DefaultPools() Pools {
	return Pools{
		emotion.Sadness: {
			"I'm really sorry you're feeling this way. Would you like to tell me more about what's been making you sad?",
			"That sounds really hard. I'm here to listen — do you want to share what's been going on?",
		},
		emotion.Anxiety: {
			"I can hear you’re feeling anxious. It might help to try a small breathing exercise — want to try one together?",
			"I'm sorry you're feeling anxious. Can you tell me what’s on your mind right now?",
		},
		emotion.Anger: {
			"It’s okay to feel angry sometimes. Do you want to talk about what made you angry?",
			"I’m listening — what happened that made you feel this way?",
		},
		emotion.Joy: {
			"That's lovely to hear! Would you like to share more about what's going well?",
			"I'm glad you're feeling better. Want to celebrate that a bit?",
		},
		emotion.Neutral: {
			"Thanks for sharing. How can I support you today?",
			"I’m here to listen. Tell me more if you want to.",
		},
		emotion.Crisis: {
			"I'm really sorry — I’m concerned for your safety. If you are in immediate danger, please call your local emergency number right now.",
			"If you're having thoughts of harming yourself, please contact emergency services or a mental health crisis line. If you're in India, for example, consider calling AASRA: 91-9820466726 or local helplines.",
		},
	}
}

// Selector picks a random template for a category.
type Selector struct {
	pools Pools
	intn  func(n int) int
}

// Option customises a Selector.
type Option func(*Selector)

// WithIntn replaces the random source, mainly so tests can pin picks.
func WithIntn(intn func(n int) int) Option {
	return func(s *Selector) {
		if intn != nil {
			s.intn = intn
		}
	}
}

// NewSelector copies pools so later mutation by the caller has no effect.
func NewSelector(pools Pools, opts ...Option) *Selector {
	s := &Selector{intn: rand.IntN}
	for i, pool := range pools {
		s.pools[i] = append([]string(nil), pool...)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Choose returns a template for category, using the neutral pool for
// categories it does not know.
func (s *Selector) Choose(category emotion.Category) string {
	pool := s.Pool(category)
	return pool[s.intn(len(pool))]
}

// Pool returns a copy of the templates Choose draws from for category.
func (s *Selector) Pool(category emotion.Category) []string {
	if !category.Valid() || len(s.pools[category]) == 0 {
		category = emotion.Neutral
	}
	return append([]string(nil), s.pools[category]...)
}
