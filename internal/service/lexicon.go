package service

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the marker phrases used to classify learner responses.
// Matching is case-insensitive substring containment.
type Lexicon struct {
	Excellent      []string `yaml:"excellent"`
	Good           []string `yaml:"good"`
	Struggling     []string `yaml:"struggling"`
	HighEngagement []string `yaml:"high_engagement"`
	LowEngagement  []string `yaml:"low_engagement"`
	Breakthrough   []string `yaml:"breakthrough"`
	Connection     []string `yaml:"connection"`
	Insight        []string `yaml:"insight"`
}

// Lexicons maps a language code to its lexicon.
type Lexicons map[string]Lexicon

const DefaultLanguage = "en"

// DefaultLexicons returns the built-in English lexicon.
func DefaultLexicons() Lexicons {
	return Lexicons{
		DefaultLanguage: {
			Excellent: []string{
				"new perspective", "underlying principle", "this implies",
				"generalize", "analogous to", "invariant", "trade-off",
				"emerges from", "in other words", "first principles",
			},
			Good: []string{
				"understand", "for example", "because", "applies to",
				"compare", "distinguish", "in practice", "relates to",
				"explain", "depends on",
			},
			Struggling: []string{
				"don't understand", "confusing", "confused", "lost",
				"no idea", "too difficult", "makes no sense",
				"can you explain", "what does that mean", "give me a hint",
			},
			HighEngagement: []string{
				"curious", "interesting", "fascinating", "want to know",
				"tell me more", "what if", "what about", "makes me think",
				"now i see",
			},
			LowEngagement: []string{
				"whatever", "boring", "move on", "skip", "enough",
				"not interested", "just tell me", "stop",
			},
			Breakthrough: []string{
				"aha", "now i see", "it clicked", "finally understand",
				"that's why",
			},
			Connection: []string{
				"similar to", "just like", "reminds me of", "connects to",
				"same as",
			},
			Insight: []string{
				"i realize", "i see that", "so that means", "makes sense",
				"the key is", "this implies",
			},
		},
	}
}

// LoadLexicons reads language-keyed lexicons from a YAML file and merges
// them over the defaults, so a partial file only overrides what it names.
func LoadLexicons(path string) (Lexicons, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon file: %w", err)
	}

	var loaded Lexicons
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse lexicon file: %w", err)
	}

	merged := DefaultLexicons()
	for lang, lex := range loaded {
		merged[lang] = lex
	}
	return merged, nil
}

// ForLanguage returns the lexicon for a language, falling back to English.
func (l Lexicons) ForLanguage(lang string) Lexicon {
	if lex, ok := l[lang]; ok {
		return lex
	}
	return l[DefaultLanguage]
}

// countHits returns how many marker phrases occur in the text.
func countHits(text string, markers []string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, m := range markers {
		if strings.Contains(lower, strings.ToLower(m)) {
			hits++
		}
	}
	return hits
}

func anyHit(text string, markers []string) bool {
	return countHits(text, markers) > 0
}
