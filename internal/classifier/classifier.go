package classifier

import (
	"sort"
	"strings"
	"unicode"
)

type Classifier interface {
	ClassifyContent(content string) []string
}

type SimpleClassifier struct {
	maxTags    int
	categories map[string][]string
}

// DefaultCategories maps a topic tag to the words that imply it.
var DefaultCategories = map[string][]string{
	"tech":         {"ai", "automation", "software", "code", "startup", "data"},
	"productivity": {"productivity", "workflow", "focus", "habit", "tools"},
	"marketing":    {"brand", "growth", "audience", "campaign", "engagement"},
	"lifestyle":    {"travel", "food", "fitness", "music", "weekend"},
	"finance":      {"money", "invest", "market", "budget", "crypto"},
}

func NewSimpleClassifier(maxTags int) *SimpleClassifier {
	return &SimpleClassifier{
		maxTags:    maxTags,
		categories: DefaultCategories,
	}
}

// ClassifyContent extracts hashtags and topic categories from content.
// Tags are lower case and sorted so results are stable.
func (c *SimpleClassifier) ClassifyContent(content string) []string {
	tags := make(map[string]struct{})

	// Extract hashtags
	for _, word := range strings.Fields(content) {
		if strings.HasPrefix(word, "#") {
			tag := strings.ToLower(strings.Trim(strings.TrimPrefix(word, "#"), ".,!?;:"))
			if tag != "" {
				tags[tag] = struct{}{}
			}
		}
	}

	text := wordText(content)
	for category, keywords := range c.categories {
		for _, keyword := range keywords {
			if containsPhrase(text, keyword) {
				tags[category] = struct{}{}
				break
			}
		}
	}

	result := make([]string, 0, len(tags))
	for tag := range tags {
		result = append(result, tag)
	}
	sort.Strings(result)

	if c.maxTags > 0 && len(result) > c.maxTags {
		result = result[:c.maxTags]
	}
	return result
}

// wordText lower-cases content and reduces it to space separated words, padded with a
// space on each side so phrases can be matched on word boundaries.
func wordText(content string) string {
	words := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(words, " ") + " "
}

func containsPhrase(text, phrase string) bool {
	p := wordText(phrase)
	return p != "  " && strings.Contains(text, p)
}

// Score counts how many of keywords show up in content, either as a tag or as whole words.
func Score(c Classifier, content string, keywords []string) int {
	tags := make(map[string]struct{})
	for _, t := range c.ClassifyContent(content) {
		tags[t] = struct{}{}
	}

	text := wordText(content)
	score := 0
	for _, k := range keywords {
		if _, ok := tags[strings.ToLower(k)]; ok {
			score++
		} else if containsPhrase(text, k) {
			score++
		}
	}
	return score
}
