package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// UnknownAnswer is the label used when no answer pattern matches.
const UnknownAnswer = "Unknown"

// DefaultConfidence is the moderate fallback used when no confidence
// pattern matches. Model output frequently omits an explicit score.
const DefaultConfidence = 80

// AnswerRule attempts to extract an answer label from free-form text.
// Rules are evaluated in fixed priority order; the first match wins.
type AnswerRule interface {
	TryMatch(text string) (string, bool)
}

// ConfidenceRule attempts to extract a confidence percentage from free-form
// text. Rules are evaluated in fixed priority order; the first match wins.
type ConfidenceRule interface {
	TryMatch(text string) (int, bool)
}

// regexAnswerRule extracts a single option letter via a capture group
type regexAnswerRule struct {
	pattern *regexp.Regexp
}

func (r *regexAnswerRule) TryMatch(text string) (string, bool) {
	match := r.pattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return strings.ToUpper(match[1]), true
}

// regexConfidenceRule extracts a percentage via a capture group
type regexConfidenceRule struct {
	pattern *regexp.Regexp
}

func (r *regexConfidenceRule) TryMatch(text string) (int, bool) {
	match := r.pattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	value, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return value, true
}

// Extractor parses unstructured model output into a normalized answer label
// and confidence score. It is a total function: any input, including the
// empty string, produces a valid result.
type Extractor struct {
	answerRules     []AnswerRule
	confidenceRules []ConfidenceRule
}

// NewExtractor creates an extractor with the default priority-ordered rules
func NewExtractor() *Extractor {
	return &Extractor{
		answerRules: []AnswerRule{
			&regexAnswerRule{pattern: regexp.MustCompile(`(?i)answer[\s:]*\(?([A-D])\)?`)},
			&regexAnswerRule{pattern: regexp.MustCompile(`(?i)final[\s:]*\(?([A-D])\)?`)},
			&regexAnswerRule{pattern: regexp.MustCompile(`(?i)option[\s:]*\(?([A-D])\)?`)},
		},
		confidenceRules: []ConfidenceRule{
			&regexConfidenceRule{pattern: regexp.MustCompile(`(?i)confidence[\s:]*(\d+)%?`)},
			&regexConfidenceRule{pattern: regexp.MustCompile(`(?i)(\d+)%\s*confidence`)},
		},
	}
}

// Extract returns the answer label and confidence parsed from text.
// Unmatched answers yield UnknownAnswer; unmatched confidence yields
// DefaultConfidence. Confidence is clamped to [0, 100].
func (e *Extractor) Extract(text string) (string, int) {
	answer := UnknownAnswer
	for _, rule := range e.answerRules {
		if match, ok := rule.TryMatch(text); ok {
			answer = match
			break
		}
	}

	confidence := DefaultConfidence
	for _, rule := range e.confidenceRules {
		if match, ok := rule.TryMatch(text); ok {
			confidence = ClampConfidence(match)
			break
		}
	}

	return answer, confidence
}

// ClampConfidence clamps a confidence value to the [0, 100] range
func ClampConfidence(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
