package filter

import (
	"strings"
	"unicode"

	"github.com/codequeen-tgbot-go/internal/config"
	"github.com/sirupsen/logrus"
)

// Rejection reasons returned by Filter.Check.
const (
	ReasonBadWords   = "contains blocked words"
	ReasonCharRun    = "repeated character spam"
	ReasonUppercase  = "excessive uppercase"
	ReasonWordRepeat = "excessive word repetition"
)

// Filter decides whether inbound text is acceptable content. It is
// stateless: thresholds and the denylist are fixed at construction.
type Filter struct {
	badWords       []string
	charRunLimit   int
	uppercaseRatio float64
	wordRepeatMax  int
	logger         *logrus.Logger
}

// NewFilter creates a content filter from configuration.
func NewFilter(cfg *config.FilterConfig, logger *logrus.Logger) *Filter {
	badWords := make([]string, 0, len(cfg.BadWords))
	for _, w := range cfg.BadWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			badWords = append(badWords, w)
		}
	}

	return &Filter{
		badWords:       badWords,
		charRunLimit:   cfg.CharRunLimit,
		uppercaseRatio: cfg.UppercaseRatio,
		wordRepeatMax:  cfg.WordRepeatMax,
		logger:         logger,
	}
}

// Check reports whether text is acceptable, with a reason when it is not.
// Any single failing heuristic rejects the message.
func (f *Filter) Check(text string) (bool, string) {
	if text == "" {
		return true, ""
	}

	lower := strings.ToLower(text)

	for _, bad := range f.badWords {
		if strings.Contains(lower, bad) {
			f.logger.WithField("word", bad).Warn("Blocked word detected")
			return false, ReasonBadWords
		}
	}

	if hasCharRun(text, f.charRunLimit) {
		return false, ReasonCharRun
	}

	if f.tooManyCaps(text) {
		return false, ReasonUppercase
	}

	if f.tooManyRepeats(lower) {
		return false, ReasonWordRepeat
	}

	return true, ""
}

// tooManyCaps flags text where uppercase letters dominate. Very short
// messages are exempt so "OK" and the like pass.
func (f *Filter) tooManyCaps(text string) bool {
	const minLen = 10

	runes := []rune(text)
	if len(runes) < minLen {
		return false
	}

	upper := 0
	for _, r := range runes {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) > float64(len(runes))*f.uppercaseRatio
}

// tooManyRepeats flags a single word occurring more than the configured
// count among the first 10 tokens.
func (f *Filter) tooManyRepeats(lower string) bool {
	words := strings.Fields(lower)
	if len(words) > 10 {
		words = words[:10]
	}
	for _, word := range words {
		if strings.Count(lower, word) > f.wordRepeatMax {
			return true
		}
	}
	return false
}

// hasCharRun reports a run of limit or more identical consecutive runes.
func hasCharRun(text string, limit int) bool {
	if limit <= 0 {
		return false
	}

	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run >= limit {
			return true
		}
	}
	return false
}

// Validator checks format validity of inbound text, as opposed to content
// acceptability. Both must pass before text reaches the pipeline.
type Validator struct {
	maxLen       int
	charRunLimit int
}

// NewValidator creates an input validator from configuration.
func NewValidator(cfg *config.FilterConfig) *Validator {
	return &Validator{
		maxLen:       cfg.MaxMessageLen,
		charRunLimit: cfg.CharRunLimit,
	}
}

// Validation failure reasons.
const (
	ReasonEmpty   = "empty message"
	ReasonTooLong = "message too long"
	ReasonSpam    = "repeated character spam"
)

// Validate reports whether text is a well-formed message.
func (v *Validator) Validate(text string) (bool, string) {
	if strings.TrimSpace(text) == "" {
		return false, ReasonEmpty
	}
	if len([]rune(text)) > v.maxLen {
		return false, ReasonTooLong
	}
	if hasCharRun(text, v.charRunLimit) {
		return false, ReasonSpam
	}
	return true, "OK"
}

// Sanitize trims the text, collapses whitespace runs to single spaces and
// truncates to the configured maximum length. Idempotent.
func (v *Validator) Sanitize(text string) string {
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > v.maxLen {
		text = string(runes[:v.maxLen]) + "..."
	}
	return text
}
