package conversation

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/logger"
)

// Rule names reported by Navigator.Match.
const (
	RuleNth      = "nth"
	RuleNext     = "next"
	RulePrevious = "previous"
	RuleCurrent  = "current"
	RuleUnknown  = "unknown"
)

var (
	nextKeywords     = newKeywordSet("next", "proceed", "move", "advance")
	previousKeywords = newKeywordSet("previous", "go back", "return", "back to", "last", "prior")
	currentKeywords  = newKeywordSet("repeat", "redo", "again", "once more", "do over")

	// jumpPattern is "go to ... step", "take me to the ... instruction", etc.
	jumpPattern = regexp.MustCompile(`(?i)\b(?:go|navigate|move|proceed|take\s+me)\s+to\b.*\b(?:step|instruction)s?\b`)

	// tokenPattern splits an utterance into words (keeping hyphenated
	// compounds like "twenty-first" whole) and digit runs.
	tokenPattern = regexp.MustCompile(`[a-z]+(?:-[a-z]+)*|\d+`)

	digitsPattern = regexp.MustCompile(`\d+`)
)

type navRule struct {
	name  string
	match func(string) bool
	nav   domain.NavigationType
}

// Navigator detects which step move a navigation utterance asks for.
type Navigator struct {
	log   *logger.Logger
	rules []navRule
}

// NewNavigator creates a navigation resolver.
func NewNavigator(log *logger.Logger) *Navigator {
	return &Navigator{
		log: log,
		rules: []navRule{
			// Nth runs before Previous so "go to the last step" is a jump,
			// not a step back.
			{RuleNth, isStepJump, domain.NavNth},
			{RuleNext, nextKeywords.match, domain.NavNext},
			{RulePrevious, previousKeywords.match, domain.NavPrevious},
			{RuleCurrent, currentKeywords.match, domain.NavCurrent},
		},
	}
}

// Detect returns the navigation type of the utterance.
func (n *Navigator) Detect(utterance string) domain.NavigationType {
	nav, _ := n.Match(utterance)
	return nav
}

// Match returns the navigation type and the name of the rule that produced it.
func (n *Navigator) Match(utterance string) (domain.NavigationType, string) {
	for _, rule := range n.rules {
		if rule.match(utterance) {
			n.log.Debug("navigation %q -> %s", utterance, rule.nav)
			return rule.nav, rule.name
		}
	}
	n.log.Debug("navigation %q -> unknown", utterance)
	return domain.NavUnknown, RuleUnknown
}

// isStepJump reports whether the utterance asks for a specific step: either
// a jump phrase naming a target, or a literal "step <digits>".
func isStepJump(utterance string) bool {
	if stepJumpPattern.MatchString(utterance) {
		return true
	}
	if !jumpPattern.MatchString(utterance) {
		return false
	}
	for _, tok := range tokenize(utterance) {
		if tok == "first" || tok == "last" || isDigits(tok) || ordinalValue(tok) > 0 {
			return true
		}
	}
	return false
}

// StepNumber extracts the 1-based step an Nth request targets. "first" is 1,
// "last" is total, otherwise the first digit run or ordinal word wins. The
// second result is false when the utterance names no step; callers must not
// treat that as step 0.
func StepNumber(utterance string, total int) (int, bool) {
	toks := tokenize(utterance)
	for _, tok := range toks {
		if tok == "first" {
			return 1, true
		}
	}
	for _, tok := range toks {
		if tok == "last" {
			return total, true
		}
	}
	if d := digitsPattern.FindString(utterance); d != "" {
		n, err := strconv.Atoi(d)
		if err == nil {
			return n, true
		}
		// Too many digits for an int; saturate so it is out of range.
		return math.MaxInt, true
	}
	for _, tok := range toks {
		if v := ordinalValue(tok); v > 0 {
			return v, true
		}
	}
	return 0, false
}

// StepLabel renders the step number n that utterance asked for. A digit
// run too long for an int is echoed as typed.
func StepLabel(utterance string, n int) string {
	if n == math.MaxInt {
		if d := digitsPattern.FindString(utterance); d != "" {
			return d
		}
	}
	return strconv.Itoa(n)
}

func tokenize(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
