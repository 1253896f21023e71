// Package conversation interprets free-text utterances: it classifies the
// intent category, resolves navigation requests to step moves, and rewrites
// vague references ("cook this") into the concrete subject of the active step.
//
// Everything here is rule-based. Rule order is data: each resolver holds an
// ordered slice of rules and the first rule that matches wins.
package conversation

import (
	"regexp"
	"strings"

	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/logger"
)

// Rule names reported by Classifier.Match.
const (
	RuleNavigationKeyword = "navigation-keyword"
	RuleStepJump          = "step-jump"
	RuleStepKeyword       = "step-keyword"
	RuleGeneralKeyword    = "general-keyword"
	RuleDefault           = "default"
)

var (
	navigationKeywords = newKeywordSet("go", "proceed", "take me", "move", "navigate", "next", "previous", "repeat", "again")
	stepKeywords       = newKeywordSet("step", "long", "time")
	generalKeywords    = newKeywordSet("how to", "how do", "what is", "steps")

	// stepJumpPattern is an explicit "step 5" reference.
	stepJumpPattern = regexp.MustCompile(`(?i)\bstep\s+\d+\b`)
)

type classifyRule struct {
	name     string
	match    func(string) bool
	category domain.IntentCategory
}

// Classifier maps an utterance to an intent category.
type Classifier struct {
	log   *logger.Logger
	rules []classifyRule
}

// NewClassifier creates a keyword-based intent classifier.
func NewClassifier(log *logger.Logger) *Classifier {
	return &Classifier{
		log: log,
		rules: []classifyRule{
			// Navigation short-circuits: "go to step 5" also carries step tokens.
			{RuleNavigationKeyword, navigationKeywords.match, domain.IntentNavigation},
			{RuleStepJump, stepJumpPattern.MatchString, domain.IntentNavigation},
			{RuleStepKeyword, stepKeywords.match, domain.IntentStep},
			{RuleGeneralKeyword, generalKeywords.match, domain.IntentGeneral},
		},
	}
}

// Classify returns the intent category of the utterance. Utterances that
// match no rule are General.
func (c *Classifier) Classify(utterance string) domain.IntentCategory {
	category, _ := c.Match(utterance)
	return category
}

// Match returns the category and the name of the rule that produced it.
func (c *Classifier) Match(utterance string) (domain.IntentCategory, string) {
	trimmed := strings.TrimSpace(utterance)
	for _, rule := range c.rules {
		if rule.match(trimmed) {
			c.log.Debug("classified %q as %s (rule=%s)", trimmed, rule.category, rule.name)
			return rule.category, rule.name
		}
	}
	c.log.Debug("classified %q as %s (no rule matched)", trimmed, domain.IntentGeneral)
	return domain.IntentGeneral, RuleDefault
}
