package scoring

import (
	"context"
	"fmt"

	"github.com/okian/myplaces/internal/domain/model"
)

// Environment classes as reported by the sensing layer.
const (
	EnvironmentUrban        = 0
	EnvironmentIntermediate = 1
	EnvironmentRural        = 2
)

// Rule maps matching theme vectors to a label.
type Rule struct {
	Label string
	Match func(v model.ThemeVector) bool
}

func weekday(v model.ThemeVector) bool { return v.Weekday < 5 }

func between(v model.ThemeVector, from, to float64) bool {
	return v.Hour >= from && v.Hour <= to
}

// DefaultRules is the rule set used by NewRuleClassifier when none is given.
// First match wins.
var DefaultRules = []Rule{
	{Label: model.ThemePublicTransport, Match: func(v model.ThemeVector) bool {
		return weekday(v) && (between(v, 7, 8) || between(v, 17, 18)) && v.Environment != EnvironmentRural
	}},
	{Label: model.ThemeFood, Match: func(v model.ThemeVector) bool {
		return between(v, 11, 13) || between(v, 19, 21)
	}},
	{Label: model.ThemeOutdoor, Match: func(v model.ThemeVector) bool {
		return v.Environment == EnvironmentRural && between(v, 8, 19)
	}},
	{Label: model.ThemeShopping, Match: func(v model.ThemeVector) bool {
		return v.Weekday == 5 && between(v, 9, 18)
	}},
	{Label: model.ThemeCulture, Match: func(v model.ThemeVector) bool {
		return between(v, 14, 18) && v.Environment == EnvironmentUrban
	}},
}

// RuleClassifier classifies with an ordered rule list and falls back to
// explore.
type RuleClassifier struct {
	rules []Rule
}

// NewRuleClassifier creates a classifier over rules, or DefaultRules when
// none are given.
func NewRuleClassifier(rules ...Rule) *RuleClassifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &RuleClassifier{rules: rules}
}

// Classify returns the label of the first matching rule.
func (c *RuleClassifier) Classify(ctx context.Context, v model.ThemeVector) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}
	for _, r := range c.rules {
		if r.Match(v) {
			return r.Label, nil
		}
	}
	return model.ThemeExplore, nil
}
