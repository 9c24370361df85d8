package pipeline

import (
	"strings"
	"unicode/utf8"

	"calibboard/internal/config"
	"calibboard/internal/util"
)

const (
	SubsystemSulfuricAcid  = "Sulfuric Acid"
	SubsystemEffluents     = "Effluents"
	SubsystemCompressedAir = "Compressed Air"
	SubsystemGeneral       = "General / Other"

	// DefaultPassthroughMinRunes is the shortest raw label kept verbatim when no
	// rule matches. Shorter labels are usually stray codes from a shifted column.
	DefaultPassthroughMinRunes = 3
)

// Rule assigns Subsystem when the uppercased label contains any Contains token
// or equals any Equals token. Tokens are uppercase.
type Rule struct {
	Subsystem string
	Contains  []string
	Equals    []string
}

func (r Rule) Matches(upper string) bool {
	return util.ContainsAny(upper, r.Contains) || util.EqualsAny(upper, r.Equals)
}

// DefaultRules are evaluated in order, first match wins. The compressed air
// rule only accepts CA next to a delimiter so that words like LOCAL or
// MECANICA stay out of it.
func DefaultRules() []Rule {
	return []Rule{
		{Subsystem: SubsystemSulfuricAcid, Contains: []string{"HSO", "SULFURICO", "ACIDO", "H2SO4"}},
		{Subsystem: SubsystemEffluents, Contains: []string{"WW", "EFLUENTE", "ESGOTO", "TRATAMENTO"}},
		{Subsystem: SubsystemCompressedAir, Contains: []string{"CA-", "-CA", " CAP ", "AR COMP", "COMPRIMIDO"}, Equals: []string{"CA", "CAP"}},
	}
}

// RulesFromSpecs converts mapping file rules, uppercasing their tokens.
func RulesFromSpecs(specs []config.RuleSpec) []Rule {
	out := make([]Rule, 0, len(specs))
	for _, s := range specs {
		out = append(out, Rule{
			Subsystem: strings.TrimSpace(s.Subsystem),
			Contains:  upperAll(s.Contains),
			Equals:    upperAll(s.Equals),
		})
	}
	return out
}

type Classifier struct {
	rules               []Rule
	passthroughMinRunes int
	fallback            string
}

type ClassifierOption func(*Classifier)

// WithExtraRules appends rules after the built-in ones and before the
// passthrough step.
func WithExtraRules(rules ...Rule) ClassifierOption {
	return func(c *Classifier) {
		c.rules = append(c.rules, rules...)
	}
}

func WithPassthroughMinRunes(n int) ClassifierOption {
	return func(c *Classifier) {
		if n > 0 {
			c.passthroughMinRunes = n
		}
	}
}

func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		rules:               DefaultRules(),
		passthroughMinRunes: DefaultPassthroughMinRunes,
		fallback:            SubsystemGeneral,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify maps a raw subsystem label to its canonical name. It never returns "".
func (c *Classifier) Classify(raw string) string {
	upper := strings.ToUpper(raw)
	for _, rule := range c.rules {
		if rule.Matches(upper) {
			return rule.Subsystem
		}
	}
	if strings.TrimSpace(raw) != "" && utf8.RuneCountInString(raw) >= c.passthroughMinRunes {
		return raw
	}
	return c.fallback
}

func upperAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}
