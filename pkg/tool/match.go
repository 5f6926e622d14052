package tool

import (
	"regexp"
	"strings"
)

// Rule is one tagged match rule. Tools declare a fixed list of rules instead
// of open-ended dispatch; the registry evaluates tools in an explicit
// priority order so selection stays deterministic.
type Rule interface {
	Match(utterance string) (Args, bool)
}

// PrefixRule matches a case-insensitive token prefix and binds the remainder
// of the utterance to ArgKey. With AllowEmpty the bare prefix also matches.
type PrefixRule struct {
	Prefix     string
	ArgKey     string
	AllowEmpty bool
}

func (x PrefixRule) Match(utterance string) (Args, bool) {
	trimmed := strings.TrimSpace(utterance)
	lower := strings.ToLower(trimmed)
	prefix := strings.ToLower(x.Prefix)

	if lower == prefix {
		if !x.AllowEmpty {
			return nil, false
		}
		if x.ArgKey == "" {
			return Args{}, true
		}
		return Args{x.ArgKey: ""}, true
	}

	if !strings.HasPrefix(lower, prefix+" ") {
		return nil, false
	}

	rest := strings.TrimSpace(trimmed[len(prefix):])
	if x.ArgKey == "" {
		return Args{}, true
	}
	return Args{x.ArgKey: rest}, true
}

// RegexpRule matches a pattern and binds capture groups to Keys in order.
type RegexpRule struct {
	Pattern *regexp.Regexp
	Keys    []string
}

func (x RegexpRule) Match(utterance string) (Args, bool) {
	m := x.Pattern.FindStringSubmatch(strings.TrimSpace(utterance))
	if m == nil {
		return nil, false
	}

	args := Args{}
	for i, key := range x.Keys {
		if i+1 < len(m) {
			args[key] = strings.TrimSpace(m[i+1])
		}
	}
	return args, true
}

// MatchRules evaluates rules in order and returns the first hit.
func MatchRules(rules []Rule, utterance string) (Args, bool) {
	for _, rule := range rules {
		if args, ok := rule.Match(utterance); ok {
			return args, true
		}
	}
	return nil, false
}
