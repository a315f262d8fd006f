// Package core holds the rule-evaluation engine and its data contracts.
//
// The engine is pure computation over an in-memory Configuration: no I/O,
// no clock, no iteration-order dependence in its results. It assumes its
// input already passed validation and does not re-check the configuration
// or the user context.
package core

import (
	"errors"
	"sort"
	"strings"
	"sync/atomic"
)

// ErrNotConfigured is returned when EvaluateRules is called before any
// configuration has been set. It signals a bootstrap-order bug in the
// caller, not bad user input.
var ErrNotConfigured = errors.New("configuration not loaded")

// Engine computes the enabled-feature set for a user context. It has two
// states: unconfigured (fresh) and configured (after SetConfiguration).
// Configuration replacement is an atomic pointer swap, so an in-flight
// evaluation observes either the old or the new rule set in its entirety.
type Engine struct {
	config atomic.Pointer[Configuration]
}

func NewEngine() *Engine {
	return &Engine{}
}

// SetConfiguration arms the engine with a validated rule set, replacing
// any previously active one. The engine holds the configuration by
// reference and never mutates it.
func (e *Engine) SetConfiguration(config *Configuration) {
	e.config.Store(config)
}

// Configuration returns the active rule set, or nil if the engine has not
// been configured yet.
func (e *Engine) Configuration() *Configuration {
	return e.config.Load()
}

// EvaluateRules returns the sorted, deduplicated union of the features
// granted by every rule whose conditions all match the context. An empty
// slice is a successful result, not an error.
func (e *Engine) EvaluateRules(context UserContext) ([]string, error) {
	config := e.config.Load()
	if config == nil {
		return nil, ErrNotConfigured
	}

	enabled := make(map[string]struct{})
	for _, rule := range config.Rules {
		if !ruleMatches(rule, context) {
			continue
		}
		for _, feature := range rule.Features {
			enabled[feature] = struct{}{}
		}
	}

	features := make([]string, 0, len(enabled))
	for feature := range enabled {
		features = append(features, feature)
	}
	sort.Strings(features)

	return features, nil
}

func ruleMatches(rule Rule, context UserContext) bool {
	for _, condition := range rule.Conditions {
		if !conditionMatches(condition, context) {
			return false
		}
	}
	return true
}

func conditionMatches(condition Condition, context UserContext) bool {
	attribute, ok := attributeValue(condition.Attribute, context)
	if !ok {
		return false
	}

	switch condition.Operator {
	case OperatorEquals:
		return valueEquals(attribute, condition.Value)
	case OperatorIn:
		return valueIn(attribute, condition.Value)
	default:
		// Unrecognised operators never match; the engine does not fail.
		return false
	}
}

func attributeValue(attribute Attribute, context UserContext) (string, bool) {
	switch attribute {
	case AttributeUserID:
		return context.UserID, true
	case AttributeRegion:
		return context.Region, true
	case AttributePlan:
		return context.Plan, true
	default:
		return "", false
	}
}

func valueEquals(attribute string, conditionValue any) bool {
	value, ok := conditionValue.(string)
	return ok && attribute == value
}

// valueIn treats a bare string as a single-element match, equivalent to
// equals. List elements that are not strings never match.
func valueIn(attribute string, conditionValue any) bool {
	switch values := conditionValue.(type) {
	case string:
		return attribute == values
	case []string:
		for _, value := range values {
			if attribute == value {
				return true
			}
		}
	case []any:
		for _, value := range values {
			if valueEquals(attribute, value) {
				return true
			}
		}
	}
	return false
}

// ValidateContext checks a user context against the supported values of a
// configuration. It returns an empty string when the context is valid, or
// a human-readable reason otherwise. Callers run this before EvaluateRules;
// the engine itself never re-validates.
func ValidateContext(config *Configuration, context *UserContext) string {
	if context == nil {
		return "Missing or null user context"
	}
	if strings.TrimSpace(context.UserID) == "" {
		return "Invalid or empty userId"
	}
	if !containsString(config.SupportedRegions, context.Region) {
		return "Unsupported region"
	}
	if !containsString(config.SupportedPlans, context.Plan) {
		return "Unsupported plan"
	}
	return ""
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
