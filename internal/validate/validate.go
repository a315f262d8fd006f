// Package validate narrows an untyped configuration document to a typed
// core.Configuration.
//
// Validate accepts any JSON- or YAML-decoded value and accumulates every
// detectable defect instead of stopping at the first, so a caller can fix
// a document in one pass. Malformed input is an expected outcome reported
// in the Result, never an error or a panic.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lpoole/gatez/internal/core"
)

// ErrInvalidDocument is wrapped by Build when the document fails
// validation.
var ErrInvalidDocument = errors.New("invalid configuration document")

// Result is the validator's verdict. IsValid is true exactly when Errors
// is empty.
type Result struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// Validate checks a raw parsed document against the configuration schema
// and its referential-integrity rules. Later sections are checked even
// when earlier ones are defective, using whatever partial information is
// available, so a single call surfaces the maximal diagnostic set.
func Validate(document any) Result {
	doc, ok := document.(map[string]any)
	if !ok || doc == nil {
		return Result{Errors: []string{"Configuration must be an object"}}
	}

	errs := make([]string, 0)
	errs = append(errs, validateStringList(doc["supportedPlans"], "supportedPlans")...)
	errs = append(errs, validateStringList(doc["supportedRegions"], "supportedRegions")...)

	featureIDs, featureErrs := validateFeatures(doc["features"])
	errs = append(errs, featureErrs...)

	plans := stringSet(doc["supportedPlans"])
	regions := stringSet(doc["supportedRegions"])
	errs = append(errs, validateRules(doc["rules"], plans, regions, featureIDs)...)

	return Result{IsValid: len(errs) == 0, Errors: errs}
}

func validateStringList(value any, field string) []string {
	items, ok := value.([]any)
	if !ok {
		return []string{field + " must be an array"}
	}
	if len(items) == 0 {
		return []string{field + " cannot be empty"}
	}
	for _, item := range items {
		if !isNonEmptyString(item) {
			return []string{field + " must contain only non-empty strings"}
		}
	}
	return nil
}

func validateFeatures(value any) (map[string]struct{}, []string) {
	ids := make(map[string]struct{})

	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return ids, []string{"features must be a non-empty array"}
	}

	var errs []string
	for i, item := range items {
		feature, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("features[%d] must be an object", i))
			continue
		}

		if id, ok := asNonEmptyString(feature["id"]); !ok {
			errs = append(errs, fmt.Sprintf("features[%d] must have a non-empty id", i))
		} else if _, dup := ids[id]; dup {
			errs = append(errs, "Duplicate feature id: "+id)
		} else {
			ids[id] = struct{}{}
		}

		if !isNonEmptyString(feature["name"]) {
			errs = append(errs, fmt.Sprintf("features[%d] must have a non-empty name", i))
		}

		if description, present := feature["description"]; present && !isNonEmptyString(description) {
			errs = append(errs, fmt.Sprintf("features[%d] description must be a non-empty string", i))
		}
	}

	return ids, errs
}

func validateRules(value any, plans, regions, featureIDs map[string]struct{}) []string {
	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return []string{"rules must be a non-empty array"}
	}

	var errs []string
	for i, item := range items {
		rule, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("rules[%d] must be an object", i))
			continue
		}

		label := ruleLabel(i, rule["id"])
		if !isNonEmptyString(rule["id"]) {
			errs = append(errs, label+" must have a non-empty id")
		}

		errs = append(errs, validateConditions(rule["conditions"], label, plans, regions)...)
		errs = append(errs, validateRuleFeatures(rule["features"], label, featureIDs)...)
	}

	return errs
}

func validateConditions(value any, label string, plans, regions map[string]struct{}) []string {
	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return []string{label + " conditions must be a non-empty array"}
	}

	var errs []string
	for j, item := range items {
		condition, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s conditions[%d] must be an object", label, j))
			continue
		}

		attribute, attrOK := condition["attribute"].(string)
		if !attrOK || !isAllowedAttribute(attribute) {
			errs = append(errs, fmt.Sprintf("%s conditions[%d] has invalid attribute: %v", label, j, condition["attribute"]))
		}

		operator, opOK := condition["operator"].(string)
		if !opOK || !isAllowedOperator(operator) {
			errs = append(errs, fmt.Sprintf("%s conditions[%d] has invalid operator: %v", label, j, condition["operator"]))
		}

		conditionValue, present := condition["value"]
		if !present || conditionValue == nil {
			errs = append(errs, fmt.Sprintf("%s conditions[%d] value must not be null", label, j))
			continue
		}

		// Referential integrity covers equals conditions only; in arrays
		// are accepted as-is and resolved at evaluation time.
		if !attrOK || !opOK || operator != string(core.OperatorEquals) {
			continue
		}
		stringValue, isString := conditionValue.(string)
		switch core.Attribute(attribute) {
		case core.AttributePlan:
			if !isString || !member(plans, stringValue) {
				errs = append(errs, fmt.Sprintf("%s references undefined plan: %v", label, conditionValue))
			}
		case core.AttributeRegion:
			if !isString || !member(regions, stringValue) {
				errs = append(errs, fmt.Sprintf("%s references undefined region: %v", label, conditionValue))
			}
		}
	}

	return errs
}

func validateRuleFeatures(value any, label string, featureIDs map[string]struct{}) []string {
	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return []string{label + " features must be a non-empty array of non-empty strings"}
	}

	var errs []string
	badElement := false
	for _, item := range items {
		feature, ok := asNonEmptyString(item)
		if !ok {
			if !badElement {
				errs = append(errs, label+" features must be a non-empty array of non-empty strings")
				badElement = true
			}
			continue
		}
		if _, exists := featureIDs[feature]; !exists {
			errs = append(errs, label+" references undefined feature: "+feature)
		}
	}

	return errs
}

func ruleLabel(index int, id any) string {
	if ruleID, ok := asNonEmptyString(id); ok {
		return fmt.Sprintf("rule %q", ruleID)
	}
	return fmt.Sprintf("rules[%d]", index)
}

func isAllowedAttribute(attribute string) bool {
	switch core.Attribute(attribute) {
	case core.AttributeUserID, core.AttributeRegion, core.AttributePlan:
		return true
	default:
		return false
	}
}

func isAllowedOperator(operator string) bool {
	switch core.Operator(operator) {
	case core.OperatorEquals, core.OperatorIn:
		return true
	default:
		return false
	}
}

func asNonEmptyString(value any) (string, bool) {
	s, ok := value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func isNonEmptyString(value any) bool {
	_, ok := asNonEmptyString(value)
	return ok
}

// stringSet collects the string elements of an untyped list, ignoring
// everything else. Defective lists yield a partial (possibly empty) set so
// referential checks can still run.
func stringSet(value any) map[string]struct{} {
	set := make(map[string]struct{})
	items, ok := value.([]any)
	if !ok {
		return set
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			set[s] = struct{}{}
		}
	}
	return set
}

func member(set map[string]struct{}, value string) bool {
	_, ok := set[value]
	return ok
}
