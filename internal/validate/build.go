package validate

import (
	"fmt"
	"strings"

	"github.com/lpoole/gatez/internal/core"
)

// Build validates a raw parsed document and, on success, narrows it to a
// typed core.Configuration. On failure the returned error wraps
// ErrInvalidDocument and joins every defect.
func Build(document any) (core.Configuration, error) {
	result := Validate(document)
	if !result.IsValid {
		return core.Configuration{}, fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(result.Errors, "; "))
	}

	// Validation guarantees the shape of everything below.
	doc := document.(map[string]any)

	return core.Configuration{
		SupportedPlans:   buildStringSlice(doc["supportedPlans"]),
		SupportedRegions: buildStringSlice(doc["supportedRegions"]),
		Features:         buildFeatures(doc["features"]),
		Rules:            buildRules(doc["rules"]),
	}, nil
}

func buildStringSlice(value any) []string {
	items := value.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.(string))
	}
	return out
}

func buildFeatures(value any) []core.FeatureDefinition {
	items := value.([]any)
	out := make([]core.FeatureDefinition, 0, len(items))
	for _, item := range items {
		feature := item.(map[string]any)
		definition := core.FeatureDefinition{
			ID:   feature["id"].(string),
			Name: feature["name"].(string),
		}
		if description, ok := feature["description"].(string); ok {
			definition.Description = description
		}
		out = append(out, definition)
	}
	return out
}

func buildRules(value any) []core.Rule {
	items := value.([]any)
	out := make([]core.Rule, 0, len(items))
	for _, item := range items {
		rule := item.(map[string]any)
		out = append(out, core.Rule{
			ID:         rule["id"].(string),
			Conditions: buildConditions(rule["conditions"]),
			Features:   buildStringSlice(rule["features"]),
		})
	}
	return out
}

func buildConditions(value any) []core.Condition {
	items := value.([]any)
	out := make([]core.Condition, 0, len(items))
	for _, item := range items {
		condition := item.(map[string]any)
		out = append(out, core.Condition{
			Attribute: core.Attribute(condition["attribute"].(string)),
			Operator:  core.Operator(condition["operator"].(string)),
			Value:     condition["value"],
		})
	}
	return out
}
