package core

import (
	"sort"
	"testing"
)

func FuzzEvaluateRules(f *testing.F) {
	f.Add("u1", "US", "Pro", "feature-a", uint8(0))
	f.Add("", "EU", "Basic", "", uint8(1))
	f.Add("user", "region", "plan", "feature", uint8(7))

	f.Fuzz(func(t *testing.T, userID, region, plan, feature string, selector uint8) {
		operator := OperatorEquals
		if selector%2 == 0 {
			operator = OperatorIn
		}
		if selector%5 == 0 {
			operator = Operator("unknown")
		}

		attribute := AttributePlan
		switch selector % 3 {
		case 1:
			attribute = AttributeRegion
		case 2:
			attribute = AttributeUserID
		}

		value := any(plan)
		if selector%4 == 0 {
			value = []any{plan, region, userID}
		}

		engine := NewEngine()
		engine.SetConfiguration(&Configuration{
			SupportedPlans:   []string{plan},
			SupportedRegions: []string{region},
			Rules: []Rule{
				{ID: "fuzz", Conditions: []Condition{{Attribute: attribute, Operator: operator, Value: value}}, Features: []string{feature, feature}},
			},
		})

		features, err := engine.EvaluateRules(UserContext{UserID: userID, Region: region, Plan: plan})
		if err != nil {
			t.Fatalf("EvaluateRules() error = %v for configured engine", err)
		}
		if !sort.StringsAreSorted(features) {
			t.Fatalf("EvaluateRules() = %v, want sorted", features)
		}
		for i := 1; i < len(features); i++ {
			if features[i] == features[i-1] {
				t.Fatalf("EvaluateRules() = %v, want unique elements", features)
			}
		}
	})
}
