package core

// Attribute names the user-context field a condition inspects.
type Attribute string

const (
	AttributeUserID Attribute = "userId"
	AttributeRegion Attribute = "region"
	AttributePlan   Attribute = "plan"
)

type Operator string

const (
	OperatorEquals Operator = "equals"
	OperatorIn     Operator = "in"
)

// Condition is a single targeting predicate. Conditions within a rule are
// combined with AND semantics. Value comes from an untyped document tree:
// a string for equals, a string or a list of strings for in.
type Condition struct {
	Attribute Attribute `json:"attribute"`
	Operator  Operator  `json:"operator"`
	Value     any       `json:"value"`
}

// Rule grants its features to every context that matches all of its
// conditions.
type Rule struct {
	ID         string      `json:"id"`
	Conditions []Condition `json:"conditions"`
	Features   []string    `json:"features"`
}

// FeatureDefinition is one entry in the feature catalog, keyed by ID.
type FeatureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Configuration is a validated rule set. Instances are immutable once
// built; a reload constructs a new Configuration and swaps it wholesale.
type Configuration struct {
	SupportedPlans   []string            `json:"supportedPlans"`
	SupportedRegions []string            `json:"supportedRegions"`
	Features         []FeatureDefinition `json:"features"`
	Rules            []Rule              `json:"rules"`
}

// UserContext carries the per-request attributes rules are matched against.
type UserContext struct {
	UserID string `json:"userId"`
	Region string `json:"region"`
	Plan   string `json:"plan"`
}
