package enums

import "fmt"

// PlanTier identifies the subscription tier a plan belongs to.
type PlanTier string

const (
	PlanTierFree     PlanTier = "free"
	PlanTierBasic    PlanTier = "basic"
	PlanTierStandard PlanTier = "standard"
	PlanTierPremium  PlanTier = "premium"
	PlanTierElite    PlanTier = "elite"
	PlanTierDivine   PlanTier = "divine"
)

var validPlanTiers = []PlanTier{
	PlanTierFree,
	PlanTierBasic,
	PlanTierStandard,
	PlanTierPremium,
	PlanTierElite,
	PlanTierDivine,
}

// String implements fmt.Stringer.
func (t PlanTier) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t PlanTier) IsValid() bool {
	for _, candidate := range validPlanTiers {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParsePlanTier converts raw input into a PlanTier.
func ParsePlanTier(value string) (PlanTier, error) {
	for _, candidate := range validPlanTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan tier %q", value)
}
