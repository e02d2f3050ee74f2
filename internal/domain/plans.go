package domain

// Billing cycles accepted by the payment provider for platform subscriptions.
const (
	CycleMonthly   = "MONTHLY"
	CycleQuarterly = "QUARTERLY"
	CycleYearly    = "YEARLY"
)

// Plan represents a platform plan a store owner subscribes to.
type Plan struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MaxStores   int    `json:"maxStores"`
	Monthly     int64  `json:"monthly"`   // BRL cents
	Quarterly   int64  `json:"quarterly"` // BRL cents
	Yearly      int64  `json:"yearly"`    // BRL cents
	AdsInsights bool   `json:"adsInsights"`
	Popular     bool   `json:"popular"`
}

// PriceFor returns the plan price in cents for a billing cycle, or 0 for an unknown cycle.
func (p Plan) PriceFor(cycle string) int64 {
	switch cycle {
	case CycleMonthly:
		return p.Monthly
	case CycleQuarterly:
		return p.Quarterly
	case CycleYearly:
		return p.Yearly
	default:
		return 0
	}
}

// AvailablePlans returns all available plans.
func AvailablePlans() []Plan {
	return []Plan{
		{
			ID:        "essencial",
			Name:      "Essencial",
			MaxStores: 1,
			Monthly:   19700,
			Quarterly: 53100,
			Yearly:    197000,
		},
		{
			ID:          "growth",
			Name:        "Growth",
			MaxStores:   3,
			Monthly:     39700,
			Quarterly:   107100,
			Yearly:      397000,
			AdsInsights: true,
			Popular:     true,
		},
		{
			ID:          "agency",
			Name:        "Agency",
			MaxStores:   10,
			Monthly:     89700,
			Quarterly:   242100,
			Yearly:      897000,
			AdsInsights: true,
		},
	}
}

// FindPlan returns the plan with the given ID.
func FindPlan(id string) (Plan, bool) {
	for _, p := range AvailablePlans() {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
