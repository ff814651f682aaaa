package eligibility

import (
	"fmt"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// BENEFIT RULE TABLE
// =============================================================================

// BenefitRule is the static record for one benefit kind. The validator body
// is the same for every kind; only this record differs.
type BenefitRule struct {
	Kind        generic.BenefitKind
	Name        string
	Description string

	// MaxDays caps a single request; nil means no cap.
	MaxDays *int
	// MaxDaysByCategory overrides MaxDays for a staff category.
	MaxDaysByCategory map[generic.Category]int
	// Cumulative rules also cap the yearly total at the same value.
	Cumulative bool

	Documents    []string
	Requirements []string
}

// MaxFor returns the cap applying to an employee category.
func (r BenefitRule) MaxFor(category generic.Category) *int {
	if v, ok := r.MaxDaysByCategory[category]; ok {
		return &v
	}
	if r.MaxDays == nil {
		return nil
	}
	v := *r.MaxDays
	return &v
}

// Catalog is an ordered, indexed set of rules.
type Catalog struct {
	rules  []BenefitRule
	byKind map[generic.BenefitKind]int
}

// NewCatalog indexes rules. Each kind may appear once.
func NewCatalog(rules []BenefitRule) (*Catalog, error) {
	c := &Catalog{byKind: make(map[generic.BenefitKind]int, len(rules))}
	for _, r := range rules {
		if _, err := generic.ParseBenefitKind(string(r.Kind)); err != nil {
			return nil, fmt.Errorf("%w: %v", generic.ErrInvalidConfig, err)
		}
		if _, dup := c.byKind[r.Kind]; dup {
			return nil, fmt.Errorf("%w: benefit %q defined twice", generic.ErrInvalidConfig, r.Kind)
		}
		if r.MaxDays != nil && *r.MaxDays < 0 {
			return nil, fmt.Errorf("%w: benefit %q has a negative cap", generic.ErrInvalidConfig, r.Kind)
		}
		if r.Cumulative && r.MaxDays == nil && len(r.MaxDaysByCategory) == 0 {
			return nil, fmt.Errorf("%w: cumulative benefit %q needs a cap", generic.ErrInvalidConfig, r.Kind)
		}
		c.byKind[r.Kind] = len(c.rules)
		c.rules = append(c.rules, r)
	}
	return c, nil
}

func (c *Catalog) Rule(kind generic.BenefitKind) (BenefitRule, bool) {
	i, ok := c.byKind[kind]
	if !ok {
		return BenefitRule{}, false
	}
	return c.rules[i], true
}

func (c *Catalog) Rules() []BenefitRule {
	return append([]BenefitRule(nil), c.rules...)
}

func intPtr(v int) *int { return &v }

const tenureRequirement = "Minimum tenure of 6 months and 1 day"

// DefaultBenefitRules is the institutional benefit catalog.
func DefaultBenefitRules() []BenefitRule {
	return []BenefitRule{
		{
			Kind:         generic.BenefitMedicalLeave,
			Name:         "Medical Leave",
			Description:  "Sick leave backed by an official medical opinion",
			Documents:    []string{"Official medical opinion"},
			Requirements: []string{tenureRequirement},
		},
		{
			Kind:        generic.BenefitMaternalCare,
			Name:        "Maternal/Paternal Care",
			Description: "Care of children up to 8 years 11 months old",
			MaxDays:     intPtr(7),
			Cumulative:  true,
			Documents:   []string{"Official medical opinion", "Child's birth certificate", "Health insurance card"},
			Requirements: []string{
				tenureRequirement,
				"Children up to 8 years 11 months old",
				"At most 7 business days per calendar year",
			},
		},
		{
			Kind:        generic.BenefitFamilyMedicalCare,
			Name:        "Family Medical Care",
			Description: "Care of a spouse, parent or financially dependent child",
			MaxDays:     intPtr(14),
			MaxDaysByCategory: map[generic.Category]int{
				generic.CategoryTeaching: 14,
				generic.CategorySupport:  12,
			},
			Cumulative: true,
			Documents:  []string{"Official medical opinion", "Proof of kinship"},
			Requirements: []string{
				tenureRequirement,
				"Support staff: at most 12 business days per year",
				"Teaching staff: at most 14 business days per year",
			},
		},
		{
			Kind:        generic.BenefitBereavement,
			Name:        "Bereavement Leave",
			Description: "Death of a child, spouse, parent or sibling",
			MaxDays:     intPtr(6),
			MaxDaysByCategory: map[generic.Category]int{
				generic.CategoryTeaching: 6,
				generic.CategorySupport:  5,
			},
			Documents: []string{"Death certificate"},
			Requirements: []string{
				"Relative: child, spouse, parent or sibling",
				"Support staff: up to 5 business days",
				"Teaching staff: up to 6 business days",
			},
		},
		{
			Kind:        generic.BenefitToleranceHalfHour,
			Name:        "Half-Hour Tolerance",
			Description: "For parents of children in nursery, preschool or primary school",
			Documents:   []string{"Proof of enrolment", "Child's birth certificate", "Enrolment receipt"},
			Requirements: []string{
				"Commute difference over 10 minutes",
				"School start time equals work start time",
				"Suspended during vacations and school recess",
			},
		},
		{
			Kind:         generic.BenefitMarriage,
			Name:         "Marriage Leave",
			Description:  "5 paid business days",
			MaxDays:      intPtr(5),
			Documents:    []string{"Marriage certificate"},
			Requirements: []string{tenureRequirement},
		},
		{
			Kind:         generic.BenefitPaternity,
			Name:         "Paternity Leave",
			Description:  "6 paid days for birth or adoption",
			MaxDays:      intPtr(6),
			Documents:    []string{"Proof of cohabitation or childbirth", "Birth or adoption certificate"},
			Requirements: []string{tenureRequirement},
		},
	}
}
