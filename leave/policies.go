/*
policies.go - Leave policy definitions and the built-in catalog

PURPOSE:
  A Policy captures the rules for one leave category: yearly allocation,
  monthly accrual rate, carry-over behavior, minimum notice, and the maximum
  consecutive span a single request may cover. The Catalog is a read-only
  lookup table over policies; an unknown type is not an error, it just means
  the request is unvalidated by policy and policy-specific checks are skipped.

POLICY INVARIANTS (checked by Policy.Validate):
  - CarryOverLimit <= YearlyAllocation
  - CarryOverLimit == 0 whenever CanCarryOver is false

SEE ALSO:
  - validator.go: Applies policy rules to candidate requests
  - store.go: Uses catalog defaults for degraded-mode balances
*/
package leave

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// POLICY - Rules for one leave category
// =============================================================================

type Policy struct {
	Type             Type
	YearlyAllocation int
	AccrualRate      decimal.Decimal // days accrued per month, zero for lump-sum types
	CanCarryOver     bool
	CarryOverLimit   int
	MinNotice        int // minimum days between submission and start date
	MaxConsecutive   int // maximum span length for a single request
}

// Validate checks the policy invariants.
func (p Policy) Validate() error {
	if p.Type == "" {
		return fmt.Errorf("policy missing leave type")
	}
	if p.YearlyAllocation < 0 {
		return fmt.Errorf("policy %s: negative yearly allocation", p.Type)
	}
	if p.CarryOverLimit > p.YearlyAllocation {
		return fmt.Errorf("policy %s: carry-over limit %d exceeds yearly allocation %d",
			p.Type, p.CarryOverLimit, p.YearlyAllocation)
	}
	if !p.CanCarryOver && p.CarryOverLimit != 0 {
		return fmt.Errorf("policy %s: carry-over limit set but carry-over disabled", p.Type)
	}
	return nil
}

// AccruedThrough returns the days accrued from the start of asOf's year
// through the end of asOf's month, capped at the yearly allocation. Lump-sum
// policies (zero accrual rate) grant the full allocation upfront.
func (p Policy) AccruedThrough(asOf time.Time) decimal.Decimal {
	allocation := decimal.NewFromInt(int64(p.YearlyAllocation))
	if p.AccrualRate.IsZero() {
		return allocation
	}
	months := decimal.NewFromInt(int64(asOf.Month()))
	accrued := p.AccrualRate.Mul(months)
	if accrued.GreaterThan(allocation) {
		return allocation
	}
	return accrued
}

// CarryOver returns the days transferable to the next year given the unused
// remainder at year end.
func (p Policy) CarryOver(remaining decimal.Decimal) decimal.Decimal {
	if !p.CanCarryOver || remaining.IsNegative() {
		return decimal.Zero
	}
	limit := decimal.NewFromInt(int64(p.CarryOverLimit))
	if remaining.GreaterThan(limit) {
		return limit
	}
	return remaining
}

// =============================================================================
// CATALOG - Read-only policy lookup
// =============================================================================

type Catalog struct {
	policies map[Type]Policy
}

// NewCatalog builds a catalog from the given policies, validating each.
func NewCatalog(policies ...Policy) (*Catalog, error) {
	m := make(map[Type]Policy, len(policies))
	for _, p := range policies {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := m[p.Type]; dup {
			return nil, fmt.Errorf("duplicate policy for type %s", p.Type)
		}
		m[p.Type] = p
	}
	return &Catalog{policies: m}, nil
}

// Lookup returns the policy for a leave type. ok is false for unknown types;
// callers skip policy-specific checks rather than failing.
func (c *Catalog) Lookup(t Type) (Policy, bool) {
	p, ok := c.policies[t]
	return p, ok
}

// Types returns the catalog's leave types in stable order.
func (c *Catalog) Types() []Type {
	out := make([]Type, 0, len(c.policies))
	for t := range c.policies {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultBalances returns a balance set seeded from policy allocations, with
// nothing used or pending. This is placeholder data for degraded mode only.
func (c *Catalog) DefaultBalances() BalanceSet {
	set := make(BalanceSet, len(c.policies))
	for t, p := range c.policies {
		set[t] = Balance{Allocated: decimal.NewFromInt(int64(p.YearlyAllocation))}
	}
	return set
}

// DefaultBalancesAsOf is DefaultBalances with accruing types limited to what
// has accrued through asOf's month.
func (c *Catalog) DefaultBalancesAsOf(asOf time.Time) BalanceSet {
	set := make(BalanceSet, len(c.policies))
	for t, p := range c.policies {
		set[t] = Balance{Allocated: p.AccruedThrough(asOf)}
	}
	return set
}

// =============================================================================
// BUILT-IN POLICIES
// =============================================================================

// DefaultCatalog returns the standard leave policy table.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		Policy{Type: TypeAnnual, YearlyAllocation: 20, AccrualRate: mustDecimal("1.67"),
			CanCarryOver: true, CarryOverLimit: 5, MinNotice: 7, MaxConsecutive: 30},
		Policy{Type: TypeSick, YearlyAllocation: 10, AccrualRate: mustDecimal("0.83"),
			MinNotice: 0, MaxConsecutive: 14},
		Policy{Type: TypePersonal, YearlyAllocation: 5,
			MinNotice: 2, MaxConsecutive: 5},
		Policy{Type: TypeMaternity, YearlyAllocation: 90,
			MinNotice: 30, MaxConsecutive: 90},
		Policy{Type: TypePaternity, YearlyAllocation: 14,
			MinNotice: 30, MaxConsecutive: 14},
		Policy{Type: TypeBereavement, YearlyAllocation: 5,
			MinNotice: 0, MaxConsecutive: 5},
		Policy{Type: TypeEmergency, YearlyAllocation: 3,
			MinNotice: 0, MaxConsecutive: 3},
	)
	if err != nil {
		panic(err) // built-in table must satisfy its own invariants
	}
	return c
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
