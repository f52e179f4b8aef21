/*
validator.go - Policy and shape validation for candidate requests

PURPOSE:
  Applies every rule independently and returns the full list of violations;
  no short-circuiting, so the caller can show all problems at once. Pure:
  no side effects, deterministic given the submission, the balance snapshot,
  and the injected clock.

RULE ORDER:
  1. Required fields (leave type, start date, end date, reason)
  2. Start date not after end date
  3. Start date not in the past (start of day, inclusive)
  4. When the type resolves to a known policy:
     a. Span within the policy's maximum consecutive days
     b. Notice period satisfied
     c. Requested days within the available balance (missing balance = 0)

  An unknown leave type skips step 4 entirely: the request is unvalidated by
  policy, not invalid.
*/
package leave

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Violation codes produced by the validator.
const (
	CodeRequiredField       = "required_field"
	CodeDateOrder           = "date_order"
	CodePastStart           = "past_start"
	CodeMaxConsecutive      = "max_consecutive"
	CodeMinNotice           = "min_notice"
	CodeInsufficientBalance = "insufficient_balance"
)

// Validator checks submissions against the policy catalog and a balance
// snapshot. Now is injectable for deterministic tests.
type Validator struct {
	Catalog *Catalog
	Now     func() time.Time
}

func NewValidator(catalog *Catalog) *Validator {
	return &Validator{Catalog: catalog, Now: time.Now}
}

// Validate returns every violated rule; an empty slice means valid.
func (v *Validator) Validate(sub Submission, balances BalanceSet) []Violation {
	var violations []Violation
	add := func(code, msg string) {
		violations = append(violations, Violation{Code: code, Message: msg})
	}

	if sub.Type == "" {
		add(CodeRequiredField, "Leave type is required")
	}
	if sub.StartDate.IsZero() {
		add(CodeRequiredField, "Start date is required")
	}
	if sub.EndDate.IsZero() {
		add(CodeRequiredField, "End date is required")
	}
	if sub.Reason == "" {
		add(CodeRequiredField, "Reason is required")
	}

	bothDates := !sub.StartDate.IsZero() && !sub.EndDate.IsZero()
	if bothDates && sub.EndDate.Before(sub.StartDate) {
		add(CodeDateOrder, "End date must be on or after start date")
	}

	today := StartOfDay(v.Now())
	if !sub.StartDate.IsZero() && StartOfDay(sub.StartDate).Before(today) {
		add(CodePastStart, "Start date cannot be in the past")
	}

	policy, known := v.Catalog.Lookup(sub.Type)
	if !known {
		return violations
	}

	days := CalculateDays(sub.StartDate, sub.EndDate)

	// The day count is only meaningful for an ordered, complete range.
	orderedRange := bothDates && !sub.EndDate.Before(sub.StartDate)

	if orderedRange && days > policy.MaxConsecutive {
		add(CodeMaxConsecutive, fmt.Sprintf(
			"Maximum %d consecutive days allowed for %s leave, requested %d",
			policy.MaxConsecutive, sub.Type, days))
	}

	if !sub.StartDate.IsZero() {
		if notice := DaysUntil(today, sub.StartDate); notice < policy.MinNotice {
			add(CodeMinNotice, fmt.Sprintf(
				"%s leave requires at least %d days notice, got %d",
				sub.Type, policy.MinNotice, notice))
		}
	}

	if orderedRange {
		available := balances.Available(sub.Type)
		if decimal.NewFromInt(int64(days)).GreaterThan(available) {
			add(CodeInsufficientBalance, fmt.Sprintf(
				"Insufficient %s leave balance. Available: %s days, Requested: %d days",
				sub.Type, available.String(), days))
		}
	}

	return violations
}
