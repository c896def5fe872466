// Package admission decides whether an owner's plan allows another bot.
package admission

import (
	"fmt"
	"strings"
)

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

const DefaultFreeBotLimit = 3

// ParsePlan maps a caller supplied plan name onto a known plan. Unknown names are free.
func ParsePlan(s string) Plan {
	switch p := Plan(strings.ToLower(strings.TrimSpace(s))); p {
	case PlanPro, PlanEnterprise:
		return p
	}
	return PlanFree
}

type Policy struct {
	FreeBotLimit int
}

var DefaultPolicy = Policy{FreeBotLimit: DefaultFreeBotLimit}

// Limit returns the bot cap for plan; ok is false when the plan is unbounded.
func (p Policy) Limit(plan Plan) (limit int, ok bool) {
	switch plan {
	case PlanPro, PlanEnterprise:
		return 0, false
	}
	return p.FreeBotLimit, true
}

func (p Policy) CanCreate(plan Plan, currentBotCount int) bool {
	limit, bounded := p.Limit(plan)
	return !bounded || currentBotCount < limit
}

func CanCreate(plan Plan, currentBotCount int) bool {
	return DefaultPolicy.CanCreate(plan, currentBotCount)
}

// QuotaExceededError is returned when a plan's bot cap has been reached.
type QuotaExceededError struct {
	Plan  Plan
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s plan is limited to %d bots, upgrade to create more", e.Plan, e.Limit)
}

// Check returns a *QuotaExceededError when plan cannot take another bot.
func (p Policy) Check(plan Plan, currentBotCount int) error {
	if p.CanCreate(plan, currentBotCount) {
		return nil
	}
	limit, _ := p.Limit(plan)
	return &QuotaExceededError{Plan: plan, Limit: limit}
}
