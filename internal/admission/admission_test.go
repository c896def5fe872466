package admission

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanCreate(t *testing.T) {
	assert := assert.New(t)

	assert.True(CanCreate(PlanFree, 0))
	assert.True(CanCreate(PlanFree, 2))
	assert.False(CanCreate(PlanFree, 3))
	assert.False(CanCreate(PlanFree, 7))

	for _, p := range []Plan{PlanPro, PlanEnterprise} {
		assert.True(CanCreate(p, 3))
		assert.True(CanCreate(p, 10000))
	}
}

func TestParsePlan(t *testing.T) {
	assert.Equal(t, PlanPro, ParsePlan(" Pro "))
	assert.Equal(t, PlanEnterprise, ParsePlan("enterprise"))
	assert.Equal(t, PlanFree, ParsePlan(""))
	assert.Equal(t, PlanFree, ParsePlan("platinum"))
}

func TestPolicyCheck(t *testing.T) {
	p := Policy{FreeBotLimit: 1}
	assert.NoError(t, p.Check(PlanFree, 0))

	err := p.Check(PlanFree, 1)
	var qe *QuotaExceededError
	assert.True(t, errors.As(err, &qe))
	assert.Equal(t, 1, qe.Limit)
	assert.Equal(t, PlanFree, qe.Plan)

	assert.NoError(t, p.Check(PlanPro, 50))
}
