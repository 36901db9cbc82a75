package recurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRule_RRuleString(t *testing.T) {
	start := day(2024, 1, 1)

	s, err := Rule{Type: TypeCustom, CustomInterval: 2, CustomUnit: UnitWeek, EndCondition: EndCount, EndCount: 4}.RRuleString(start)
	require.NoError(t, err)
	assert.Contains(t, s, "FREQ=WEEKLY")
	assert.Contains(t, s, "INTERVAL=2")
	assert.Contains(t, s, "COUNT=4")

	s, err = Rule{Type: TypeCustom, CustomInterval: 1, CustomUnit: UnitDay, EndCondition: EndDate, EndDate: ptr(day(2024, 1, 5))}.RRuleString(start)
	require.NoError(t, err)
	assert.Contains(t, s, "FREQ=DAILY")
	assert.Contains(t, s, "UNTIL=")
}

// Away from month ends the RFC expansion and GenerateDates agree.
func TestRule_RRuleAgreesWithGenerateDates(t *testing.T) {
	start := day(2024, 1, 10)
	rules := []Rule{
		Once(),
		{Type: TypeDaily, Count: 10},
		{Type: TypeWeekly, Count: 6},
		{Type: TypeMonthly, Count: 14},
		{Type: TypeCustom, CustomInterval: 3, CustomUnit: UnitDay, EndCondition: EndCount, EndCount: 9},
		{Type: TypeCustom, CustomInterval: 2, CustomUnit: UnitMonth, EndCondition: EndDate, EndDate: ptr(day(2025, 3, 1))},
		{Type: TypeCustom, CustomInterval: 1, CustomUnit: UnitYear, EndCondition: EndCount, EndCount: 3},
		{Type: TypeCustom, CustomInterval: 1, CustomUnit: UnitWeek, EndCondition: EndNever},
	}

	for _, rule := range rules {
		r, err := rule.RRule(start)
		require.NoError(t, err)
		assert.Equal(t, GenerateDates(start, rule), r.All(), "rule=%+v", rule)
	}
}
