package recurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRule_Normalize(t *testing.T) {
	assert.Equal(t, Rule{Type: TypeNone, Count: 1}, Rule{}.Normalize())
	assert.Equal(t, Rule{Type: TypeDaily, Count: 1}, Rule{Type: TypeDaily, Count: -3}.Normalize())
	assert.Equal(t, Rule{Type: TypeWeekly, Count: MaxOccurrences}, Rule{Type: TypeWeekly, Count: 9999}.Normalize())

	custom := Rule{Type: TypeCustom}.Normalize()
	assert.Equal(t, 1, custom.CustomInterval)
	assert.Equal(t, UnitDay, custom.CustomUnit)
	assert.Equal(t, EndNever, custom.EndCondition)
	assert.Equal(t, 1, custom.EndCount)
}

func TestRule_Validate(t *testing.T) {
	start := day(2024, 1, 10)

	tests := []struct {
		name    string
		rule    Rule
		wantErr error
	}{
		{name: "none", rule: Once()},
		{name: "daily", rule: Rule{Type: TypeDaily, Count: 3}},
		{name: "unknown type", rule: Rule{Type: "hourly"}, wantErr: ErrInvalidRule},
		{name: "unknown unit", rule: Rule{Type: TypeCustom, CustomUnit: "fortnight", EndCondition: EndNever}, wantErr: ErrInvalidRule},
		{name: "unknown end", rule: Rule{Type: TypeCustom, CustomUnit: UnitDay, EndCondition: "sometime"}, wantErr: ErrInvalidRule},
		{name: "end date missing", rule: Rule{Type: TypeCustom, CustomUnit: UnitDay, EndCondition: EndDate}, wantErr: ErrInvalidRule},
		{name: "end date before start", rule: Rule{Type: TypeCustom, CustomUnit: UnitDay, EndCondition: EndDate, EndDate: ptr(day(2024, 1, 9))}, wantErr: ErrEndBeforeStart},
		{name: "end date equals start", rule: Rule{Type: TypeCustom, CustomUnit: UnitDay, EndCondition: EndDate, EndDate: ptr(day(2024, 1, 10))}},
		{name: "count", rule: Rule{Type: TypeCustom, CustomUnit: UnitMonth, EndCondition: EndCount, EndCount: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate(start)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParse(t *testing.T) {
	typ, err := ParseType(" Weekly ")
	require.NoError(t, err)
	assert.Equal(t, TypeWeekly, typ)

	typ, err = ParseType("")
	require.NoError(t, err)
	assert.Equal(t, TypeNone, typ)

	_, err = ParseType("hourly")
	assert.ErrorIs(t, err, ErrInvalidRule)

	unit, err := ParseUnit("YEAR")
	require.NoError(t, err)
	assert.Equal(t, UnitYear, unit)

	cond, err := ParseEndCondition("count")
	require.NoError(t, err)
	assert.Equal(t, EndCount, cond)

	_, err = ParseEndCondition("later")
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestRule_IsRecurring(t *testing.T) {
	assert.False(t, Once().IsRecurring())
	assert.False(t, Rule{}.IsRecurring())
	assert.True(t, Rule{Type: TypeDaily, Count: 2}.IsRecurring())
	assert.True(t, Rule{Type: TypeCustom}.IsRecurring())
}
