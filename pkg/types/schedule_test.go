package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDayTime(t *testing.T) {
	for _, tt := range []struct {
		in      string
		want    DayTime
		wantErr bool
	}{
		{"00:00", DayTime{0, 0}, false},
		{"09:59", DayTime{9, 59}, false},
		{"24:00", DayTime{24, 0}, false},
		{" 10:30 ", DayTime{10, 30}, false},
		{"24:01", DayTime{}, true},
		{"25:00", DayTime{}, true},
		{"10:60", DayTime{}, true},
		{"-1:00", DayTime{}, true},
		{"1000", DayTime{}, true},
		{"aa:bb", DayTime{}, true},
	} {
		got, err := ParseDayTime(tt.in)
		if tt.wantErr {
			require.Error(t, err, "ParseDayTime(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "ParseDayTime(%q)", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestDayTimeMinutes(t *testing.T) {
	assert.Equal(t, 0, DayTime{0, 0}.Minutes())
	assert.Equal(t, 599, DayTime{9, 59}.Minutes())
	assert.Equal(t, 1440, DayTime{24, 0}.Minutes(), "24:00 maps past the last minute of the day")
	assert.True(t, DayTime{24, 0}.IsEndOfDay())
	assert.Equal(t, "09:05", DayTime{9, 5}.String())
}

func TestRatePlanNameForMode(t *testing.T) {
	assert.Equal(t, "custom_rate_plan", RatePlanNameForMode(UsageModeManual))
	assert.Equal(t, "blend_plan", RatePlanNameForMode(UsageModeSmartMeter))
	assert.Equal(t, "blend_plan", RatePlanNameForMode(UsageModeSmartPlugs))
	assert.Equal(t, "use_time", RatePlanNameForMode(UsageModeUseTime))
	assert.Equal(t, "smart_plan", RatePlanNameForMode(UsageModeSmart))
	assert.Equal(t, "time_slot", RatePlanNameForMode(UsageModeTimeSlot))
	assert.Equal(t, "custom_rate_plan", RatePlanNameForMode(99), "unknown modes fall back to manual")
}

func TestLookupProduct(t *testing.T) {
	p, ok := LookupProduct("A17C0")
	require.True(t, ok)
	assert.Equal(t, 1, p.Generation)

	p, ok = LookupProduct("a17c1")
	require.True(t, ok, "lookup is case insensitive")
	assert.Equal(t, 2, p.Generation)

	p, ok = LookupProduct("A17C1-EU")
	require.True(t, ok, "family prefix matches longer codes")
	assert.Equal(t, DeviceTypeSolarbank, p.Type)

	_, ok = LookupProduct("ZZZZZ")
	assert.False(t, ok)
	assert.Equal(t, 1, GenerationForModel("ZZZZZ"), "unknown models default to generation 1")
}
