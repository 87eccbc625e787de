package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeronjay/MediRemind/internal/domain"
)

func TestRRuleString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		r    domain.Reminder
		want string
	}{
		{
			name: "daily",
			r:    domain.Reminder{Time: "08:00", Frequency: domain.FrequencyDaily},
			want: "FREQ=DAILY;BYHOUR=8;BYMINUTE=0;BYSECOND=0",
		},
		{
			name: "weekdays",
			r:    domain.Reminder{Time: "09:30", Frequency: domain.FrequencyWeekdays},
			want: "FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR;BYHOUR=9;BYMINUTE=30;BYSECOND=0",
		},
		{
			name: "custom",
			r:    domain.Reminder{Time: "21:15", Frequency: domain.FrequencyCustom, CustomDays: []string{"Saturday"}},
			want: "FREQ=WEEKLY;BYDAY=SA;BYHOUR=21;BYMINUTE=15;BYSECOND=0",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := RRuleString(&tt.r, time.UTC)
			require.NoError(t, err)
			assert.Contains(t, got, "FREQ=")
			for _, part := range []string{"BYHOUR", "BYMINUTE"} {
				assert.Contains(t, got, part)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextFireDaily(t *testing.T) {
	t.Parallel()
	r := &domain.Reminder{Time: "08:00", Frequency: domain.FrequencyDaily}
	after := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	next, ok, err := NextFire(r, after)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC), next)
}

func TestNextFireWeeklyIsSunday(t *testing.T) {
	t.Parallel()
	r := &domain.Reminder{Time: "10:00", Frequency: domain.FrequencyWeekly}
	// 2026-03-10 is a Tuesday.
	after := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	next, ok, err := NextFire(r, after)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Sunday, next.Weekday())
	assert.Equal(t, 15, next.Day())
}

func TestNextFireHonoursUntil(t *testing.T) {
	t.Parallel()
	until := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	r := &domain.Reminder{Time: "08:00", Frequency: domain.FrequencyDaily, Until: &until}

	next, ok, err := NextFire(r, time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10, next.Day())

	_, ok, err = NextFire(r, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuildRRuleRejectsEmpty(t *testing.T) {
	t.Parallel()
	_, err := BuildRRule(nil, time.Now(), nil)
	assert.Error(t, err)
}
