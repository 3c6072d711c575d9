package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnceFiresExactlyOnce(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rule := Once{At: at}

	now := at.Add(-time.Hour)
	next := rule.Next(now, nil)
	require.NotNil(t, next)
	assert.Equal(t, at, *next)

	fired := at
	assert.Nil(t, rule.Next(at.Add(time.Second), &fired))
	assert.False(t, rule.Recurring())
}

func TestEveryFiresImmediatelyOnRegistration(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rule := Every{Interval: 5 * time.Minute}

	next := rule.Next(now, nil)
	require.NotNil(t, next)
	assert.Equal(t, now, *next)
}

func TestEveryAdvancesFromPreviousFire(t *testing.T) {
	prev := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rule := Every{Interval: 5 * time.Minute}

	next := rule.Next(prev.Add(time.Second), &prev)
	require.NotNil(t, next)
	assert.Equal(t, prev.Add(5*time.Minute), *next)
	assert.True(t, rule.Recurring())
}

func TestCronNextMatchesExpression(t *testing.T) {
	rule, err := NewCron("0 */5 * * * *")
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 2, 30, 0, time.UTC)
	next := rule.Next(now, nil)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC), *next)
}

func TestCronDailyAtTwo(t *testing.T) {
	rule, err := NewCron("0 0 2 * * ?")
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	next := rule.Next(now, nil)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC), *next)
}

func TestCronNextIsStrictlyAfterNow(t *testing.T) {
	rule, err := NewCron("0 0 * * * *")
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	next := rule.Next(now, nil)
	require.NotNil(t, next)
	assert.True(t, next.After(now))
}

func TestNewCronRejectsBadExpression(t *testing.T) {
	_, err := NewCron("not a cron")
	assert.Error(t, err)

	_, err = NewCron("* * * *")
	assert.Error(t, err)
}
