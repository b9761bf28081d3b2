package incrementer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfbatch/pkg/batch/core/support/incrementer"
)

func TestUUIDIncrementer_AlwaysDistinct(t *testing.T) {
	inc := incrementer.NewUUIDIncrementer("")
	base := model.NewJobParameters().WithString("file", "in.csv")

	a := inc.GetNext(base)
	b := inc.GetNext(base)

	assert.False(t, a.Equal(b))
	v, ok := a.GetString(incrementer.DefaultUUIDKey)
	require.True(t, ok)
	assert.Len(t, v, 36)
	_, ok = base.GetString(incrementer.DefaultUUIDKey)
	assert.False(t, ok, "input parameters are not modified")
}

func TestDailyIncrementer_SameDayEquivalent(t *testing.T) {
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.Local)
	inc := incrementer.NewDailyIncrementer("", func() time.Time { return now })

	morning := inc.GetNext(model.NewJobParameters())
	now = now.Add(10 * time.Hour)
	evening := inc.GetNext(model.NewJobParameters())
	now = now.Add(24 * time.Hour)
	tomorrow := inc.GetNext(model.NewJobParameters())

	assert.True(t, morning.Equal(evening))
	assert.False(t, morning.Equal(tomorrow))
}

func TestDailyIncrementer_KeepsExplicitDate(t *testing.T) {
	inc := incrementer.NewDailyIncrementer("business.date", func() time.Time { return time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC) })
	backfill := model.NewJobParameters().WithDate("business.date", time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))

	d, ok := inc.GetNext(backfill).GetDate("business.date")
	require.True(t, ok)
	assert.Equal(t, "2026-10-01", d.Format(model.DateLayout))
}

func TestTimestampIncrementer(t *testing.T) {
	at := time.UnixMilli(1760000000123)
	p := incrementer.NewTimestampIncrementer("", func() time.Time { return at }).GetNext(model.NewJobParameters())

	n, ok := p.GetLong(incrementer.DefaultTimestampKey)
	require.True(t, ok)
	assert.Equal(t, int64(1760000000123), n)
}

func TestByName(t *testing.T) {
	for _, name := range []string{"uuid", "daily", "timestamp"} {
		inc, err := incrementer.ByName(name, "")
		require.NoError(t, err)
		assert.NotNil(t, inc, name)
	}
	inc, err := incrementer.ByName("none", "")
	require.NoError(t, err)
	assert.Nil(t, inc)

	_, err = incrementer.ByName("weekly", "")
	assert.Error(t, err)
}
