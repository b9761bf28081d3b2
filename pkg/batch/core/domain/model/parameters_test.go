package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
)

func TestJobParameters_EqualityIgnoresInsertionOrder(t *testing.T) {
	a := model.NewJobParametersBuilder().AddString("file", "in.csv").AddLong("run.id", 3).ToJobParameters()
	b := model.NewJobParametersBuilder().AddLong("run.id", 3).AddString("file", "in.csv").ToJobParameters()

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestJobParameters_TypeTakesPartInIdentity(t *testing.T) {
	asString := model.NewJobParameters().WithString("run.id", "3")
	asLong := model.NewJobParameters().WithLong("run.id", 3)

	assert.False(t, asString.Equal(asLong))
	assert.NotEqual(t, asString.Hash(), asLong.Hash())
}

func TestJobParameters_SeparatorsInsideKeysAndValuesKeepIdentity(t *testing.T) {
	tests := []struct {
		name string
		a, b model.JobParameters
	}{
		{
			name: "newline and equals in value",
			a:    model.NewJobParameters().WithString("a", "x\nb=STRING:y"),
			b:    model.NewJobParameters().WithString("a", "x").WithString("b", "y"),
		},
		{
			name: "colon moved between key and value",
			a:    model.NewJobParameters().WithString("k:1", "v"),
			b:    model.NewJobParameters().WithString("k", "1:v"),
		},
		{
			name: "equals moved between key and value",
			a:    model.NewJobParameters().WithString("k=STRING:a", "b"),
			b:    model.NewJobParameters().WithString("k", "a=STRING:b"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.a.Equal(tt.b))
			assert.NotEqual(t, tt.a.Hash(), tt.b.Hash())
		})
	}
}

func TestJobParameters_NonIdentifyingIgnored(t *testing.T) {
	base := model.NewJobParameters().WithString("uuid", "u-1")
	withNote := base.With("note", model.JobParameter{Type: model.ParameterTypeString, Value: "rerun", Identifying: false})

	assert.True(t, base.Equal(withNote))
	assert.Equal(t, 1, withNote.Identifying().Len())
	assert.Equal(t, 2, withNote.Len())
}

func TestJobParameters_DateDropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("JST", 9*3600)
	morning := model.NewJobParameters().WithDate("run.date", time.Date(2026, 10, 18, 6, 0, 0, 0, loc))
	evening := model.NewJobParameters().WithDate("run.date", time.Date(2026, 10, 18, 23, 59, 0, 0, loc))
	nextDay := model.NewJobParameters().WithDate("run.date", time.Date(2026, 10, 19, 0, 1, 0, 0, loc))

	assert.True(t, morning.Equal(evening))
	assert.False(t, morning.Equal(nextDay))

	d, ok := morning.GetDate("run.date")
	require.True(t, ok)
	assert.Equal(t, "2026-10-18", d.Format(model.DateLayout))
}

func TestJobParameters_WithDoesNotMutateOriginal(t *testing.T) {
	orig := model.NewJobParameters().WithString("a", "1")
	_ = orig.WithString("b", "2")

	_, ok := orig.Get("b")
	assert.False(t, ok)
}

func TestJobParameters_JSONRoundTripKeepsTypes(t *testing.T) {
	params := model.NewJobParametersBuilder().
		AddString("uuid", "abc").
		AddLong("run.id", 9007199254740993).
		AddDouble("ratio", 0.25).
		AddDate("run.date", time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)).
		ToJobParameters()

	data, err := json.Marshal(params)
	require.NoError(t, err)

	var decoded model.JobParameters
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.True(t, params.Equal(decoded))
	n, ok := decoded.GetLong("run.id")
	require.True(t, ok)
	assert.Equal(t, int64(9007199254740993), n)
	assert.Equal(t, "{ratio=0.25, run.date=2026-01-02, run.id=9007199254740993, uuid=abc}", decoded.String())
}

func TestJobParameters_ScanNullGivesEmptySet(t *testing.T) {
	var p model.JobParameters
	require.NoError(t, p.Scan(nil))
	assert.True(t, p.IsEmpty())
}

func TestParseJobParameter(t *testing.T) {
	p, err := model.ParseJobParameter("long", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.Value)

	p, err = model.ParseJobParameter("date", "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, model.ParameterTypeDate, p.Type)

	_, err = model.ParseJobParameter("long", "forty-two")
	assert.Error(t, err)

	_, err = model.ParseJobParameter("uuid", "x")
	assert.Error(t, err)
}
