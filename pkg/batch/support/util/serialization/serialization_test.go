package serialization_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/surfbatch/pkg/batch/support/util/serialization"
)

func TestFormatParameters_MasksConfiguredKeys(t *testing.T) {
	masks := serialization.NewMaskSet([]string{"password", " "})

	out := masks.FormatParameters(map[string]string{
		"uuid":     "abc",
		"Password": "secret",
	})

	assert.Equal(t, "{Password=********, uuid=abc}", out)
	assert.True(t, masks.IsMasked("PASSWORD"))
	assert.False(t, masks.IsMasked(" "))
}

func TestFormatParameters_Empty(t *testing.T) {
	assert.Equal(t, "{}", serialization.NewMaskSet(nil).FormatParameters(nil))
}
