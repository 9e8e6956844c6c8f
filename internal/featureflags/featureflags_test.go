package featureflags

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuesUsableBeforeInit(t *testing.T) {
	v := Values()
	require.NotNil(t, v)
	assert.False(t, v.Offline.IsEnabled(nil))
	assert.True(t, v.ServerSearch.IsEnabled(nil))
	assert.Equal(t, "info", v.LogLevel.GetValue(nil))
}

func TestSnapshotDefaults(t *testing.T) {
	assert.Equal(t, map[string]any{
		"offline":      false,
		"logLevel":     "info",
		"serverSearch": true,
	}, Snapshot())
}

func TestInitWithoutKeyKeepsDefaults(t *testing.T) {
	err := Init(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rollout key")
	assert.Nil(t, rox)

	Shutdown()
	assert.False(t, Values().Offline.IsEnabled(nil))
}
