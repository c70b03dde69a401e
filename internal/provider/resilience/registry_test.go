package resilience_test

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weerpunt/weerpunt/internal/provider/resilience"
)

func TestRegistry(t *testing.T) {
	t.Run("unknown provider has no health", func(t *testing.T) {
		registry := resilience.NewRegistry()
		assert.Nil(t, registry.Health("knmi"))
		assert.Empty(t, registry.AllHealth())
	})

	t.Run("registered provider starts healthy", func(t *testing.T) {
		registry := resilience.NewRegistry()
		registry.Register("knmi", fastClient(nil))

		health := registry.Health("knmi")
		require.NotNil(t, health)
		assert.Equal(t, "knmi", health.Name)
		assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
		assert.True(t, health.IsHealthy())
		assert.Nil(t, health.LastSuccessAt)
		assert.Nil(t, health.LastFailureAt)
	})

	t.Run("records successes and failures", func(t *testing.T) {
		registry := resilience.NewRegistry()
		registry.Register("knmi", fastClient(nil))

		registry.RecordSuccess("knmi")
		registry.RecordFailure("knmi", errors.New("timeout"))

		health := registry.Health("knmi")
		require.NotNil(t, health)
		assert.NotNil(t, health.LastSuccessAt)
		assert.NotNil(t, health.LastFailureAt)
		assert.Equal(t, "timeout", health.LastError)
	})

	t.Run("recording for an unknown provider is a no-op", func(t *testing.T) {
		registry := resilience.NewRegistry()
		registry.RecordSuccess("nope")
		registry.RecordFailure("nope", errors.New("x"))
		assert.Nil(t, registry.Health("nope"))
	})

	t.Run("all health covers every provider", func(t *testing.T) {
		registry := resilience.NewRegistry()
		registry.Register("a", fastClient(nil))
		registry.Register("b", fastClient(nil))

		assert.Len(t, registry.AllHealth(), 2)
	})
}
