package envutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat(t *testing.T) {
	v := 1.5
	require.NoError(t, Float("REPOLENS_TEST_FLOAT", &v))
	assert.Equal(t, 1.5, v, "unset keeps default")

	t.Setenv("REPOLENS_TEST_FLOAT", "0.75")
	require.NoError(t, Float("REPOLENS_TEST_FLOAT", &v))
	assert.Equal(t, 0.75, v)

	t.Setenv("REPOLENS_TEST_FLOAT", "abc")
	err := Float("REPOLENS_TEST_FLOAT", &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPOLENS_TEST_FLOAT")
	assert.Equal(t, 0.75, v)
}

func TestInt(t *testing.T) {
	v := 3
	t.Setenv("REPOLENS_TEST_INT", "7")
	require.NoError(t, Int("REPOLENS_TEST_INT", &v))
	assert.Equal(t, 7, v)

	t.Setenv("REPOLENS_TEST_INT", "7.5")
	assert.Error(t, Int("REPOLENS_TEST_INT", &v))
}

func TestBool(t *testing.T) {
	v := true
	t.Setenv("REPOLENS_TEST_BOOL", "false")
	require.NoError(t, Bool("REPOLENS_TEST_BOOL", &v))
	assert.False(t, v)

	t.Setenv("REPOLENS_TEST_BOOL", "maybe")
	assert.Error(t, Bool("REPOLENS_TEST_BOOL", &v))
}

func TestString(t *testing.T) {
	v := "default"
	String("REPOLENS_TEST_STRING", &v)
	assert.Equal(t, "default", v)

	t.Setenv("REPOLENS_TEST_STRING", "set")
	String("REPOLENS_TEST_STRING", &v)
	assert.Equal(t, "set", v)
}

func TestDuration(t *testing.T) {
	var d time.Duration
	t.Setenv("REPOLENS_TEST_MS", "1500")
	require.NoError(t, Duration("REPOLENS_TEST_MS", &d, time.Millisecond))
	assert.Equal(t, 1500*time.Millisecond, d)

	t.Setenv("REPOLENS_TEST_MS", "1s")
	assert.Error(t, Duration("REPOLENS_TEST_MS", &d, time.Millisecond))
}
