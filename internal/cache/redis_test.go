package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyStable(t *testing.T) {
	type req struct {
		Athlete string    `json:"athlete"`
		RR      []float64 `json:"rr"`
	}

	k1, err := Key("analyze", req{"a1", []float64{800, 810}})
	require.NoError(t, err)
	k2, err := Key("analyze", req{"a1", []float64{800, 810}})
	require.NoError(t, err)
	k3, err := Key("analyze", req{"a1", []float64{800, 811}})
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Regexp(t, `^analyze:[0-9a-f]{64}$`, k1)
}

func TestKeyUnencodable(t *testing.T) {
	_, err := Key("analyze", make(chan int))
	assert.Error(t, err)
}

// Runs against a live server when VELOLAB_TEST_REDIS is set, e.g. localhost:6379
func TestRedisCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("VELOLAB_TEST_REDIS")
	if addr == "" {
		t.Skip("VELOLAB_TEST_REDIS not set")
	}

	ctx := context.Background()
	c, err := NewRedisCache(ctx, addr, "", 15, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	key, err := Key("test", time.Now().UnixNano())
	require.NoError(t, err)

	var got map[string]float64
	assert.ErrorIs(t, c.Get(ctx, key, &got), ErrMiss)

	require.NoError(t, c.Set(ctx, key, map[string]float64{"cp": 250}))
	require.NoError(t, c.Get(ctx, key, &got))
	assert.Equal(t, 250.0, got["cp"])
}
