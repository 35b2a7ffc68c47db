package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendem/opendem/internal/config"
	"github.com/opendem/opendem/internal/engine"
	"github.com/opendem/opendem/internal/engine/enginetest"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Source:     "https://tiles.example.com/terrarium/${z}/${x}/${y}.png",
		Bounds:     []float64{11.1, 47.2, 11.5, 47.4},
		Resolution: 30,
		Process:    "slope",
		Output:     "slope.tif",
		CacheDir:   t.TempDir(),
	}
}

func transientErr(msg string) error {
	return &engine.Error{
		Op:   "warp",
		Kind: engine.KindTransientNetwork,
		Err:  errors.New(msg),
	}
}

func TestAcquire_Success(t *testing.T) {
	fake := enginetest.New()
	p := New(testConfig(t), fake, WithRetryDelay(time.Millisecond))

	dst, err := p.acquire(context.Background(), "source.xml")
	require.NoError(t, err)
	assert.NotEmpty(t, dst)

	require.Len(t, fake.WarpCalls, 1)
	opts := fake.WarpCalls[0].Opts
	assert.Equal(t, [4]float64{11.1, 47.2, 11.5, 47.4}, opts.Bounds)
	assert.Equal(t, "EPSG:4326", opts.BoundsSRS)
	assert.Equal(t, 30.0, opts.XRes)
	assert.Equal(t, 30.0, opts.YRes)
	assert.Equal(t, "EPSG:3857", opts.DstSRS)
	assert.Empty(t, opts.Cutline)
}

// A source that always fails with a transient classification gets exactly
// five attempts before the bound trips.
func TestAcquire_RetryBound(t *testing.T) {
	fake := enginetest.New()
	for i := 0; i < 10; i++ {
		fake.WarpErrs = append(fake.WarpErrs, transientErr("Could not resolve host: tiles.example.com"))
	}

	p := New(testConfig(t), fake, WithRetryDelay(time.Millisecond))

	_, err := p.acquire(context.Background(), "source.xml")
	require.ErrorIs(t, err, ErrMaxRetries)
	assert.Len(t, fake.WarpCalls, 5)
}

func TestAcquire_TransientThenSuccess(t *testing.T) {
	fake := enginetest.New()
	fake.WarpErrs = []error{
		transientErr("IReadBlock failed"),
		transientErr("Could not resolve host"),
		nil,
	}

	p := New(testConfig(t), fake, WithRetryDelay(time.Millisecond))

	_, err := p.acquire(context.Background(), "source.xml")
	require.NoError(t, err)
	assert.Len(t, fake.WarpCalls, 3)
}

// Non-network failures abort on the first attempt; retries are reserved
// strictly for transient network classification.
func TestAcquire_NonNetworkErrorNoRetry(t *testing.T) {
	fake := enginetest.New()
	diskFull := &engine.Error{
		Op:   "warp",
		Kind: engine.KindResource,
		Err:  errors.New("no space left on device"),
	}
	fake.WarpErrs = []error{diskFull}

	p := New(testConfig(t), fake, WithRetryDelay(time.Millisecond))

	_, err := p.acquire(context.Background(), "source.xml")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, engine.KindResource, engine.KindOf(err))
	assert.Len(t, fake.WarpCalls, 1)
}

func TestAcquire_UnclassifiedErrorNoRetry(t *testing.T) {
	fake := enginetest.New()
	fake.WarpErrs = []error{errors.New("cutline is not of polygon type")}

	p := New(testConfig(t), fake, WithRetryDelay(time.Millisecond))

	_, err := p.acquire(context.Background(), "source.xml")
	require.Error(t, err)
	assert.Len(t, fake.WarpCalls, 1)
}
