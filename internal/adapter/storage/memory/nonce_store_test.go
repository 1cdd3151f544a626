package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonceStore_CheckAndSet(t *testing.T) {
	store := NewNonceStore(100, time.Minute)
	ctx := context.Background()

	isNew, err := store.CheckAndSet(ctx, "callback", "nonce-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.CheckAndSet(ctx, "callback", "nonce-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, isNew, "replayed nonce must be rejected")
}

func TestNonceStore_ScopesAreIndependent(t *testing.T) {
	store := NewNonceStore(100, time.Minute)
	ctx := context.Background()

	isNew, _ := store.CheckAndSet(ctx, "callback", "shared", time.Minute)
	assert.True(t, isNew)

	isNew, _ = store.CheckAndSet(ctx, "other", "shared", time.Minute)
	assert.True(t, isNew)
}

func TestNonceStore_ExpiredNonceAccepted(t *testing.T) {
	store := NewNonceStore(100, time.Minute)
	ctx := context.Background()

	isNew, _ := store.CheckAndSet(ctx, "callback", "short", 10*time.Millisecond)
	require.True(t, isNew)

	time.Sleep(30 * time.Millisecond)

	isNew, err := store.CheckAndSet(ctx, "callback", "short", 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, isNew)
}

func TestNonceStore_ConcurrentSameNonce(t *testing.T) {
	store := NewNonceStore(100, time.Minute)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.CheckAndSet(ctx, "callback", "race", time.Minute); ok {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
}
