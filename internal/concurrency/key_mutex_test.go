package concurrency_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/shopsphere/cart-service/internal/concurrency"
)

func TestKeyMutexSerializesSameKey(t *testing.T) {
	km := concurrency.NewKeyMutex()

	counter := 0
	g := new(errgroup.Group)
	for i := 0; i < 200; i++ {
		g.Go(func() error {
			unlock := km.Lock("cart:user:a")
			counter++ // racy without the lock
			unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 200, counter)
}

func TestKeyMutexDifferentKeysDoNotBlock(t *testing.T) {
	km := concurrency.NewKeyMutex()

	unlockA := km.Lock("cart:user:a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("cart:user:b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestKeyMutexReleasesEntries(t *testing.T) {
	km := concurrency.NewKeyMutex()
	for i := 0; i < 10; i++ {
		unlock := km.Lock("k")
		unlock()
	}
	// Re-acquiring after full release must still work.
	unlock := km.Lock("k")
	unlock()
}
