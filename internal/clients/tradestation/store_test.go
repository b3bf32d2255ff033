package tradestation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmindhq/flowmind/internal/models"
)

func TestStore_SetOverwriteIsIdempotent(t *testing.T) {
	s := newTokenStore()
	tok := &models.Token{AccessToken: "a1", ExpiresAt: time.Now().Unix() + 600}

	s.set("u1", tok)
	s.set("u1", tok)

	got := s.getValid("u1", time.Now())
	require.NotNil(t, got)
	assert.Equal(t, tok, got)
}

func TestStore_DeleteRemovesEntry(t *testing.T) {
	s := newTokenStore()
	s.set("u1", &models.Token{AccessToken: "a1", ExpiresAt: time.Now().Unix() + 600})

	s.delete("u1")
	assert.Nil(t, s.get("u1"))

	// Deleting an absent entry is a no-op.
	s.delete("u1")
}

func TestStore_GetValidHidesExpiredWithoutDeleting(t *testing.T) {
	s := newTokenStore()
	s.set("u1", &models.Token{AccessToken: "a1", ExpiresAt: 100})

	now := time.Unix(200, 0)
	assert.Nil(t, s.getValid("u1", now))
	assert.NotNil(t, s.get("u1"))
}

func TestStore_RefreshLockIsStablePerUser(t *testing.T) {
	s := newTokenStore()

	const goroutines = 50
	locks := make([]*sync.Mutex, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks[i] = s.refreshLock("u1")
		}()
	}
	wg.Wait()

	// All racers must share one mutex or single-flight is broken.
	for i := 1; i < goroutines; i++ {
		assert.Same(t, locks[0], locks[i])
	}

	assert.NotSame(t, s.refreshLock("u1"), s.refreshLock("u2"))
}
