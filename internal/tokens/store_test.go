package tokens

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hearthos/entitlement/internal/shared"
)

// fakeClock drives the store's notion of now without sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedStore(timeout time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
	s := NewStore(timeout)
	s.now = clock.now
	return s, clock
}

func TestMintResolveLogout(t *testing.T) {
	s, _ := newClockedStore(time.Minute)

	tok := s.Mint("alice", "password", true)
	require.NotEmpty(t, tok.Value)
	require.True(t, tok.Administrative)

	got, ok := s.Resolve(tok.Value)
	require.True(t, ok)
	require.Equal(t, "alice", got.UserID)
	require.Equal(t, 1, s.Active())

	require.NoError(t, s.Logout(tok.Value))
	_, ok = s.Resolve(tok.Value)
	require.False(t, ok)
	require.True(t, errors.Is(s.Logout(tok.Value), shared.ErrTokenNotFound))
}

func TestTokenValuesUnique(t *testing.T) {
	s, _ := newClockedStore(time.Minute)
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok := s.Mint("alice", "password", true)
		_, dup := seen[tok.Value]
		require.False(t, dup)
		seen[tok.Value] = struct{}{}
	}
}

func TestExpiryIsLazyAndPermanent(t *testing.T) {
	s, clock := newClockedStore(time.Minute)
	tok := s.Mint("alice", "password", true)

	clock.advance(59 * time.Second)
	_, ok := s.Resolve(tok.Value)
	require.True(t, ok)

	clock.advance(2 * time.Second)
	_, ok = s.Resolve(tok.Value)
	require.False(t, ok)

	// Expiry removed the token; touch must not resurrect it.
	s.Touch(tok.Value)
	_, ok = s.Resolve(tok.Value)
	require.False(t, ok)
	require.True(t, errors.Is(s.Logout(tok.Value), shared.ErrTokenNotFound))
}

func TestTouchRefreshesActivity(t *testing.T) {
	s, clock := newClockedStore(time.Minute)
	tok := s.Mint("alice", "password", true)

	clock.advance(50 * time.Second)
	s.Touch(tok.Value)
	clock.advance(50 * time.Second)

	// 100s since mint but only 50s since touch.
	_, ok := s.Resolve(tok.Value)
	require.True(t, ok)
}

func TestSnapshotOmitsValues(t *testing.T) {
	s, _ := newClockedStore(time.Minute)
	s.Mint("bob", "voice_print", false)
	s.Mint("alice", "password", true)

	infos := s.Snapshot()
	require.Len(t, infos, 2)
	require.Equal(t, "alice", infos[0].UserID)
	require.True(t, infos[0].Administrative)
	require.Equal(t, "bob", infos[1].UserID)
	require.False(t, infos[1].Administrative)
}
