package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(client), mr
}

func TestSetGetRoundTrip(t *testing.T) {
	r, _ := newTestRedis(t)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	r.Set("k", payload{Name: "alice", Count: 3}, time.Minute)

	var got payload
	require.True(t, r.Get("k", &got))
	require.Equal(t, payload{Name: "alice", Count: 3}, got)

	require.False(t, r.Get("missing", &got))
}

func TestDelPattern(t *testing.T) {
	r, _ := newTestRedis(t)

	r.Set("stories:1:list", []int{1}, time.Minute)
	r.Set("stories:1:item", []int{2}, time.Minute)
	r.Set("stories:2:list", []int{3}, time.Minute)

	r.DelPattern("stories:1:*")

	var dst []int
	require.False(t, r.Get("stories:1:list", &dst))
	require.False(t, r.Get("stories:1:item", &dst))
	require.True(t, r.Get("stories:2:list", &dst))
}

func TestCounterStorage(t *testing.T) {
	r, mr := newTestRedis(t)
	s := r.Counters()

	// Missing keys come back nil without an error, as fiber.Storage expects.
	val, err := s.Get("login:1.2.3.4")
	require.NoError(t, err)
	require.Nil(t, val)

	require.NoError(t, s.Set("login:1.2.3.4", []byte{1, 2, 3}, time.Minute))

	val, err = s.Get("login:1.2.3.4")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, val)

	// Counter keys are namespaced away from cached payloads.
	require.True(t, mr.Exists("ratelimit:login:1.2.3.4"))

	require.NoError(t, s.Delete("login:1.2.3.4"))
	val, err = s.Get("login:1.2.3.4")
	require.NoError(t, err)
	require.Nil(t, val)
}

func TestCounterStorage_Expiry(t *testing.T) {
	r, mr := newTestRedis(t)
	s := r.Counters()

	require.NoError(t, s.Set("k", []byte{1}, time.Second))
	mr.FastForward(2 * time.Second)

	val, err := s.Get("k")
	require.NoError(t, err)
	require.Nil(t, val)
}

func TestCounterStorage_Reset(t *testing.T) {
	r, _ := newTestRedis(t)
	s := r.Counters()

	require.NoError(t, s.Set("a", []byte{1}, time.Minute))
	require.NoError(t, s.Set("b", []byte{2}, time.Minute))
	r.Set("stories:1:list", []int{1}, time.Minute)

	require.NoError(t, s.Reset())

	val, err := s.Get("a")
	require.NoError(t, err)
	require.Nil(t, val)

	// Reset only touches counters, not cached payloads.
	var dst []int
	require.True(t, r.Get("stories:1:list", &dst))
}
