package ratelimit

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreCurrent())
}

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedisStore(client), mr
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestRedisStoreWindowStartsOnFirstHit(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	count, resetIn, err := store.Hit(ctx, "anonymous:ip:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.InDelta(t, time.Minute.Seconds(), resetIn.Seconds(), 1)

	mr.FastForward(30 * time.Second)
	count, resetIn, err = store.Hit(ctx, "anonymous:ip:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.InDelta(t, 30, resetIn.Seconds(), 1, "second hit must not extend the window")

	mr.FastForward(31 * time.Second)
	count, _, err = store.Hit(ctx, "anonymous:ip:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRedisStoreSharedAcrossClients(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	a := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer a.Close()
	defer b.Close()

	ctx := context.Background()
	_, _, err = NewRedisStore(a).Hit(ctx, "k", time.Minute)
	require.NoError(t, err)
	count, _, err := NewRedisStore(b).Hit(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMemoryStoreResetsAfterWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := newMemoryStore(time.Hour, clock.Now)
	defer store.Stop()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		count, _, err := store.Hit(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(i), count)
	}

	clock.Advance(time.Minute)
	count, resetIn, err := store.Hit(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, time.Minute, resetIn)
}

func TestMemoryStoreSweepDropsExpired(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := newMemoryStore(time.Hour, clock.Now)
	defer store.Stop()

	_, _, _ = store.Hit(context.Background(), "a", time.Second)
	_, _, _ = store.Hit(context.Background(), "b", time.Hour)
	clock.Advance(2 * time.Second)
	store.sweep()
	assert.Equal(t, 1, store.Len())
}

func newLimitedApp(store QuotaStore, limit int) *fiber.App {
	app := fiber.New()
	app.Use(New(Config{
		Store:          store,
		Limit:          limit,
		Window:         time.Minute,
		Tier:           TierAnonymous,
		IdentityHeader: "X-User-ID",
	}))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	return app
}

func TestMiddlewareEleventhRequestRejected(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := newMemoryStore(time.Hour, clock.Now)
	defer store.Stop()
	app := newLimitedApp(store, 10)

	for i := 1; i <= 10; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode, "request %d", i)
		assert.Equal(t, "10", resp.Header.Get(HeaderLimit))
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 429, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get(HeaderRemaining))
	assert.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))

	clock.Advance(61 * time.Second)
	resp, err = app.Test(httptest.NewRequest("GET", "/ping", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "9", resp.Header.Get(HeaderRemaining))
}

func TestMiddlewareKeysByIdentityHeader(t *testing.T) {
	store, _ := setupRedisStore(t)
	app := newLimitedApp(store, 1)

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-User-ID", "alice")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	req = httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-User-ID", "bob")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode, "distinct identities have distinct quotas")

	req = httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-User-ID", "alice")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 429, resp.StatusCode)
}

type brokenStore struct{}

func (brokenStore) Hit(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("connection refused")
}

func TestMiddlewareFailsOpen(t *testing.T) {
	app := newLimitedApp(brokenStore{}, 1)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	}
}

func TestLimiterCheckReturnsRateLimited(t *testing.T) {
	store, _ := setupRedisStore(t)
	limiter := NewLimiter(Config{Store: store, Limit: 1, Window: time.Minute, Tier: TierAnonymous})

	app := fiber.New()
	app.Get("/check", func(c *fiber.Ctx) error {
		if err := limiter.Check(c); err != nil {
			return c.Status(fiber.StatusTooManyRequests).SendString(err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/check", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get(HeaderRemaining))

	resp, err = app.Test(httptest.NewRequest("GET", "/check", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))
}
