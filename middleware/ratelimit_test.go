package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-booking-webapp/logging"
)

func TestRateLimiterRejectsAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2, logging.Discard())

	app := fiber.New()
	app.Post("/book", limiter.Handler(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	codes := []int{}
	for i := 0; i < 3; i++ {
		res, err := app.Test(httptest.NewRequest("POST", "/book", nil), -1)
		require.NoError(t, err)
		codes = append(codes, res.StatusCode)
	}

	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := NewRateLimiter(0, 0, logging.Discard())

	app := fiber.New()
	app.Post("/book", limiter.Handler(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 5; i++ {
		res, err := app.Test(httptest.NewRequest("POST", "/book", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, 200, res.StatusCode)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewRateLimiter(1, 1, logging.Discard(), WithIdleTTL(time.Millisecond))
	limiter.limiter("10.0.0.1")
	limiter.limiter("10.0.0.2")
	require.Equal(t, 2, limiter.Len())

	time.Sleep(5 * time.Millisecond)
	limiter.Cleanup()
	assert.Equal(t, 0, limiter.Len())
}

func TestRateLimiterJanitor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := NewRateLimiter(1, 1, logging.Discard(),
		WithIdleTTL(time.Millisecond), WithCleanupEvery(5*time.Millisecond))
	limiter.limiter("10.0.0.1")
	limiter.StartJanitor(ctx)

	assert.Eventually(t, func() bool { return limiter.Len() == 0 }, time.Second, 5*time.Millisecond)
}
