package middlewares_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointsmall-backend/database"
	"pointsmall-backend/idempotency"
	"pointsmall-backend/middlewares"
)

func newTestApp(t *testing.T, handlerCalls *int64) *fiber.App {
	t.Helper()

	store := database.NewMemoryStore()
	svc, err := idempotency.NewService(store, idempotency.DefaultConfig())
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: middlewares.ErrorHandler})

	// Stand-in for the JWT middleware: a fixed principal.
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", "user-1")
		return c.Next()
	})
	app.Use(middlewares.Idempotency(svc))

	app.Post("/api/v4/lottery/draw", func(c *fiber.Ctx) error {
		atomic.AddInt64(handlerCalls, 1)
		c.Locals(middlewares.BusinessEventIDKey, "draw-1")
		return c.JSON(fiber.Map{"success": true, "code": "WIN"})
	})
	app.Post("/api/v4/unmapped/write", func(c *fiber.Ctx) error {
		atomic.AddInt64(handlerCalls, 1)
		return c.JSON(fiber.Map{"success": true})
	})
	app.Post("/api/v4/inventory/exchange", func(c *fiber.Ctx) error {
		atomic.AddInt64(handlerCalls, 1)
		c.Locals(middlewares.BusinessEventIDKey, "exchange-1")
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "code": "CREATED"})
	})
	app.Post("/api/v4/orders", func(c *fiber.Ctx) error {
		atomic.AddInt64(handlerCalls, 1)
		return fiber.NewError(fiber.StatusBadGateway, "market engine down")
	})

	return app
}

func doJSON(t *testing.T, app *fiber.App, path, key string, body map[string]any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return resp, out
}

func TestMiddlewareReplaysWithoutReexecuting(t *testing.T) {
	var calls int64
	app := newTestApp(t, &calls)
	body := map[string]any{"activity_code": "SPRING2026", "amount": 100}

	resp, out := doJSON(t, app, "/api/v4/lottery/draw", "mk1", body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "WIN", out["code"])
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))

	resp, out = doJSON(t, app, "/api/v4/lottery/draw", "mk1", body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "WIN", out["code"])
	assert.Equal(t, "true", resp.Header.Get("X-Idempotent-Replay"))
	// Handler did not run again.
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
}

func TestMiddlewareReplaysOriginalStatusCode(t *testing.T) {
	var calls int64
	app := newTestApp(t, &calls)
	body := map[string]any{"sku": "GOLD-1", "amount": 1}

	resp, _ := doJSON(t, app, "/api/v4/inventory/exchange", "mk-status", body)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))

	// The replay answers with the original 201, not a generic 200.
	resp, out := doJSON(t, app, "/api/v4/inventory/exchange", "mk-status", body)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "CREATED", out["code"])
	assert.Equal(t, "true", resp.Header.Get("X-Idempotent-Replay"))
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
}

func TestMiddlewareParameterConflict(t *testing.T) {
	var calls int64
	app := newTestApp(t, &calls)

	_, _ = doJSON(t, app, "/api/v4/lottery/draw", "mk2", map[string]any{"amount": 100})
	resp, out := doJSON(t, app, "/api/v4/lottery/draw", "mk2", map[string]any{"amount": 999})

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, string(idempotency.KindKeyConflict), out["kind"])
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
}

func TestMiddlewareUnmappedPathIsServerError(t *testing.T) {
	var calls int64
	app := newTestApp(t, &calls)

	resp, out := doJSON(t, app, "/api/v4/unmapped/write", "mk3", map[string]any{"x": 1})

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, string(idempotency.KindOperationNotMapped), out["kind"])
	// Strict mode: the handler never runs on an unmapped write path.
	assert.Zero(t, atomic.LoadInt64(&calls))
}

func TestMiddlewareFailureOpensRetryPath(t *testing.T) {
	var calls int64
	app := newTestApp(t, &calls)
	body := map[string]any{"sku": "GOLD-1"}

	resp, _ := doJSON(t, app, "/api/v4/orders", "mk4", body)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))

	// Same key retries after a failure, and the handler runs again.
	resp, _ = doJSON(t, app, "/api/v4/orders", "mk4", body)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.EqualValues(t, 2, atomic.LoadInt64(&calls))
}

func TestMiddlewareIgnoresReadsAndMissingKey(t *testing.T) {
	var calls int64
	app := newTestApp(t, &calls)

	// No Idempotency-Key header: handler runs unguarded.
	resp, _ := doJSON(t, app, "/api/v4/lottery/draw", "", map[string]any{"amount": 100})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, app, "/api/v4/lottery/draw", "", map[string]any{"amount": 100})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, atomic.LoadInt64(&calls))
}
