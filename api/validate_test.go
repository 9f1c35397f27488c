package api

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func newTestCtx(headers map[string]string) *fiber.Ctx {
	app := fiber.New()
	fctx := &fasthttp.RequestCtx{}
	for k, v := range headers {
		fctx.Request.Header.Set(k, v)
	}
	return app.AcquireCtx(fctx)
}

func TestCallerID(t *testing.T) {
	c := newTestCtx(map[string]string{"X-User-Id": "user-42"})
	id, ok := callerID(c)
	assert.True(t, ok)
	assert.Equal(t, "user-42", id)

	c = newTestCtx(nil)
	_, ok = callerID(c)
	assert.False(t, ok)
}

func TestIdempotencyKey_RequiresExpectedHeaderAndShape(t *testing.T) {
	c := newTestCtx(map[string]string{"X-Idempotency-Key": "a-valid-key-1234"})
	key, ok := idempotencyKey(c)
	assert.True(t, ok)
	assert.Equal(t, "a-valid-key-1234", key)

	c = newTestCtx(map[string]string{"Idempotency-Key": "a-valid-key-1234"})
	_, ok = idempotencyKey(c)
	assert.False(t, ok, "the legacy header name must not be accepted")

	c = newTestCtx(map[string]string{"X-Idempotency-Key": "short"})
	_, ok = idempotencyKey(c)
	assert.False(t, ok, "keys shorter than 8 chars are rejected")

	c = newTestCtx(map[string]string{"X-Idempotency-Key": "has spaces!!"})
	_, ok = idempotencyKey(c)
	assert.False(t, ok)
}
