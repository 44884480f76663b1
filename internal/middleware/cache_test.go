package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhaven/bookstore-api/internal/config"
)

func TestEncodeDecodePayload(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/json")
	hdr.Add("X-Custom", "a")
	hdr.Add("X-Custom", "b")
	body := []byte(`{"items":[]}`)

	bs, err := encodePayload(http.StatusOK, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, []string{"a", "b"}, gotHdr.Values("X-Custom"))
	assert.Equal(t, body, gotBody)
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	_, _, _, ok := decodePayload([]byte("short"))
	assert.False(t, ok)

	// Header length pointing past the end of the buffer.
	bad, err := encodePayload(200, http.Header{}, nil)
	require.NoError(t, err)
	bad[7] = 0xFF
	_, _, _, ok = decodePayload(bad)
	assert.False(t, ok)
}

func TestCaptureWriterOverflow(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 10}

	n, err := cw.Write([]byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.False(t, cw.overflowed(), "a body that exactly fills the buffer is complete")
	assert.Equal(t, "0123456789", cw.buf.String())

	// Writes past the limit keep streaming to the client but only bump
	// the size counter; the buffer stays a prefix and is marked stale.
	_, err = cw.Write([]byte("abcde"))
	require.NoError(t, err)
	assert.True(t, cw.overflowed())
	assert.Equal(t, int64(15), cw.size)
	assert.Equal(t, "0123456789", cw.buf.String())
	assert.Equal(t, "0123456789abcde", rec.Body.String(), "the client sees the full body")
}

func TestCaptureWriterUnlimited(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 0}
	_, err := cw.Write([]byte(strings.Repeat("x", 4096)))
	require.NoError(t, err)
	assert.False(t, cw.overflowed())
	assert.Equal(t, 4096, cw.buf.Len())
}

func TestCacheKeyStrategies(t *testing.T) {
	newCtx := func(target string) echo.Context {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/v1/books")
		return c
	}

	cfg := config.CacheConfig{Prefix: "bs:cache", KeyStrategy: "route_query"}
	k1 := cacheKeyFrom(cfg, newCtx("/v1/books?page=1"))
	k2 := cacheKeyFrom(cfg, newCtx("/v1/books?page=2"))
	assert.True(t, strings.HasPrefix(k1, "bs:cache:"))
	assert.NotEqual(t, k1, k2, "different queries must cache separately")

	cfg.KeyStrategy = "route"
	k3 := cacheKeyFrom(cfg, newCtx("/v1/books?page=1"))
	k4 := cacheKeyFrom(cfg, newCtx("/v1/books?page=2"))
	assert.Equal(t, k3, k4, "route strategy ignores the query string")
}

func TestNewRedisCacheDisabledPassesThrough(t *testing.T) {
	mw := NewRedisCache(config.CacheConfig{Enabled: false}, nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/books", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "live")
	})
	require.NoError(t, handler(c))
	assert.Equal(t, "live", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))
}
