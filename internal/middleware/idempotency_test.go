package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"leaveflow/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func idempotencyRouter(t *testing.T) (*gin.Engine, redismock.ClientMock, *int) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rdb, mock := redismock.NewClientMock()
	calls := 0

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id_validated", "user-1")
		c.Next()
	})
	r.POST("/decide", middleware.Idempotency(rdb), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"ok": true, "data": gin.H{"status": "approved"}})
	})
	return r, mock, &calls
}

const handlerBody = `{"data":{"status":"approved"},"ok":true}`

// cacheEnvelope mirrors what the middleware stores: status plus body.
func cacheEnvelope(status int, body string) string {
	return `{"status":` + strconv.Itoa(status) + `,"body":` + strconv.Quote(body) + `}`
}

func TestIdempotency_FirstRequestCachesResponse(t *testing.T) {
	router, mock, calls := idempotencyRouter(t)

	cacheKey := "idemp:/decide:user-1:key-1"
	lockKey := cacheKey + ":lock"

	mock.ExpectGet(cacheKey).RedisNil()
	mock.ExpectSetNX(lockKey, "locked", 30*time.Second).SetVal(true)
	mock.ExpectSet(cacheKey, []byte(cacheEnvelope(http.StatusCreated, handlerBody)), 24*time.Hour).SetVal("OK")
	mock.ExpectDel(lockKey).SetVal(1)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/decide", strings.NewReader(`{}`))
	req.Header.Set("Idempotency-Key", "key-1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, *calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotency_RepeatedKeyReplaysCachedResponse(t *testing.T) {
	router, mock, calls := idempotencyRouter(t)

	mock.ExpectGet("idemp:/decide:user-1:key-1").SetVal(cacheEnvelope(http.StatusCreated, handlerBody))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/decide", strings.NewReader(`{}`))
	req.Header.Set("Idempotency-Key", "key-1")
	router.ServeHTTP(w, req)

	// The replay carries the original status, not a generic 200.
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, handlerBody, w.Body.String())
	assert.Equal(t, 0, *calls, "handler must not run again for a replayed key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotency_InFlightKeyIsRejected(t *testing.T) {
	router, mock, calls := idempotencyRouter(t)

	cacheKey := "idemp:/decide:user-1:key-1"
	mock.ExpectGet(cacheKey).RedisNil()
	mock.ExpectSetNX(cacheKey+":lock", "locked", 30*time.Second).SetVal(false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/decide", strings.NewReader(`{}`))
	req.Header.Set("Idempotency-Key", "key-1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "CONFLICT")
	assert.Equal(t, 0, *calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotency_MissingKeyPassesThrough(t *testing.T) {
	router, mock, calls := idempotencyRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/decide", strings.NewReader(`{}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, *calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
