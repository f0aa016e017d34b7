package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"leaveflow/internal/shared/apperror"
	"leaveflow/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyLockTTL  = 30 * time.Second
	idempotencyCacheTTL = 24 * time.Hour
)

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

// cachedResponse keeps the original status so a replayed 201 stays a 201.
type cachedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the cached response for a repeated Idempotency-Key and
// rejects a key whose first request is still in flight. A double-clicked
// approve button therefore decides at most once.
func Idempotency(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		idempKey := c.GetHeader("Idempotency-Key")
		if idempKey == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		userID := c.GetString("user_id_validated")
		cacheKey := fmt.Sprintf("idemp:%s:%s:%s", c.FullPath(), userID, idempKey)
		lockKey := cacheKey + ":lock"

		if val, err := rdb.Get(c.Request.Context(), cacheKey).Result(); err == nil {
			var cached cachedResponse
			if err := json.Unmarshal([]byte(val), &cached); err == nil && cached.Status != 0 {
				c.Data(cached.Status, "application/json", []byte(cached.Body))
				c.Abort()
				return
			}
		}

		// The lock expires on its own, so a crashed worker cannot wedge the
		// key forever.
		isNew, _ := rdb.SetNX(c.Request.Context(), lockKey, "locked", idempotencyLockTTL).Result()
		if !isNew {
			response.Error(c, http.StatusConflict, apperror.CodeConflict, "request with this idempotency key is still being processed", nil)
			c.Abort()
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder

		c.Next()

		ctx := c.Request.Context()
		if recorder.Status() >= 200 && recorder.Status() < 300 {
			payload, err := json.Marshal(cachedResponse{Status: recorder.Status(), Body: recorder.body.String()})
			if err == nil {
				if err := rdb.Set(ctx, cacheKey, payload, idempotencyCacheTTL).Err(); err == nil {
					rdb.Del(ctx, lockKey)
					return
				}
			}
		}
		rdb.Del(ctx, lockKey)
	}
}
