package mw

import (
	"bytes"
	"crypto/sha256"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// IdempotencyHeader carries the client-chosen key of a mutating request.
const IdempotencyHeader = "Idempotency-Key"

// ReplayedHeader marks a response served from the idempotency store.
const ReplayedHeader = "Idempotent-Replayed"

type cachedResponse struct {
	bodyHash [sha256.Size]byte
	status   int
	headers  http.Header
	body     []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored 2xx response of a mutating request whose
// Idempotency-Key was already seen on the same method, path and actor. A key
// reused with a different request body is rejected with 422.
func Idempotency(store *cache.Cache, ttl time.Duration, actorHeader string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			var err error
			body, err = io.ReadAll(c.Request.Body)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
					"error": "failed to read request body",
					"code":  "validation_error",
				})
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		hash := sha256.Sum256(body)

		storeKey := c.Request.Method + " " + c.Request.URL.Path + " " + c.GetHeader(actorHeader) + " " + key
		if resp, found := store.Get(storeKey); found {
			cached := resp.(cachedResponse)
			if cached.bodyHash != hash {
				c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
					"error": "idempotency key was already used with a different request body",
					"code":  "idempotency_key_reused",
				})
				return
			}
			for k, v := range cached.headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set(ReplayedHeader, "true")
			c.Writer.WriteHeader(cached.status)
			c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// Failed attempts may be retried with the same key.
		if blw.Status() >= 200 && blw.Status() < 300 {
			store.Set(storeKey, cachedResponse{
				bodyHash: hash,
				status:   blw.Status(),
				headers:  blw.Header().Clone(),
				body:     blw.body.Bytes(),
			}, ttl)
		}
	}
}
