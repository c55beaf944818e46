package middlewares

import (
	"bytes"
	"crypto/sha1"
	"encoding/gob"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventhub/logger"
	"eventhub/utils"
)

type cachedBody struct {
	Status      int
	ContentType string
	Body        []byte
}

// sha1Hex keeps query-string keys short.
func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

const cacheTTLKey = "cacheTTL"

// CacheFor caps how long the current response may be cached. A non-positive
// d keeps it out of the cache.
func CacheFor(c *gin.Context, d time.Duration) {
	c.Set(cacheTTLKey, d)
}

// CacheKeyFrom returns the Redis key for a cacheable request under the given
// cache generation, and its kind ("list" or "item"). Only the public event
// reads are cacheable; anything scoped to a caller is never cached.
func CacheKeyFrom(c *gin.Context, gen string) (string, string) {
	if c.Request.Method != http.MethodGet {
		return "", ""
	}
	switch c.FullPath() {
	case "/api/events":
		return utils.CacheEventsListPrefix + gen + ":" + sha1Hex(c.Request.URL.RawQuery), "list"
	case "/api/events/:eventId":
		return utils.CacheEventsItemPrefix + gen + ":" + c.Param("eventId"), "item"
	default:
		return "", ""
	}
}

// ResponseCache serves cached 2xx bodies for the keys CacheKeyFrom produces.
// Redis errors degrade to an uncached pass-through.
func ResponseCache(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if kind := cacheKind(c); kind == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		// read before the handler so a purge during it orphans this entry
		gen, err := utils.CacheGeneration(ctx, rdb)
		if err != nil {
			logger.Warn("cache generation unavailable", "err", err)
			c.Next()
			return
		}
		key, _ := CacheKeyFrom(c, gen)

		if b, err := rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
			var hit cachedBody
			if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&hit); err == nil {
				c.Header("Content-Type", hit.ContentType)
				c.Header("X-Cache", "HIT")
				c.Status(hit.Status)
				_, _ = c.Writer.Write(hit.Body)
				c.Abort()
				return
			}
		}

		bw := &bufferedWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = bw
		c.Header("X-Cache", "MISS")

		c.Next()

		if bw.Status() < 200 || bw.Status() >= 300 {
			return
		}
		expiry := ttl
		if v, ok := c.Get(cacheTTLKey); ok {
			if d, _ := v.(time.Duration); d < expiry {
				expiry = d
			}
		}
		if expiry <= 0 {
			return
		}
		item := cachedBody{
			Status:      bw.Status(),
			ContentType: bw.Header().Get("Content-Type"),
			Body:        bw.buf.Bytes(),
		}
		var o bytes.Buffer
		if err := gob.NewEncoder(&o).Encode(item); err != nil {
			return
		}
		if err := rdb.Set(ctx, key, o.Bytes(), expiry).Err(); err != nil {
			logger.Warn("cache store failed", "key", key, "err", err)
		}
	}
}

func cacheKind(c *gin.Context) string {
	_, kind := CacheKeyFrom(c, "")
	return kind
}

// bufferedWriter keeps a copy of the body while writing it through.
type bufferedWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
