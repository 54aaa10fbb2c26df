package httpgin

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// writeJSONWithCache writes v as JSON with a weak ETag and a public max-age.
// A matching If-None-Match gets 304 without a body.
func writeJSONWithCache(c *gin.Context, status int, v any, maxAge time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}

	writeWithCache(c, status, "application/json; charset=utf-8", b,
		fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds())))
}

func writeWithCache(c *gin.Context, status int, contentType string, body []byte, cacheControl string) {
	sum := sha256.Sum256(body)
	tag := `W/"` + hex.EncodeToString(sum[:16]) + `"`

	c.Header("ETag", tag)
	if cacheControl != "" {
		c.Header("Cache-Control", cacheControl)
	}

	if etagMatches(c.GetHeader("If-None-Match"), tag) {
		c.Status(http.StatusNotModified)
		return
	}

	c.Data(status, contentType, body)
}

// etagMatches applies the weak comparison of If-None-Match: any listed tag, weak or
// strong, with the same opaque value matches, and so does "*".
func etagMatches(header, tag string) bool {
	if header == "" {
		return false
	}

	want := strings.TrimPrefix(tag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}

	return false
}
