package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/coyote/taskboard/pkg/logger"
	"github.com/gin-gonic/gin"
)

const auditBodyLimit = 2000

var sensitiveKeys = []string{"password", "code", "access_token", "token", "secret"}

// AuditLog writes one structured log line per mutating request with a
// masked copy of the request body.
func AuditLog() gin.HandlerFunc {
	log := logger.Component("audit")

	return func(c *gin.Context) {
		method := c.Request.Method
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
			body = string(raw)
			if len(body) > auditBodyLimit {
				body = body[:auditBodyLimit] + "...[truncated]"
			}
			body = maskSensitiveFields(body)
		}

		c.Next()

		resource, action := parseRouteInfo(c.FullPath(), method)
		status := c.Writer.Status()
		event := log.Info()
		if status >= http.StatusBadRequest {
			event = log.Warn()
		}
		event.
			Str("request_id", c.GetString(logger.RequestIDKey)).
			Uint("user_id", GetUserID(c)).
			Str("resource", resource).
			Str("action", action).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Str("body", body).
			Msg("audit")
	}
}

// parseRouteInfo extracts resource and action from a route pattern, e.g.
// "/board/:board_id/member/" + PATCH gives resource="member", action="update".
func parseRouteInfo(fullPath, method string) (resource, action string) {
	resource = "unknown"
	for _, seg := range strings.Split(strings.Trim(fullPath, "/"), "/") {
		if seg != "" && !strings.HasPrefix(seg, ":") {
			resource = seg
		}
	}

	switch method {
	case http.MethodPost:
		action = "create"
	case http.MethodPut, http.MethodPatch:
		action = "update"
	case http.MethodDelete:
		action = "delete"
	default:
		action = strings.ToLower(method)
	}
	return resource, action
}

// maskSensitiveFields replaces string values of sensitive JSON keys.
func maskSensitiveFields(body string) string {
	for _, key := range sensitiveKeys {
		body = maskJSONValue(body, key)
	}
	return body
}

// maskJSONValue masks every "key": "value" occurrence of key.
func maskJSONValue(body, key string) string {
	needle := "\"" + key + "\""
	from := 0
	for {
		idx := strings.Index(strings.ToLower(body[from:]), needle)
		if idx == -1 {
			return body
		}
		idx += from
		rest := idx + len(needle)

		colon := strings.Index(body[rest:], ":")
		if colon == -1 {
			return body
		}
		start := rest + colon + 1
		for start < len(body) && (body[start] == ' ' || body[start] == '\t') {
			start++
		}
		if start >= len(body) || body[start] != '"' {
			from = rest
			continue
		}

		end := strings.Index(body[start+1:], "\"")
		if end == -1 {
			return body
		}
		body = body[:start+1] + "***" + body[start+1+end:]
		from = start + 1 + len("***") + 1
	}
}
