package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/reservehq/reserve-personnel/pkg/logger"
)

// redactedFields are matched as substrings against lowercased header and JSON
// key names. Anything matching is replaced before the value reaches a log line.
var redactedFields = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"credential",
	"api_key",
	"session",
}

const redactedPlaceholder = "[REDACTED]"

// LoggingMiddleware emits one line per request and one per response. The
// request line includes a redacted copy of the JSON body; the response line
// carries status, latency and size. The context logger already holds the
// trace id, so both lines correlate without extra plumbing.
func LoggingMiddleware(fallback *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.From(r.Context())
			if log == nil {
				log = fallback
			}

			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"body", redactedRequestBody(r),
			)

			sw := &statusWriter{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(sw, r)

			log.Log(r.Context(), levelForStatus(sw.status()), "response",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes", sw.written,
			)
		})
	}
}

// statusWriter records the status code and byte count without buffering the
// body.
type statusWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.statusCode = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	n, err := sw.ResponseWriter.Write(b)
	sw.written += int64(n)
	return n, err
}

func (sw *statusWriter) status() int {
	if sw.statusCode == 0 {
		return http.StatusOK
	}
	return sw.statusCode
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// redactedRequestBody reads and restores the request body, returning a
// loggable string with credentials and tokens masked.
func redactedRequestBody(r *http.Request) string {
	if r.Body == nil {
		return ""
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	if len(raw) == 0 {
		return ""
	}

	var parsed interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// Non-JSON bodies are not worth the risk of logging raw.
		return "[non-json body]"
	}

	out, err := json.Marshal(redactValue(parsed))
	if err != nil {
		return ""
	}
	return string(out)
}

func redactValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for key, inner := range val {
			if sensitiveName(key) {
				out[key] = redactedPlaceholder
				continue
			}
			out[key] = redactValue(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = redactValue(inner)
		}
		return out
	default:
		return v
	}
}

func sensitiveName(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range redactedFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}
