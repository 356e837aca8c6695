package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"
)

// records what the wrapped handler sent back so it can be logged
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

// Output a logging line for each request once it has been answered
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: writer}

		next.ServeHTTP(rec, request)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		log.Printf("-> %s %s %d %dB %s",
			request.Method, request.RequestURI, rec.status, rec.bytes, time.Since(start))
	})
}

// Stop browsers from sniffing a content type other than the one declared
func HeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(writer, request)
	})
}

// Returns middleware that sets a Cache-Control max-age of maxAge seconds
func CacheMiddleware(maxAge int) func(http.Handler) http.Handler {
	value := fmt.Sprintf("max-age=%d", maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.Header().Set("Cache-Control", value)
			next.ServeHTTP(writer, request)
		})
	}
}
