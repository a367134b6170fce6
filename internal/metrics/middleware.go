package metrics

import (
	"net/http"
	"regexp"
	"time"
)

// Path segments carrying record UUIDs or device MACs are collapsed to a
// placeholder so label cardinality stays bounded.
var (
	uuidSegment = regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	macSegment  = regexp.MustCompile(`/([0-9a-fA-F]{2}:){5}[0-9a-fA-F]{2}`)
)

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.written {
		r.statusCode = code
		r.written = true
		r.ResponseWriter.WriteHeader(code)
	}
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.statusCode = http.StatusOK
		r.written = true
	}
	return r.ResponseWriter.Write(b)
}

// Middleware records a request counter and latency histogram for every
// request, with the path normalized to its route shape.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		startTime := time.Now()

		defer func() {
			duration := time.Since(startTime).Seconds()

			statusCode := recorder.statusCode
			if statusCode == 0 {
				statusCode = http.StatusInternalServerError
			}

			statusStr := http.StatusText(statusCode)
			if statusStr == "" {
				statusStr = "UNKNOWN"
			}

			path := normalizePath(r.URL.Path)
			RecordRequest(r.Method, path, statusStr)
			RecordRequestDuration(r.Method, path, statusStr, duration)

			if err := recover(); err != nil {
				if !recorder.written {
					recorder.WriteHeader(http.StatusInternalServerError)
				}
			}
		}()

		next.ServeHTTP(recorder, r)
	})
}

// normalizePath collapses identifier segments:
//
//	/api/guests/9f1c...-uuid        -> /api/guests/:id
//	/api/status/aa:bb:cc:dd:ee:ff   -> /api/status/:mac
func normalizePath(path string) string {
	path = uuidSegment.ReplaceAllString(path, "/:id")
	return macSegment.ReplaceAllString(path, "/:mac")
}
