package pipeline

import (
	"bytes"
	"net/http"
)

// errBodyCap bounds how much of an error response body is retained for
// audit message extraction.
const errBodyCap = 4 << 10

// recorder wraps a ResponseWriter to capture the status code, the response
// size, and a bounded copy of error bodies.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
	body   bytes.Buffer
}

func newRecorder(w http.ResponseWriter) *recorder {
	return &recorder{ResponseWriter: w}
}

func (r *recorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	if r.status >= 400 && r.body.Len() < errBodyCap {
		room := errBodyCap - r.body.Len()
		if room > len(p) {
			room = len(p)
		}
		r.body.Write(p[:room])
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

// Status returns the recorded status, defaulting to 200 when the handler
// never called WriteHeader.
func (r *recorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *recorder) errBody() []byte {
	return r.body.Bytes()
}
