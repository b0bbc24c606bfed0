package httpclient

import "fmt"

// UpstreamError is a non-2xx reply from a backend model service. The body
// is kept verbatim so the dispatcher can record what the backend actually
// said.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}
