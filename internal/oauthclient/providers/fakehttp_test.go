package providers

import (
	"bytes"
	"io"
	"net/http"
)

// fakeResponse is a canned HTTP response keyed by request URL in
// fakeDoer, shared across this package's tests.
type fakeResponse struct {
	status int
	body   string
	err    error
}

// fakeDoer implements HTTPDoer, returning a fakeResponse per exact URL
// match and recording every request body seen for assertions.
type fakeDoer struct {
	responses map[string]fakeResponse
	bodies    []string
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		f.bodies = append(f.bodies, string(raw))
	}
	r, ok := f.responses[req.URL.String()]
	if !ok {
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(bytes.NewReader(nil))}, nil
	}
	if r.err != nil {
		return nil, r.err
	}
	return &http.Response{StatusCode: r.status, Body: io.NopCloser(bytes.NewReader([]byte(r.body)))}, nil
}

// fakeDoerWithHeaderCapture wraps fakeDoer to record the Authorization
// header each request carried, for tests asserting header-vs-body
// client authentication placement.
type fakeDoerWithHeaderCapture struct {
	fakeDoer
	captured *string
}

func (f *fakeDoerWithHeaderCapture) Do(req *http.Request) (*http.Response, error) {
	*f.captured = req.Header.Get("Authorization")
	return f.fakeDoer.Do(req)
}
