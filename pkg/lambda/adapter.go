package lambda

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Adapter serves API Gateway proxy events through a standard http.Handler, so the
// same router backs both the long-running server and the serverless functions.
type Adapter struct {
	handler http.Handler
	routes  map[string]struct{}
}

// Option customises the Adapter.
type Option func(*Adapter)

// WithRoutes restricts the function to the given "METHOD /path" pairs. Other requests
// get a 404 without reaching the handler.
func WithRoutes(routes ...string) Option {
	return func(a *Adapter) {
		for _, route := range routes {
			method, path, ok := strings.Cut(strings.TrimSpace(route), " ")
			if !ok {
				continue
			}
			a.routes[routeKey(method, path)] = struct{}{}
		}
	}
}

// NewAdapter wraps handler.
func NewAdapter(handler http.Handler, opts ...Option) *Adapter {
	a := &Adapter{handler: handler, routes: make(map[string]struct{})}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Serve runs req through the wrapped handler and captures the response.
func (a *Adapter) Serve(ctx context.Context, req *Request) (*Response, error) {
	if !a.allowed(req) {
		return &Response{
			StatusCode: http.StatusNotFound,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       []byte(`{"error":"Not found"}`),
		}, nil
	}

	httpReq, err := a.toHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	w := newResponseWriter()
	a.handler.ServeHTTP(w, httpReq)
	return w.response(), nil
}

// HandleProxy is the Lambda entry point for API Gateway REST proxy integrations.
func (a *Adapter) HandleProxy(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := FromProxyRequest(event)
	if err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body"), nil
	}

	resp, err := a.Serve(ctx, req)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Internal server error"), nil
	}
	return resp.ToProxyResponse(), nil
}

func (a *Adapter) allowed(req *Request) bool {
	if len(a.routes) == 0 {
		return true
	}
	_, ok := a.routes[routeKey(req.Method, req.Path)]
	return ok
}

func (a *Adapter) toHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	target := url.URL{Path: req.Path, RawQuery: url.Values(req.QueryParams).Encode()}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.RequestID != "" && httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", req.RequestID)
	}
	if req.SourceIP != "" {
		httpReq.RemoteAddr = net.JoinHostPort(req.SourceIP, "0")
	}
	httpReq.ContentLength = int64(len(req.Body))
	return httpReq, nil
}

func routeKey(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimRight(strings.TrimSpace(path), "/")
}

type responseWriter struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newResponseWriter() *responseWriter {
	return &responseWriter{header: make(http.Header)}
}

func (w *responseWriter) Header() http.Header {
	return w.header
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(p)
}

func (w *responseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *responseWriter) response() *Response {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}

	headers := make(map[string]string, len(w.header))
	for key, values := range w.header {
		headers[key] = strings.Join(values, ",")
	}
	if _, ok := headers["Content-Type"]; !ok && w.body.Len() > 0 {
		headers["Content-Type"] = http.DetectContentType(w.body.Bytes())
	}

	return &Response{StatusCode: status, Headers: headers, Body: w.body.Bytes()}
}
