package lambda

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Request represents a generic HTTP request for serverless functions
type Request struct {
	Method      string              `json:"method"`
	Path        string              `json:"path"`
	Headers     map[string]string   `json:"headers"`
	QueryParams map[string][]string `json:"query_params"`
	Body        []byte              `json:"body"`
	PathParams  map[string]string   `json:"path_params"`
	SourceIP    string              `json:"source_ip"`
	RequestID   string              `json:"request_id"`
}

// Response represents a generic HTTP response for serverless functions
type Response struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       []byte            `json:"body"`
}

// FromProxyRequest converts an API Gateway proxy event. Multi-value query parameters win
// over the single-value map when both are present.
func FromProxyRequest(event events.APIGatewayProxyRequest) (*Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded && event.Body != "" {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("lambda: decode request body: %w", err)
		}
		body = decoded
	}

	query := make(map[string][]string, len(event.QueryStringParameters))
	for key, value := range event.QueryStringParameters {
		query[key] = []string{value}
	}
	for key, values := range event.MultiValueQueryStringParameters {
		query[key] = append([]string(nil), values...)
	}

	headers := make(map[string]string, len(event.Headers))
	for key, value := range event.Headers {
		headers[key] = value
	}
	for key, values := range event.MultiValueHeaders {
		if len(values) > 0 {
			headers[key] = strings.Join(values, ",")
		}
	}

	return &Request{
		Method:      strings.ToUpper(event.HTTPMethod),
		Path:        event.Path,
		Headers:     headers,
		QueryParams: query,
		Body:        body,
		PathParams:  event.PathParameters,
		SourceIP:    event.RequestContext.Identity.SourceIP,
		RequestID:   event.RequestContext.RequestID,
	}, nil
}

// ToProxyResponse converts a Response for API Gateway. Binary payloads are base64 encoded
// and flagged so the gateway decodes them before replying.
func (r *Response) ToProxyResponse() events.APIGatewayProxyResponse {
	if r == nil {
		return errorResponse(500, "Internal server error")
	}

	out := events.APIGatewayProxyResponse{
		StatusCode: r.StatusCode,
		Headers:    r.Headers,
	}
	if IsTextContent(r.Headers["Content-Type"]) {
		out.Body = string(r.Body)
		return out
	}

	out.Body = base64.StdEncoding.EncodeToString(r.Body)
	out.IsBase64Encoded = true
	return out
}

// IsTextContent reports whether a content type can travel as a plain string body.
func IsTextContent(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch {
	case mediaType == "":
		return true
	case strings.HasPrefix(mediaType, "text/"):
		return true
	case mediaType == "application/json", mediaType == "application/xml", mediaType == "application/javascript":
		return true
	case strings.HasSuffix(mediaType, "+json"), strings.HasSuffix(mediaType, "+xml"):
		return true
	default:
		return false
	}
}

func errorResponse(status int, message string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       fmt.Sprintf(`{"error":%q}`, message),
	}
}
