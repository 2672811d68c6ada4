package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/veritest-ai/veritest-be/pkg/veritest"
)

// Endpoint is the stand-in "provider" for raw HTTP targets. It substitutes
// {{variable}} placeholders in the URL and body template with test case
// inputs, performs the call, and extracts the output from the response body.
type Endpoint struct {
	target veritest.EndpointTarget
	client *http.Client
}

// NewEndpoint returns an adapter for one endpoint target.
func NewEndpoint(target veritest.EndpointTarget, client *http.Client) *Endpoint {
	if client == nil {
		client = newHTTPClient()
	}
	return &Endpoint{target: target, client: client}
}

// Call performs the HTTP request for one test case and returns the extracted
// output text.
func (e *Endpoint) Call(ctx context.Context, inputs map[string]string) (string, error) {
	url := SubstituteVars(e.target.URL, inputs)
	body := SubstituteVars(e.target.BodyTemplate, inputs)

	method := e.target.Method
	if method == "" {
		if body != "" {
			method = http.MethodPost
		} else {
			method = http.MethodGet
		}
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, reader)
	if err != nil {
		return "", &ProviderError{Message: err.Error()}
	}
	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range e.target.Headers {
		req.Header.Set(key, value)
	}
	if e.target.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+e.target.BearerToken)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", &ProviderError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("endpoint returned status %d: %s", resp.StatusCode, truncate(string(raw), 200)),
		}
	}

	if e.target.ResponseContentPath == "" {
		return string(raw), nil
	}

	value, err := extractPath(raw, e.target.ResponseContentPath)
	if err != nil {
		return "", &ProviderError{Message: err.Error()}
	}
	return value, nil
}

// SubstituteVars replaces {{name}} placeholders with input values. Unknown
// placeholders are left in place.
func SubstituteVars(template string, inputs map[string]string) string {
	if template == "" || len(inputs) == 0 {
		return template
	}
	result := template
	for name, value := range inputs {
		result = strings.ReplaceAll(result, "{{"+name+"}}", value)
		result = strings.ReplaceAll(result, "{{ "+name+" }}", value)
	}
	return result
}

// extractPath walks a dot-separated path ("data.choices.0.text") into the
// JSON document. Numeric segments index arrays.
func extractPath(raw []byte, path string) (string, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("response is not valid JSON: %v", err)
	}

	current := doc
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			value, ok := node[segment]
			if !ok {
				return "", fmt.Errorf("response path %q not found", path)
			}
			current = value
		case []interface{}:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return "", fmt.Errorf("response path %q not found", path)
			}
			current = node[index]
		default:
			return "", fmt.Errorf("response path %q not found", path)
		}
	}

	switch value := current.(type) {
	case string:
		return value, nil
	case nil:
		return "", nil
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("response path %q not extractable", path)
		}
		return string(encoded), nil
	}
}

// truncate caps s at limit runes, never splitting a UTF-8 sequence.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
