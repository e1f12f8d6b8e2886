package hub

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rhuss/llmhub/pkg/api"
)

// errorBody is the error format returned by OpenAI-compatible backends.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// MapHTTPError converts an HTTP response with a non-2xx status code into
// an APIError. It attempts to parse the response body as an OpenAI-style
// error to extract a descriptive message.
func MapHTTPError(resp *http.Response) *api.APIError {
	message := ExtractErrorMessage(resp.Body)

	var apiErr *api.APIError
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		if message == "" {
			message = "invalid request to hub"
		}
		apiErr = api.NewInvalidRequestError("", message)

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if message == "" {
			message = "hub authentication failed"
		}
		apiErr = api.NewAuthenticationError(message)

	case resp.StatusCode == http.StatusNotFound:
		if message == "" {
			message = "hub resource not found"
		}
		apiErr = api.NewNotFoundError(message)

	case resp.StatusCode == http.StatusTooManyRequests:
		if message == "" {
			message = "hub rate limit exceeded"
		}
		apiErr = api.NewTooManyRequestsError(message)

	case resp.StatusCode >= http.StatusInternalServerError:
		if message == "" {
			message = fmt.Sprintf("hub server error (HTTP %d)", resp.StatusCode)
		}
		apiErr = api.NewUpstreamError(resp.StatusCode, message)

	default:
		if message == "" {
			message = fmt.Sprintf("unexpected hub response (HTTP %d)", resp.StatusCode)
		}
		apiErr = api.NewUpstreamError(resp.StatusCode, message)
	}

	apiErr.Status = resp.StatusCode
	return apiErr
}

// MapNetworkError converts a network-level error (connection refused, timeout,
// DNS resolution failure) into an APIError with a descriptive message.
func MapNetworkError(err error) *api.APIError {
	return api.NewServerError(fmt.Sprintf("hub connection error: %s", err.Error()))
}

// ExtractErrorMessage tries to parse the response body as an OpenAI-style
// error and returns its message if found.
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var errResp errorBody
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}

	return ""
}
