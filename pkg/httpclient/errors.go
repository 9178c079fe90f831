package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/veryfrut/storefront/pkg/errors"
)

// downstreamError accepts both error bodies seen from upstream APIs: the
// {"error":{"code","message"}} envelope and the flat
// {"statusCode","message","error"} shape, where message may be a list of
// validation messages.
type downstreamError struct {
	Envelope *errorEnvelope
	Message  json.RawMessage
	Label    string
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (d *downstreamError) UnmarshalJSON(b []byte) error {
	var raw struct {
		Error   json.RawMessage `json:"error"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d.Message = raw.Message

	if len(raw.Error) == 0 || string(raw.Error) == "null" {
		return nil
	}
	if raw.Error[0] == '{' {
		d.Envelope = &errorEnvelope{}
		return json.Unmarshal(raw.Error, d.Envelope)
	}
	return json.Unmarshal(raw.Error, &d.Label)
}

func (d *downstreamError) codeAndMessage() (string, string, bool) {
	if d.Envelope != nil {
		return d.Envelope.Code, d.Envelope.Message, true
	}
	if len(d.Message) == 0 {
		return "", "", false
	}

	var single string
	if json.Unmarshal(d.Message, &single) == nil {
		return labelToCode(d.Label), single, true
	}
	var list []string
	if json.Unmarshal(d.Message, &list) == nil {
		return labelToCode(d.Label), strings.Join(list, "; "), true
	}
	return "", "", false
}

func labelToCode(label string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(label), " ", "_"))
}

// ParseResponseError reads the body of a non-2xx response and translates it
// into an *apperrors.AppError that preserves the status semantics. The body is
// fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var downstream downstreamError
	if json.Unmarshal(bodyBytes, &downstream) == nil {
		if code, message, ok := downstream.codeAndMessage(); ok {
			return mapDownstreamError(resp.StatusCode, code, message, serviceName)
		}
	}

	text := strings.TrimSpace(string(bodyBytes))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return mapDownstreamError(resp.StatusCode, "", text, serviceName)
}

func mapDownstreamError(status int, code, message, serviceName string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.New(apperrors.KindNotFound, "NOT_FOUND", qualifiedMsg)
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(message)
	case status == http.StatusConflict:
		if code != "" && code != "CONFLICT" {
			return apperrors.ConflictCode(code, message)
		}
		return apperrors.Conflict(message)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualifiedMsg)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualifiedMsg)
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway, status == http.StatusGatewayTimeout:
		return apperrors.ServiceUnavailable(qualifiedMsg)
	case status >= 500:
		return apperrors.Upstream(fmt.Sprintf("%s server error (%d): %s", serviceName, status, message), nil)
	default:
		if code == "" {
			code = labelToCode(http.StatusText(status))
		}
		e := apperrors.New(apperrors.KindUpstream, code, qualifiedMsg)
		e.Status = status
		return e
	}
}

// IsClientError reports whether status is a 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
