package models

import (
	"encoding/json"
	"strings"

	"github.com/buildhook/webhook-dispatcher/pkg/jsonpath"
)

// WebhookEvent is one inbound webhook delivery. It is built once per request
// and never modified.
type WebhookEvent struct {
	// Raw body exactly as received, used for signature verification
	Body []byte

	// Headers with lower-cased names
	Headers map[string]string

	// Request ID for tracing
	RequestID string

	payload  jsonpath.Value
	parseErr error
	parsed   bool
}

// NewWebhookEvent builds an event, lower-casing header names. When a name
// appears twice in different cases, the last one in iteration order wins.
func NewWebhookEvent(body []byte, headers map[string]string, requestID string) *WebhookEvent {
	normalized := make(map[string]string, len(headers))
	for k, v := range headers {
		normalized[strings.ToLower(k)] = v
	}
	return &WebhookEvent{
		Body:      body,
		Headers:   normalized,
		RequestID: requestID,
	}
}

// Payload parses the body on first use and returns the decoded document
func (e *WebhookEvent) Payload() (jsonpath.Value, error) {
	if !e.parsed {
		e.payload, e.parseErr = jsonpath.Parse(e.Body)
		e.parsed = true
	}
	return e.payload, e.parseErr
}

// Response is the reply sent back to the webhook caller
type Response struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// NewResponse builds a response carrying detail as message on 2xx statuses
// and as fault otherwise
func NewResponse(statusCode int, detail string) *Response {
	body := map[string]interface{}{"statusCode": statusCode}
	if statusCode >= 200 && statusCode < 300 {
		body["message"] = detail
	} else {
		body["fault"] = detail
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		encoded = []byte(`{"statusCode":500,"fault":"failed to encode response"}`)
	}

	return &Response{
		StatusCode: statusCode,
		Body:       string(encoded),
		Headers:    ResponseHeaders(),
	}
}

// ResponseHeaders returns the fixed headers attached to every response
func ResponseHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "POST, GET",
		"Access-Control-Allow-Headers": "Origin, X-Requested-With, Content-Type, Accept",
	}
}
