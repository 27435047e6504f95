package webhook

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/buildhook/webhook-dispatcher/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LambdaHandler adapts API Gateway proxy events to an EventHandler
type LambdaHandler struct {
	handler EventHandler
	logger  *logrus.Logger
}

// NewLambdaHandler creates a Lambda adapter around handler
func NewLambdaHandler(handler EventHandler, logger *logrus.Logger) *LambdaHandler {
	return &LambdaHandler{handler: handler, logger: logger}
}

// Handle converts the proxy request into a webhook event and the handler's
// response back into a proxy response. Errors are always reported in the
// response, never returned.
func (h *LambdaHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := lambdaRequestID(ctx, req)

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			h.logger.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Unable to decode base64 request body")
			return toProxyResponse(models.NewResponse(http.StatusBadRequest, "Unable to decode request body")), nil
		}
		body = decoded
	}

	event := models.NewWebhookEvent(body, proxyHeaders(req), requestID)
	return toProxyResponse(h.handler.Handle(ctx, event)), nil
}

// proxyHeaders flattens single and multi value headers, preferring the
// single value form
func proxyHeaders(req events.APIGatewayProxyRequest) map[string]string {
	headers := make(map[string]string, len(req.Headers)+len(req.MultiValueHeaders))
	for name, values := range req.MultiValueHeaders {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}
	for name, value := range req.Headers {
		headers[name] = value
	}
	return headers
}

func lambdaRequestID(ctx context.Context, req events.APIGatewayProxyRequest) string {
	if req.RequestContext.RequestID != "" {
		return req.RequestContext.RequestID
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}

func toProxyResponse(resp *models.Response) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}
}
