// Package callback reports build status back to the version-control system.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/buildhook/webhook-dispatcher/internal/models"
	"github.com/buildhook/webhook-dispatcher/pkg/logging"
	"github.com/buildhook/webhook-dispatcher/pkg/metrics"
	"github.com/buildhook/webhook-dispatcher/pkg/render"
	"github.com/sirupsen/logrus"
)

// NoCallbackStatus is reported when no callback URL is configured
const NoCallbackStatus = http.StatusOK

// HTTPClient is the subset of *http.Client used to send callbacks
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Dispatcher renders and sends status callbacks
type Dispatcher struct {
	urlTemplate     string
	payloadTemplate string
	url             *render.Template
	payload         *render.Template
	client          HTTPClient
	logger          *logrus.Logger
}

// NewDispatcher creates a dispatcher for the given URL and payload templates.
// A nil client uses http.DefaultClient.
func NewDispatcher(urlTemplate, payloadTemplate string, client HTTPClient, logger *logrus.Logger) *Dispatcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Dispatcher{
		urlTemplate:     urlTemplate,
		payloadTemplate: payloadTemplate,
		url:             render.Parse(urlTemplate),
		payload:         render.Parse(payloadTemplate),
		client:          client,
		logger:          logger,
	}
}

// Configured reports whether a callback URL is set
func (d *Dispatcher) Configured() bool {
	return d.urlTemplate != ""
}

// Dispatch sends one status callback built from cc and returns the HTTP
// status it produced. Non-2xx statuses are returned without an error.
func (d *Dispatcher) Dispatch(ctx context.Context, cc *models.CallbackContext) (int, error) {
	if !d.Configured() {
		d.logger.Info("No callback URL configured, skipping build status update")
		return NoCallbackStatus, nil
	}

	if d.payloadTemplate == "" {
		return 0, &ConfigurationError{
			Field:   "GIT_CALLBACK_PAYLOAD",
			Message: "must be set if GIT_CALLBACK_URI is set",
		}
	}

	if missing := d.missingVariables(cc.Variables); len(missing) > 0 {
		d.logger.WithField("variables", missing).Warn("Callback templates reference unset variables, rendering them as None")
	}

	url := strings.TrimRightFunc(d.url.Execute(cc.Variables), unicode.IsSpace)
	rendered := d.payload.Execute(cc.Variables)

	// Only the redacted form of the URL leaves this function
	loggedURL := redact(url, cc)

	var payload bytes.Buffer
	if err := json.Compact(&payload, []byte(rendered)); err != nil {
		return 0, &CallbackError{Operation: "render", URL: loggedURL, Err: fmt.Errorf("payload is not valid JSON: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &payload)
	if err != nil {
		return 0, &CallbackError{Operation: "request", URL: loggedURL, Err: &redactedError{msg: redact(err.Error(), cc), err: err}}
	}
	req.Header.Set("Content-Type", "application/json")
	if cc.Credentials.IsSet() {
		req.SetBasicAuth(cc.Credentials.Username, cc.Credentials.Token)
	}

	status := string(cc.Status())
	d.logger.WithFields(logrus.Fields{
		"url":          loggedURL,
		"build_status": status,
	}).Info("Invoking Git callback")

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		metrics.RecordCallback(status, 0, time.Since(start).Seconds())
		return 0, &CallbackError{Operation: "post", URL: loggedURL, Err: &redactedError{msg: redact(err.Error(), cc), err: err}}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	metrics.RecordCallback(status, resp.StatusCode, time.Since(start).Seconds())

	d.logger.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
	}).Info("Git callback completed")
	d.logger.WithField("body", string(body)).Debug("Git callback response body")

	return resp.StatusCode, nil
}

// missingVariables lists the placeholders of both templates that vars does
// not define
func (d *Dispatcher) missingVariables(vars map[string]string) []string {
	var missing []string
	seen := make(map[string]bool)
	for _, tmpl := range []*render.Template{d.url, d.payload} {
		for _, name := range tmpl.Placeholders() {
			if _, ok := vars[name]; ok || seen[name] {
				continue
			}
			seen[name] = true
			missing = append(missing, name)
		}
	}
	return missing
}

// redact masks the callback credentials wherever they appear in s
func redact(s string, cc *models.CallbackContext) string {
	secrets := []string{
		cc.Credentials.Token,
		cc.Variables[models.VarGitToken],
		cc.Variables[models.VarGitSecret],
	}
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, logging.Mask(secret))
		}
	}
	return s
}
