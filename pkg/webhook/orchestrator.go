package webhook

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/buildhook/webhook-dispatcher/internal/models"
	"github.com/buildhook/webhook-dispatcher/pkg/auth"
	"github.com/buildhook/webhook-dispatcher/pkg/build"
	"github.com/buildhook/webhook-dispatcher/pkg/config"
	"github.com/buildhook/webhook-dispatcher/pkg/jsonpath"
	"github.com/buildhook/webhook-dispatcher/pkg/logging"
	"github.com/buildhook/webhook-dispatcher/pkg/metrics"
	"github.com/buildhook/webhook-dispatcher/pkg/params"
	"github.com/buildhook/webhook-dispatcher/pkg/render"
	"github.com/buildhook/webhook-dispatcher/pkg/secrets"
	"github.com/buildhook/webhook-dispatcher/pkg/webhook/providers"
	"github.com/sirupsen/logrus"
)

const (
	msgPingAcknowledged  = "Webhook configured successfully"
	msgInvalidSignature  = "Signature is not valid"
	msgMappingFailed     = "Unable to parse webhook payload, Please verify the env var: CODEBUILD_ENV_VARS_MAP"
	msgEventTypeNotFound = "Event type not found in headers"

	inProgressDescription = "CodeBuild job with id: {{CODEBUILD_BUILD_ID}} is submitted successfully."
)

// EventHandler turns one webhook delivery into a response
type EventHandler interface {
	Handle(ctx context.Context, event *models.WebhookEvent) *models.Response
}

// CallbackSender reports build status to the version-control system
type CallbackSender interface {
	Dispatch(ctx context.Context, cc *models.CallbackContext) (int, error)
	Configured() bool
}

// Orchestrator runs the per-delivery flow: settings check, event detection,
// signature gate, parameter mapping, build trigger and status callback
type Orchestrator struct {
	settings  *config.Settings
	trigger   build.Trigger
	secrets   secrets.Store
	callbacks CallbackSender
	providers *providers.Registry
	logger    *logrus.Logger
}

// NewOrchestrator creates an orchestrator with the given collaborators
func NewOrchestrator(settings *config.Settings, trigger build.Trigger, store secrets.Store, callbacks CallbackSender, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		settings:  settings,
		trigger:   trigger,
		secrets:   store,
		callbacks: callbacks,
		providers: providers.NewRegistry(),
		logger:    logger,
	}
}

// Handle processes one delivery. It never panics and always returns a
// response.
func (o *Orchestrator) Handle(ctx context.Context, event *models.WebhookEvent) (resp *models.Response) {
	start := time.Now()
	providerName := metrics.ProviderUnknown
	outcome := metrics.OutcomeRejected
	log := logging.LogWithRequestID(o.logger, event.RequestID)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("Recovered from panic while handling webhook")
			resp = models.NewResponse(http.StatusInternalServerError, fmt.Sprintf("internal error: %v", r))
		}
		metrics.RecordWebhook(providerName, outcome, resp.StatusCode, time.Since(start).Seconds())
		log.WithFields(logrus.Fields{
			"provider":    providerName,
			"outcome":     outcome,
			"status_code": resp.StatusCode,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Webhook handled")
	}()

	if err := o.settings.Validate(); err != nil {
		log.WithError(err).Error("Mandatory settings missing")
		return models.NewResponse(http.StatusInternalServerError,
			fmt.Sprintf("Following mandatory variables not set: %v", err))
	}

	headers := normalizeHeaders(event.Headers)

	provider, err := o.providers.Detect(headers)
	if err != nil {
		log.WithFields(logrus.Fields{
			"headers":   sortedKeys(headers),
			"supported": o.providers.Names(),
		}).Error("Event type not found in headers")
		return models.NewResponse(http.StatusInternalServerError, msgEventTypeNotFound)
	}
	providerName = provider.Name()

	if provider.IsPing(headers) {
		outcome = metrics.OutcomePing
		log.WithField("provider", providerName).Info("Ping received")
		return models.NewResponse(http.StatusOK, msgPingAcknowledged)
	}

	payload, err := event.Payload()
	if err != nil {
		log.WithError(err).Error("Unable to parse webhook body")
		return models.NewResponse(http.StatusInternalServerError, fmt.Sprintf("Unable to parse webhook body: %v", err))
	}

	eventType := provider.EventType(headers, payload)
	log = log.WithFields(logrus.Fields{"provider": providerName, "event_type": eventType})
	log.Info("Webhook event received")

	if !strings.EqualFold(eventType, o.settings.EventType) {
		outcome = metrics.OutcomeMismatched
		log.WithField("expected", o.settings.EventType).Warn("Event type does not match")
		return models.NewResponse(http.StatusInternalServerError, fmt.Sprintf(
			"The webhook event_type: %s doesn't match the configured event type: %s",
			eventType, o.settings.EventType))
	}

	outcome = metrics.OutcomeMatched

	var gitSecret string
	if o.settings.SignatureValidationEnabled() {
		gitSecret, err = o.secrets.GetSecret(ctx, o.settings.GitSecretSecret)
		if err != nil {
			logging.LogError(log, err, "signing_secret", nil)
			return models.NewResponse(http.StatusInternalServerError,
				fmt.Sprintf("Unable to load webhook signing secret: %v", err))
		}

		if err := auth.VerifyHMAC(gitSecret, headers[auth.SignatureHeader], event.Body); err != nil {
			metrics.RecordSignatureFailure()
			log.WithError(err).Error("Invalid webhook message signature")
			return models.NewResponse(http.StatusUnauthorized, msgInvalidSignature)
		}
	}

	buildParams, err := o.mapParameters(payload)
	if err != nil {
		logging.LogError(log, err, "parameter_mapping", nil)
		return models.NewResponse(http.StatusInternalServerError, msgMappingFailed)
	}

	log.WithField("parameters", sortedKeys(buildParams)).Info("Build parameters resolved")

	return o.submit(ctx, log, buildParams, gitSecret)
}

func (o *Orchestrator) mapParameters(payload jsonpath.Value) (map[string]string, error) {
	pathMap, err := params.ParsePathMap(o.settings.EnvVarsMap)
	if err != nil {
		return nil, err
	}
	return params.Map(payload, pathMap, o.settings.Environment, o.settings.PassthroughPrefixes)
}

// submit triggers the build and reports INPROGRESS. Any fault from here on
// is reported with a single FAILED callback.
func (o *Orchestrator) submit(ctx context.Context, log *logrus.Entry, buildParams map[string]string, gitSecret string) (resp *models.Response) {
	cc := o.newCallbackContext(buildParams, gitSecret)
	credentialsLoaded := false

	defer func() {
		if r := recover(); r != nil {
			resp = o.fail(ctx, log, cc, credentialsLoaded, fmt.Errorf("unexpected panic: %v", r))
		}
	}()

	project := o.settings.ProjectName
	buildID, err := o.trigger.Trigger(ctx, project, buildParams)
	metrics.RecordBuildTriggered(project, err)
	if err != nil {
		return o.fail(ctx, log, cc, credentialsLoaded, err)
	}

	log = log.WithField("build_id", buildID)
	log.Info("Build started")
	cc.Variables[models.VarBuildID] = buildID

	if err := o.loadCredentials(ctx, cc); err != nil {
		return o.fail(ctx, log, cc, credentialsLoaded, err)
	}
	credentialsLoaded = true

	cc.SetStatus(models.BuildStatusInProgress, render.Render(inProgressDescription, cc.Variables))

	status, err := o.callbacks.Dispatch(ctx, cc)
	if err != nil {
		return o.fail(ctx, log, cc, credentialsLoaded, err)
	}

	return models.NewResponse(status, fmt.Sprintf("Codebuild started with an id: %s", buildID))
}

// fail sends the FAILED callback for cause. The response mirrors that
// callback's status, or is a 500 when no callback could be sent.
func (o *Orchestrator) fail(ctx context.Context, log *logrus.Entry, cc *models.CallbackContext, credentialsLoaded bool, cause error) *models.Response {
	logging.LogError(log, cause, "build_submission", nil)

	description := fmt.Sprintf("Build job submission has failed: %v", cause)

	if !o.callbacks.Configured() {
		return models.NewResponse(http.StatusInternalServerError, description)
	}

	if !credentialsLoaded {
		if err := o.loadCredentials(ctx, cc); err != nil {
			log.WithError(err).Warn("Unable to load callback credentials, sending FAILED status without them")
		}
	}

	cc.SetStatus(models.BuildStatusFailed, description)

	status, err := o.callbacks.Dispatch(ctx, cc)
	if err != nil {
		log.WithError(err).Error("Unable to update Git webhook to FAILED")
		return models.NewResponse(http.StatusInternalServerError, description)
	}

	return models.NewResponse(status, description)
}

// newCallbackContext seeds the callback variables: build parameters,
// overlaid by the settings environment, plus the derived values
func (o *Orchestrator) newCallbackContext(buildParams map[string]string, gitSecret string) *models.CallbackContext {
	cc := models.NewCallbackContext(buildParams)
	for k, v := range o.settings.Environment {
		cc.Variables[k] = v
	}
	if gitSecret != "" {
		cc.Variables[models.VarGitSecret] = gitSecret
	}
	cc.Variables[models.VarLatestShortHash] = shortHash(cc.Variables[models.VarLatestCommitHash])
	return cc
}

// loadCredentials fetches the callback basic auth pair. Whatever was fetched
// is kept even when the second lookup fails.
func (o *Orchestrator) loadCredentials(ctx context.Context, cc *models.CallbackContext) error {
	username, err := o.secrets.GetSecret(ctx, o.settings.GitUsernameSecret)
	if err != nil {
		return fmt.Errorf("failed to load git username: %w", err)
	}
	cc.Credentials.Username = username
	cc.Variables[models.VarGitUsername] = username

	token, err := o.secrets.GetSecret(ctx, o.settings.GitTokenSecret)
	if err != nil {
		return fmt.Errorf("failed to load git token: %w", err)
	}
	cc.Credentials.Token = token
	cc.Variables[models.VarGitToken] = token

	return nil
}

func shortHash(hash string) string {
	runes := []rune(hash)
	if len(runes) > 7 {
		return string(runes[:7])
	}
	return hash
}

func normalizeHeaders(headers map[string]string) map[string]string {
	normalized := make(map[string]string, len(headers))
	for k, v := range headers {
		normalized[strings.ToLower(k)] = v
	}
	return normalized
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
