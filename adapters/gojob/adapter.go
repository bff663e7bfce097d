package gojob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-accountlink/adapters/gologger"
	linkcommand "github.com/goliatone/go-accountlink/command"
	"github.com/goliatone/go-accountlink/core"

	goerrors "github.com/goliatone/go-errors"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const JobIDRegisterLink = "accountlink.link.register"

// TerminalCodeRejectedRegistration marks registrations that can never succeed
// on retry.
const TerminalCodeRejectedRegistration job.TerminalErrorCode = "accountlink_registration_rejected"

// ErrMalformedJob marks a delivery that can never be processed.
var ErrMalformedJob = errors.New("gojob: malformed register link job")

const (
	paramToken          = "token"
	paramRemoteUserID   = "remote_user_id"
	paramRemoteUserName = "remote_user_name"
	paramRemoteInstance = "remote_instance"
	paramPlatformUserID = "platform_user_id"
)

// DefaultRetryPolicy retries backing store failures five times with
// exponential backoff capped at one minute.
func DefaultRetryPolicy() worker.DefaultRetryPolicy {
	return worker.DefaultRetryPolicy{
		MaxAttempts: 5,
		Backoff: worker.BackoffConfig{
			Strategy:    worker.BackoffExponential,
			Interval:    time.Second,
			MaxInterval: time.Minute,
		},
	}
}

// NewRegisterLinkMessage builds the queued form of a RegisterLink call. The
// idempotency key never carries the raw token. Registration is already
// idempotent in the store, so the dedup policy stays ignore: a drop policy
// would ack the redelivery of a failed attempt without running it.
func NewRegisterLinkMessage(account core.RemoteAccount, platformUserID string) (*job.ExecutionMessage, error) {
	if err := (linkcommand.RegisterLinkMessage{Account: account, PlatformUserID: platformUserID}).Validate(); err != nil {
		return nil, err
	}
	return &job.ExecutionMessage{
		JobID:      JobIDRegisterLink,
		ScriptPath: JobIDRegisterLink,
		Parameters: map[string]any{
			paramToken:          account.Token,
			paramRemoteUserID:   account.RemoteUserID,
			paramRemoteUserName: account.RemoteUserName,
			paramRemoteInstance: account.RemoteInstance,
			paramPlatformUserID: platformUserID,
		},
		IdempotencyKey: strings.Join([]string{
			JobIDRegisterLink,
			core.TokenFingerprint(account.Token),
			platformUserID,
		}, ":"),
		DedupPolicy: job.DedupPolicyIgnore,
	}, nil
}

// RegisterLinkFromMessage decodes a message built by NewRegisterLinkMessage.
func RegisterLinkFromMessage(msg *job.ExecutionMessage) (core.RemoteAccount, string, error) {
	if msg == nil {
		return core.RemoteAccount{}, "", fmt.Errorf("%w: execution message is required", ErrMalformedJob)
	}
	if msg.JobID != JobIDRegisterLink {
		return core.RemoteAccount{}, "", fmt.Errorf("%w: unexpected job id %q", ErrMalformedJob, msg.JobID)
	}
	account := core.RemoteAccount{
		Token:          stringParam(msg.Parameters, paramToken),
		RemoteUserID:   stringParam(msg.Parameters, paramRemoteUserID),
		RemoteUserName: stringParam(msg.Parameters, paramRemoteUserName),
		RemoteInstance: stringParam(msg.Parameters, paramRemoteInstance),
	}
	platformUserID := stringParam(msg.Parameters, paramPlatformUserID)
	if err := (linkcommand.RegisterLinkMessage{Account: account, PlatformUserID: platformUserID}).Validate(); err != nil {
		return core.RemoteAccount{}, "", fmt.Errorf("%w: %w", ErrMalformedJob, err)
	}
	return account, platformUserID, nil
}

type LinkRegistrationEnqueuer struct {
	enqueuer queue.Enqueuer
}

func NewLinkRegistrationEnqueuer(enqueuer queue.Enqueuer) *LinkRegistrationEnqueuer {
	return &LinkRegistrationEnqueuer{enqueuer: enqueuer}
}

func (e *LinkRegistrationEnqueuer) EnqueueRegisterLink(
	ctx context.Context,
	account core.RemoteAccount,
	platformUserID string,
) (queue.EnqueueReceipt, error) {
	if e == nil || e.enqueuer == nil {
		return queue.EnqueueReceipt{}, fmt.Errorf("gojob: enqueuer is not configured")
	}
	msg, err := NewRegisterLinkMessage(account, platformUserID)
	if err != nil {
		return queue.EnqueueReceipt{}, err
	}
	return e.enqueuer.Enqueue(ctx, msg)
}

// RegisterLinkTask is the job.Task that replays a queued registration.
// Failures that a retry cannot fix come back as job.NonRetryableError so the
// worker retry policy dead-letters them on the first attempt.
type RegisterLinkTask struct {
	registrar linkcommand.LinkRegistrar
	config    job.Config
}

func NewRegisterLinkTask(registrar linkcommand.LinkRegistrar) (*RegisterLinkTask, error) {
	if registrar == nil {
		return nil, fmt.Errorf("gojob: link registrar is required")
	}
	return &RegisterLinkTask{registrar: registrar}, nil
}

func (t *RegisterLinkTask) GetID() string                        { return JobIDRegisterLink }
func (t *RegisterLinkTask) GetPath() string                      { return JobIDRegisterLink }
func (t *RegisterLinkTask) GetConfig() job.Config                { return t.config }
func (t *RegisterLinkTask) GetHandler() func() error             { return func() error { return nil } }
func (t *RegisterLinkTask) GetHandlerConfig() job.HandlerOptions { return job.HandlerOptions{} }
func (t *RegisterLinkTask) GetEngine() job.Engine                { return nil }

func (t *RegisterLinkTask) Execute(ctx context.Context, msg *job.ExecutionMessage) error {
	if t == nil || t.registrar == nil {
		return fmt.Errorf("gojob: register link task is not configured")
	}
	account, platformUserID, err := RegisterLinkFromMessage(msg)
	if err != nil {
		return rejected(err)
	}
	if _, err := t.registrar.RegisterLink(ctx, account, platformUserID); err != nil {
		if isPermanent(err) {
			return rejected(err)
		}
		return err
	}
	return nil
}

func rejected(err error) error {
	return job.NewTerminalError(TerminalCodeRejectedRegistration, err.Error(), err)
}

func isPermanent(err error) bool {
	if core.IsBackingStoreUnavailable(err) {
		return false
	}
	if core.IsInvalidInput(err) || core.IsIntegrityViolation(err) {
		return true
	}
	if errors.Is(err, ErrMalformedJob) {
		return true
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category == goerrors.CategoryValidation || rich.Category == goerrors.CategoryBadInput
	}
	return false
}

type workerSettings struct {
	policy  worker.RetryPolicy
	hooks   []worker.Hook
	logger  glog.Logger
	options []worker.Option
}

type WorkerOption func(*workerSettings)

func WithRetryPolicy(policy worker.RetryPolicy) WorkerOption {
	return func(s *workerSettings) {
		if policy != nil {
			s.policy = policy
		}
	}
}

func WithWorkerHooks(hooks ...worker.Hook) WorkerOption {
	return func(s *workerSettings) {
		s.hooks = append(s.hooks, hooks...)
	}
}

func WithWorkerLogger(logger glog.Logger) WorkerOption {
	return func(s *workerSettings) {
		s.logger = logger
	}
}

// WithWorkerOptions passes options straight to worker.NewWorker, after the
// ones derived from the settings above.
func WithWorkerOptions(opts ...worker.Option) WorkerOption {
	return func(s *workerSettings) {
		s.options = append(s.options, opts...)
	}
}

// NewLinkRegistrationWorker builds a go-job worker with the register-link task
// registered. The attempt number is read from the delivery, so retry bounds
// hold across worker restarts when the queue tracks attempts. The caller owns
// Start and Stop.
func NewLinkRegistrationWorker(
	dequeuer queue.Dequeuer,
	registrar linkcommand.LinkRegistrar,
	opts ...WorkerOption,
) (*worker.Worker, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	task, err := NewRegisterLinkTask(registrar)
	if err != nil {
		return nil, err
	}
	settings := workerSettings{policy: DefaultRetryPolicy()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&settings)
	}

	_, _, _, jobLogger := gologger.ResolveForWorker(nil, settings.logger)
	workerOpts := []worker.Option{
		worker.WithRetryPolicy(settings.policy),
		worker.WithHooks(settings.hooks...),
	}
	if jobLogger != nil {
		workerOpts = append(workerOpts, worker.WithLogger(jobLogger))
	}
	workerOpts = append(workerOpts, settings.options...)

	w := worker.NewWorker(dequeuer, workerOpts...)
	if err := w.Register(task); err != nil {
		return nil, fmt.Errorf("gojob: register link task: %w", err)
	}
	return w, nil
}

// MetricsHook reports worker lifecycle events as accountlink.jobs.* metrics.
type MetricsHook struct {
	recorder core.MetricsRecorder
}

func NewMetricsHook(recorder core.MetricsRecorder) *MetricsHook {
	if recorder == nil {
		recorder = core.NopMetricsRecorder{}
	}
	return &MetricsHook{recorder: recorder}
}

func (h *MetricsHook) OnStart(ctx context.Context, event worker.Event) {
	h.record(ctx, "started", event, false)
}

func (h *MetricsHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.record(ctx, "succeeded", event, true)
}

func (h *MetricsHook) OnFailure(ctx context.Context, event worker.Event) {
	h.record(ctx, "failed", event, true)
}

func (h *MetricsHook) OnRetry(ctx context.Context, event worker.Event) {
	h.record(ctx, "retried", event, false)
}

func (h *MetricsHook) record(ctx context.Context, phase string, event worker.Event, withDuration bool) {
	if h == nil || h.recorder == nil {
		return
	}
	jobID := ""
	if event.Message != nil {
		jobID = event.Message.JobID
	}
	tags := map[string]string{"job_id": jobID}
	h.recorder.IncCounter(ctx, "accountlink.jobs."+phase, 1, tags)
	if withDuration {
		h.recorder.ObserveHistogram(ctx, "accountlink.jobs.duration_ms", float64(event.Duration.Milliseconds()), tags)
	}
}

func stringParam(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	switch value := params[key].(type) {
	case string:
		return value
	case fmt.Stringer:
		return value.String()
	default:
		return ""
	}
}

var (
	_ job.Task    = (*RegisterLinkTask)(nil)
	_ worker.Hook = (*MetricsHook)(nil)
)
