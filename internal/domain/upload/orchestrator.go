package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/janhq/image-upload/utils/uploadid"
)

const tracerName = "github.com/janhq/image-upload/upload"

// Config holds the per-deployment settings of an Orchestrator.
type Config struct {
	KeyPrefix string
	Poll      PollConfig
}

// Dependencies are the collaborators an Orchestrator drives. Clock and Sink are optional.
type Dependencies struct {
	Issuer   CredentialIssuer
	Transfer Transfer
	Oracle   Oracle
	Sink     StatusSink
	Clock    clockwork.Clock
}

// Result summarizes the latest upload run.
type Result struct {
	UploadID    string
	Key         string
	State       State
	Tags        []TagRecord
	OriginalKey string
	Attempts    int
	Err         error
}

// Orchestrator runs one upload at a time: credential, transfer, duplicate check, tag polling.
type Orchestrator struct {
	cfg      Config
	issuer   CredentialIssuer
	transfer Transfer
	oracle   Oracle
	sink     StatusSink
	clock    clockwork.Clock
	poller   *Poller
	tracer   trace.Tracer
	log      zerolog.Logger

	mu              sync.Mutex
	state           State
	status          Status
	key             StorageKey
	poll            *PollHandle
	cancelRequested bool
	cancelPending   bool
	done            chan struct{}
	result          Result
}

// NewOrchestrator validates the configuration and wires the collaborators.
func NewOrchestrator(cfg Config, deps Dependencies, log zerolog.Logger) (*Orchestrator, error) {
	if cfg.KeyPrefix == "" {
		return nil, NewConfigurationError("storage key prefix is required", nil)
	}
	if deps.Issuer == nil || deps.Transfer == nil || deps.Oracle == nil {
		return nil, NewConfigurationError("issuer, transfer and oracle are required", nil)
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Sink == nil {
		deps.Sink = SinkFunc(func(Status) {})
	}
	logger := log.With().Str("component", "upload-orchestrator").Logger()
	return &Orchestrator{
		cfg:      cfg,
		issuer:   deps.Issuer,
		transfer: deps.Transfer,
		oracle:   deps.Oracle,
		sink:     deps.Sink,
		clock:    deps.Clock,
		poller:   NewPoller(deps.Oracle, cfg.Poll, deps.Clock, log),
		tracer:   otel.Tracer(tracerName),
		log:      logger,
		state:    StateIdle,
	}, nil
}

// Start runs the upload up to the point where it either finishes or begins polling, then
// returns. Polling continues in the background; use Wait for the terminal result.
func (o *Orchestrator) Start(ctx context.Context, req *Request) error {
	o.mu.Lock()
	if o.state.IsActive() {
		o.mu.Unlock()
		return newError(ErrUploadInProgress, "An upload is already in progress", nil)
	}
	if req == nil || req.Content == nil {
		o.rejectLocked("Please select an image first!")
		o.mu.Unlock()
		return newError(ErrNoRequest, "Please select an image first!", nil)
	}
	key, err := NewStorageKey(o.cfg.KeyPrefix, req.Filename)
	if err != nil {
		o.rejectLocked(UserMessage(err))
		o.mu.Unlock()
		return err
	}
	stale := o.poll
	o.poll = nil
	o.key = key
	o.cancelRequested = false
	o.done = make(chan struct{})
	o.result = Result{UploadID: uploadid.New(), Key: key.String()}
	o.state = StateIdle
	_ = o.transitionLocked(StateIssuing, SeverityInfo, "Processing your image...")
	uploadID := o.result.UploadID
	if o.cancelPending {
		o.cancelPending = false
		err := o.cancelLocked()
		o.mu.Unlock()
		return err
	}
	o.mu.Unlock()

	if stale != nil {
		stale.Cancel()
	}

	log := o.log.With().Str("upload_id", uploadID).Str("key", key.String()).Logger()
	ctx, span := o.tracer.Start(ctx, "upload.start", trace.WithAttributes(
		attribute.String("upload.id", uploadID),
		attribute.String("upload.key", key.String()),
	))
	defer span.End()

	contentType, err := ResolveContentType(req)
	if err != nil {
		return o.fail(span, log, err)
	}

	cred, err := o.issuer.IssueWriteCredential(ctx, key, contentType)
	if err != nil {
		if !errors.Is(err, ErrCredentialUnavailable) && !errors.Is(err, ErrConfiguration) {
			err = NewCredentialError("Failed to get upload credential", err)
		}
		return o.fail(span, log, err)
	}
	if cred.Expired(o.clock.Now()) {
		return o.fail(span, log, NewCredentialError("Upload credential expired before transfer", nil))
	}
	log.Debug().Time("expires_at", cred.ExpiresAt).Msg("write credential issued")

	if err := o.advance(StateTransferring, SeverityInfo, fmt.Sprintf("Uploading %s...", key.Filename())); err != nil {
		return err
	}
	outcome, err := o.transfer.Transfer(ctx, cred, req.Content, contentType)
	if err != nil {
		if !errors.Is(err, ErrTransferFailed) {
			err = NewTransferError(outcome.StatusCode, err)
		}
		return o.fail(span, log, err)
	}
	log.Info().Int("status", outcome.StatusCode).Str("content_type", contentType).Msg("object transferred")

	if err := o.advance(StateCheckingDuplicate, SeveritySuccess, "File uploaded successfully. Checking for duplicates..."); err != nil {
		return err
	}
	result := o.oracle.QueryTag(ctx, key.Filename())
	span.AddEvent("duplicate_check", trace.WithAttributes(attribute.String("oracle.result", result.Kind.String())))

	if result.IsDuplicate() {
		originalKey := result.OriginalKey
		if originalKey == "" {
			originalKey = key.String()
		}
		o.mu.Lock()
		o.result.Tags = result.Tags
		o.result.OriginalKey = originalKey
		err := o.terminalLocked(StateDuplicateFound, SeverityWarning, duplicateMessage(originalKey, result))
		o.mu.Unlock()
		log.Info().Bool("has_tags", result.Kind == OracleDuplicateTagged).Str("original_key", originalKey).Msg("duplicate upload detected")
		return err
	}
	if result.IsUnavailable() {
		log.Warn().Msg("duplicate check inconclusive, proceeding to poll")
	}
	return o.startPolling(ctx, key)
}

// Run starts an upload and waits for its terminal state.
func (o *Orchestrator) Run(ctx context.Context, req *Request) (Result, error) {
	if err := o.Start(ctx, req); err != nil {
		return o.Result(), err
	}
	return o.Wait(ctx)
}

// Wait blocks until the current upload reaches a terminal state or ctx ends.
func (o *Orchestrator) Wait(ctx context.Context) (Result, error) {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done == nil {
		return o.Result(), newError(ErrNoRequest, "no upload has been started", nil)
	}
	select {
	case <-done:
		res := o.Result()
		return res, res.Err
	case <-ctx.Done():
		return o.Result(), ctx.Err()
	}
}

// Cancel tears the upload down. A running poll timer is stopped before Cancel returns.
// In-flight credential and transfer calls are not interrupted; the upload ends as
// cancelled once they return. Cancelling an orchestrator that was never started makes
// its first Start end cancelled before any call is made.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	if o.state == StateIdle && o.done == nil {
		o.cancelPending = true
		o.mu.Unlock()
		return
	}
	if !o.state.IsActive() {
		o.mu.Unlock()
		return
	}
	o.cancelRequested = true
	h := o.poll
	done := o.done
	o.mu.Unlock()

	if h != nil {
		h.Cancel()
		<-done
	}
}

// State returns the current workflow state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Status returns the last emitted status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Result returns a snapshot of the current run.
func (o *Orchestrator) Result() Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	res := o.result
	res.State = o.state
	return res
}

func (o *Orchestrator) startPolling(ctx context.Context, key StorageKey) error {
	o.mu.Lock()
	if o.cancelRequested {
		err := o.cancelLocked()
		o.mu.Unlock()
		return err
	}
	if err := o.transitionLocked(StatePolling, SeveritySuccess, "Image uploaded successfully. Checking for tags..."); err != nil {
		o.mu.Unlock()
		return err
	}
	h := o.poller.Start(ctx, key.Filename(), o.onPollAttempt)
	o.poll = h
	o.mu.Unlock()

	go o.awaitPoll(h)
	return nil
}

func (o *Orchestrator) onPollAttempt(attempt int, result OracleResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancelRequested || o.state != StatePolling {
		return
	}
	o.result.Attempts = attempt
	msg := fmt.Sprintf("Checking for tags... (Attempt %d/%d)", attempt, o.poller.Config().MaxAttempts)
	_ = o.transitionLocked(StatePolling, SeverityInfo, msg)
}

func (o *Orchestrator) awaitPoll(h *PollHandle) {
	<-h.Done()
	outcome, err := h.Result()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.poll != h || o.state != StatePolling {
		return
	}
	o.result.Attempts = outcome.Attempts
	switch {
	case err != nil:
		_ = o.cancelLocked()
	case outcome.Exhausted:
		_ = o.terminalLocked(StatePollExhausted, SeverityInfo, "Image uploaded successfully but tags were not found")
	default:
		o.result.Tags = outcome.Tags
		_ = o.terminalLocked(StateTagged, SeveritySuccess, "Image uploaded successfully with tags: "+FormatTags(outcome.Tags))
	}
}

// advance moves to a non-terminal state unless a cancel was requested meanwhile.
func (o *Orchestrator) advance(to State, severity Severity, message string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancelRequested {
		return o.cancelLocked()
	}
	return o.transitionLocked(to, severity, message)
}

func (o *Orchestrator) fail(span trace.Span, log zerolog.Logger, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Error().Err(err).Msg("upload failed")

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.IsTerminal() {
		return err
	}
	o.result.Err = err
	if tErr := o.terminalLocked(StateFailed, SeverityError, UserMessage(err)); tErr != nil {
		return tErr
	}
	return err
}

func (o *Orchestrator) cancelLocked() error {
	err := newError(ErrCancelled, "Upload cancelled", nil)
	o.result.Err = err
	if tErr := o.terminalLocked(StateCancelled, SeverityInfo, "Upload cancelled"); tErr != nil {
		return tErr
	}
	return err
}

func (o *Orchestrator) terminalLocked(to State, severity Severity, message string) error {
	if err := o.transitionLocked(to, severity, message); err != nil {
		return err
	}
	close(o.done)
	return nil
}

func (o *Orchestrator) transitionLocked(to State, severity Severity, message string) error {
	next, err := o.state.TransitionTo(to)
	if err != nil {
		o.log.Error().Str("from", string(o.state)).Str("to", string(to)).Msg("rejected state transition")
		return err
	}
	if next != o.state {
		o.log.Debug().Str("upload_id", o.result.UploadID).Str("from", string(o.state)).Str("to", string(next)).Msg("state transition")
	}
	o.state = next
	o.publishLocked(severity, message)
	return nil
}

// rejectLocked reports an invalid start without leaving Idle.
func (o *Orchestrator) rejectLocked(message string) {
	if o.state.IsTerminal() {
		o.state = StateIdle
	}
	o.publishLocked(SeverityError, message)
}

func (o *Orchestrator) publishLocked(severity Severity, message string) {
	o.status = Status{
		UploadID: o.result.UploadID,
		State:    o.state,
		Message:  message,
		Severity: severity,
		Visible:  true,
		At:       o.clock.Now(),
	}
	o.sink.Publish(o.status)
}

func duplicateMessage(originalKey string, result OracleResult) string {
	switch {
	case len(result.Tags) > 0:
		return fmt.Sprintf("Duplicate found with tags: %s (original: %s)", FormatTags(result.Tags), originalKey)
	case result.Kind == OracleDuplicateTagged:
		return fmt.Sprintf("Duplicate found: the original image %s has tags", originalKey)
	}
	return fmt.Sprintf("Duplicate found: the original image %s has no tags", originalKey)
}
