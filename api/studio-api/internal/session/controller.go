// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_session

import (
	"context"
	"sync"
	"time"

	internal_capture "github.com/rapidaai/api/studio-api/internal/capture"
	internal_prompter "github.com/rapidaai/api/studio-api/internal/prompter"
	internal_transcript "github.com/rapidaai/api/studio-api/internal/transcript"
	internal_type "github.com/rapidaai/api/studio-api/internal/type"
	"github.com/rapidaai/config"
	"github.com/rapidaai/pkg/commons"
)

// User-facing actions surfaced in the snapshot's enabled-action set.
const (
	ActionStart    = "start"
	ActionPause    = "pause"
	ActionResume   = "resume"
	ActionStop     = "stop"
	ActionPrompter = "prompter"
)

// Snapshot is the externally visible state of one session at a point in
// time. Actions is the currently valid action set so clients can disable
// everything else instead of erroring on invalid requests.
type Snapshot struct {
	SessionID      string   `json:"sessionId"`
	Status         string   `json:"status"`
	WordsPerMinute int      `json:"wordsPerMinute"`
	PrompterActive bool     `json:"prompterActive"`
	ScrollOffset   float64  `json:"scrollOffset"`
	Script         string   `json:"script"`
	ArtifactURL    string   `json:"artifactUrl,omitempty"`
	Actions        []string `json:"actions"`
}

type eventKind int

const (
	evAction eventKind = iota
	evToggle
	evScript
	evResult
	evEnded
	evOffset
)

type event struct {
	kind       eventKind
	action     string
	script     string
	transcript string
	buffer     *internal_capture.FragmentBuffer
	offset     float64
}

// Controller owns one recording session end to end: acquired stream,
// recorder, live rate estimator, recognition session and prompter. A single
// mailbox goroutine serializes every mutation, so user actions, device
// callbacks, recognition results and prompter ticks never interleave inside
// session state.
type Controller struct {
	logger commons.Logger
	cfg    *config.AppConfig
	id     string

	acquirer   internal_type.Acquirer
	recognizer internal_type.Recognizer

	recorder    *internal_capture.Recorder
	stream      internal_type.LiveStream
	recognition internal_type.RecognitionSession
	estimator   *internal_transcript.Estimator
	prompter    *internal_prompter.Controller

	events    chan event
	done      chan struct{}
	closeOnce sync.Once

	// mu guards the component fields above as well: they are written once,
	// at the end of Open, and read by snapshot and teardown callers that
	// may race a still-pending acquisition.
	mu             sync.Mutex
	closed         bool
	script         string
	prompterActive bool
	artifact       *internal_capture.Artifact
	subscribers    map[chan Snapshot]struct{}

	onArtifact func(*internal_capture.Artifact)
}

type ControllerOption func(*Controller)

// WithScript seeds the teleprompter script before the first activation.
func WithScript(script string) ControllerOption {
	return func(c *Controller) { c.script = script }
}

// WithOnArtifact registers the callback fired when the device end signal has
// produced a merged artifact.
func WithOnArtifact(fn func(*internal_capture.Artifact)) ControllerOption {
	return func(c *Controller) { c.onArtifact = fn }
}

func NewController(
	logger commons.Logger,
	cfg *config.AppConfig,
	id string,
	acquirer internal_type.Acquirer,
	recognizer internal_type.Recognizer,
	opts ...ControllerOption,
) *Controller {
	c := &Controller{
		logger:      logger,
		cfg:         cfg,
		id:          id,
		acquirer:    acquirer,
		recognizer:  recognizer,
		events:      make(chan event, 64),
		done:        make(chan struct{}),
		subscribers: make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open acquires the capture stream and brings up the session's components.
// Acquisition is the session's single await point; its timeout is bounded by
// configuration. An acquisition error is terminal and leaves nothing to
// release. Recognition failing to start degrades to the static default rate
// instead of failing the session.
func (c *Controller) Open(ctx context.Context) error {
	acquireCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Studio.AcquireTimeoutSeconds)*time.Second)
	defer cancel()

	stream, err := c.acquirer.Acquire(acquireCtx, internal_type.Constraints{Audio: true, Video: true})
	if err != nil {
		return err
	}

	estimator := internal_transcript.NewEstimator(c.logger)

	var recognition internal_type.RecognitionSession
	if session, rErr := c.recognizer.Start(ctx); rErr != nil {
		c.logger.Warnw("recognition unavailable, degrading to static rate", "session", c.id, "error", rErr)
	} else {
		recognition = session
		// Recognition hears a copy of every capture payload. The bytes are
		// forwarded as-is: a deployment enabling live transcription has its
		// publishers send LINEAR16 16 kHz mono audio matching the provider
		// options.
		stream = newTappedStream(c.logger, stream, func(data []byte) {
			if err := session.SendAudio(data); err != nil {
				c.logger.Debugf("recognition audio push: %v", err)
			}
		})
		go c.forwardResults(session)
	}

	recorder := internal_capture.NewRecorder(c.logger, stream,
		internal_capture.WithOnSessionEnded(func(buffer *internal_capture.FragmentBuffer) {
			c.push(event{kind: evEnded, buffer: buffer})
		}),
	)

	prompter := internal_prompter.NewController(c.logger,
		internal_prompter.WithTickPeriod(time.Duration(c.cfg.Studio.PrompterTickMs)*time.Millisecond),
		internal_prompter.WithPixelsPerWord(float64(c.cfg.Studio.PrompterPixelsPerWord)),
		internal_prompter.WithScrollSink(func(offset float64) {
			c.push(event{kind: evOffset, offset: offset})
		}),
	)

	// Components become visible to snapshot and teardown readers in one
	// step, under the lock those readers take.
	c.mu.Lock()
	closed := c.closed
	c.stream = stream
	c.estimator = estimator
	c.recognition = recognition
	c.recorder = recorder
	c.prompter = prompter
	c.mu.Unlock()

	// The session was torn down while acquisition was in flight: release
	// what was just acquired instead of leaking it.
	if closed {
		if recognition != nil {
			_ = recognition.Stop()
		}
		stream.Stop()
		c.logger.Infow("session closed during acquisition, releasing stream", "session", c.id)
		return nil
	}

	go c.run()
	c.logger.Infow("session opened", "session", c.id)
	return nil
}

// ============================================================================
// User-facing actions. Each is a mailbox send; gating happens inside the
// event loop against current state, never at the call site.
// ============================================================================

func (c *Controller) Start()         { c.push(event{kind: evAction, action: ActionStart}) }
func (c *Controller) Pause()         { c.push(event{kind: evAction, action: ActionPause}) }
func (c *Controller) Resume()        { c.push(event{kind: evAction, action: ActionResume}) }
func (c *Controller) StopRecording() { c.push(event{kind: evAction, action: ActionStop}) }

// TogglePrompter flips prompter activation. A non-empty script travels with
// the toggle and lands before activation reads it.
func (c *Controller) TogglePrompter(script string) {
	c.push(event{kind: evToggle, script: script})
}

// SetScript replaces the teleprompter script. Free edit at any time; an
// already active prompter keeps scrolling, the new text applies from the
// next activation.
func (c *Controller) SetScript(script string) {
	c.push(event{kind: evScript, script: script})
}

// Snapshot returns the current externally visible state. Safe to call while
// acquisition is still in flight; component fields are read under the same
// lock Open publishes them with.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := internal_type.StatusIdle
	ended := false
	if c.recorder != nil {
		status = c.recorder.Status()
		ended = c.recorder.Ended()
	}
	wpm := internal_transcript.DefaultWordsPerMinute
	if c.estimator != nil {
		wpm = c.estimator.WordsPerMinute()
	}
	offset := 0.0
	if c.prompter != nil {
		offset = c.prompter.Offset()
	}

	snapshot := Snapshot{
		SessionID:      c.id,
		Status:         status.String(),
		WordsPerMinute: wpm,
		PrompterActive: c.prompterActive,
		ScrollOffset:   offset,
		Script:         c.script,
		Actions:        validActions(status, ended),
	}
	if c.artifact != nil {
		snapshot.ArtifactURL = c.artifact.URL()
	}
	return snapshot
}

// Subscribe registers a snapshot feed. The returned cancel must be called by
// the consumer; a slow consumer loses intermediate snapshots, never blocks
// the event loop.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)
	c.mu.Lock()
	if c.subscribers == nil {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subscribers[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if c.subscribers != nil {
			if _, ok := c.subscribers[ch]; ok {
				delete(c.subscribers, ch)
				close(ch)
			}
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// Close tears the session down. Idempotent; every held resource is released
// on every path: prompter tick, recognition session, capture stream,
// subscriber feeds. Late device or recognition callbacks after Close are
// dropped by the mailbox guard.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		c.closed = true
		prompter := c.prompter
		recognition := c.recognition
		stream := c.stream
		subscribers := c.subscribers
		c.subscribers = nil
		c.mu.Unlock()

		if prompter != nil {
			prompter.Deactivate()
		}
		if recognition != nil {
			if err := recognition.Stop(); err != nil {
				c.logger.Debugf("recognition stop: %v", err)
			}
		}
		if stream != nil {
			stream.Stop()
		}

		for sub := range subscribers {
			close(sub)
		}
		c.logger.Infow("session closed", "session", c.id)
	})
}

// Artifact returns the merged recording, nil until the device end signal has
// been processed.
func (c *Controller) Artifact() *internal_capture.Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.artifact
}

// ============================================================================
// Event loop
// ============================================================================

func (c *Controller) push(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Controller) forwardResults(recognition internal_type.RecognitionSession) {
	for transcript := range recognition.Results() {
		c.push(event{kind: evResult, transcript: transcript})
	}
}

func (c *Controller) run() {
	for {
		select {
		case <-c.done:
			return
		case ev := <-c.events:
			c.handle(ev)
			c.broadcast()
		}
	}
}

func (c *Controller) handle(ev event) {
	switch ev.kind {
	case evAction:
		c.handleAction(ev.action)
	case evToggle:
		c.handleToggle(ev.script)
	case evScript:
		c.mu.Lock()
		c.script = ev.script
		c.mu.Unlock()
	case evResult:
		c.handleResult(ev.transcript)
	case evEnded:
		c.handleEnded(ev.buffer)
	case evOffset:
		// State already advanced inside the prompter; the broadcast after
		// handle pushes the fresh offset to subscribers.
	}
}

// handleAction applies one user action against the current valid-action set.
// Invalid actions are dropped with a diagnostic, never errored: the snapshot
// already told clients what is enabled.
func (c *Controller) handleAction(action string) {
	status := c.recorder.Status()
	switch action {
	case ActionStart:
		c.recorder.Start()
	case ActionPause:
		c.recorder.Pause()
	case ActionResume:
		c.recorder.Resume()
	case ActionStop:
		// Stop is disabled while Recording; the presenter pauses first.
		if status != internal_type.StatusPaused {
			c.logger.Debugw("stop ignored", "session", c.id, "status", status.String())
			return
		}
		c.recorder.Stop()
	default:
		c.logger.Debugw("unknown action ignored", "session", c.id, "action", action)
	}
}

func (c *Controller) handleToggle(script string) {
	c.mu.Lock()
	if script != "" {
		c.script = script
	}
	active := c.prompterActive
	c.prompterActive = !active
	c.mu.Unlock()

	if active {
		c.prompter.Deactivate()
		return
	}
	c.prompter.Activate(c.estimator.WordsPerMinute())
}

// handleResult feeds one cumulative transcript into the estimator and pushes
// the refreshed rate into an active prompter, so a changing estimate paces
// the scroll live instead of waiting for the next activation.
func (c *Controller) handleResult(transcript string) {
	c.estimator.Observe(transcript)

	c.mu.Lock()
	active := c.prompterActive
	c.mu.Unlock()
	if active {
		c.prompter.SetRate(c.estimator.WordsPerMinute())
	}
}

// handleEnded runs on the device's own end-of-session signal, the only point
// where merging is correct: every in-flight fragment has been appended.
func (c *Controller) handleEnded(buffer *internal_capture.FragmentBuffer) {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()

	artifact, err := buffer.MergeAll(stream.MimeType())
	if err != nil {
		c.logger.Warnw("no recording available", "session", c.id, "error", err)
		return
	}

	c.mu.Lock()
	c.artifact = artifact
	cb := c.onArtifact
	c.mu.Unlock()

	c.logger.Infow("recording merged", "session", c.id, "artifact", artifact.ID, "bytes", len(artifact.Data))
	if cb != nil {
		cb(artifact)
	}
}

func (c *Controller) broadcast() {
	snapshot := c.Snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()
	for sub := range c.subscribers {
		select {
		case sub <- snapshot:
		default:
		}
	}
}

// validActions derives the enabled-action set from the recorder state. The
// prompter toggle is always available.
func validActions(status internal_type.RecordingStatus, ended bool) []string {
	actions := make([]string, 0, 3)
	switch status {
	case internal_type.StatusIdle:
		if !ended {
			actions = append(actions, ActionStart)
		}
	case internal_type.StatusRecording:
		actions = append(actions, ActionPause)
	case internal_type.StatusPaused:
		actions = append(actions, ActionResume, ActionStop)
	}
	return append(actions, ActionPrompter)
}

// ============================================================================
// Stream tap
// ============================================================================

// tappedStream forwards a copy of every fragment payload to a side sink
// while passing the stream through unchanged, end-of-session signal
// included. Used to feed capture audio into the recognition session.
//
// The sink runs on its own goroutine behind a bounded queue. A stalled
// recognition provider can only lose transcript audio; the capture path
// never waits on it and never drops a fragment.
type tappedStream struct {
	inner internal_type.LiveStream
	out   chan internal_type.Fragment
	audio chan []byte
}

func newTappedStream(logger commons.Logger, inner internal_type.LiveStream, tap func([]byte)) *tappedStream {
	t := &tappedStream{
		inner: inner,
		out:   make(chan internal_type.Fragment, 64),
		audio: make(chan []byte, 64),
	}
	go func() {
		for data := range t.audio {
			tap(data)
		}
	}()
	go func() {
		defer close(t.audio)
		defer close(t.out)
		for f := range inner.Fragments() {
			select {
			case t.audio <- f.Data:
			default:
				logger.Debugw("recognition audio queue full, skipping payload", "seq", f.Seq)
			}
			t.out <- f
		}
	}()
	return t
}

func (t *tappedStream) Fragments() <-chan internal_type.Fragment { return t.out }
func (t *tappedStream) Pause()                                   { t.inner.Pause() }
func (t *tappedStream) Resume()                                  { t.inner.Resume() }
func (t *tappedStream) Stop()                                    { t.inner.Stop() }
func (t *tappedStream) MimeType() string                         { return t.inner.MimeType() }
