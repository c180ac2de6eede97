// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capture

import (
	"sync"

	internal_type "github.com/rapidaai/api/studio-api/internal/type"
	"github.com/rapidaai/pkg/commons"
)

// Recorder wraps an acquired live stream in the Idle/Recording/Paused state
// machine and feeds its fragments into a FragmentBuffer.
//
// The transition back to Idle is never taken at the Stop call site: it
// happens only when the device itself signals end of session (the stream's
// fragment channel closing after in-flight data flushed). The session-ended
// callback fires from that signal, so merge logic downstream can never act
// on a stale status.
type Recorder struct {
	logger commons.Logger

	mu      sync.Mutex
	status  internal_type.RecordingStatus
	stream  internal_type.LiveStream
	buffer  *FragmentBuffer
	started bool
	ended   bool

	onSessionEnded func(*FragmentBuffer)
}

type RecorderOption func(*Recorder)

// WithOnSessionEnded registers the finalize callback, invoked exactly once
// when the device signals end of session, after the status has reached Idle.
func WithOnSessionEnded(fn func(*FragmentBuffer)) RecorderOption {
	return func(r *Recorder) { r.onSessionEnded = fn }
}

func NewRecorder(logger commons.Logger, stream internal_type.LiveStream, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		logger: logger,
		status: internal_type.StatusIdle,
		stream: stream,
		buffer: NewFragmentBuffer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Status returns the current state machine state.
func (r *Recorder) Status() internal_type.RecordingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Buffer returns the fragment buffer for this session.
func (r *Recorder) Buffer() *FragmentBuffer {
	return r.buffer
}

// Ended reports whether the device end-of-session signal has arrived. Once
// true the recorder is terminal and Start will never succeed again.
func (r *Recorder) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

// Start begins producing fragments. Preconditions: current state Idle, a
// live stream attached, and the session not already ended. If any
// precondition is unmet Start is a silent no-op; callers gate the action on
// state rather than relying on an error.
func (r *Recorder) Start() {
	r.mu.Lock()
	if r.status != internal_type.StatusIdle || r.stream == nil || r.ended || r.started {
		r.mu.Unlock()
		return
	}
	r.status = internal_type.StatusRecording
	r.started = true
	r.mu.Unlock()

	r.stream.Resume()
	go r.drain()
}

// Pause suspends fragment production without closing the stream. Requires
// Recording; otherwise a no-op.
func (r *Recorder) Pause() {
	r.mu.Lock()
	if r.status != internal_type.StatusRecording {
		r.mu.Unlock()
		return
	}
	r.status = internal_type.StatusPaused
	r.mu.Unlock()
	r.stream.Pause()
}

// Resume restarts fragment production. Requires Paused; otherwise a no-op.
func (r *Recorder) Resume() {
	r.mu.Lock()
	if r.status != internal_type.StatusPaused {
		r.mu.Unlock()
		return
	}
	r.status = internal_type.StatusRecording
	r.mu.Unlock()
	r.stream.Resume()
}

// Stop requests termination. Requires Recording or Paused. The status does
// NOT change here; Idle is reached only when the device's end-of-session
// signal arrives, at which point the session-ended callback fires.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.status != internal_type.StatusRecording && r.status != internal_type.StatusPaused {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.stream.Stop()
}

// drain appends fragments in arrival order until the device signals end of
// session by closing its fragment channel. While draining the status is
// Recording or Paused by construction, so fragments are never appended at
// Idle; paused in-flight data is still appended, matching device flush
// semantics.
func (r *Recorder) drain() {
	for f := range r.stream.Fragments() {
		r.buffer.Append(f)
	}

	r.mu.Lock()
	r.status = internal_type.StatusIdle
	r.ended = true
	cb := r.onSessionEnded
	r.mu.Unlock()

	r.logger.Infow("capture session ended", "fragments", r.buffer.Len())
	if cb != nil {
		cb(r.buffer)
	}
}
