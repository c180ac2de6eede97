// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import (
	"context"
	"errors"
	"time"
)

// Acquisition failures are terminal for the session: they are surfaced to the
// caller and never retried automatically.
var (
	ErrPermissionDenied  = errors.New("capture permission denied")
	ErrDeviceUnavailable = errors.New("capture device unavailable")
)

// Constraints request the tracks a capture session needs. The studio always
// asks for simultaneous audio and video.
type Constraints struct {
	Audio bool
	Video bool
}

// Fragment is one data-ready emission from a live capture device. Seq is the
// per-session emission index; concatenating fragments in Seq order replays
// the session as a single playable artifact.
type Fragment struct {
	Seq        int
	Data       []byte
	ReceivedAt time.Time
}

// LiveStream is an acquired capture handle. Fragments yields data-ready
// events in emission order; closure of that channel is the device's own
// end-of-session signal, delivered only after in-flight data has flushed.
// Anything that depends on the session being over must key off that closure,
// not off the Stop call site.
type LiveStream interface {
	Fragments() <-chan Fragment

	// Pause suspends fragment production without closing the stream.
	Pause()
	// Resume restarts fragment production after Pause.
	Resume()
	// Stop requests termination. It returns immediately; the end of the
	// session is signalled asynchronously by the Fragments channel closing.
	Stop()

	// MimeType of the produced fragments, carried into the merged artifact.
	MimeType() string
}

// Acquirer obtains a live audio+video capture handle from the environment.
// Acquire blocks until a producer is attached or ctx expires; it may trigger
// a one-time permission prompt on the publisher side.
type Acquirer interface {
	Acquire(ctx context.Context, constraints Constraints) (LiveStream, error)
}
