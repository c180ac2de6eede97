// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

// RecordingStatus is the capture state machine state. Valid transitions:
// Idle→Recording (start), Recording→Paused (pause), Paused→Recording
// (resume), {Recording,Paused}→Idle (device end signal). Once back at Idle
// the recorder is terminal for the session.
type RecordingStatus int

const (
	StatusIdle RecordingStatus = iota
	StatusRecording
	StatusPaused
)

func (s RecordingStatus) String() string {
	switch s {
	case StatusRecording:
		return "Recording"
	case StatusPaused:
		return "Paused"
	default:
		return "Idle"
	}
}
