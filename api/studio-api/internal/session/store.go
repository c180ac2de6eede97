// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_session

import (
	"sync"
	"time"

	internal_capture "github.com/rapidaai/api/studio-api/internal/capture"
	internal_device "github.com/rapidaai/api/studio-api/internal/device"
	"github.com/rapidaai/pkg/commons"
)

// Session lifecycle. Pending covers the acquisition await; Active means the
// stream is live; Completed and Failed are terminal. Terminal sessions stay
// readable so playback and late event-feed connects still resolve.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Record is one stored session: its controller plus the transport-specific
// device handle the publisher attaches through. Exactly one of Socket or
// WebRTC is set, matching the transport chosen at creation.
type Record struct {
	ID        string
	Transport string
	Status    SessionStatus
	CreatedAt time.Time
	UpdatedAt time.Time

	Controller *Controller
	Socket     *internal_device.SocketDevice
	WebRTC     *internal_device.WebRTCDevice
}

// Store is the in-memory session and artifact registry. Artifacts are kept
// separately from sessions so a merged recording outlives recorder state and
// resolves by its own handle.
type Store struct {
	logger commons.Logger

	mu        sync.RWMutex
	sessions  map[string]*Record
	artifacts map[string]*internal_capture.Artifact
}

func NewStore(logger commons.Logger) *Store {
	return &Store{
		logger:    logger,
		sessions:  make(map[string]*Record),
		artifacts: make(map[string]*internal_capture.Artifact),
	}
}

func (s *Store) Create(record *Record) {
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	s.mu.Lock()
	s.sessions[record.ID] = record
	s.mu.Unlock()
	s.logger.Debugw("session stored", "session", record.ID, "transport", record.Transport)
}

func (s *Store) Get(id string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.sessions[id]
	return record, ok
}

// SetStatus advances a session's lifecycle. Unknown ids are ignored; status
// writes race with reads only through the store lock.
func (s *Store) SetStatus(id string, status SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.sessions[id]
	if !ok {
		return
	}
	record.Status = status
	record.UpdatedAt = time.Now()
}

// SaveArtifact registers a merged recording under its own handle. A repeated
// merge of the same session registers a fresh handle; older ones remain
// dereferenceable.
func (s *Store) SaveArtifact(artifact *internal_capture.Artifact) {
	s.mu.Lock()
	s.artifacts[artifact.ID] = artifact
	s.mu.Unlock()
	s.logger.Debugw("artifact stored", "artifact", artifact.ID, "bytes", len(artifact.Data))
}

func (s *Store) GetArtifact(id string) (*internal_capture.Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	artifact, ok := s.artifacts[id]
	return artifact, ok
}

// List returns every stored session in no particular order.
func (s *Store) List() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]*Record, 0, len(s.sessions))
	for _, record := range s.sessions {
		records = append(records, record)
	}
	return records
}

// Delete removes a session after closing its controller. Artifacts are kept;
// their lifetime is independent of the session record.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	record, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok && record.Controller != nil {
		record.Controller.Close()
	}
}
