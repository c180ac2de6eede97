// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package studio_api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	internal_capture "github.com/rapidaai/api/studio-api/internal/capture"
	internal_device "github.com/rapidaai/api/studio-api/internal/device"
	internal_session "github.com/rapidaai/api/studio-api/internal/session"
	internal_transcript "github.com/rapidaai/api/studio-api/internal/transcript"
	internal_type "github.com/rapidaai/api/studio-api/internal/type"
	"github.com/rapidaai/config"
	"github.com/rapidaai/pkg/commons"
)

const (
	TransportSocket = "socket"
	TransportWebRTC = "webrtc"
)

// StudioApi owns the recording-session surface: session lifecycle, user
// actions, the live event feed and media ingest, and artifact playback.
type StudioApi struct {
	cfg        *config.AppConfig
	logger     commons.Logger
	store      *internal_session.Store
	recognizer internal_type.Recognizer
	upgrader   websocket.Upgrader
}

func New(cfg *config.AppConfig, logger commons.Logger) *StudioApi {
	return &StudioApi{
		cfg:        cfg,
		logger:     logger,
		store:      internal_session.NewStore(logger),
		recognizer: internal_transcript.NewRecognizer(logger, cfg),
		upgrader: websocket.Upgrader{
			// CORS policy is enforced at the engine level.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Store exposes the session registry, used by tests and shutdown cleanup.
func (api *StudioApi) Store() *internal_session.Store {
	return api.store
}

type createSessionRequest struct {
	Transport string `json:"transport"`
	Script    string `json:"script"`
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
	Transport string `json:"transport"`
	Status    string `json:"status"`
	EventsURL string `json:"eventsUrl"`
	MediaURL  string `json:"mediaUrl,omitempty"`
}

// CreateSession allocates a session and starts acquisition in the
// background. Acquisition is the single await point and may sit on a
// publisher permission prompt, so creation returns immediately with status
// pending; the event feed and GET surface the transition to active or
// failed.
func (api *StudioApi) CreateSession(c *gin.Context) {
	var request createSessionRequest
	// An empty body is a valid request for the default transport.
	_ = c.ShouldBindJSON(&request)
	if request.Transport == "" {
		request.Transport = TransportSocket
	}

	id := uuid.New().String()
	record := &internal_session.Record{
		ID:        id,
		Transport: request.Transport,
		Status:    internal_session.SessionPending,
	}

	var acquirer internal_type.Acquirer
	switch request.Transport {
	case TransportSocket:
		record.Socket = internal_device.NewSocketDevice(api.logger, api.cfg.Studio.MediaMimeType)
		acquirer = record.Socket
	case TransportWebRTC:
		record.WebRTC = internal_device.NewWebRTCDevice(api.logger, api.cfg.Studio.MediaMimeType)
		acquirer = record.WebRTC
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown transport: " + request.Transport})
		return
	}

	record.Controller = internal_session.NewController(
		api.logger, api.cfg, id, acquirer, api.recognizer,
		internal_session.WithScript(request.Script),
		internal_session.WithOnArtifact(func(artifact *internal_capture.Artifact) {
			api.store.SaveArtifact(artifact)
			api.store.SetStatus(id, internal_session.SessionCompleted)
		}),
	)

	api.store.Create(record)
	go api.open(record)

	c.JSON(http.StatusCreated, createSessionResponse{
		SessionID: id,
		Transport: request.Transport,
		Status:    string(internal_session.SessionPending),
		EventsURL: "/v1/studio/sessions/" + id + "/events",
		MediaURL:  "/v1/studio/sessions/" + id + "/media",
	})
}

func (api *StudioApi) open(record *internal_session.Record) {
	if err := record.Controller.Open(context.Background()); err != nil {
		api.logger.Errorw("session acquisition failed", "session", record.ID, "error", err)
		api.store.SetStatus(record.ID, internal_session.SessionFailed)
		return
	}
	api.store.SetStatus(record.ID, internal_session.SessionActive)
}

// GetSession returns the live snapshot. A failed session reports the
// acquisition taxonomy through the HTTP status instead of a snapshot.
func (api *StudioApi) GetSession(c *gin.Context) {
	record, ok := api.lookup(c)
	if !ok {
		return
	}
	if record.Status == internal_session.SessionFailed {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"sessionId": record.ID,
			"status":    string(record.Status),
			"error":     "session acquisition failed",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lifecycle": string(record.Status),
		"snapshot":  record.Controller.Snapshot(),
	})
}

func (api *StudioApi) StartRecording(c *gin.Context) {
	api.applyAction(c, func(ctrl *internal_session.Controller) { ctrl.Start() })
}

func (api *StudioApi) PauseRecording(c *gin.Context) {
	api.applyAction(c, func(ctrl *internal_session.Controller) { ctrl.Pause() })
}

func (api *StudioApi) ResumeRecording(c *gin.Context) {
	api.applyAction(c, func(ctrl *internal_session.Controller) { ctrl.Resume() })
}

func (api *StudioApi) StopRecording(c *gin.Context) {
	api.applyAction(c, func(ctrl *internal_session.Controller) { ctrl.StopRecording() })
}

type prompterRequest struct {
	Script string `json:"script"`
}

// TogglePrompter flips the teleprompter; an optional script in the body is
// applied before activation reads it.
func (api *StudioApi) TogglePrompter(c *gin.Context) {
	var request prompterRequest
	_ = c.ShouldBindJSON(&request)
	api.applyAction(c, func(ctrl *internal_session.Controller) { ctrl.TogglePrompter(request.Script) })
}

type scriptRequest struct {
	Script string `json:"script"`
}

// UpdateScript replaces the script. Always allowed; an active prompter picks
// the new text up on its next activation.
func (api *StudioApi) UpdateScript(c *gin.Context) {
	var request scriptRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid script payload"})
		return
	}
	api.applyAction(c, func(ctrl *internal_session.Controller) { ctrl.SetScript(request.Script) })
}

// DeleteSession tears the session down and removes it from the registry.
// Artifacts survive deletion; their handles stay dereferenceable.
func (api *StudioApi) DeleteSession(c *gin.Context) {
	record, ok := api.lookup(c)
	if !ok {
		return
	}
	api.store.Delete(record.ID)
	c.Status(http.StatusNoContent)
}

// GetArtifact serves a merged recording by handle. An unknown handle is the
// MergeFailure surface: there is no recording available.
func (api *StudioApi) GetArtifact(c *gin.Context) {
	artifact, ok := api.store.GetArtifact(c.Param("artifactId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recording available"})
		return
	}
	c.Data(http.StatusOK, artifact.MimeType, artifact.Data)
}

// applyAction dispatches one mailbox action and replies with the resulting
// snapshot. Gating happens inside the session event loop; an invalid action
// simply leaves the snapshot unchanged.
func (api *StudioApi) applyAction(c *gin.Context, action func(*internal_session.Controller)) {
	record, ok := api.lookup(c)
	if !ok {
		return
	}
	if record.Status != internal_session.SessionActive {
		c.JSON(http.StatusConflict, gin.H{"error": "session is not active", "status": string(record.Status)})
		return
	}
	action(record.Controller)
	c.JSON(http.StatusOK, record.Controller.Snapshot())
}

func (api *StudioApi) lookup(c *gin.Context) (*internal_session.Record, bool) {
	record, ok := api.store.Get(c.Param("sessionId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return record, true
}
