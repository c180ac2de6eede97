// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package studio_api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Events streams session snapshots over a websocket: one snapshot on
// connect, then one per state change (status, rate, offset, script). The
// feed never blocks the session loop; a slow client just sees fewer
// intermediate snapshots.
func (api *StudioApi) Events(c *gin.Context) {
	record, ok := api.lookup(c)
	if !ok {
		return
	}

	conn, err := api.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		api.logger.Errorw("event feed upgrade failed", "session", record.ID, "error", err)
		return
	}
	defer conn.Close()

	feed, cancel := record.Controller.Subscribe()
	defer cancel()

	if err := conn.WriteJSON(record.Controller.Snapshot()); err != nil {
		return
	}

	// Reader goroutine exists only to observe the client going away.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snapshot, open := <-feed:
			if !open {
				return
			}
			if err := conn.WriteJSON(snapshot); err != nil {
				return
			}
		case <-clientGone:
			return
		}
	}
}

// Media is the publisher side of the socket transport: the capture source
// dials this endpoint and streams binary fragments, which completes the
// session's pending acquisition.
func (api *StudioApi) Media(c *gin.Context) {
	record, ok := api.lookup(c)
	if !ok {
		return
	}
	if record.Socket == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session does not use the socket transport"})
		return
	}

	conn, err := api.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		api.logger.Errorw("media upgrade failed", "session", record.ID, "error", err)
		return
	}

	if err := record.Socket.Attach(conn); err != nil {
		api.logger.Warnw("media attach rejected", "session", record.ID, "error", err)
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
		_ = conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
	}
}

type offerRequest struct {
	SDP string `json:"sdp" binding:"required"`
}

// WebRTCOffer negotiates the publisher's SDP offer for the webrtc transport
// and returns the answer. The session's pending acquisition completes when
// the peer connection reaches connected state.
func (api *StudioApi) WebRTCOffer(c *gin.Context) {
	record, ok := api.lookup(c)
	if !ok {
		return
	}
	if record.WebRTC == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session does not use the webrtc transport"})
		return
	}

	var request offerRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer payload"})
		return
	}

	answer, err := record.WebRTC.HandleOffer(request.SDP)
	if err != nil {
		api.logger.Errorw("webrtc negotiation failed", "session", record.ID, "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "negotiation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sdp": answer, "type": "answer"})
}

// CloseAll shuts every stored session down, used on server shutdown.
func (api *StudioApi) CloseAll() {
	for _, record := range api.store.List() {
		if record.Controller != nil {
			record.Controller.Close()
		}
	}
}
