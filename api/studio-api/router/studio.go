// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package studio_routers

import (
	"github.com/gin-gonic/gin"
	studioApi "github.com/rapidaai/api/studio-api/studio"
	"github.com/rapidaai/config"
	"github.com/rapidaai/pkg/commons"
)

// StudioApiRoutes wires the recording-session surface onto the engine and
// returns the api so the bootstrap can drive shutdown cleanup.
func StudioApiRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger) *studioApi.StudioApi {
	api := studioApi.New(cfg, logger)

	apiv1 := engine.Group("v1/studio")
	{
		apiv1.POST("/sessions", api.CreateSession)
		apiv1.GET("/sessions/:sessionId", api.GetSession)
		apiv1.DELETE("/sessions/:sessionId", api.DeleteSession)

		apiv1.POST("/sessions/:sessionId/start", api.StartRecording)
		apiv1.POST("/sessions/:sessionId/pause", api.PauseRecording)
		apiv1.POST("/sessions/:sessionId/resume", api.ResumeRecording)
		apiv1.POST("/sessions/:sessionId/stop", api.StopRecording)

		apiv1.POST("/sessions/:sessionId/prompter", api.TogglePrompter)
		apiv1.PUT("/sessions/:sessionId/script", api.UpdateScript)

		// live surfaces
		apiv1.GET("/sessions/:sessionId/events", api.Events)
		apiv1.GET("/sessions/:sessionId/media", api.Media)
		apiv1.POST("/sessions/:sessionId/webrtc/offer", api.WebRTCOffer)

		apiv1.GET("/artifacts/:artifactId", api.GetArtifact)
	}
	return api
}
