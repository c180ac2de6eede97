// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package health_check_api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rapidaai/config"
	"github.com/rapidaai/pkg/commons"
)

type HealthCheckApi struct {
	cfg    *config.AppConfig
	logger commons.Logger
}

func New(cfg *config.AppConfig, logger commons.Logger) *HealthCheckApi {
	return &HealthCheckApi{cfg: cfg, logger: logger}
}

// Healthz reports process liveness.
func (api *HealthCheckApi) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": api.cfg.Name,
		"version": api.cfg.Version,
	})
}

// Readiness reports serving readiness. The studio holds no external
// connections at boot, so readiness follows liveness.
func (api *HealthCheckApi) Readiness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
