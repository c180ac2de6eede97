// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcript

import (
	internal_type "github.com/rapidaai/api/studio-api/internal/type"
	"github.com/rapidaai/config"
	"github.com/rapidaai/pkg/commons"
	"github.com/rapidaai/pkg/utils"
)

// NewRecognizer selects the configured recognition provider. A provider that
// is absent or fails to construct degrades to the noop recognizer: live rate
// estimation is lost, the session is not.
func NewRecognizer(logger commons.Logger, cfg *config.AppConfig) internal_type.Recognizer {
	opts := utils.Option{}
	if !utils.IsEmpty(cfg.Transcription.Language) {
		opts["listen.language"] = cfg.Transcription.Language
	}
	if !utils.IsEmpty(cfg.Transcription.Model) {
		opts["listen.model"] = cfg.Transcription.Model
	}

	switch cfg.Transcription.Provider {
	case "deepgram":
		recognizer, err := NewDeepgramRecognizer(logger, cfg.Transcription.DeepgramKey, opts)
		if err != nil {
			logger.Warnw("recognition unavailable, degrading to static rate", "provider", "deepgram", "error", err)
			return NewNoopRecognizer(logger)
		}
		return recognizer
	case "google":
		recognizer, err := NewGoogleRecognizer(logger, cfg.Transcription.GoogleKey, cfg.Transcription.GoogleProjectID, opts)
		if err != nil {
			logger.Warnw("recognition unavailable, degrading to static rate", "provider", "google", "error", err)
			return NewNoopRecognizer(logger)
		}
		return recognizer
	default:
		logger.Info("no transcription provider configured, using static rate")
		return NewNoopRecognizer(logger)
	}
}
