// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcript

import (
	"context"
	"sync"

	internal_type "github.com/rapidaai/api/studio-api/internal/type"
	"github.com/rapidaai/pkg/commons"
)

// noopRecognizer is the degradation path when no recognition provider is
// configured or the configured provider failed to construct. The session
// proceeds and the rate estimate stays at the static default.
type noopRecognizer struct {
	logger commons.Logger
}

func NewNoopRecognizer(logger commons.Logger) internal_type.Recognizer {
	return &noopRecognizer{logger: logger}
}

func (r *noopRecognizer) Start(ctx context.Context) (internal_type.RecognitionSession, error) {
	return &noopSession{results: make(chan string)}, nil
}

type noopSession struct {
	once    sync.Once
	results chan string
}

func (s *noopSession) SendAudio(data []byte) error { return nil }

func (s *noopSession) Results() <-chan string { return s.results }

func (s *noopSession) Stop() error {
	s.once.Do(func() { close(s.results) })
	return nil
}
