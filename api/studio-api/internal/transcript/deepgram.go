// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcript

import (
	"context"
	"fmt"
	"strings"
	"sync"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	internal_type "github.com/rapidaai/api/studio-api/internal/type"
	"github.com/rapidaai/pkg/commons"
	"github.com/rapidaai/pkg/utils"
)

// Introduced constants for default values
const (
	DeepgramDefaultModel    = "nova"  // Default model used for live transcription
	DeepgramDefaultLanguage = "en-US" // Default language code for live transcription
)

// deepgramOption is the primary configuration structure for Deepgram live
// transcription.
type deepgramOption struct {
	logger  commons.Logger
	key     string
	mdlOpts utils.Option
}

// NewDeepgramOption initializes deepgramOption with the provided api key and
// per-session option overrides.
func NewDeepgramOption(logger commons.Logger, key string, opts utils.Option) (*deepgramOption, error) {
	if utils.IsEmpty(key) {
		return nil, fmt.Errorf("illegal deepgram config: missing api key")
	}
	return &deepgramOption{
		logger:  logger,
		key:     key,
		mdlOpts: opts,
	}, nil
}

func (dg *deepgramOption) GetKey() string {
	return dg.key
}

// GetEncoding returns the default input encoding advertised to the provider.
// The pipeline forwards capture bytes as-is; publishers enabling live
// transcription send audio matching this encoding, or override it together
// with listen.sample_rate and listen.channels.
func (dg *deepgramOption) GetEncoding() string {
	return "linear16"
}

// SpeechToTextOptions generates the live transcription configuration.
// Continuous interim results stay enabled; the live rate estimate only
// updates smoothly when both are on.
func (dg *deepgramOption) SpeechToTextOptions() *interfaces.LiveTranscriptionOptions {
	opts := &interfaces.LiveTranscriptionOptions{
		Model:          DeepgramDefaultModel,
		Language:       DeepgramDefaultLanguage,
		Channels:       1,
		SmartFormat:    true,
		InterimResults: true,
		FillerWords:    true,
		VadEvents:      false,
		Endpointing:    "5",
		Punctuate:      true,
		NoDelay:        true,
		Encoding:       dg.GetEncoding(),
		SampleRate:     16000,
		Diarize:        false,
		Multichannel:   false,
	}

	if language, err := dg.mdlOpts.GetString("listen.language"); err == nil {
		opts.Language = language
	} else {
		dg.logger.Warn("Language not specified, defaulting to " + DeepgramDefaultLanguage)
	}
	if model, err := dg.mdlOpts.GetString("listen.model"); err == nil {
		opts.Model = model
	} else {
		dg.logger.Warn("Model not specified, defaulting to " + DeepgramDefaultModel)
	}
	if smartFormat, err := dg.mdlOpts.GetBool("listen.smart_format"); err == nil {
		opts.SmartFormat = smartFormat
	}
	if fillerWords, err := dg.mdlOpts.GetBool("listen.filler_words"); err == nil {
		opts.FillerWords = fillerWords
	}
	if vadEvents, err := dg.mdlOpts.GetBool("listen.vad_events"); err == nil {
		opts.VadEvents = vadEvents
	}
	if endpointing, err := dg.mdlOpts.GetString("listen.endpointing"); err == nil {
		opts.Endpointing = endpointing
	}
	if multichannel, err := dg.mdlOpts.GetBool("listen.multichannel"); err == nil {
		opts.Multichannel = multichannel
	}
	if channels, err := dg.mdlOpts.GetInt("listen.channels"); err == nil {
		opts.Channels = channels
	}
	if sampleRate, err := dg.mdlOpts.GetInt("listen.sample_rate"); err == nil {
		opts.SampleRate = sampleRate
	}

	return opts
}

// ============================================================================
// Recognizer
// ============================================================================

type deepgramRecognizer struct {
	logger commons.Logger
	opt    *deepgramOption
}

// NewDeepgramRecognizer creates a Deepgram-backed live recognizer.
func NewDeepgramRecognizer(logger commons.Logger, key string, opts utils.Option) (internal_type.Recognizer, error) {
	opt, err := NewDeepgramOption(logger, key, opts)
	if err != nil {
		return nil, err
	}
	return &deepgramRecognizer{logger: logger, opt: opt}, nil
}

func (r *deepgramRecognizer) Start(ctx context.Context) (internal_type.RecognitionSession, error) {
	session := newCumulativeSession(r.logger)
	handler := &deepgramHandler{logger: r.logger, session: session}

	client, err := listen.NewWSUsingCallback(
		ctx,
		r.opt.GetKey(),
		&interfaces.ClientOptions{EnableKeepAlive: true},
		r.opt.SpeechToTextOptions(),
		handler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create deepgram client: %w", err)
	}
	if !client.Connect() {
		return nil, fmt.Errorf("failed to connect to deepgram")
	}

	session.sendAudio = client.WriteBinary
	session.stop = func() { client.Stop() }
	return session, nil
}

// deepgramHandler adapts Deepgram callback events onto the cumulative
// transcript session.
type deepgramHandler struct {
	logger  commons.Logger
	session *cumulativeSession
}

func (h *deepgramHandler) Open(or *msginterfaces.OpenResponse) error {
	h.logger.Debug("deepgram connection open")
	return nil
}

func (h *deepgramHandler) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	h.session.observe(mr.Channel.Alternatives[0].Transcript, mr.IsFinal)
	return nil
}

func (h *deepgramHandler) Metadata(md *msginterfaces.MetadataResponse) error {
	return nil
}

func (h *deepgramHandler) SpeechStarted(ssr *msginterfaces.SpeechStartedResponse) error {
	return nil
}

func (h *deepgramHandler) UtteranceEnd(ur *msginterfaces.UtteranceEndResponse) error {
	return nil
}

func (h *deepgramHandler) Close(cr *msginterfaces.CloseResponse) error {
	h.logger.Debug("deepgram connection closed")
	return nil
}

func (h *deepgramHandler) Error(er *msginterfaces.ErrorResponse) error {
	h.logger.Errorw("deepgram error", "error", er)
	return nil
}

func (h *deepgramHandler) UnhandledEvent(byData []byte) error {
	return nil
}

// ============================================================================
// Cumulative transcript session
// ============================================================================

// cumulativeSession turns per-utterance provider results into events that
// each carry the full cumulative transcript: finalized segments accumulate,
// the current interim hypothesis replaces the tail. Results after Stop are
// dropped, never acted on.
type cumulativeSession struct {
	logger commons.Logger

	mu        sync.Mutex
	finalized []string
	interim   string
	closed    bool

	results   chan string
	sendAudio func([]byte) error
	stop      func()
}

func newCumulativeSession(logger commons.Logger) *cumulativeSession {
	return &cumulativeSession{
		logger:  logger,
		results: make(chan string, 32),
	}
}

func (s *cumulativeSession) observe(transcript string, isFinal bool) {
	text := strings.TrimSpace(transcript)
	if text == "" {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if isFinal {
		s.finalized = append(s.finalized, text)
		s.interim = ""
	} else {
		s.interim = text
	}
	cumulative := strings.TrimSpace(strings.Join(s.finalized, " ") + " " + s.interim)

	// Non-blocking push: a slow consumer only loses intermediate snapshots,
	// the next event carries the full transcript again.
	select {
	case s.results <- cumulative:
	default:
		s.logger.Warnw("transcript channel full, dropping event", "words", len(strings.Fields(cumulative)))
	}
	s.mu.Unlock()
}

func (s *cumulativeSession) SendAudio(data []byte) error {
	s.mu.Lock()
	closed := s.closed
	send := s.sendAudio
	s.mu.Unlock()
	if closed || send == nil {
		return nil
	}
	return send(data)
}

func (s *cumulativeSession) Results() <-chan string {
	return s.results
}

func (s *cumulativeSession) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stop := s.stop
	close(s.results)
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	return nil
}
