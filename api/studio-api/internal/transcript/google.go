// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcript

import (
	"context"
	"fmt"
	"io"
	"strings"

	speech "cloud.google.com/go/speech/apiv2"
	"cloud.google.com/go/speech/apiv2/speechpb"
	"google.golang.org/api/option"

	internal_type "github.com/rapidaai/api/studio-api/internal/type"
	"github.com/rapidaai/pkg/commons"
	"github.com/rapidaai/pkg/utils"
)

// Introduced constants for default values
const (
	GoogleDefaultLanguageCode = "en-US" // Default language code for Speech-to-Text
	GoogleDefaultModel        = "long"  // Default model used for Speech recognition
)

// googleOption is the primary configuration structure for Google Speech-to-Text.
type googleOption struct {
	logger       commons.Logger
	clientOptons []option.ClientOption
	mdlOpts      utils.Option
	projectId    string
}

// NewGoogleOption initializes googleOption with provided credentials and options.
func NewGoogleOption(logger commons.Logger, key, projectID string, opts utils.Option) (*googleOption, error) {
	if utils.IsEmpty(projectID) {
		return nil, fmt.Errorf("illegal google config: missing project id")
	}

	co := make([]option.ClientOption, 0)
	if !utils.IsEmpty(key) {
		co = append(co, option.WithAPIKey(key))
		co = append(co, option.WithQuotaProject(projectID))
	}

	return &googleOption{
		logger:       logger,
		mdlOpts:      opts,
		clientOptons: co,
		projectId:    projectID,
	}, nil
}

// SpeechToTextOptions generates a configuration for Google Speech-to-Text
// streaming recognition. Interim results stay enabled for smooth live updates.
func (gog *googleOption) SpeechToTextOptions() *speechpb.StreamingRecognitionConfig {
	opts := &speechpb.StreamingRecognitionConfig{
		Config: &speechpb.RecognitionConfig{
			DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
				ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
					Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
					SampleRateHertz:   16000,
					AudioChannelCount: 1,
				},
			},
			Features: &speechpb.RecognitionFeatures{
				EnableAutomaticPunctuation: true,
				EnableWordConfidence:       true,
			},
			LanguageCodes: []string{GoogleDefaultLanguageCode},
			Model:         GoogleDefaultModel,
		},
		StreamingFeatures: &speechpb.StreamingRecognitionFeatures{
			EnableVoiceActivityEvents: false,
			InterimResults:            true,
		},
	}

	if languages, err := gog.mdlOpts.GetStrings("listen.languages"); err == nil && len(languages) > 0 {
		opts.Config.LanguageCodes = languages
	} else if language, err := gog.mdlOpts.GetString("listen.language"); err == nil {
		codes := strings.Split(language, commons.SEPARATOR)
		nonEmptyCodes := []string{}
		for _, code := range codes {
			code = strings.TrimSpace(code)
			if code != "" {
				nonEmptyCodes = append(nonEmptyCodes, code)
			}
		}
		opts.Config.LanguageCodes = nonEmptyCodes
	} else {
		gog.logger.Warn("Language not specified, defaulting to " + GoogleDefaultLanguageCode)
	}

	if model, err := gog.mdlOpts.GetString("listen.model"); err == nil {
		opts.Config.Model = model
	} else {
		gog.logger.Warn("Model not specified, defaulting to " + GoogleDefaultModel)
	}

	return opts
}

func (gog *googleOption) GetRecognizer() string {
	if region, err := gog.mdlOpts.GetString("listen.region"); err == nil {
		if region != "global" {
			return fmt.Sprintf("projects/%s/locations/%s/recognizers/_", gog.projectId, region)
		}
	}
	return fmt.Sprintf("projects/%s/locations/global/recognizers/_", gog.projectId)
}

func (gog *googleOption) GetSpeechToTextClientOptions() []option.ClientOption {
	if region, err := gog.mdlOpts.GetString("listen.region"); err == nil {
		if region != "global" {
			return append(gog.clientOptons, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:443", region)))
		}
	}
	return gog.clientOptons
}

// ============================================================================
// Recognizer
// ============================================================================

type googleRecognizer struct {
	logger commons.Logger
	opt    *googleOption
}

// NewGoogleRecognizer creates a Google Speech-backed live recognizer.
func NewGoogleRecognizer(logger commons.Logger, key, projectID string, opts utils.Option) (internal_type.Recognizer, error) {
	opt, err := NewGoogleOption(logger, key, projectID, opts)
	if err != nil {
		return nil, err
	}
	return &googleRecognizer{logger: logger, opt: opt}, nil
}

func (r *googleRecognizer) Start(ctx context.Context) (internal_type.RecognitionSession, error) {
	client, err := speech.NewClient(ctx, r.opt.GetSpeechToTextClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create google speech client: %w", err)
	}

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to open streaming recognition: %w", err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		Recognizer: r.opt.GetRecognizer(),
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: r.opt.SpeechToTextOptions(),
		},
	}); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	session := newCumulativeSession(r.logger)
	session.sendAudio = func(data []byte) error {
		return stream.Send(&speechpb.StreamingRecognizeRequest{
			Recognizer: r.opt.GetRecognizer(),
			StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{
				Audio: data,
			},
		})
	}
	session.stop = func() {
		if err := stream.CloseSend(); err != nil {
			r.logger.Debugf("google stream close: %v", err)
		}
		client.Close()
	}

	go r.receive(stream, session)
	return session, nil
}

// receive forwards streaming results onto the cumulative session until the
// stream ends. Errors end the loop; the session keeps its last estimate.
func (r *googleRecognizer) receive(stream speechpb.Speech_StreamingRecognizeClient, session *cumulativeSession) {
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			r.logger.Debugw("google recognition stream ended", "error", err)
			return
		}
		for _, result := range resp.GetResults() {
			alternatives := result.GetAlternatives()
			if len(alternatives) == 0 {
				continue
			}
			session.observe(alternatives[0].GetTranscript(), result.GetIsFinal())
		}
	}
}
