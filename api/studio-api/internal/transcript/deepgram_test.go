package internal_transcript

import (
	"testing"

	"github.com/rapidaai/pkg/utils"
	"github.com/stretchr/testify/assert"
)

// --- Constructor Tests ---

func TestNewDeepgramOption_ValidKey(t *testing.T) {
	opt, err := NewDeepgramOption(newTestLogger(t), "test-api-key", utils.Option{})
	assert.NoError(t, err)
	assert.NotNil(t, opt)
	assert.Equal(t, "test-api-key", opt.GetKey())
}

func TestNewDeepgramOption_MissingKey(t *testing.T) {
	opt, err := NewDeepgramOption(newTestLogger(t), "", utils.Option{})
	assert.Error(t, err)
	assert.Nil(t, opt)
	assert.Contains(t, err.Error(), "illegal deepgram config")
}

func TestNewDeepgramOption_BlankKey(t *testing.T) {
	opt, err := NewDeepgramOption(newTestLogger(t), "   ", utils.Option{})
	assert.Error(t, err)
	assert.Nil(t, opt)
}

// --- Encoding Tests ---

func TestDeepgramGetEncoding(t *testing.T) {
	opt, _ := NewDeepgramOption(newTestLogger(t), "k", utils.Option{})
	assert.Equal(t, "linear16", opt.GetEncoding())
}

// --- SpeechToTextOptions Tests ---

func TestSpeechToTextOptions_Defaults(t *testing.T) {
	opt, _ := NewDeepgramOption(newTestLogger(t), "k", utils.Option{})
	sttOpts := opt.SpeechToTextOptions()

	assert.Equal(t, "nova", sttOpts.Model)
	assert.Equal(t, "en-US", sttOpts.Language)
	assert.Equal(t, 1, sttOpts.Channels)
	assert.True(t, sttOpts.SmartFormat)
	assert.True(t, sttOpts.InterimResults)
	assert.True(t, sttOpts.FillerWords)
	assert.False(t, sttOpts.VadEvents)
	assert.Equal(t, "5", sttOpts.Endpointing)
	assert.True(t, sttOpts.Punctuate)
	assert.True(t, sttOpts.NoDelay)
	assert.Equal(t, "linear16", sttOpts.Encoding)
	assert.Equal(t, 16000, sttOpts.SampleRate)
	assert.False(t, sttOpts.Diarize)
	assert.False(t, sttOpts.Multichannel)
}

func TestSpeechToTextOptions_WithOverrides(t *testing.T) {
	opts := utils.Option{
		"listen.language":     "fr-FR",
		"listen.smart_format": false,
		"listen.filler_words": false,
		"listen.vad_events":   true,
		"listen.endpointing":  "10",
		"listen.multichannel": true,
		"listen.model":        "nova-2",
	}
	opt, _ := NewDeepgramOption(newTestLogger(t), "k", opts)
	sttOpts := opt.SpeechToTextOptions()

	assert.Equal(t, "fr-FR", sttOpts.Language)
	assert.False(t, sttOpts.SmartFormat)
	assert.False(t, sttOpts.FillerWords)
	assert.True(t, sttOpts.VadEvents)
	assert.Equal(t, "10", sttOpts.Endpointing)
	assert.True(t, sttOpts.Multichannel)
	assert.Equal(t, "nova-2", sttOpts.Model)
	// Encoding and sample rate keep their defaults unless overridden
	assert.Equal(t, "linear16", sttOpts.Encoding)
	assert.Equal(t, 16000, sttOpts.SampleRate)
}

func TestSpeechToTextOptions_NumericOverrides(t *testing.T) {
	opts := utils.Option{
		"listen.channels":    2,
		"listen.sample_rate": 48000,
	}
	opt, _ := NewDeepgramOption(newTestLogger(t), "k", opts)
	sttOpts := opt.SpeechToTextOptions()

	assert.Equal(t, 2, sttOpts.Channels)
	assert.Equal(t, 48000, sttOpts.SampleRate)
}

// --- Cumulative session tests ---

func TestCumulativeSessionComposesTranscript(t *testing.T) {
	s := newCumulativeSession(newTestLogger(t))

	s.observe("hello", false)
	assert.Equal(t, "hello", <-s.Results())

	s.observe("hello world", true)
	assert.Equal(t, "hello world", <-s.Results())

	// Next interim extends the finalized prefix.
	s.observe("foo", false)
	assert.Equal(t, "hello world foo", <-s.Results())

	s.observe("foo bar", true)
	assert.Equal(t, "hello world foo bar", <-s.Results())
}

func TestCumulativeSessionDropsAfterStop(t *testing.T) {
	s := newCumulativeSession(newTestLogger(t))
	assert.NoError(t, s.Stop())
	// Late provider callback after teardown must be ignored, not panic.
	s.observe("late result", true)
	assert.NoError(t, s.Stop())

	_, open := <-s.Results()
	assert.False(t, open, "results channel must be closed after Stop")
}

func TestCumulativeSessionIgnoresEmptyResults(t *testing.T) {
	s := newCumulativeSession(newTestLogger(t))
	s.observe("   ", false)
	s.observe("", true)

	select {
	case got := <-s.Results():
		t.Fatalf("expected no event, got %q", got)
	default:
	}
}
