package internal_transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rapidaai/pkg/utils"
)

func TestNewGoogleOption_MissingProjectID(t *testing.T) {
	opt, err := NewGoogleOption(newTestLogger(t), "key", "", utils.Option{})
	assert.Error(t, err)
	assert.Nil(t, opt)
	assert.Contains(t, err.Error(), "illegal google config")
}

func TestGoogleSpeechToTextOptions_Defaults(t *testing.T) {
	opt, err := NewGoogleOption(newTestLogger(t), "key", "proj", utils.Option{})
	assert.NoError(t, err)

	sttOpts := opt.SpeechToTextOptions()
	assert.Equal(t, []string{"en-US"}, sttOpts.Config.LanguageCodes)
	assert.Equal(t, "long", sttOpts.Config.Model)
	assert.True(t, sttOpts.StreamingFeatures.InterimResults)
}

func TestGoogleSpeechToTextOptions_LanguagesOverride(t *testing.T) {
	opt, err := NewGoogleOption(newTestLogger(t), "key", "proj", utils.Option{
		"listen.languages": []string{"fr-FR", "de-DE"},
	})
	assert.NoError(t, err)

	sttOpts := opt.SpeechToTextOptions()
	assert.Equal(t, []string{"fr-FR", "de-DE"}, sttOpts.Config.LanguageCodes)
}

func TestGoogleSpeechToTextOptions_SeparatedLanguageFallback(t *testing.T) {
	opt, err := NewGoogleOption(newTestLogger(t), "key", "proj", utils.Option{
		"listen.language": "en-GB,hi-IN",
	})
	assert.NoError(t, err)

	sttOpts := opt.SpeechToTextOptions()
	assert.Equal(t, []string{"en-GB", "hi-IN"}, sttOpts.Config.LanguageCodes)
}

func TestGoogleGetRecognizerRegions(t *testing.T) {
	global, err := NewGoogleOption(newTestLogger(t), "key", "proj", utils.Option{})
	assert.NoError(t, err)
	assert.Equal(t, "projects/proj/locations/global/recognizers/_", global.GetRecognizer())

	regional, err := NewGoogleOption(newTestLogger(t), "key", "proj", utils.Option{
		"listen.region": "europe-west4",
	})
	assert.NoError(t, err)
	assert.Equal(t, "projects/proj/locations/europe-west4/recognizers/_", regional.GetRecognizer())
}
