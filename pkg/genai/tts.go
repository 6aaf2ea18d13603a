package genai

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
)

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type GoogleTTS struct {
	client       *texttospeech.Client
	languageCode string
	voiceName    string
}

// NewGoogleTTS picks up credentials from the ambient Google Cloud
// environment (GOOGLE_APPLICATION_CREDENTIALS).
func NewGoogleTTS(ctx context.Context, languageCode, voiceName string) (*GoogleTTS, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("tts client: %w", err)
	}
	return &GoogleTTS{client: client, languageCode: languageCode, voiceName: voiceName}, nil
}

// Synthesize renders text as MP3 narration. Rate is slightly below normal,
// which suits reading a story aloud.
func (t *GoogleTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := t.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: t.languageCode,
			Name:         t.voiceName,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_FEMALE,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  0.9,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tts synthesize: %w", err)
	}
	return resp.AudioContent, nil
}

func (t *GoogleTTS) Close() error {
	return t.client.Close()
}
