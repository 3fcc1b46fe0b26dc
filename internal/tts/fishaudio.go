package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Synthesizer превращает текст выпуска в аудио.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// SynthesisError - любой сбой синтеза речи.
type SynthesisError struct {
	Status int
	Err    error
}

func (e *SynthesisError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("speech synthesis failed (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("speech synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// fishRequest - тело запроса Fish Audio TTS (msgpack).
type fishRequest struct {
	Text        string `msgpack:"text"`
	ReferenceID string `msgpack:"reference_id"`
	ChunkLength int    `msgpack:"chunk_length"`
	Format      string `msgpack:"format"`
	MP3Bitrate  int    `msgpack:"mp3_bitrate"`
	Normalize   bool   `msgpack:"normalize"`
	Latency     string `msgpack:"latency"`
}

// FishAudio - клиент Fish Audio TTS.
type FishAudio struct {
	endpoint    string
	apiKey      string
	referenceID string
	client      *http.Client
}

var _ Synthesizer = (*FishAudio)(nil)

// NewFishAudio создаёт клиент. timeout <= 0 - без ограничения (длинные выпуски синтезируются минутами).
func NewFishAudio(endpoint, apiKey, referenceID string, timeout time.Duration) *FishAudio {
	return &FishAudio{
		endpoint:    endpoint,
		apiKey:      apiKey,
		referenceID: referenceID,
		client:      &http.Client{Timeout: timeout},
	}
}

// Synthesize возвращает mp3 с озвученным текстом.
func (f *FishAudio) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := msgpack.Marshal(&fishRequest{
		Text:        text,
		ReferenceID: f.referenceID,
		ChunkLength: 200,
		Format:      "mp3",
		MP3Bitrate:  192,
		Normalize:   true,
		Latency:     "normal",
	})
	if err != nil {
		return nil, &SynthesisError{Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &SynthesisError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+f.apiKey)
	req.Header.Set("Content-Type", "application/msgpack")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &SynthesisError{Err: err}
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SynthesisError{Status: resp.StatusCode, Err: fmt.Errorf("read audio: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		msg := audio
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, &SynthesisError{Status: resp.StatusCode, Err: fmt.Errorf("unexpected response: %s", msg)}
	}
	if len(audio) == 0 {
		return nil, &SynthesisError{Status: resp.StatusCode, Err: fmt.Errorf("empty audio")}
	}
	return audio, nil
}
