package tts

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestFishAudio_Synthesize(t *testing.T) {
	var got fishRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/msgpack" {
			t.Errorf("Content-Type = %q", ct)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer fish-key" {
			t.Errorf("Authorization = %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		if err := msgpack.Unmarshal(body, &got); err != nil {
			t.Errorf("decode msgpack: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3fake-mp3"))
	}))
	defer srv.Close()

	f := NewFishAudio(srv.URL, "fish-key", "voice-1", 0)
	audio, err := f.Synthesize(context.Background(), "各位听众")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "ID3fake-mp3" {
		t.Errorf("Synthesize() = %q", audio)
	}

	want := fishRequest{
		Text:        "各位听众",
		ReferenceID: "voice-1",
		ChunkLength: 200,
		Format:      "mp3",
		MP3Bitrate:  192,
		Normalize:   true,
		Latency:     "normal",
	}
	if got != want {
		t.Errorf("request = %+v, want %+v", got, want)
	}
}

func TestFishAudio_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{name: "payment required", status: http.StatusPaymentRequired, body: "no credits", wantStatus: 402},
		{name: "empty audio", status: http.StatusOK, body: "", wantStatus: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewFishAudio(srv.URL, "k", "v", 0).Synthesize(context.Background(), "text")
			var synthErr *SynthesisError
			if !errors.As(err, &synthErr) {
				t.Fatalf("Synthesize() error = %v, want *SynthesisError", err)
			}
			if synthErr.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", synthErr.Status, tt.wantStatus)
			}
		})
	}
}
