package remote

import (
    "context"
    "time"
)

// Transcriber calls the speech-to-text service with a staged audio URI.
type Transcriber struct{ c client }

// NewTranscriber builds a client for the transcription endpoint.
func NewTranscriber(baseURL string, timeout time.Duration) *Transcriber {
    return &Transcriber{c: newClient(baseURL, timeout)}
}

type transcribeRequest struct {
    AudioRef string `json:"audio_ref"`
}

type transcribeResponse struct {
    Transcript string `json:"transcript"`
}

func (t *Transcriber) Transcribe(ctx context.Context, audioRef string) (string, error) {
    var resp transcribeResponse
    if err := t.c.postJSON(ctx, "/transcribe", transcribeRequest{AudioRef: audioRef}, &resp); err != nil {
        return "", err
    }
    return resp.Transcript, nil
}
