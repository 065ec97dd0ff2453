package remote

import (
    "context"
    "time"

    "github.com/burnsgregm/TbD-V6/pkg/schema"
)

// Segmenter calls the semantic-segmentation service, which analyzes the
// whole video plus transcript and returns ordered steps.
type Segmenter struct{ c client }

// NewSegmenter builds a client for the segmenter endpoint.
func NewSegmenter(baseURL string, timeout time.Duration) *Segmenter {
    return &Segmenter{c: newClient(baseURL, timeout)}
}

type segmentRequest struct {
    VideoRef   string `json:"video_ref"`
    Transcript string `json:"transcript"`
}

type segmentResponse struct {
    Steps []schema.SemanticStep `json:"steps"`
}

func (s *Segmenter) Segment(ctx context.Context, videoRef, transcript string) ([]schema.SemanticStep, error) {
    var resp segmentResponse
    if err := s.c.postJSON(ctx, "/analyze_video", segmentRequest{VideoRef: videoRef, Transcript: transcript}, &resp); err != nil {
        return nil, err
    }
    return resp.Steps, nil
}
