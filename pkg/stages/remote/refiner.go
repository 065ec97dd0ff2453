package remote

import (
    "context"
    "encoding/base64"
    "time"
)

// Refiner calls the coordinate-refinement detector with a single JPEG frame
// and a target label. The timeout is generous to ride out cold starts.
type Refiner struct{ c client }

// NewRefiner builds a client for the detector endpoint.
func NewRefiner(baseURL string, timeout time.Duration) *Refiner {
    return &Refiner{c: newClient(baseURL, timeout)}
}

type refineRequest struct {
    FrameBase64 string `json:"frame_base64"`
    TargetText  string `json:"target_text"`
}

type refineResponse struct {
    UIRegion   [4]int  `json:"ui_region"`
    Confidence float64 `json:"confidence"`
}

func (r *Refiner) Refine(ctx context.Context, frame []byte, targetLabel string) ([4]int, float64, error) {
    req := refineRequest{
        FrameBase64: base64.StdEncoding.EncodeToString(frame),
        TargetText:  targetLabel,
    }
    var resp refineResponse
    if err := r.c.postJSON(ctx, "/detect_coordinates", req, &resp); err != nil {
        return [4]int{}, 0, err
    }
    return resp.UIRegion, resp.Confidence, nil
}
