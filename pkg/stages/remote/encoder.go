package remote

import (
    "context"
    "time"
)

// Encoder calls the temporal-embedding service with the ordered node
// description sequence.
type Encoder struct{ c client }

// NewEncoder builds a client for the encoder endpoint.
func NewEncoder(baseURL string, timeout time.Duration) *Encoder {
    return &Encoder{c: newClient(baseURL, timeout)}
}

type encodeRequest struct {
    Sequence []string `json:"sequence"`
}

type encodeResponse struct {
    TemporalContextVector []float64 `json:"temporal_context_vector"`
}

func (e *Encoder) Encode(ctx context.Context, descriptions []string) ([]float64, error) {
    var resp encodeResponse
    if err := e.c.postJSON(ctx, "/encode_sequence", encodeRequest{Sequence: descriptions}, &resp); err != nil {
        return nil, err
    }
    return resp.TemporalContextVector, nil
}
