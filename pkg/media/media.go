// Package media wraps ffprobe/ffmpeg for the local media operations the
// worker needs: duration probing, single-frame sampling, and audio track
// extraction.
package media

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "os/exec"
    "strconv"
    "strings"

    "go.uber.org/zap"
)

// frameEpsilon keeps sampled timestamps strictly inside the media duration.
const frameEpsilon = 0.1

// Info holds the probed properties of a media file.
type Info struct {
    DurationSec float64
    FPS         float64
}

// Probe reads duration and frame rate via ffprobe.
func Probe(ctx context.Context, path string) (Info, error) {
    out, err := exec.CommandContext(ctx, "ffprobe",
        "-v", "error",
        "-print_format", "json",
        "-show_format", "-show_streams",
        path,
    ).Output()
    if err != nil {
        return Info{}, fmt.Errorf("ffprobe %s: %w", path, err)
    }

    var doc struct {
        Format struct {
            Duration string `json:"duration"`
        } `json:"format"`
        Streams []struct {
            CodecType    string `json:"codec_type"`
            AvgFrameRate string `json:"avg_frame_rate"`
        } `json:"streams"`
    }
    if err := json.Unmarshal(out, &doc); err != nil {
        return Info{}, fmt.Errorf("ffprobe parse: %w", err)
    }

    info := Info{}
    if d, err := strconv.ParseFloat(doc.Format.Duration, 64); err == nil {
        info.DurationSec = d
    }
    for _, st := range doc.Streams {
        if st.CodecType == "video" {
            info.FPS = parseRate(st.AvgFrameRate)
            break
        }
    }
    return info, nil
}

func parseRate(r string) float64 {
    num, den, ok := strings.Cut(r, "/")
    if !ok {
        f, _ := strconv.ParseFloat(r, 64)
        return f
    }
    n, err1 := strconv.ParseFloat(num, 64)
    d, err2 := strconv.ParseFloat(den, 64)
    if err1 != nil || err2 != nil || d == 0 {
        return 0
    }
    return n / d
}

// Sampler extracts single JPEG frames from one video file.
type Sampler struct {
    path string
    info Info
}

// NewSampler probes path once and returns a sampler bound to it.
func NewSampler(ctx context.Context, path string) (*Sampler, error) {
    info, err := Probe(ctx, path)
    if err != nil {
        return nil, err
    }
    return &Sampler{path: path, info: info}, nil
}

// Duration returns the probed media duration in seconds.
func (s *Sampler) Duration() float64 { return s.info.DurationSec }

// FrameAt returns the frame nearest ts as JPEG bytes. The timestamp is
// clamped to [0, duration-epsilon]; if the exact frame does not decode the
// sampler falls back to the second-to-last frame, and if nothing decodes it
// returns a nil frame with no error so the caller can degrade the step.
func (s *Sampler) FrameAt(ctx context.Context, ts float64) ([]byte, error) {
    safe := ts
    if maxTS := s.info.DurationSec - frameEpsilon; safe > maxTS {
        safe = maxTS
    }
    if safe < 0 {
        safe = 0
    }

    frame, err := s.extract(ctx, safe)
    if err == nil && len(frame) > 0 {
        return frame, nil
    }

    // second-to-last decodable frame fallback
    if s.info.FPS > 0 {
        fallback := s.info.DurationSec - 2/s.info.FPS
        if fallback < 0 {
            fallback = 0
        }
        if frame, err = s.extract(ctx, fallback); err == nil && len(frame) > 0 {
            return frame, nil
        }
    }
    zap.L().Warn("no decodable frame, proceeding with empty frame",
        zap.String("video", s.path), zap.Float64("ts", ts))
    return nil, nil
}

func (s *Sampler) extract(ctx context.Context, ts float64) ([]byte, error) {
    var out bytes.Buffer
    cmd := exec.CommandContext(ctx, "ffmpeg",
        "-v", "error",
        "-ss", strconv.FormatFloat(ts, 'f', 3, 64),
        "-i", s.path,
        "-frames:v", "1",
        "-c:v", "mjpeg",
        "-f", "image2",
        "pipe:1",
    )
    cmd.Stdout = &out
    if err := cmd.Run(); err != nil {
        return nil, fmt.Errorf("ffmpeg frame at %.3fs: %w", ts, err)
    }
    return out.Bytes(), nil
}

// ExtractAudio rips the audio track of videoPath to audioPath as MP3.
func ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
    err := exec.CommandContext(ctx, "ffmpeg",
        "-v", "error",
        "-i", videoPath,
        "-vn",
        "-acodec", "libmp3lame",
        "-q:a", "2",
        "-y", audioPath,
    ).Run()
    if err != nil {
        return fmt.Errorf("ffmpeg audio extract: %w", err)
    }
    return nil
}
