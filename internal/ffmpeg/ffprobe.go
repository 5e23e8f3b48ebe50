package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Stream is one technical stream reported by ffprobe.
type Stream struct {
	Index      int
	Type       string // video, audio, subtitle
	Codec      string
	Language   string
	Title      string
	Default    bool
	Forced     bool
	Channels   int
	SampleRate int
	BitRate    int
	Width      int
	Height     int
	FrameRate  float64
}

// Result is the technical summary of a probed file.
type Result struct {
	Duration float64
	Streams  []Stream
}

type FFprobe struct {
	path    string
	timeout time.Duration
}

func NewFFprobe(path string, timeout time.Duration) *FFprobe {
	return &FFprobe{path: path, timeout: timeout}
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SampleRate   string `json:"sample_rate"`
	Channels     int    `json:"channels"`
	BitRate      string `json:"bit_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	Disposition  struct {
		Default int `json:"default"`
		Forced  int `json:"forced"`
	} `json:"disposition"`
	Tags struct {
		Language string `json:"language"`
		Title    string `json:"title"`
	} `json:"tags"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

// Probe runs ffprobe against the file and decodes its stream layout. The
// invocation is bounded by the configured timeout on top of ctx.
func (f *FFprobe) Probe(ctx context.Context, filePath string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		filePath)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	var data ffprobeOutput
	if err := json.Unmarshal(out, &data); err != nil {
		return nil, fmt.Errorf("parse ffprobe: %w", err)
	}

	result := &Result{}
	if data.Format.Duration != "" {
		result.Duration, _ = strconv.ParseFloat(data.Format.Duration, 64)
	}

	for _, s := range data.Streams {
		switch s.CodecType {
		case "video", "audio", "subtitle":
		default:
			continue
		}
		stream := Stream{
			Index:    s.Index,
			Type:     s.CodecType,
			Codec:    s.CodecName,
			Language: s.Tags.Language,
			Title:    s.Tags.Title,
			Default:  s.Disposition.Default == 1,
			Forced:   s.Disposition.Forced == 1,
			Channels: s.Channels,
			Width:    s.Width,
			Height:   s.Height,
		}
		if s.SampleRate != "" {
			stream.SampleRate, _ = strconv.Atoi(s.SampleRate)
		}
		if s.BitRate != "" {
			stream.BitRate, _ = strconv.Atoi(s.BitRate)
		}
		stream.FrameRate = parseFrameRate(s.AvgFrameRate)
		result.Streams = append(result.Streams, stream)
	}

	return result, nil
}

// parseFrameRate evaluates ffprobe's fractional rate form ("24000/1001").
func parseFrameRate(raw string) float64 {
	if raw == "" || raw == "0/0" {
		return 0
	}
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) == 1 {
		v, _ := strconv.ParseFloat(parts[0], 64)
		return v
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
