package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"mediaqc/internal/queue"
)

// FFprobeAnalyzer inspects media by shelling out to ffprobe.
type FFprobeAnalyzer struct {
	binary string
}

// NewFFprobeAnalyzer constructs an analyzer using the given ffprobe binary.
// An empty binary resolves "ffprobe" via PATH.
func NewFFprobeAnalyzer(binary string) *FFprobeAnalyzer {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFprobeAnalyzer{binary: binary}
}

// Analyze runs ffprobe against the source and derives a QC report.
func (a *FFprobeAnalyzer) Analyze(ctx context.Context, src SourceRef, profile queue.QCType, progress ProgressFunc) (*Report, error) {
	if progress == nil {
		progress = func(int) {}
	}

	path := strings.TrimSpace(src.Path)
	if path == "" {
		return nil, SourceMissing(errors.New("empty source path"))
	}
	if _, err := os.Stat(path); err != nil {
		return nil, SourceMissing(fmt.Errorf("stat source: %w", err))
	}
	progress(10)

	probe, err := a.probe(ctx, path)
	if err != nil {
		return nil, AnalyzerFailed(err)
	}
	progress(60)

	report := &Report{
		Profile:         profile,
		FileName:        src.FileName,
		Container:       probe.Format.FormatName,
		DurationSeconds: probe.durationSeconds(),
		SizeBytes:       probe.sizeBytes(),
		BitRate:         probe.bitRate(),
	}
	a.checkContainer(report, probe)
	if profile == queue.QCFull {
		a.checkStreams(report, probe)
	}
	progress(90)

	report.Passed = report.errorCount() == 0
	return report, nil
}

func (a *FFprobeAnalyzer) checkContainer(report *Report, probe probeResult) {
	for _, stream := range probe.Streams {
		switch strings.ToLower(stream.CodecType) {
		case "video":
			report.VideoStreams++
		case "audio":
			report.AudioStreams++
		}
	}

	if report.Container == "" {
		report.addFinding(SeverityError, "container_unrecognized", "ffprobe could not identify the container format")
	}
	if report.DurationSeconds <= 0 {
		report.addFinding(SeverityError, "duration_missing", "container reports no duration")
	}
	if report.VideoStreams == 0 {
		report.addFinding(SeverityError, "no_video", "no video stream present")
	}
	if report.AudioStreams == 0 {
		report.addFinding(SeverityWarning, "no_audio", "no audio stream present")
	}
	if report.BitRate == 0 {
		report.addFinding(SeverityInfo, "bitrate_unreported", "container does not report an overall bitrate")
	}
}

func (a *FFprobeAnalyzer) checkStreams(report *Report, probe probeResult) {
	for _, stream := range probe.Streams {
		codecType := strings.ToLower(stream.CodecType)
		if codecType != "video" && codecType != "audio" {
			continue
		}
		entry := StreamReport{
			Index:      stream.Index,
			Type:       codecType,
			Codec:      stream.CodecName,
			Width:      stream.Width,
			Height:     stream.Height,
			SampleRate: stream.SampleRate,
			Channels:   stream.Channels,
			BitRate:    stream.BitRate,
		}
		report.Streams = append(report.Streams, entry)

		if stream.CodecName == "" {
			report.addFinding(SeverityError, "codec_unknown",
				fmt.Sprintf("stream %d has no identifiable codec", stream.Index))
		}
		switch codecType {
		case "video":
			if stream.Width <= 0 || stream.Height <= 0 {
				report.addFinding(SeverityError, "dimensions_missing",
					fmt.Sprintf("video stream %d reports no dimensions", stream.Index))
			}
		case "audio":
			if stream.Channels <= 0 {
				report.addFinding(SeverityError, "channels_missing",
					fmt.Sprintf("audio stream %d reports no channel count", stream.Index))
			}
			if stream.SampleRate == "" {
				report.addFinding(SeverityWarning, "sample_rate_missing",
					fmt.Sprintf("audio stream %d reports no sample rate", stream.Index))
			}
		}
	}
}

type probeStream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type probeFormat struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

func (a *FFprobeAnalyzer) probe(ctx context.Context, path string) (probeResult, error) {
	cmd := exec.CommandContext(ctx, a.binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return probeResult{}, fmt.Errorf("ffprobe inspect: %w", ctxErr)
		}
		return probeResult{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return probeResult{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

func (p probeResult) durationSeconds() float64 {
	value := parseFloat(p.Format.Duration)
	if math.IsNaN(value) {
		return 0
	}
	return value
}

func (p probeResult) sizeBytes() int64 {
	size := parseFloat(p.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

func (p probeResult) bitRate() int64 {
	rate := parseFloat(p.Format.BitRate)
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return int64(rate)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
