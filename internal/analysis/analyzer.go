package analysis

import (
	"context"

	"mediaqc/internal/queue"
)

// SourceRef points the analyzer at locally resolved media bytes.
type SourceRef struct {
	Path     string
	FileName string
}

// ProgressFunc receives checkpoint progress in the range [0, 100].
type ProgressFunc func(percent int)

// Analyzer inspects one media source under a QC profile.
type Analyzer interface {
	Analyze(ctx context.Context, src SourceRef, profile queue.QCType, progress ProgressFunc) (*Report, error)
}

// Severity grades a QC finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is a single QC observation.
type Finding struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// StreamReport summarizes one stream for the full profile.
type StreamReport struct {
	Index      int    `json:"index"`
	Type       string `json:"type"`
	Codec      string `json:"codec"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	SampleRate string `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	BitRate    string `json:"bit_rate,omitempty"`
}

// Report is the structured result persisted on a completed job.
type Report struct {
	Profile         queue.QCType   `json:"profile"`
	FileName        string         `json:"file_name,omitempty"`
	Container       string         `json:"container"`
	DurationSeconds float64        `json:"duration_seconds"`
	SizeBytes       int64          `json:"size_bytes"`
	BitRate         int64          `json:"bit_rate"`
	VideoStreams    int            `json:"video_streams"`
	AudioStreams    int            `json:"audio_streams"`
	Streams         []StreamReport `json:"streams,omitempty"`
	Findings        []Finding      `json:"findings"`
	Passed          bool           `json:"passed"`
}

func (r *Report) addFinding(severity Severity, code, message string) {
	r.Findings = append(r.Findings, Finding{Severity: severity, Code: code, Message: message})
}

// errorCount returns the number of error-grade findings.
func (r *Report) errorCount() int {
	count := 0
	for _, finding := range r.Findings {
		if finding.Severity == SeverityError {
			count++
		}
	}
	return count
}
