package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mediaqc/internal/api"
)

var statusCaser = cases.Title(language.English)

// statusLabel renders a status value for table output.
func statusLabel(status string) string {
	return statusCaser.String(strings.ReplaceAll(status, "_", " "))
}

// relativeTime renders an API timestamp as a human-friendly age.
func relativeTime(value string) string {
	parsed := api.ParseViewTime(value)
	if parsed.IsZero() {
		return "-"
	}
	return humanize.Time(parsed)
}

// absoluteTime renders an API timestamp in the local timezone.
func absoluteTime(value string) string {
	parsed := api.ParseViewTime(value)
	if parsed.IsZero() {
		return "-"
	}
	return parsed.Local().Format(time.RFC3339)
}

func progressLabel(percent int) string {
	return fmt.Sprintf("%d%%", percent)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
