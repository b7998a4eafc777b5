// Package analysis performs media quality-control inspection.
//
// The Analyzer interface is the seam between the dispatch worker and the
// inspection backend. The shipped implementation shells out to ffprobe and
// derives a structured QC report from its JSON output: the basic profile
// checks container and stream sanity, the full profile adds per-stream
// inspection. Analyzers report progress at checkpoints through a callback;
// they never write to the job store themselves.
package analysis
