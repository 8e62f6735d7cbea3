package model

// Stage names reported in progress events and on jobs.
const (
	StageTranscription = "transcription"
	StageAnalysis      = "analysis"
	StageRecap         = "recap"
)

// ProgressFunc receives coarse stage milestones; progress is a percentage.
type ProgressFunc func(stage string, progress int, message string)

// Report calls fn when it is set.
func (fn ProgressFunc) Report(stage string, progress int, message string) {
	if fn != nil {
		fn(stage, progress, message)
	}
}
