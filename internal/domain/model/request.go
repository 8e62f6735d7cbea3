package model

// TranscriptionMode selects the transcription backend variant.
type TranscriptionMode string

const (
	TranscriptionLocal  TranscriptionMode = "local"
	TranscriptionRemote TranscriptionMode = "remote"
)

func (m TranscriptionMode) Valid() bool {
	return m == TranscriptionLocal || m == TranscriptionRemote
}

// AnalysisTask selects the analysis prompt template.
type AnalysisTask string

const (
	TaskSummary       AnalysisTask = "summary"
	TaskActionItems   AnalysisTask = "action_items"
	TaskKeyPoints     AnalysisTask = "key_points"
	TaskSentiment     AnalysisTask = "sentiment"
	TaskQuestions     AnalysisTask = "questions"
	TaskComprehensive AnalysisTask = "comprehensive"
)

func (t AnalysisTask) Valid() bool {
	switch t {
	case TaskSummary, TaskActionItems, TaskKeyPoints, TaskSentiment, TaskQuestions, TaskComprehensive:
		return true
	}
	return false
}

// RecapStyle selects the recap prompt template.
type RecapStyle string

const (
	StyleDramatic  RecapStyle = "dramatic"
	StyleNarrative RecapStyle = "narrative"
	StyleConcise   RecapStyle = "concise"
	StyleEpic      RecapStyle = "epic"
)

func (s RecapStyle) Valid() bool {
	switch s {
	case StyleDramatic, StyleNarrative, StyleConcise, StyleEpic:
		return true
	}
	return false
}

// FileCategory is the media class derived from a file extension.
type FileCategory string

const (
	FileAudio   FileCategory = "audio"
	FileVideo   FileCategory = "video"
	FileText    FileCategory = "text"
	FileUnknown FileCategory = "unknown"
)

type TranscriptionRequest struct {
	SourcePath string
	Model      string
	Mode       TranscriptionMode
	BackendURL string
	Language   string
	// OutputDir defaults to the source file's directory.
	OutputDir string
}

type AnalysisRequest struct {
	TranscriptPath string
	Model          string
	BackendURL     string
	Task           AnalysisTask
	OutputDir      string
}

type RecapRequest struct {
	AnalysisPath string
	Model        string
	BackendURL   string
	Style        RecapStyle
	OutputDir    string
}
