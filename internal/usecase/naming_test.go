package usecase

import (
	"path/filepath"
	"testing"
)

func TestStageNaming(t *testing.T) {
	dir := filepath.Join("data", "meetings")

	transcript := TranscriptPath(filepath.Join(dir, "standup.mp4"), "medium", "")
	if want := filepath.Join(dir, "standup_medium_transcript.txt"); transcript != want {
		t.Fatalf("TranscriptPath = %s, want %s", transcript, want)
	}

	analysis := AnalysisPath(transcript, "")
	if want := filepath.Join(dir, "standup_medium_analysis.txt"); analysis != want {
		t.Fatalf("AnalysisPath = %s, want %s", analysis, want)
	}

	recap := RecapPath(analysis, "out")
	if want := filepath.Join("out", "standup_medium_recap.txt"); recap != want {
		t.Fatalf("RecapPath = %s, want %s", recap, want)
	}

	if got := DocxPath(recap); got != filepath.Join("out", "standup_medium_recap.docx") {
		t.Fatalf("DocxPath = %s", got)
	}
}

func TestNamingOnlyStripsTrailingSuffix(t *testing.T) {
	got := AnalysisPath("my_transcript_notes.txt", "")
	if got != "my_transcript_notes_analysis.txt" {
		t.Fatalf("AnalysisPath = %s", got)
	}
	if got := TranscriptPath("a.wav", "org/large:v3", ""); got != "a_org-large-v3_transcript.txt" {
		t.Fatalf("TranscriptPath = %s", got)
	}
}
