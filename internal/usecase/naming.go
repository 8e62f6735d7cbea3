package usecase

import (
	"path/filepath"
	"strings"
)

// Output names are derived from the previous stage's file so each stage can
// find its input without being told:
//
//	meeting.wav -> meeting_medium_transcript.txt -> meeting_medium_analysis.txt -> meeting_medium_recap.txt

func TranscriptPath(source, model, outputDir string) string {
	stem := stemOf(source)
	return filepath.Join(dirOr(source, outputDir), stem+"_"+safeModelTag(model)+"_transcript.txt")
}

func AnalysisPath(transcript, outputDir string) string {
	base := strings.TrimSuffix(stemOf(transcript), "_transcript")
	return filepath.Join(dirOr(transcript, outputDir), base+"_analysis.txt")
}

func RecapPath(analysis, outputDir string) string {
	base := strings.TrimSuffix(stemOf(analysis), "_analysis")
	return filepath.Join(dirOr(analysis, outputDir), base+"_recap.txt")
}

// DocxPath is the sibling .docx of a recap file.
func DocxPath(recap string) string {
	return strings.TrimSuffix(recap, filepath.Ext(recap)) + ".docx"
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func dirOr(path, outputDir string) string {
	if outputDir != "" {
		return outputDir
	}
	return filepath.Dir(path)
}

// safeModelTag keeps model names like "org/model:tag" from adding path
// segments to a file name.
func safeModelTag(model string) string {
	return strings.NewReplacer("/", "-", "\\", "-", ":", "-").Replace(model)
}
