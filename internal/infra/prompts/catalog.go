package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"meeting-recap/internal/domain/model"

	"gopkg.in/yaml.v3"
)

//go:embed templates
var TemplatesFS embed.FS

// Catalog holds the fixed prompt templates for analysis tasks and recap styles.
type Catalog struct {
	analysis   map[string]string
	recapStyle map[string]string
	recapFrame string
}

type recapFile struct {
	Styles map[string]string `yaml:"styles"`
	Frame  string            `yaml:"frame"`
}

// Load reads templates/analysis.yaml and templates/recap.yaml from fsys.
func Load(fsys fs.FS) (*Catalog, error) {
	data, err := fs.ReadFile(fsys, path.Join("templates", "analysis.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis templates: %w", err)
	}
	var analysis map[string]string
	if err := yaml.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse analysis templates: %w", err)
	}

	data, err = fs.ReadFile(fsys, path.Join("templates", "recap.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to read recap templates: %w", err)
	}
	var recap recapFile
	if err := yaml.Unmarshal(data, &recap); err != nil {
		return nil, fmt.Errorf("failed to parse recap templates: %w", err)
	}
	return newCatalog(analysis, recap)
}

// Default loads the embedded templates. They ship with the binary, so a
// failure here is a build defect.
func Default() *Catalog {
	c, err := Load(TemplatesFS)
	if err != nil {
		panic(err)
	}
	return c
}

func newCatalog(analysis map[string]string, recap recapFile) (*Catalog, error) {
	for _, t := range []model.AnalysisTask{
		model.TaskSummary, model.TaskActionItems, model.TaskKeyPoints,
		model.TaskSentiment, model.TaskQuestions, model.TaskComprehensive,
	} {
		if analysis[string(t)] == "" {
			return nil, fmt.Errorf("missing analysis template %q", t)
		}
	}
	for _, s := range []model.RecapStyle{model.StyleDramatic, model.StyleNarrative, model.StyleConcise, model.StyleEpic} {
		if recap.Styles[string(s)] == "" {
			return nil, fmt.Errorf("missing recap style %q", s)
		}
	}
	if recap.Frame == "" {
		return nil, fmt.Errorf("missing recap frame")
	}
	return &Catalog{analysis: analysis, recapStyle: recap.Styles, recapFrame: recap.Frame}, nil
}

// AnalysisPrompt is the task template followed directly by the chunk text.
func (c *Catalog) AnalysisPrompt(task model.AnalysisTask, chunk string) string {
	tmpl, ok := c.analysis[string(task)]
	if !ok {
		tmpl = c.analysis[string(model.TaskSummary)]
	}
	return tmpl + chunk
}

func (c *Catalog) RecapPrompt(style model.RecapStyle, analysis string) string {
	guide, ok := c.recapStyle[string(style)]
	if !ok {
		guide = c.recapStyle[string(model.StyleEpic)]
	}
	return fmt.Sprintf(c.recapFrame, guide, analysis)
}
