// Package export renders recap text into Word documents.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	fontName = "Georgia"
	fontSize = 12
)

var (
	reHeading = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	reBold    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBullet  = regexp.MustCompile(`^[\-\*]\s+(.+)$`)
)

// Docx writes recaps as .docx files. Markdown headings, bullets and bold
// spans produced by the model are mapped onto runs; everything else becomes
// a plain paragraph.
type Docx struct {
	Title string
}

func NewDocx(title string) *Docx {
	return &Docx{Title: title}
}

func (d *Docx) Export(text, path string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("new document: %w", err)
	}

	if d.Title != "" {
		styledRun(doc.AddParagraph(""), d.Title, true, 18)
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "---" {
			continue
		}
		p := doc.AddParagraph("")
		if m := reHeading.FindStringSubmatch(trimmed); m != nil {
			styledRun(p, m[2], true, headingSize(len(m[1])))
			continue
		}
		if m := reBullet.FindStringSubmatch(trimmed); m != nil {
			richText(p, "• "+m[1])
			continue
		}
		richText(p, trimmed)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := doc.SaveTo(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 14
	default:
		return 13
	}
}

func styledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(plain(text)).Font(fontName).Size(size)
	if bold {
		run.Bold(true)
	}
}

// richText splits on **bold** spans.
func richText(p *docx.Paragraph, text string) {
	parts := reBold.Split(text, -1)
	bold := reBold.FindAllStringSubmatch(text, -1)
	for i, part := range parts {
		if part != "" {
			p.AddText(plain(part)).Font(fontName).Size(fontSize)
		}
		if i < len(bold) {
			p.AddText(plain(bold[i][1])).Font(fontName).Size(fontSize).Bold(true)
		}
	}
}

func plain(s string) string {
	return strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
}
