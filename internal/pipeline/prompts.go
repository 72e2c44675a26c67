package pipeline

import (
	"bytes"
	"embed"
	"text/template"

	"github.com/pks0715/seggy/internal/model"
)

// Per-document prompt limits.
const (
	// DocumentContentLimit caps each document's section in a batch prompt.
	DocumentContentLimit = 8000

	// DocumentSnippetLimit caps the per-file preview in the file list.
	DocumentSnippetLimit = 500
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// batchPromptDoc is one document as it appears in a batch prompt.
type batchPromptDoc struct {
	Name    string
	Snippet string
	Content string
}

// batchPromptData feeds prompts/batch.tmpl.
type batchPromptData struct {
	Index       int
	Total       int
	DDType      string
	ReportFocus string
	Documents   []batchPromptDoc
}

// synthesisPromptData feeds prompts/synthesis.tmpl.
type synthesisPromptData struct {
	TotalFiles    int
	DDType        string
	ReportFocus   string
	ChecklistType string
	Content       string
}

// buildBatchPrompt renders the analysis prompt for one batch.
func buildBatchPrompt(b model.Batch, c model.Classification) (string, error) {
	data := batchPromptData{
		Index:       b.Index,
		Total:       b.Total,
		DDType:      c.DDType,
		ReportFocus: c.ReportFocus,
		Documents:   make([]batchPromptDoc, len(b.Documents)),
	}
	for i, d := range b.Documents {
		data.Documents[i] = batchPromptDoc{
			Name:    d.Name,
			Snippet: model.TruncateText(d.Text, DocumentSnippetLimit),
			Content: model.TruncateText(d.Text, DocumentContentLimit),
		}
	}
	return render("batch.tmpl", data)
}

// buildSynthesisPrompt renders the synthesis prompt around content.
func buildSynthesisPrompt(content string, totalFiles int, c model.Classification) (string, error) {
	return render("synthesis.tmpl", synthesisPromptData{
		TotalFiles:    totalFiles,
		DDType:        c.DDType,
		ReportFocus:   c.ReportFocus,
		ChecklistType: c.ChecklistType,
		Content:       content,
	})
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
