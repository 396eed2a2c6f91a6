package server

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

const previewTemplate = `<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 52rem; margin: 2rem auto; line-height: 1.6; }
.status { color: #555; border-bottom: 1px solid #ddd; padding-bottom: .5rem; }
.review { color: #b00020; font-weight: bold; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: .25rem .5rem; }
</style>
</head>
<body>
<p class="status">{{.State}}{{if .NeedsReview}} <span class="review">검토 필요</span>{{end}}</p>
{{.Body}}
</body>
</html>
`

type previewPage struct {
	Title       string
	State       string
	Markdown    string
	NeedsReview bool
}

// previewRenderer turns a session document into a standalone HTML page. Raw
// HTML in the document is not passed through.
type previewRenderer struct {
	md   goldmark.Markdown
	page *template.Template
}

func newPreviewRenderer() (*previewRenderer, error) {
	page, err := template.New("preview").Parse(previewTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing preview template: %w", err)
	}
	return &previewRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		page: page,
	}, nil
}

// Render converts p.Markdown and wraps it in the page layout.
func (r *previewRenderer) Render(p previewPage) ([]byte, error) {
	var body bytes.Buffer
	if err := r.md.Convert([]byte(p.Markdown), &body); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}

	var out bytes.Buffer
	err := r.page.Execute(&out, struct {
		previewPage
		Body template.HTML
	}{p, template.HTML(body.String())}) //nolint:gosec // goldmark output without unsafe mode
	if err != nil {
		return nil, fmt.Errorf("rendering preview page: %w", err)
	}
	return out.Bytes(), nil
}
