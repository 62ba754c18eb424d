// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package export

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"workspacegen/internal/models"
)

// md converts block Markdown to HTML. Raw HTML in model output is not
// passed through.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
		highlighting.NewHighlighting(
			highlighting.WithStyle("monokai"),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// toHTML converts Markdown source into HTML.
func toHTML(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

var spacingGap = map[models.Spacing]string{
	models.SpacingCompact:     "0.75rem",
	models.SpacingComfortable: "1.25rem",
	models.SpacingSpacious:    "2rem",
}

type htmlBlock struct {
	Type     models.BlockType
	Body     template.HTML
	Children []htmlBlock
}

type htmlPage struct {
	Title       string
	Description string
	Theme       models.Theme
	Gap         string
	Blocks      []htmlBlock
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
:root {
  --primary: {{.Theme.Colors.Primary}};
  --secondary: {{.Theme.Colors.Secondary}};
  --background: {{.Theme.Colors.Background}};
  --surface: {{.Theme.Colors.Surface}};
  --text: {{.Theme.Colors.Text}};
  --accent: {{.Theme.Colors.Accent}};
  --gap: {{.Gap}};
}
body { margin: 0; background: var(--background); color: var(--text); font-family: "{{.Theme.Fonts.Body}}", system-ui, sans-serif; }
main { max-width: 48rem; margin: 0 auto; padding: 2rem 1rem; }
h1, h2, h3 { font-family: "{{.Theme.Fonts.Heading}}", system-ui, sans-serif; color: var(--primary); }
.block { margin-bottom: var(--gap); }
.block-children { margin-left: 1.5rem; }
.block-quote blockquote { border-left: 4px solid var(--accent); margin: 0; padding-left: 1rem; color: var(--secondary); }
.block-database, .block-table { background: var(--surface); padding: 1rem; border-radius: 6px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid var(--secondary); padding: 0.4rem 0.6rem; text-align: left; }
img { max-width: 100%; }
hr { border: 0; border-top: 1px solid var(--secondary); }
.description { color: var(--secondary); }
</style>
</head>
<body>
<main>
<header>
<h1>{{.Title}}</h1>
{{if .Description}}<p class="description">{{.Description}}</p>{{end}}
</header>
{{template "blocks" .Blocks}}
</main>
</body>
</html>
{{define "blocks"}}{{range .}}<section class="block block-{{.Type}}">
{{.Body}}{{if .Children}}<div class="block-children">
{{template "blocks" .Children}}</div>{{end}}
</section>
{{end}}{{end}}`))

// RenderHTML writes a template as a standalone page styled from its theme.
func RenderHTML(t *models.Template) ([]byte, error) {
	blocks, err := htmlBlocks(t.Blocks)
	if err != nil {
		return nil, err
	}
	gap, ok := spacingGap[t.Theme.Spacing]
	if !ok {
		gap = spacingGap[models.SpacingComfortable]
	}
	page := htmlPage{
		Title:       oneLine(t.Title),
		Description: oneLine(t.Description),
		Theme:       t.Theme,
		Gap:         gap,
		Blocks:      blocks,
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

func htmlBlocks(blocks []models.Block) ([]htmlBlock, error) {
	out := make([]htmlBlock, 0, len(blocks))
	for i := range blocks {
		body, err := toHTML(blockMarkdown(&blocks[i]))
		if err != nil {
			return nil, fmt.Errorf("render block %s: %w", blocks[i].ID, err)
		}
		hb := htmlBlock{Type: blocks[i].Type, Body: body}
		if len(blocks[i].Children) > 0 {
			if hb.Children, err = htmlBlocks(blocks[i].Children); err != nil {
				return nil, err
			}
		}
		out = append(out, hb)
	}
	return out, nil
}
