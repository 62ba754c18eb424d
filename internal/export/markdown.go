// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package export

import (
	"fmt"
	"strings"

	"workspacegen/internal/models"
)

// RenderMarkdown writes a template as a Markdown document: the title as a
// top-level heading, the description in italics, then every block in order
// with children following their parent.
func RenderMarkdown(t *models.Template) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", oneLine(t.Title))
	if d := strings.TrimSpace(t.Description); d != "" {
		fmt.Fprintf(&b, "_%s_\n\n", oneLine(d))
	}
	writeBlocks(&b, t.Blocks)
	return []byte(strings.TrimRight(b.String(), "\n") + "\n")
}

func writeBlocks(b *strings.Builder, blocks []models.Block) {
	for i := range blocks {
		b.WriteString(blockMarkdown(&blocks[i]))
		b.WriteString("\n\n")
		if len(blocks[i].Children) > 0 {
			writeBlocks(b, blocks[i].Children)
		}
	}
}

// blockMarkdown renders one block without its children.
func blockMarkdown(bl *models.Block) string {
	switch bl.Type {
	case models.BlockHeading:
		level := min(max(bl.Level, 1), 3)
		return strings.Repeat("#", level) + " " + oneLine(bl.Content)
	case models.BlockQuote:
		lines := strings.Split(bl.Content, "\n")
		for i, l := range lines {
			lines[i] = "> " + l
		}
		return strings.Join(lines, "\n")
	case models.BlockCode:
		fence := "```"
		for strings.Contains(bl.Content, fence) {
			fence += "`"
		}
		return fence + stringProp(bl, "language") + "\n" + bl.Content + "\n" + fence
	case models.BlockImage:
		alt := stringProp(bl, "alt")
		if alt == "" {
			alt = "image"
		}
		return fmt.Sprintf("![%s](%s)", alt, bl.Content)
	case models.BlockDivider:
		return "---"
	case models.BlockDatabase:
		return "**" + oneLine(bl.Content) + "**\n\n" + markdownTable(bl.Columns("Name"), bl.Rows())
	case models.BlockTable:
		var caption string
		if c := strings.TrimSpace(bl.Content); c != "" {
			caption = "**" + oneLine(c) + "**\n\n"
		}
		return caption + markdownTable(bl.Columns("Item"), bl.Rows())
	}
	return bl.Content
}

func markdownTable(cols []string, data [][]string) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(escapeCells(cols), " | ") + " |\n")
	sep := make([]string, len(cols))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |")
	for _, row := range data {
		cells := make([]string, len(cols))
		copy(cells, row)
		b.WriteString("\n| " + strings.Join(escapeCells(cells), " | ") + " |")
	}
	return b.String()
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(oneLine(c), "|", `\|`)
	}
	return out
}

func stringProp(bl *models.Block, key string) string {
	return bl.StringProperty(key)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
