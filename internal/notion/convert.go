// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package notion

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jomei/notionapi"

	"workspacegen/internal/models"
)

// ErrUnsupportedBlock is returned for a block type with no mapping.
var ErrUnsupportedBlock = errors.New("notion: unsupported block type")

// maxTextLen is the service's limit for one rich text item.
const maxTextLen = 2000

const (
	blockTypeTable    notionapi.BlockType = "table"
	blockTypeTableRow notionapi.BlockType = "table_row"
)

var headingTypes = [...]notionapi.BlockType{
	notionapi.BlockTypeHeading1,
	notionapi.BlockTypeHeading2,
	notionapi.BlockTypeHeading3,
}

// ConvertBlocks maps template blocks to service blocks. Children follow
// their parent in document order.
func ConvertBlocks(blocks []models.Block) ([]notionapi.Block, error) {
	var out []notionapi.Block
	for i := range blocks {
		converted, err := convertBlock(&blocks[i])
		if err != nil {
			return nil, err
		}
		out = append(out, converted...)
		if len(blocks[i].Children) > 0 {
			children, err := ConvertBlocks(blocks[i].Children)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)
		}
	}
	return out, nil
}

func convertBlock(b *models.Block) ([]notionapi.Block, error) {
	switch b.Type {
	case models.BlockHeading:
		return []notionapi.Block{heading(min(max(b.Level, 1), 3), b.Content)}, nil
	case models.BlockParagraph:
		return []notionapi.Block{paragraph(b.Content)}, nil
	case models.BlockQuote:
		return []notionapi.Block{&notionapi.QuoteBlock{
			BasicBlock: basic(notionapi.BlockTypeQuote),
			Quote:      notionapi.Quote{RichText: richText(b.Content)},
		}}, nil
	case models.BlockCode:
		lang := b.StringProperty("language")
		if lang == "" {
			lang = "plain text"
		}
		return []notionapi.Block{&notionapi.CodeBlock{
			BasicBlock: basic(notionapi.BlockTypeCode),
			Code:       notionapi.Code{RichText: richText(b.Content), Language: strings.ToLower(lang)},
		}}, nil
	case models.BlockImage:
		return []notionapi.Block{&notionapi.ImageBlock{
			BasicBlock: basic(notionapi.BlockTypeImage),
			Image: notionapi.Image{
				Type:     notionapi.FileTypeExternal,
				External: &notionapi.FileObject{URL: b.Content},
			},
		}}, nil
	case models.BlockDivider:
		return []notionapi.Block{&notionapi.DividerBlock{BasicBlock: basic(notionapi.BlockTypeDivider)}}, nil
	case models.BlockDatabase:
		return []notionapi.Block{
			heading(3, b.Content),
			paragraph("Columns: " + strings.Join(b.Columns("Name"), ", ")),
		}, nil
	case models.BlockTable:
		return []notionapi.Block{tableBlock(b)}, nil
	}
	return nil, fmt.Errorf("%w: %q (block %s)", ErrUnsupportedBlock, b.Type, b.ID)
}

func basic(t notionapi.BlockType) notionapi.BasicBlock {
	return notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: t}
}

// heading builds a heading block; level is 1 to 3.
func heading(level int, text string) notionapi.Block {
	h := notionapi.Heading{RichText: richText(text)}
	bb := basic(headingTypes[level-1])
	switch level {
	case 1:
		return &notionapi.Heading1Block{BasicBlock: bb, Heading1: h}
	case 2:
		return &notionapi.Heading2Block{BasicBlock: bb, Heading2: h}
	}
	return &notionapi.Heading3Block{BasicBlock: bb, Heading3: h}
}

func paragraph(text string) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: basic(notionapi.BlockTypeParagraph),
		Paragraph:  notionapi.Paragraph{RichText: richText(text)},
	}
}

func tableBlock(b *models.Block) notionapi.Block {
	cols := b.Columns("Item")
	rows := []notionapi.Block{tableRow(cols, len(cols))}
	for _, r := range b.Rows() {
		rows = append(rows, tableRow(r, len(cols)))
	}
	return &notionapi.TableBlock{
		BasicBlock: basic(blockTypeTable),
		Table: notionapi.Table{
			TableWidth:      len(cols),
			HasColumnHeader: true,
			HasRowHeader:    false,
			Children:        rows,
		},
	}
}

// tableRow pads or truncates cells to width.
func tableRow(cells []string, width int) notionapi.Block {
	out := make([][]notionapi.RichText, width)
	for i := range out {
		var text string
		if i < len(cells) {
			text = cells[i]
		}
		out[i] = richText(text)
	}
	return &notionapi.TableRowBlock{
		BasicBlock: basic(blockTypeTableRow),
		TableRow:   notionapi.TableRow{Cells: out},
	}
}

// richText splits text into items no longer than maxTextLen runes.
func richText(text string) []notionapi.RichText {
	items := []notionapi.RichText{}
	for text != "" {
		chunk := text
		if utf8.RuneCountInString(text) > maxTextLen {
			n := 0
			for i := range text {
				if n == maxTextLen {
					chunk = text[:i]
					break
				}
				n++
			}
		}
		items = append(items, notionapi.RichText{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: chunk},
		})
		text = text[len(chunk):]
	}
	return items
}
