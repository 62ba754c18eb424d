// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"workspacegen/internal/models"
)

const (
	titleWords         = 6
	maxFallbackParas   = 10
	subHeadingMaxRunes = 100
)

var blankLine = regexp.MustCompile(`\n[ \t\r]*\n`)

// FirstWords returns at most n whitespace-separated words of s.
func FirstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// FallbackBlocks builds blocks deterministically from the request
// description and whatever unstructured text the model returned. The
// result always holds at least two blocks.
func FallbackBlocks(description, raw string) []models.Block {
	ids := &idSeq{}
	description = strings.TrimSpace(description)
	title := FirstWords(description, titleWords)
	if title == "" {
		title = "Untitled workspace"
	}

	blocks := []models.Block{
		{ID: ids.next(), Type: models.BlockHeading, Content: title, Level: 1},
		{ID: ids.next(), Type: models.BlockParagraph, Content: description},
	}

	raw = strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	if raw == "" {
		return append(blocks, models.Block{
			ID:      ids.next(),
			Type:    models.BlockParagraph,
			Content: "Start adding your own content to this workspace.",
		})
	}

	paras := blankLine.Split(raw, -1)
	added := 0
	for _, para := range paras {
		if added == maxFallbackParas {
			break
		}
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		added++

		first, rest, _ := strings.Cut(para, "\n")
		first = strings.TrimSpace(first)
		if utf8.RuneCountInString(first) < subHeadingMaxRunes {
			blocks = append(blocks, models.Block{ID: ids.next(), Type: models.BlockHeading, Content: first, Level: 2})
		} else {
			blocks = append(blocks, models.Block{ID: ids.next(), Type: models.BlockParagraph, Content: first})
		}
		if rest = strings.TrimSpace(rest); rest != "" {
			blocks = append(blocks, models.Block{ID: ids.next(), Type: models.BlockParagraph, Content: rest})
		}
	}
	return blocks
}

// idSeq hands out block-1, block-2, ... skipping ids already taken.
type idSeq struct {
	n     int
	taken map[string]bool
}

func (s *idSeq) next() string {
	for {
		s.n++
		id := fmt.Sprintf("block-%d", s.n)
		if !s.taken[id] {
			s.reserve(id)
			return id
		}
	}
}

func (s *idSeq) reserve(id string) {
	if s.taken == nil {
		s.taken = make(map[string]bool)
	}
	s.taken[id] = true
}
