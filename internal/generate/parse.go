// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"workspacegen/internal/models"
)

var fencedJSON = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\r?\n?(\\{.*?\\})\\s*```")

// outcome classifies one model response.
type outcome int

const (
	outcomeNeither outcome = iota
	outcomeTemplate
	outcomeToolCalls
)

// modelResponse is what could be read from one model reply.
type modelResponse struct {
	Template  *modelTemplate
	ToolCalls []models.ToolCall
	// HasJSON is false when no JSON object could be located or decoded.
	HasJSON bool
}

func (r modelResponse) outcome() outcome {
	switch {
	case r.Template != nil:
		return outcomeTemplate
	case len(r.ToolCalls) > 0:
		return outcomeToolCalls
	}
	return outcomeNeither
}

type modelTemplate struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Blocks      []modelBlock `json:"blocks"`
}

// modelBlock is a block as models tend to write it: loosely typed.
type modelBlock struct {
	ID         any             `json:"id"`
	Type       string          `json:"type"`
	Content    json.RawMessage `json:"content"`
	Text       string          `json:"text"`
	Level      any             `json:"level"`
	Properties map[string]any  `json:"properties"`
	Children   []modelBlock    `json:"children"`
}

type modelToolCall struct {
	ToolName   string         `json:"tool_name"`
	Name       string         `json:"name"`
	ToolUseID  string         `json:"tool_use_id"`
	ID         string         `json:"id"`
	Parameters map[string]any `json:"parameters"`
	Arguments  map[string]any `json:"arguments"`
}

type modelEnvelope struct {
	Template  *modelTemplate  `json:"template"`
	ToolCalls []modelToolCall `json:"tool_calls"`
	// A bare template without the wrapper object.
	Title  string       `json:"title"`
	Blocks []modelBlock `json:"blocks"`
}

// parseResponse locates and decodes the JSON object in a model reply.
func parseResponse(text string) modelResponse {
	raw, ok := ExtractJSON(text)
	if !ok {
		return modelResponse{}
	}

	var env modelEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		slog.Debug("model response is not valid JSON", "error", err)
		return modelResponse{}
	}

	resp := modelResponse{HasJSON: true, Template: env.Template}
	if resp.Template == nil && len(env.Blocks) > 0 {
		resp.Template = &modelTemplate{Title: env.Title, Blocks: env.Blocks}
	}
	for _, c := range env.ToolCalls {
		call := models.ToolCall{
			ToolName:   firstNonEmpty(c.ToolName, c.Name),
			ToolUseID:  firstNonEmpty(c.ToolUseID, c.ID),
			Parameters: c.Parameters,
		}
		if call.Parameters == nil {
			call.Parameters = c.Arguments
		}
		if call.ToolName == "" {
			continue
		}
		resp.ToolCalls = append(resp.ToolCalls, call)
	}
	return resp
}

// ExtractJSON returns the JSON object embedded in text: the contents of the
// first fenced code block holding an object, otherwise the first balanced
// {...} span. Braces inside string literals are ignored.
func ExtractJSON(text string) (string, bool) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1], true
	}

	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end := balancedEnd(text, start); end > 0 {
			return text[start:end], true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// balancedEnd returns the index just past the brace closing the object that
// opens at start, or -1 when it never closes.
func balancedEnd(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// normalizeBlocks converts model blocks into valid template blocks. Missing
// or duplicate ids are replaced, heading levels are clamped to 1-3, and
// blocks without usable content are dropped. An unknown type is downgraded
// to a paragraph: this is the one place where unrecognised block types are
// tolerated, since model output is not under our control.
func normalizeBlocks(in []modelBlock, includeImages bool) []models.Block {
	ids := &idSeq{}
	reserveIDs(ids, in)
	return normalizeLevel(in, includeImages, ids, make(map[string]bool))
}

func reserveIDs(ids *idSeq, in []modelBlock) {
	for _, b := range in {
		if id := blockID(b.ID); id != "" {
			ids.reserve(id)
		}
		reserveIDs(ids, b.Children)
	}
}

func normalizeLevel(in []modelBlock, includeImages bool, ids *idSeq, used map[string]bool) []models.Block {
	var out []models.Block
	for _, mb := range in {
		typ := models.BlockType(strings.ToLower(strings.TrimSpace(mb.Type)))
		if !typ.Valid() {
			slog.Warn("unknown block type from model, downgraded to paragraph", "type", mb.Type)
			typ = models.BlockParagraph
		}

		b := models.Block{
			Type:       typ,
			Content:    strings.TrimSpace(blockContent(mb)),
			Properties: mb.Properties,
		}

		switch typ {
		case models.BlockHeading:
			b.Level = clampLevel(mb.Level)
		case models.BlockDivider:
			b.Content = ""
		case models.BlockImage:
			if !includeImages || !isAbsoluteURL(b.Content) {
				continue
			}
		}
		if b.Content == "" && typ != models.BlockDivider {
			continue
		}

		id := blockID(mb.ID)
		if id == "" || used[id] {
			id = ids.next()
		}
		used[id] = true
		b.ID = id

		if len(mb.Children) > 0 {
			b.Children = normalizeLevel(mb.Children, includeImages, ids, used)
		}
		out = append(out, b)
	}
	return out
}

func blockID(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return ""
}

// blockContent reads content as a string, falling back to "text" or the
// raw JSON of a non-string value.
func blockContent(mb modelBlock) string {
	if len(mb.Content) == 0 || string(mb.Content) == "null" {
		return mb.Text
	}
	var s string
	if err := json.Unmarshal(mb.Content, &s); err == nil {
		return s
	}
	return string(mb.Content)
}

func clampLevel(v any) int {
	level := 1
	switch l := v.(type) {
	case float64:
		level = int(l)
	case string:
		if n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(l), "h")); err == nil {
			level = n
		}
	}
	if level < 1 {
		return 1
	}
	if level > 3 {
		return 3
	}
	return level
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs() && u.Host != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r modelResponse) String() string {
	return fmt.Sprintf("template=%v tool_calls=%d json=%v", r.Template != nil, len(r.ToolCalls), r.HasJSON)
}
