// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generate

import (
	"encoding/json"
	"fmt"
	"strings"

	"workspacegen/internal/models"
)

const baseSystemPrompt = `You are an expert workspace designer. You turn a short description into a structured workspace template made of typed content blocks.

CRITICAL RULES:
1. Reply with a single JSON object and nothing else. A markdown json code fence around it is tolerated.
2. The object has the form {"template": {"title": "...", "description": "...", "blocks": [...]}}.
3. Each block is {"id": "block-1", "type": "...", "content": "...", "level": 1, "properties": {}, "children": []}.
4. Allowed block types: heading, paragraph, database, table, image, quote, code, divider.
5. "level" (1-3) is only used on heading blocks. Start with a level 1 heading.
6. database and table blocks use "content" as their display name and list their columns in "properties": {"columns": ["Name", "Status"]}.
7. image blocks use an absolute image URL as "content".
8. Block ids must be unique within the template.`

const toolSystemPrompt = `
TOOLS:
You may call the tools below before producing the template. To call tools, reply instead with
{"tool_calls": [{"tool_name": "...", "tool_use_id": "call-1", "parameters": {...}}]}
Parameters must match the tool's input schema. Tool results are sent back to you in the next message.
When you have enough information, reply with the template object. Never send both.

Available tools:`

// buildSystemPrompt composes the system prompt. Tools are listed only when
// the request enables them.
func buildSystemPrompt(req *models.GenerationRequest, tools []models.ToolDefinition) string {
	var b strings.Builder
	b.WriteString(baseSystemPrompt)

	if !req.IncludeImages {
		b.WriteString("\n9. Do not use image blocks.")
	}

	if req.UseMCP && len(tools) > 0 {
		b.WriteString("\n")
		b.WriteString(toolSystemPrompt)
		for _, t := range tools {
			schema, _ := json.Marshal(t.InputSchema)
			fmt.Fprintf(&b, "\n- %s: %s\n  input_schema: %s", t.Name, t.Description, schema)
		}
	}
	return b.String()
}

// buildUserPrompt describes the requested workspace.
func buildUserPrompt(req *models.GenerationRequest, theme models.Theme) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Description: %s\n", strings.TrimSpace(req.Description))
	fmt.Fprintf(&b, "Theme: %s (%s spacing)\n", theme.Name, theme.Spacing)
	if req.TargetAudience != "" {
		fmt.Fprintf(&b, "Target audience: %s\n", req.TargetAudience)
	}
	complexity := req.Complexity
	if complexity == "" {
		complexity = models.ComplexityIntermediate
	}
	fmt.Fprintf(&b, "Complexity: %s\n", complexity)
	if req.IncludeImages {
		b.WriteString("Include relevant images.\n")
	}
	return b.String()
}

// buildToolResultPrompt re-states the request and appends every tool
// result gathered so far.
func buildToolResultPrompt(userPrompt string, results []models.ToolCallResult) string {
	var b strings.Builder
	b.WriteString(userPrompt)
	b.WriteString("\nTool results:\n")
	for _, r := range results {
		status := "ok"
		text := ""
		if r.Response != nil {
			text = r.Response.Text()
		}
		if !r.Success {
			status = "error"
			text = r.Error
		}
		fmt.Fprintf(&b, "- %s (%s) [%s]: %s\n", r.ToolName, r.ToolUseID, status, text)
	}
	b.WriteString("\nUse these results to produce the template object now, or request more tools.")
	return b.String()
}
