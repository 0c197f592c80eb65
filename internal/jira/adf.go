package jira

import (
	"encoding/json"
	"strings"
)

// adfBody decodes Jira's Atlassian Document Format rich-text fields down to
// plain text. API v3 returns descriptions and comment bodies as ADF trees;
// older endpoints and some fields still return plain strings, so both wire
// shapes are accepted.
type adfBody struct {
	plain string
}

type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text,omitempty"`
	Content []adfNode `json:"content,omitempty"`
}

func (b *adfBody) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		b.plain = s
		return nil
	}

	var node adfNode
	if err := json.Unmarshal(data, &node); err != nil {
		// Unknown body shape is treated as empty, not an error: body text
		// is display-only.
		b.plain = ""
		return nil
	}

	var sb strings.Builder
	flattenADF(node, &sb)
	b.plain = strings.TrimRight(sb.String(), "\n")
	return nil
}

func (b adfBody) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.plain)
}

func (b adfBody) text() string {
	return b.plain
}

func flattenADF(node adfNode, sb *strings.Builder) {
	if node.Type == "text" {
		sb.WriteString(node.Text)
		return
	}
	for _, child := range node.Content {
		flattenADF(child, sb)
	}
	switch node.Type {
	case "paragraph", "heading":
		sb.WriteString("\n")
	case "hardBreak":
		sb.WriteString("\n")
	}
}

// adfParagraph builds a minimal ADF document from plain text, one paragraph
// per line.
func adfParagraph(text string) map[string]any {
	var content []map[string]any
	for _, line := range strings.Split(text, "\n") {
		para := map[string]any{"type": "paragraph"}
		if line != "" {
			para["content"] = []map[string]any{{"type": "text", "text": line}}
		}
		content = append(content, para)
	}

	return map[string]any{
		"type":    "doc",
		"version": 1,
		"content": content,
	}
}
