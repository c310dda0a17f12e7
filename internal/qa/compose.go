package qa

import (
	"strings"

	"github.com/ryumin/askd/internal/retrieval"
)

// render substitutes {name} placeholders in a prompt template.
func render(template string, vars map[string]string) string {
	out := template
	for name, value := range vars {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}

// joinContext flattens retrieved passages into a single prompt block.
func joinContext(docs []retrieval.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n")
}
