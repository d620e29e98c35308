package extract

import (
	"fmt"
	"strings"

	"github.com/fwojciec/sift"
)

// BuildInstruction describes the schema to the model and fixes the response
// shape to {"records": [...]}.
func BuildInstruction(s *sift.Schema) string {
	var sb strings.Builder
	sb.WriteString("Extract every ")
	sb.WriteString(s.Name)
	sb.WriteString(" record from the page content below.")
	if s.Description != "" {
		fmt.Fprintf(&sb, " Records are: %s.", s.Description)
	}
	sb.WriteString("\n\nFields:\n")
	for _, f := range s.Fields {
		fmt.Fprintf(&sb, "- %s (%s", f.Name, f.Type)
		if f.Required {
			sb.WriteString(", required")
		}
		sb.WriteString(")")
		if f.Description != "" {
			sb.WriteString(": ")
			sb.WriteString(f.Description)
		}
		if len(f.Enum) > 0 {
			fmt.Fprintf(&sb, " One of: %s.", strings.Join(f.Enum, ", "))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(`
Respond with a single JSON object of the form {"records": [{...}, ...]} and nothing else.
Copy values exactly as they appear in the content. Omit fields that are not present; never invent values.
List fields are JSON arrays of strings. If the content contains no records, respond with {"records": []}.`)
	return sb.String()
}

// correctionHint tells the model what was wrong with its previous response.
func correctionHint(reason sift.ReasonCode, err error) string {
	switch reason {
	case sift.ReasonMalformedResponse:
		return fmt.Sprintf("Your previous response could not be read as JSON (%v). "+
			`Respond with only a JSON object of the form {"records": [...]}, with no code fence, comments, or other text.`, err)
	default:
		return ""
	}
}
