package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fwojciec/sift"
	"google.golang.org/genai"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Ensure ExtractionService implements sift.ExtractionService at compile time.
var _ sift.ExtractionService = (*ExtractionService)(nil)

// ExtractionService implements sift.ExtractionService using Google Gemini.
type ExtractionService struct {
	client *genai.Client
	model  string
}

// NewExtractionService creates a new ExtractionService.
// An empty model selects DefaultModel.
func NewExtractionService(client *genai.Client, model string) *ExtractionService {
	if model == "" {
		model = DefaultModel
	}
	return &ExtractionService{client: client, model: model}
}

// Complete sends one extraction request and returns the model's raw text.
// Rate limiting and server-side failures are returned as transient errors.
func (s *ExtractionService) Complete(ctx context.Context, req sift.ExtractionRequest) (string, error) {
	if req.Text == "" {
		return "", sift.Errorf(sift.EINVALID, "extraction text required")
	}
	if req.Schema == nil {
		return "", sift.Errorf(sift.EINVALID, "extraction schema required")
	}

	result, err := s.client.Models.GenerateContent(ctx, s.model,
		[]*genai.Content{genai.NewContentFromText(BuildUserPrompt(req), genai.RoleUser)},
		BuildConfig(req),
	)
	if err != nil {
		return "", classify(err)
	}
	if result == nil {
		return "", sift.NewTransientError(errors.New("gemini returned nil result"))
	}
	return result.Text(), nil
}

// classify marks errors worth retrying.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError {
			return sift.NewTransientError(err)
		}
	}
	return err
}

// BuildConfig returns the GenerateContentConfig for an extraction call.
// Responses are constrained to JSON matching the schema.
func BuildConfig(req sift.ExtractionRequest) *genai.GenerateContentConfig {
	temp := float32(0)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You extract structured records from web page content. Use only information present in the content. Respond with JSON only.",
			}},
		},
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResponseSchema(req.Schema),
	}
}

// ResponseSchema converts a record schema to the {"records": [...]} response
// schema sent to Gemini.
func ResponseSchema(s *sift.Schema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Fields))
	var required []string
	for _, f := range s.Fields {
		props[f.Name] = fieldSchema(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"records": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: props,
					Required:   required,
				},
			},
		},
		Required: []string{"records"},
	}
}

func fieldSchema(f sift.Field) *genai.Schema {
	switch f.Type {
	case sift.FieldList:
		return &genai.Schema{
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: f.Description,
		}
	case sift.FieldNumber:
		return &genai.Schema{Type: genai.TypeNumber, Description: f.Description}
	case sift.FieldEnum:
		return &genai.Schema{Type: genai.TypeString, Enum: f.Enum, Description: f.Description}
	default:
		return &genai.Schema{Type: genai.TypeString, Description: f.Description}
	}
}

// BuildUserPrompt builds the user prompt containing the instruction, the
// chunk content, and the correction hint on retries.
func BuildUserPrompt(req sift.ExtractionRequest) string {
	var sb strings.Builder
	sb.WriteString(req.Instruction)
	sb.WriteString("\n\n<content>\n")
	sb.WriteString(req.Text)
	sb.WriteString("\n</content>")
	if req.CorrectionHint != "" {
		sb.WriteString("\n\n")
		sb.WriteString(req.CorrectionHint)
	}
	return sb.String()
}
