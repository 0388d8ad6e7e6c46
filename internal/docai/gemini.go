package docai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrExtraction indicates the model reply could not be parsed into the
// expected field mapping.
var ErrExtraction = errors.New("docai: failed to parse extracted fields")

const defaultModelID = "gemini-2.0-flash"

// GeminiClient implements Gateway using Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiClient creates a Gemini-backed gateway.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("docai: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultModelID
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("docai: failed to create gemini client: %w", err)
	}

	return &GeminiClient{client: client, modelID: modelID}, nil
}

// Close releases the underlying API client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// ValidateIdentityDocument asks the model for a strict yes/no verdict.
func (c *GeminiClient) ValidateIdentityDocument(ctx context.Context, image []byte) (bool, error) {
	text, err := c.generate(ctx,
		genai.Text("Determine if the following image is a valid government identity card. Reply with exactly 'Yes' or 'No'."),
		genai.ImageData("png", image),
		genai.Text("Answer:"),
	)
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), "yes"), nil
}

// ExtractIdentityFields requests a JSON object with the card fields and
// parses the first brace-delimited object out of the reply.
func (c *GeminiClient) ExtractIdentityFields(ctx context.Context, image []byte) (IdentityFields, error) {
	prompt := strings.Join([]string{
		"Extract the following fields from the identity card image:",
		"- name: full name",
		"- dob: date of birth (DD/MM/YYYY)",
		"- address: full address, including postal code",
		"- gender: Male or Female",
		"- id_number: the identity number",
		"Return EXACTLY a JSON object with those keys.",
	}, "\n")

	text, err := c.generate(ctx,
		genai.Text(prompt),
		genai.ImageData("png", image),
		genai.Text("Return only the JSON object."),
	)
	if err != nil {
		return IdentityFields{}, err
	}

	fields, ok := parseIdentityJSON(text)
	if !ok {
		return IdentityFields{}, ErrExtraction
	}
	return fields, nil
}

// SummarizeHistoryDocument condenses a discharge summary image.
func (c *GeminiClient) SummarizeHistoryDocument(ctx context.Context, image []byte) (string, error) {
	text, err := c.generate(ctx,
		genai.Text("You are a medical assistant. Below is an image of a discharge summary.\nProduce a concise medical history of the patient in bullet points. Consider date, illness, hospital and location.\n[Begin summary]"),
		genai.ImageData("png", image),
		genai.Text("[End]"),
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// NormalizeSymptomText rewrites symptom text into a concise paragraph.
func (c *GeminiClient) NormalizeSymptomText(ctx context.Context, text string) (string, error) {
	out, err := c.generate(ctx,
		genai.Text("Summarize patient symptoms and allergies into a concise paragraph. Use 24h format for times."),
		genai.Text(text),
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *GeminiClient) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(0)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("docai: gemini generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("docai: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("docai: gemini returned empty content")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// parseIdentityJSON finds the outermost brace-delimited object in raw model
// output (models often wrap JSON in prose or code fences) and decodes it.
func parseIdentityJSON(raw string) (IdentityFields, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return IdentityFields{}, false
	}

	var fields IdentityFields
	if err := json.Unmarshal([]byte(raw[start:end+1]), &fields); err != nil {
		return IdentityFields{}, false
	}
	return fields, true
}
