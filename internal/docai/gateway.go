// Package docai exposes the document and text understanding capability the
// intake flow depends on. The conversation core treats every operation as a
// single opaque synchronous call; callers wrap timeouts around the boundary.
package docai

import "context"

// IdentityFields is the structured mapping extracted from an identity card.
type IdentityFields struct {
	Name     string `json:"name"`
	DOB      string `json:"dob"`
	Address  string `json:"address"`
	Gender   string `json:"gender"`
	IDNumber string `json:"id_number"`
}

// Gateway is the capability interface consumed by the intake state machine.
// Implementations must not retry internally; failures surface to the caller
// which re-prompts the user in place.
type Gateway interface {
	// ValidateIdentityDocument reports whether the image is a recognizable
	// identity card.
	ValidateIdentityDocument(ctx context.Context, image []byte) (bool, error)

	// ExtractIdentityFields pulls the structured fields off the card.
	ExtractIdentityFields(ctx context.Context, image []byte) (IdentityFields, error)

	// SummarizeHistoryDocument condenses a discharge summary image into
	// bullet-point medical history text.
	SummarizeHistoryDocument(ctx context.Context, image []byte) (string, error)

	// NormalizeSymptomText rewrites free-form symptom text into a concise
	// paragraph.
	NormalizeSymptomText(ctx context.Context, text string) (string, error)
}
