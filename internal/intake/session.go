package intake

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/clinicflow/intake-ai/internal/docai"
	"github.com/clinicflow/intake-ai/internal/scheduling"
)

// Step is the position in the fixed intake sequence. It is a closed
// enumeration: the machine dispatches exhaustively and a new step cannot be
// added without a handler.
type Step int

const (
	StepAskIdentityDoc Step = iota
	StepAwaitingIdentityDoc
	StepConfirmIdentityDoc
	StepAskEmail
	StepAskWhatsApp
	StepAskEmergencyContact
	StepAskHistoryDoc
	StepAskSymptoms
	StepChooseSlot
	StepDone
)

var stepNames = map[Step]string{
	StepAskIdentityDoc:      "ask_identity_doc",
	StepAwaitingIdentityDoc: "awaiting_identity_doc",
	StepConfirmIdentityDoc:  "confirm_identity_doc",
	StepAskEmail:            "ask_email",
	StepAskWhatsApp:         "ask_whatsapp",
	StepAskEmergencyContact: "ask_emergency_contact",
	StepAskHistoryDoc:       "ask_history_doc",
	StepAskSymptoms:         "ask_symptoms",
	StepChooseSlot:          "choose_slot",
	StepDone:                "done",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// MarshalJSON stores steps by name so persisted sessions stay readable and
// survive reordering of the enum.
func (s Step) MarshalJSON() ([]byte, error) {
	name, ok := stepNames[s]
	if !ok {
		return nil, fmt.Errorf("intake: unknown step %d", int(s))
	}
	return json.Marshal(name)
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for step, n := range stepNames {
		if n == name {
			*s = step
			return nil
		}
	}
	return fmt.Errorf("intake: unknown step name %q", name)
}

// Sentinel values stored when the user skips an optional field.
const (
	NoWhatsAppProvided = "No WhatsApp provided."
	NoHistoryProvided  = "No history provided."
)

// Session is the per-user accumulated conversation state. Step only moves
// forward along the intake sequence; each handler touches only the fields its
// step owns.
type Session struct {
	UserID string `json:"user_id"`
	Step   Step   `json:"step"`

	Fields docai.IdentityFields `json:"fields"`

	Email          string `json:"email,omitempty"`
	WhatsApp       string `json:"whatsapp,omitempty"`
	EmergencyName  string `json:"emergency_name,omitempty"`
	EmergencyPhone string `json:"emergency_phone,omitempty"`
	HistorySummary string `json:"history_summary,omitempty"`
	Symptoms       string `json:"symptoms,omitempty"`

	// OfferedSlots caches the most recently generated offers, indexed by the
	// 1-based position shown to the user. Overwritten on refresh.
	OfferedSlots []scheduling.SlotOffer `json:"offered_slots,omitempty"`

	// Set once booking succeeds; immutable afterwards.
	BookedSlot       string `json:"booked_slot,omitempty"`
	AssignedProvider string `json:"assigned_provider,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a fresh session at the start of the sequence.
func NewSession(userID string) *Session {
	now := time.Now().UTC()
	return &Session{
		UserID:    userID,
		Step:      StepAskIdentityDoc,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy. Handlers mutate the copy and persist it only
// when the step succeeds, so failed validation leaves stored state untouched.
func (s *Session) Clone() *Session {
	out := *s
	if s.OfferedSlots != nil {
		out.OfferedSlots = make([]scheduling.SlotOffer, len(s.OfferedSlots))
		copy(out.OfferedSlots, s.OfferedSlots)
	}
	return &out
}

// correctableFields is the closed lookup table for `correct <field> <value>`.
// Names are matched case-insensitively.
var correctableFields = map[string]func(*docai.IdentityFields, string){
	"name":      func(f *docai.IdentityFields, v string) { f.Name = v },
	"dob":       func(f *docai.IdentityFields, v string) { f.DOB = v },
	"address":   func(f *docai.IdentityFields, v string) { f.Address = v },
	"gender":    func(f *docai.IdentityFields, v string) { f.Gender = v },
	"id_number": func(f *docai.IdentityFields, v string) { f.IDNumber = v },
}

// applyFieldCorrection overwrites one extracted field by name, reporting
// whether the name was recognized.
func applyFieldCorrection(fields *docai.IdentityFields, name, value string) bool {
	setter, ok := correctableFields[strings.ToLower(name)]
	if !ok {
		return false
	}
	setter(fields, value)
	return true
}
