package intake

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/clinicflow/intake-ai/internal/card"
	"github.com/clinicflow/intake-ai/internal/docai"
	"github.com/clinicflow/intake-ai/internal/observability/metrics"
	"github.com/clinicflow/intake-ai/internal/scheduling"
	"github.com/clinicflow/intake-ai/pkg/logging"
)

// Request-level errors, surfaced to the HTTP layer as 400s. Everything else
// the machine recovers in-band with a re-prompt.
var (
	ErrMissingUserID = errors.New("intake: user id is required")
	ErrMissingInput  = errors.New("intake: input is required")
)

// Reply is the machine's answer to one inbound message. CardHTML is set only
// on the transition into the done step.
type Reply struct {
	Text     string
	CardHTML string
}

// CardRenderer formats the completed-session visiting card.
type CardRenderer func(card.Snapshot) (string, error)

// Machine drives the intake conversation. Given the session's current step
// and the latest input it validates, calls collaborators, mutates the session
// and advances the step. All collaborators are injected so the machine is
// testable with deterministic fakes.
type Machine struct {
	store          Store
	gateway        docai.Gateway
	allocator      *scheduling.Allocator
	renderCard     CardRenderer
	logger         *logging.Logger
	metrics        *metrics.IntakeMetrics
	gatewayTimeout time.Duration

	// Serializes concurrent messages for the same user so a session is never
	// read-modify-written by two requests at once.
	userLocks sync.Map // userID -> *sync.Mutex
}

// MachineOption configures optional machine collaborators.
type MachineOption func(*Machine)

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *metrics.IntakeMetrics) MachineOption {
	return func(machine *Machine) { machine.metrics = m }
}

// WithGatewayTimeout bounds each document-understanding call. Zero disables
// the bound.
func WithGatewayTimeout(d time.Duration) MachineOption {
	return func(machine *Machine) {
		if d > 0 {
			machine.gatewayTimeout = d
		}
	}
}

// WithCardRenderer overrides the visiting-card renderer.
func WithCardRenderer(r CardRenderer) MachineOption {
	return func(machine *Machine) {
		if r != nil {
			machine.renderCard = r
		}
	}
}

// NewMachine wires the conversation state machine.
func NewMachine(store Store, gateway docai.Gateway, allocator *scheduling.Allocator, logger *logging.Logger, opts ...MachineOption) *Machine {
	if store == nil {
		panic("intake: store cannot be nil")
	}
	if gateway == nil {
		panic("intake: gateway cannot be nil")
	}
	if allocator == nil {
		panic("intake: allocator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	m := &Machine{
		store:      store,
		gateway:    gateway,
		allocator:  allocator,
		renderCard: card.Render,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// stepResult describes what a step handler did with the session copy it was
// handed. Only when persist is true does the mutated copy replace stored
// state, so failed validation can never corrupt a session.
type stepResult struct {
	reply    Reply
	persist  bool
	advanced bool
}

// HandleMessage resolves the user's session, dispatches on the current step
// and returns the bot reply. It fails only for blank identifiers or input.
func (m *Machine) HandleMessage(ctx context.Context, userID, rawInput string) (Reply, error) {
	userID = strings.TrimSpace(userID)
	input := strings.TrimSpace(rawInput)
	if userID == "" {
		return Reply{}, ErrMissingUserID
	}
	if input == "" {
		return Reply{}, ErrMissingInput
	}

	lock := m.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	session, err := m.store.Get(ctx, userID)
	if err != nil {
		return Reply{}, fmt.Errorf("intake: failed to resolve session: %w", err)
	}
	if session == nil {
		session = NewSession(userID)
	}
	fromStep := session.Step

	result := m.dispatch(ctx, session, input)

	if result.persist {
		session.UpdatedAt = time.Now().UTC()
		if err := m.store.Put(ctx, session); err != nil {
			return Reply{}, fmt.Errorf("intake: failed to persist session: %w", err)
		}
	}

	outcome := "retry"
	if result.advanced {
		outcome = "advanced"
	}
	m.metrics.ObserveMessage(fromStep.String(), outcome)
	m.logger.Debug("intake message handled",
		"user_id", userID,
		"from_step", fromStep.String(),
		"to_step", session.Step.String(),
		"advanced", result.advanced,
	)
	return result.reply, nil
}

func (m *Machine) dispatch(ctx context.Context, session *Session, input string) stepResult {
	switch session.Step {
	case StepAskIdentityDoc:
		return m.handleAskIdentityDoc(session)
	case StepAwaitingIdentityDoc:
		return m.handleAwaitingIdentityDoc(ctx, session, input)
	case StepConfirmIdentityDoc:
		return m.handleConfirmIdentityDoc(session, input)
	case StepAskEmail:
		return m.handleAskEmail(session, input)
	case StepAskWhatsApp:
		return m.handleAskWhatsApp(session, input)
	case StepAskEmergencyContact:
		return m.handleAskEmergencyContact(session, input)
	case StepAskHistoryDoc:
		return m.handleAskHistoryDoc(ctx, session, input)
	case StepAskSymptoms:
		return m.handleAskSymptoms(ctx, session, input)
	case StepChooseSlot:
		return m.handleChooseSlot(session, input)
	case StepDone:
		return stepResult{reply: Reply{Text: "I'm here to help!"}}
	default:
		// Unreachable for sessions produced by this package.
		m.logger.Error("intake session in unknown step", "user_id", session.UserID, "step", int(session.Step))
		return stepResult{reply: Reply{Text: "I'm here to help!"}}
	}
}

func (m *Machine) handleAskIdentityDoc(session *Session) stepResult {
	session.Step = StepAwaitingIdentityDoc
	return stepResult{
		reply:    Reply{Text: "Hello! Please upload a photo of your ID card."},
		persist:  true,
		advanced: true,
	}
}

func (m *Machine) handleAwaitingIdentityDoc(ctx context.Context, session *Session, input string) stepResult {
	if !LooksLikeImagePayload(input) {
		return retryReply("Please send a valid base64-encoded ID card image.")
	}

	image, err := DecodeImagePayload(input)
	if err != nil {
		if errors.Is(err, ErrNotBase64) {
			return retryReply("Invalid base64, please retry.")
		}
		return retryReply("Please send a valid base64-encoded ID card image.")
	}

	valid, err := m.validateIdentityDocument(ctx, image)
	if err != nil {
		m.logger.Error("identity document validation failed", "user_id", session.UserID, "error", err)
		return retryReply("Could not verify the document right now. Please try again.")
	}
	if !valid {
		return retryReply("That doesn't look like a valid ID card. Please upload a valid ID card image.")
	}

	fields, err := m.extractIdentityFields(ctx, image)
	if err != nil {
		m.logger.Warn("identity field extraction failed", "user_id", session.UserID, "error", err)
		return retryReply("Extraction failed. Please upload a clearer image.")
	}

	session.Fields = fields
	session.Step = StepConfirmIdentityDoc
	text := fieldSummary(session.Fields,
		"I have extracted your ID details as:",
		"If any field is incorrect, type correct <field> <new_value>. Otherwise reply OK.")
	return stepResult{reply: Reply{Text: text}, persist: true, advanced: true}
}

func (m *Machine) handleConfirmIdentityDoc(session *Session, input string) stepResult {
	low := strings.ToLower(input)

	if strings.HasPrefix(low, "correct ") {
		parts := strings.SplitN(input, " ", 3)
		if len(parts) < 3 || strings.TrimSpace(parts[2]) == "" {
			return retryReply("Usage: correct <field> <new_value>")
		}
		field, value := parts[1], strings.TrimSpace(parts[2])
		if !applyFieldCorrection(&session.Fields, field, value) {
			return retryReply("Unknown field. Allowed: name, dob, address, gender, id_number.")
		}
		text := fieldSummary(session.Fields, "Updated details:", "Reply OK to continue or correct again.")
		// The step stays put but the corrected fields must stick.
		return stepResult{reply: Reply{Text: text}, persist: true}
	}

	if low == "ok" {
		session.Step = StepAskEmail
		return stepResult{
			reply:    Reply{Text: "Great! Please enter your email address."},
			persist:  true,
			advanced: true,
		}
	}

	return retryReply("Please type correct <field> <new_value> or OK.")
}

func (m *Machine) handleAskEmail(session *Session, input string) stepResult {
	if !IsValidEmail(input) {
		return retryReply("That doesn't look valid. Try again.")
	}
	session.Email = input
	session.Step = StepAskWhatsApp
	return stepResult{
		reply:    Reply{Text: "Thank you! Enter your WhatsApp number or type skip."},
		persist:  true,
		advanced: true,
	}
}

func (m *Machine) handleAskWhatsApp(session *Session, input string) stepResult {
	switch {
	case strings.EqualFold(input, "skip"):
		session.WhatsApp = NoWhatsAppProvided
	case IsValidPhone(input):
		session.WhatsApp = input
	default:
		return retryReply("Invalid phone. Retry or skip.")
	}
	session.Step = StepAskEmergencyContact
	return stepResult{
		reply:    Reply{Text: "Provide emergency contact as Name, phone."},
		persist:  true,
		advanced: true,
	}
}

func (m *Machine) handleAskEmergencyContact(session *Session, input string) stepResult {
	name, phone, found := strings.Cut(input, ",")
	if !found {
		return retryReply("Use format Name, phone.")
	}
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if !IsValidPhone(phone) {
		return retryReply("Invalid phone. Retry.")
	}
	session.EmergencyName = name
	session.EmergencyPhone = phone
	session.Step = StepAskHistoryDoc
	return stepResult{
		reply:    Reply{Text: "Upload discharge summary image or type skip."},
		persist:  true,
		advanced: true,
	}
}

func (m *Machine) handleAskHistoryDoc(ctx context.Context, session *Session, input string) stepResult {
	if strings.EqualFold(input, "skip") {
		session.HistorySummary = NoHistoryProvided
		session.Step = StepAskSymptoms
		return stepResult{
			reply:    Reply{Text: "No problem. Now describe your symptoms, and any medical allergies."},
			persist:  true,
			advanced: true,
		}
	}

	if !LooksLikeImagePayload(input) {
		return retryReply("Send valid image or skip.")
	}
	image, err := DecodeImagePayload(input)
	if err != nil {
		if errors.Is(err, ErrNotBase64) {
			return retryReply("Invalid base64. Retry or skip.")
		}
		return retryReply("Send valid image or skip.")
	}

	summary, err := m.summarizeHistoryDocument(ctx, image)
	if err != nil {
		m.logger.Warn("history summarization failed", "user_id", session.UserID, "error", err)
		return retryReply("Could not read the document. Please retry or type skip.")
	}

	session.HistorySummary = summary
	session.Step = StepAskSymptoms
	text := fmt.Sprintf("Here is your discharge summary:\n%s\n\nNow describe your symptoms, and any medical allergies.", summary)
	return stepResult{reply: Reply{Text: text}, persist: true, advanced: true}
}

func (m *Machine) handleAskSymptoms(ctx context.Context, session *Session, input string) stepResult {
	normalized, err := m.normalizeSymptomText(ctx, input)
	if err != nil {
		m.logger.Warn("symptom normalization failed", "user_id", session.UserID, "error", err)
		return retryReply("Sorry, I could not process that. Please describe your symptoms again.")
	}

	session.Symptoms = normalized
	session.OfferedSlots = m.allocator.ListAvailableSlots()
	session.Step = StepChooseSlot

	var sb strings.Builder
	fmt.Fprintf(&sb, "Your symptoms: %s\n\nNext available slots:\n", normalized)
	writeSlotList(&sb, session.OfferedSlots)
	fmt.Fprintf(&sb, "Type option number 1-%d or refresh.", len(session.OfferedSlots))
	return stepResult{reply: Reply{Text: sb.String()}, persist: true, advanced: true}
}

func (m *Machine) handleChooseSlot(session *Session, input string) stepResult {
	if strings.EqualFold(input, "refresh") {
		session.OfferedSlots = m.allocator.ListAvailableSlots()
		var sb strings.Builder
		sb.WriteString("Refreshed slots:\n")
		writeSlotList(&sb, session.OfferedSlots)
		fmt.Fprintf(&sb, "Type option number 1-%d or refresh.", len(session.OfferedSlots))
		return stepResult{reply: Reply{Text: sb.String()}, persist: true}
	}

	choice, err := strconv.Atoi(input)
	if err != nil || choice < 1 || choice > len(session.OfferedSlots) {
		return retryReply("Invalid choice.")
	}
	offer := session.OfferedSlots[choice-1]

	provider, err := m.allocator.BookSlot(offer.ProviderID, offer.Slot)
	if err != nil {
		switch {
		case errors.Is(err, scheduling.ErrSlotTaken):
			m.metrics.ObserveBooking("conflict")
			return retryReply("Could not book: slot taken. Type refresh to see updated slots.")
		case errors.Is(err, scheduling.ErrBadSlotFormat):
			m.metrics.ObserveBooking("bad_format")
			return retryReply("Could not book: invalid slot. Type refresh to see updated slots.")
		default:
			m.metrics.ObserveBooking("error")
			m.logger.Error("booking failed", "user_id", session.UserID, "error", err)
			return retryReply("Could not book right now. Type refresh to see updated slots.")
		}
	}
	m.metrics.ObserveBooking("confirmed")

	session.BookedSlot = offer.Slot
	session.AssignedProvider = provider.DisplayName()
	session.Step = StepDone

	cardHTML, err := m.renderCard(snapshotOf(session))
	if err != nil {
		// The booking is committed; confirm without the card rather than fail.
		m.logger.Error("visiting card rendering failed", "user_id", session.UserID, "error", err)
		cardHTML = ""
	}

	text := fmt.Sprintf("🎉 Appointment confirmed with %s at %s", session.AssignedProvider, session.BookedSlot)
	return stepResult{reply: Reply{Text: text, CardHTML: cardHTML}, persist: true, advanced: true}
}

func retryReply(text string) stepResult {
	return stepResult{reply: Reply{Text: text}}
}

func fieldSummary(f docai.IdentityFields, header, footer string) string {
	return fmt.Sprintf(
		"%s\n• Name: %s\n• DOB: %s\n• Address: %s\n• Gender: %s\n• ID Number: %s\n\n%s",
		header, f.Name, f.DOB, f.Address, f.Gender, MaskIDNumber(f.IDNumber), footer)
}

func writeSlotList(sb *strings.Builder, offers []scheduling.SlotOffer) {
	for i, offer := range offers {
		fmt.Fprintf(sb, "%d. %s (%s) - %s\n", i+1, offer.ProviderName, offer.Specialty, offer.Slot)
	}
}

func snapshotOf(session *Session) card.Snapshot {
	return card.Snapshot{
		Name:           session.Fields.Name,
		DOB:            session.Fields.DOB,
		Gender:         session.Fields.Gender,
		IDNumberMasked: MaskIDNumber(session.Fields.IDNumber),
		Address:        session.Fields.Address,
		Email:          session.Email,
		WhatsApp:       session.WhatsApp,
		EmergencyName:  session.EmergencyName,
		EmergencyPhone: session.EmergencyPhone,
		HistorySummary: session.HistorySummary,
		Symptoms:       session.Symptoms,
		Provider:       session.AssignedProvider,
		Slot:           session.BookedSlot,
	}
}

func (m *Machine) lockFor(userID string) *sync.Mutex {
	actual, _ := m.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// gatewayCtx bounds a collaborator call when a timeout is configured.
func (m *Machine) gatewayCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.gatewayTimeout > 0 {
		return context.WithTimeout(ctx, m.gatewayTimeout)
	}
	return ctx, func() {}
}

func (m *Machine) validateIdentityDocument(ctx context.Context, image []byte) (bool, error) {
	ctx, cancel := m.gatewayCtx(ctx)
	defer cancel()
	start := time.Now()
	valid, err := m.gateway.ValidateIdentityDocument(ctx, image)
	m.metrics.ObserveGatewayLatency("validate", time.Since(start).Seconds())
	return valid, err
}

func (m *Machine) extractIdentityFields(ctx context.Context, image []byte) (docai.IdentityFields, error) {
	ctx, cancel := m.gatewayCtx(ctx)
	defer cancel()
	start := time.Now()
	fields, err := m.gateway.ExtractIdentityFields(ctx, image)
	m.metrics.ObserveGatewayLatency("extract", time.Since(start).Seconds())
	return fields, err
}

func (m *Machine) summarizeHistoryDocument(ctx context.Context, image []byte) (string, error) {
	ctx, cancel := m.gatewayCtx(ctx)
	defer cancel()
	start := time.Now()
	summary, err := m.gateway.SummarizeHistoryDocument(ctx, image)
	m.metrics.ObserveGatewayLatency("summarize", time.Since(start).Seconds())
	return summary, err
}

func (m *Machine) normalizeSymptomText(ctx context.Context, text string) (string, error) {
	ctx, cancel := m.gatewayCtx(ctx)
	defer cancel()
	start := time.Now()
	normalized, err := m.gateway.NormalizeSymptomText(ctx, text)
	m.metrics.ObserveGatewayLatency("normalize", time.Since(start).Seconds())
	return normalized, err
}
