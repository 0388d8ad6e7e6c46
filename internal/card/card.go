// Package card renders the appointment visiting card shown when an intake
// conversation completes. Rendering is pure formatting over a session
// snapshot; the identity number arrives pre-masked.
package card

import (
	"fmt"
	"html/template"
	"regexp"
	"strings"
)

// Snapshot is everything the card displays, collected over the conversation.
type Snapshot struct {
	Name           string
	DOB            string
	Gender         string
	IDNumberMasked string
	Address        string
	Email          string
	WhatsApp       string
	EmergencyName  string
	EmergencyPhone string
	HistorySummary string
	Symptoms       string
	Provider       string
	Slot           string
}

var (
	bulletPrefix = regexp.MustCompile(`^[\*\-•]\s*`)
	boldSpan     = regexp.MustCompile(`\*\*(.*?)\*\*`)

	cardTemplate = template.Must(template.New("visiting-card").Parse(`<div class="visiting-card" style="border:1px solid #333;padding:12px;border-radius:8px;max-width:400px;background:#fff;margin:10px auto;box-shadow:0 4px 12px rgba(0,0,0,0.15);">
  <h3 style="margin:0 0 12px;font-size:1.2rem;text-align:center;">Appointment Visiting Card</h3>
  <div style="font-size:0.95rem;line-height:1.5;">
    <strong>Patient Name:</strong> {{.Name}}<br/>
    <strong>DOB:</strong> {{.DOB}}<br/>
    <strong>Gender:</strong> {{.Gender}}<br/>
    <strong>ID No.:</strong> {{.IDNumberMasked}}<br/>
    <strong>Address:</strong> {{.Address}}<br/>
    <strong>Email:</strong> {{.Email}}<br/>
    <strong>WhatsApp:</strong> {{.WhatsApp}}<br/>
    <strong>Emergency Contact:</strong> {{.EmergencyName}} ({{.EmergencyPhone}})<br/>
    <hr style="margin:12px 0;border:none;border-top:1px solid #ccc;"/>
    <strong>Medical History:</strong>
    <ul style="margin:0.5em 0 0.5em 1.25em;padding:0;list-style:disc inside;">{{range .HistoryItems}}<li style="margin:0.25em 0">{{.}}</li>{{end}}</ul>
    <hr style="margin:12px 0;border:none;border-top:1px solid #ccc;"/>
    <strong>Symptoms / Allergies:</strong>
    {{range .SymptomParagraphs}}<p style="margin:0.5em 0">{{.}}</p>{{end}}
    <hr style="margin:12px 0;border:none;border-top:1px solid #ccc;"/>
    <strong>Doctor:</strong> {{.Provider}}<br/>
    <strong>Slot:</strong> {{.Slot}}<br/>
  </div>
</div>`))
)

type cardData struct {
	Snapshot
	HistoryItems      []template.HTML
	SymptomParagraphs []string
}

// Render produces the self-contained HTML fragment for the snapshot.
func Render(s Snapshot) (string, error) {
	data := cardData{
		Snapshot:          s,
		HistoryItems:      historyItems(s.HistorySummary),
		SymptomParagraphs: splitParagraphs(s.Symptoms),
	}

	var sb strings.Builder
	if err := cardTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("card: failed to render: %w", err)
	}
	return sb.String(), nil
}

// historyItems turns summary lines into list items, stripping leading bullet
// markers and converting **bold** spans. Input text is escaped before any
// markup is introduced.
func historyItems(summary string) []template.HTML {
	var items []template.HTML
	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = bulletPrefix.ReplaceAllString(line, "")
		escaped := template.HTMLEscapeString(line)
		escaped = boldSpan.ReplaceAllString(escaped, "<strong>$1</strong>")
		items = append(items, template.HTML(escaped))
	}
	return items
}

func splitParagraphs(text string) []string {
	var paras []string
	for _, p := range strings.Split(text, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}
