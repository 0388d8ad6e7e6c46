package card

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Name:           "A. Sharma",
		DOB:            "04/08/1999",
		Gender:         "Male",
		IDNumberMasked: "**** **** 1369",
		Address:        "Plot 55, Nagpur 441302",
		Email:          "a.sharma@example.com",
		WhatsApp:       "+91 98765 43210",
		EmergencyName:  "R. Sharma",
		EmergencyPhone: "+91 91234 56789",
		HistorySummary: "* **2023**: Admitted for pneumonia\n- Discharged after 5 days",
		Symptoms:       "Persistent cough since 06:00.\nAllergic to penicillin.",
		Provider:       "Dr. S. Rao (Pulmonology)",
		Slot:           "2026-03-11 09:00",
	}
}

func TestRenderIncludesMaskedNumberOnly(t *testing.T) {
	html, err := Render(sampleSnapshot())
	require.NoError(t, err)

	assert.Contains(t, html, "**** **** 1369")
	assert.Contains(t, html, "Appointment Visiting Card")
	assert.Contains(t, html, "Dr. S. Rao (Pulmonology)")
	assert.Contains(t, html, "2026-03-11 09:00")
}

func TestRenderEscapesUserText(t *testing.T) {
	snap := sampleSnapshot()
	snap.Name = `<script>alert("x")</script>`
	snap.HistorySummary = "* <img src=x>"

	html, err := Render(snap)
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "<img")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestHistoryItems(t *testing.T) {
	items := historyItems("* **2023**: pneumonia\n\n- follow-up visit\nplain line")
	require.Len(t, items, 3)
	assert.Equal(t, "<strong>2023</strong>: pneumonia", string(items[0]))
	assert.Equal(t, "follow-up visit", string(items[1]))
	assert.Equal(t, "plain line", string(items[2]))
}

func TestSplitParagraphs(t *testing.T) {
	paras := splitParagraphs("first\n\n  second  \n")
	assert.Equal(t, []string{"first", "second"}, paras)
}

func TestRenderHistoryListStructure(t *testing.T) {
	html, err := Render(sampleSnapshot())
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(html, "<li "), "one list item per history line")
	assert.Equal(t, 2, strings.Count(html, "<p "), "one paragraph per symptom line")
	assert.Contains(t, html, "<strong>2023</strong>: Admitted for pneumonia")
}
