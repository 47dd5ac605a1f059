package render

import (
	"bytes"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcallister/fleetreport/internal/markup"
	"github.com/jmcallister/fleetreport/internal/normalize"
	"github.com/jmcallister/fleetreport/internal/pdfutil"
)

func formlessPDF(t *testing.T) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(50, 50, "static page")
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func TestMatchField(t *testing.T) {
	cases := []struct {
		field string
		key   string
		ok    bool
	}{
		{"Driver Name", "driver_name", true},
		{"driver", "driver_name", true},
		{"rego", "vehicle_registration", true},
		{"txtOdometerReading", "odometer", true},
		{"FUEL_LEVEL", "fuel_level", true},
		{"report_date", "date", true},
		{"signature", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			key, ok := matchField(tc.field)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.key, key)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "drivername", normalizeName("Driver_Name "))
	assert.Equal(t, "fuellevel2", normalizeName("Fuel-Level-2"))
	assert.Equal(t, "", normalizeName("___"))
}

func TestLogicalValues(t *testing.T) {
	tm := normalize.TemplateModel{
		DriverName: "Aisha Bello",
		Items: normalize.View([]normalize.Item{
			{Label: "Tires", Status: normalize.StatusOK},
			{Label: "Lights", Status: normalize.StatusAttention},
		}),
		Defects: []string{"Lights"},
	}
	values := logicalValues(tm)
	assert.Equal(t, "Aisha Bello", values["driver_name"])
	assert.Equal(t, "Tires: OK; Lights: Needs attention", values["checklist"])
	assert.Equal(t, "Lights", values["defects"])

	empty := logicalValues(normalize.TemplateModel{})
	assert.Equal(t, "No checklist items recorded", empty["checklist"])
	assert.Equal(t, "None reported", empty["defects"])
}

func TestFillFormNoAcroForm(t *testing.T) {
	out, matched, err := FillForm(formlessPDF(t), normalize.TemplateModel{DriverName: "Aisha Bello"})
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Nil(t, out)
}

func TestAppendToDocument(t *testing.T) {
	doc := formlessPDF(t)
	segments := []markup.Segment{
		{Type: markup.Heading1, Text: "Appended Checklist"},
		{Type: markup.ListItem, Text: "Tires: OK"},
	}
	merged, err := AppendToDocument(doc, segments)
	require.NoError(t, err)

	pages, err := pdfutil.PageCount(merged)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
}
