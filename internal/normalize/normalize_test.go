package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var buildTime = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want Status
	}{
		{"bool true", true, StatusOK},
		{"bool false", false, StatusAttention},
		{"word pass", "pass", StatusOK},
		{"word yes mixed case", " YES ", StatusOK},
		{"word fail", "fail", StatusAttention},
		{"word defect", "defect", StatusAttention},
		{"word n/a", "n/a", StatusNotApplicable},
		{"unrecognized word", "maybe later", StatusNotApplicable},
		{"number one", float64(1), StatusOK},
		{"number zero", float64(0), StatusAttention},
		{"other number", float64(7), StatusNotApplicable},
		{"nil", nil, StatusNotApplicable},
		{"object", map[string]any{}, StatusNotApplicable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusOf(tc.in))
		})
	}
}

func TestSanitizeParsesEmbeddedJSON(t *testing.T) {
	in := map[string]any{
		"checklist_state": `{"items":[{"label":"Brakes","value":true}]}`,
		"notes":           "all good",
		"broken":          "{not json",
	}
	out := SanitizeRecord(in)

	state, ok := out["checklist_state"].(map[string]any)
	require.True(t, ok, "embedded JSON object should be parsed")
	items, ok := state["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)

	assert.Equal(t, "all good", out["notes"])
	assert.Equal(t, "{not json", out["broken"])
}

func TestSanitizeIdempotent(t *testing.T) {
	in := map[string]any{
		"payload": `{"a":"[1,2]","b":"plain"}`,
	}
	once := SanitizeRecord(in)
	twice := Sanitize(once)
	assert.Equal(t, once, twice)
}

func TestSanitizeRecordNilInput(t *testing.T) {
	out := SanitizeRecord(nil)
	require.NotNil(t, out)
	assert.Empty(t, out)
}

func TestBuildFlatChecklist(t *testing.T) {
	report := map[string]any{
		"driver_name":          "Aisha Bello",
		"vehicle_registration": "KJA-402-XY",
		"start_odometer":       float64(1000),
		"fuel_level":           float64(80),
		"checklist_state": map[string]any{
			"tires":  true,
			"lights": false,
		},
	}
	model := Build(report, nil, buildTime)

	assert.Equal(t, "Aisha Bello", model.DriverName)
	assert.Equal(t, "KJA-402-XY", model.VehicleRegistration)
	assert.Equal(t, "1000 km", model.Odometer)
	assert.Equal(t, "80%", model.FuelLevel)

	require.Len(t, model.Items, 2)
	byLabel := map[string]ItemView{}
	for _, item := range model.Items {
		byLabel[item.Label] = item
	}
	assert.True(t, byLabel["Tires"].OK)
	assert.True(t, byLabel["Lights"].Attention)
	assert.Equal(t, []string{"Lights"}, model.Defects)
	assert.Equal(t, 1, model.DefectsCount)
}

func TestBuildChecklistStoredAsJSONString(t *testing.T) {
	report := map[string]any{
		"checklist_state": `{"items":[{"label":"Brakes","value":true},{"label":"Horn","value":"fail"}]}`,
	}
	model := Build(report, nil, buildTime)

	require.Len(t, model.Items, 2)
	assert.Equal(t, "Brakes", model.Items[0].Label)
	assert.True(t, model.Items[0].OK)
	assert.Equal(t, "Horn", model.Items[1].Label)
	assert.True(t, model.Items[1].Attention)
}

func TestBuildFallbacks(t *testing.T) {
	model := Build(map[string]any{}, nil, buildTime)

	assert.Equal(t, "Unknown driver", model.DriverName)
	assert.Equal(t, Placeholder, model.VehicleRegistration)
	assert.Equal(t, Placeholder, model.Odometer)
	assert.Equal(t, "No notes recorded", model.Notes)
	assert.Equal(t, "15 Mar 2024", model.Date)
	assert.Equal(t, "15 Mar 2024 09:30 UTC", model.GeneratedAt)
	assert.Empty(t, model.Items)
	assert.Equal(t, 0, model.DefectsCount)
}

func TestBuildOverridesWinOverReport(t *testing.T) {
	report := map[string]any{
		"driver_name": "Stored Driver",
		"depot":       "Lagos North",
	}
	overrides := map[string]any{
		"driver_name": "Override Driver",
	}
	model := Build(report, overrides, buildTime)

	assert.Equal(t, "Override Driver", model.DriverName)
	assert.Equal(t, "Lagos North", model.Depot)
}

func TestBuildNestedCandidatePaths(t *testing.T) {
	report := map[string]any{
		"driver":  map[string]any{"full_name": "Chidi Okafor"},
		"vehicle": map[string]any{"registration": "ABC-123", "model": "Hilux"},
	}
	model := Build(report, nil, buildTime)

	assert.Equal(t, "Chidi Okafor", model.DriverName)
	assert.Equal(t, "ABC-123", model.VehicleRegistration)
	assert.Equal(t, "Hilux", model.VehicleDescription)
}

func TestPickDateSkipsUnparseable(t *testing.T) {
	report := map[string]any{
		"checklist_date": "not a date",
		"completed_at":   "2024-02-01T08:00:00Z",
	}
	model := Build(report, nil, buildTime)
	assert.Equal(t, "01 Feb 2024", model.Date)
}

func TestPickStringPrefersStringsOverNumbers(t *testing.T) {
	got := pickString([]any{float64(42), "forty-two"}, "fallback")
	assert.Equal(t, "forty-two", got)

	got = pickString([]any{float64(42), "  "}, "fallback")
	assert.Equal(t, "42", got)

	got = pickString([]any{nil, ""}, "fallback")
	assert.Equal(t, "fallback", got)
}

func TestExtractItemsSourceOrder(t *testing.T) {
	sources := []map[string]any{
		{"items": []any{map[string]any{"label": "From override", "value": true}}},
		{"items": []any{map[string]any{"label": "From report", "value": false}}},
	}
	items := ExtractItems(sources)
	require.Len(t, items, 1)
	assert.Equal(t, "From override", items[0].Label)
}

func TestItemsFromStringArray(t *testing.T) {
	items := ExtractItems([]map[string]any{
		{"checklist": []any{"pass", "fail", ""}},
	})
	require.Len(t, items, 2)
	assert.Equal(t, Item{Label: "Item 1", Status: StatusOK}, items[0])
	assert.Equal(t, Item{Label: "Item 2", Status: StatusAttention}, items[1])
}

func TestItemsFromObjectSortedAndPrettified(t *testing.T) {
	items := ExtractItems([]map[string]any{
		{"answers": map[string]any{
			"wiper_blades": true,
			"brake_fluid":  "fail",
			"nested":       map[string]any{"skip": true},
		}},
	})
	require.Len(t, items, 2)
	assert.Equal(t, "Brake fluid", items[0].Label)
	assert.Equal(t, StatusAttention, items[0].Status)
	assert.Equal(t, "Wiper blades", items[1].Label)
	assert.Equal(t, StatusOK, items[1].Status)
}

func TestVarsChecklistMarkup(t *testing.T) {
	model := TemplateModel{
		Items: View([]Item{
			{Label: "Tires", Status: StatusOK},
			{Label: "Lights", Status: StatusAttention},
		}),
		Defects:      []string{"Lights"},
		DefectsCount: 1,
	}
	vars := model.Vars()
	assert.Equal(t, "<li>Tires: OK</li><li>Lights: Needs attention</li>", vars["checklist_items"])
	assert.Equal(t, "<li>Lights</li>", vars["defect_items"])
	assert.Equal(t, "1", vars["defects_count"])

	empty := TemplateModel{}
	vars = empty.Vars()
	assert.Equal(t, "<li>No checklist items recorded</li>", vars["checklist_items"])
	assert.Equal(t, "<li>None reported</li>", vars["defect_items"])
}
