package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abacushq/abacus/internal/types"
)

const validJSON = `{
  "currentCycleHealth": {"completionRate": 0.6, "currentVelocity": 1.4, "atRiskCount": 2, "status": "on_track"},
  "historicalVelocity": {"samples": [18, 22, 20], "avgPerDay": 1.43, "trend": "stable", "confidence": "high"},
  "backlogAnalysis": {"items": [
    {"id": "ENG-101", "title": "Fix login timeout", "estimate": 5, "tier": "urgent", "type": "bug", "ageDays": 12},
    {"id": "ENG-102", "title": "New billing page", "estimate": 8, "tier": "high", "type": "feature", "ageDays": 40, "fixCategory": "ci-cd-pipeline"}
  ]},
  "dependencies": {"blockedCount": 1, "relations": [{"blocker": "ENG-7", "blocked": "ENG-9"}], "criticalPathLength": 3, "circularIds": ["ENG-4"]}
}`

func TestParse(t *testing.T) {
	snap, err := Parse([]byte(validJSON))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if snap.CurrentCycleHealth.Status != types.HealthOnTrack {
		t.Errorf("Parse() health status = %q, want on_track", snap.CurrentCycleHealth.Status)
	}
	if got := len(snap.Items()); got != 2 {
		t.Fatalf("Parse() item count = %d, want 2", got)
	}
	first := snap.Items()[0]
	if first.ID != "ENG-101" || first.Tier != types.TierUrgent || first.Type != types.TypeBug {
		t.Errorf("Parse() first item = %+v, want ENG-101 urgent bug", first)
	}
	if first.Estimate == nil || *first.Estimate != 5 {
		t.Errorf("Parse() first item estimate = %v, want 5", first.Estimate)
	}
	if snap.Dependencies.CriticalPathLength != 3 {
		t.Errorf("Parse() critical path = %d, want 3", snap.Dependencies.CriticalPathLength)
	}
	if !snap.Dependencies.CircularSet()["ENG-4"] {
		t.Error("Parse() circular set missing ENG-4")
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	data := `{
  "currentCycleHealth": {"status": "on_track"},
  "historicalVelocity": {"avgPerDay": 1.0},
  "backlogAnalysis": {"items": [{"id": "ENG-1", "title": "Bare item"}]},
  "dependencies": {}
}`
	snap, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if snap.HistoricalVelocity.Trend != types.TrendStable {
		t.Errorf("Parse() trend = %q, want stable default", snap.HistoricalVelocity.Trend)
	}
	if snap.HistoricalVelocity.Confidence != types.ConfidenceLow {
		t.Errorf("Parse() confidence = %q, want low default", snap.HistoricalVelocity.Confidence)
	}
	item := snap.Items()[0]
	if item.Tier != types.TierMedium || item.Type != types.TypeFeature {
		t.Errorf("Parse() item defaults = tier %q type %q, want medium feature", item.Tier, item.Type)
	}
	if item.Estimate != nil {
		t.Errorf("Parse() item estimate = %v, want nil (moderate default applied downstream)", *item.Estimate)
	}
}

func TestParseGradesVelocityFromSamples(t *testing.T) {
	data := `{
  "currentCycleHealth": {"status": "on_track"},
  "historicalVelocity": {"samples": [10, 14, 20, 24, 30, 36]},
  "backlogAnalysis": {"items": []},
  "dependencies": {}
}`
	snap, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// Six samples, recent ones climbing: graded, not pinned at the floor
	if snap.HistoricalVelocity.Confidence != types.ConfidenceHigh {
		t.Errorf("Parse() confidence = %q, want high from 6 samples", snap.HistoricalVelocity.Confidence)
	}
	if snap.HistoricalVelocity.Trend != types.TrendIncreasing {
		t.Errorf("Parse() trend = %q, want increasing", snap.HistoricalVelocity.Trend)
	}
	// The average needs the cycle length, which the planner owns
	if snap.HistoricalVelocity.AvgPerDay != 0 {
		t.Errorf("Parse() avgPerDay = %v, want 0 (left for the planner)", snap.HistoricalVelocity.AvgPerDay)
	}
}

func TestParseExplicitVelocityFieldsWin(t *testing.T) {
	data := `{
  "currentCycleHealth": {"status": "on_track"},
  "historicalVelocity": {"samples": [10, 14, 20, 24, 30, 36], "trend": "stable", "confidence": "low"},
  "backlogAnalysis": {"items": []},
  "dependencies": {}
}`
	snap, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if snap.HistoricalVelocity.Confidence != types.ConfidenceLow {
		t.Errorf("Parse() confidence = %q, want explicit low preserved", snap.HistoricalVelocity.Confidence)
	}
	if snap.HistoricalVelocity.Trend != types.TrendStable {
		t.Errorf("Parse() trend = %q, want explicit stable preserved", snap.HistoricalVelocity.Trend)
	}
}

func TestParseMissingSections(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		mention []string
	}{
		{
			name:    "empty object",
			data:    `{}`,
			mention: []string{"currentCycleHealth", "historicalVelocity", "backlogAnalysis", "dependencies"},
		},
		{
			name: "no dependencies",
			data: `{
  "currentCycleHealth": {"status": "on_track"},
  "historicalVelocity": {"avgPerDay": 1.0},
  "backlogAnalysis": {"items": []}
}`,
			mention: []string{"dependencies"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !errors.Is(err, types.ErrInvalidInput) {
				t.Errorf("Parse() error = %v, want ErrInvalidInput", err)
			}
			for _, section := range tt.mention {
				if !strings.Contains(err.Error(), section) {
					t.Errorf("Parse() error = %v, want mention of %q", err, section)
				}
			}
		})
	}
}

func TestParseMalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"currentCycleHealth": `))
	if err == nil {
		t.Fatal("Parse() expected error for malformed JSON")
	}
	if !strings.Contains(err.Error(), "parse snapshot") {
		t.Errorf("Parse() error = %v, want parse snapshot prefix", err)
	}
}

func TestParseTolerantOfUnknownFields(t *testing.T) {
	data := `{
  "schemaVersion": 9,
  "currentCycleHealth": {"status": "on_track", "vibes": "good"},
  "historicalVelocity": {"avgPerDay": 1.0},
  "backlogAnalysis": {"items": []},
  "dependencies": {}
}`
	if _, err := Parse([]byte(data)); err != nil {
		t.Errorf("Parse() with unknown fields error = %v, want nil", err)
	}
}

func TestParseYAML(t *testing.T) {
	data := `currentCycleHealth:
  completionRate: 0.6
  currentVelocity: 1.4
  atRiskCount: 2
  status: on_track
historicalVelocity:
  samples: [18, 22, 20]
  avgPerDay: 1.43
  trend: stable
  confidence: high
backlogAnalysis:
  items:
    - id: ENG-101
      title: Fix login timeout
      estimate: 5
      tier: urgent
      type: bug
      ageDays: 12
dependencies:
  blockedCount: 0
`
	snap, err := ParseYAML([]byte(data))
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	if len(snap.Items()) != 1 {
		t.Fatalf("ParseYAML() item count = %d, want 1", len(snap.Items()))
	}
	item := snap.Items()[0]
	if item.ID != "ENG-101" || item.Tier != types.TierUrgent {
		t.Errorf("ParseYAML() item = %+v, want ENG-101 urgent", item)
	}
	if snap.HistoricalVelocity.AvgPerDay != 1.43 {
		t.Errorf("ParseYAML() avgPerDay = %v, want 1.43", snap.HistoricalVelocity.AvgPerDay)
	}
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "snap.json")
	if err := os.WriteFile(jsonPath, []byte(validJSON), 0600); err != nil {
		t.Fatal(err)
	}
	yamlPath := filepath.Join(dir, "snap.yaml")
	yamlData := `currentCycleHealth:
  status: behind
historicalVelocity:
  avgPerDay: 2.0
backlogAnalysis:
  items: []
dependencies: {}
`
	if err := os.WriteFile(yamlPath, []byte(yamlData), 0600); err != nil {
		t.Fatal(err)
	}

	fromJSON, err := Load(jsonPath)
	if err != nil {
		t.Fatalf("Load(json) error = %v", err)
	}
	if len(fromJSON.Items()) != 2 {
		t.Errorf("Load(json) items = %d, want 2", len(fromJSON.Items()))
	}

	fromYAML, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("Load(yaml) error = %v", err)
	}
	if fromYAML.CurrentCycleHealth.Status != types.HealthBehind {
		t.Errorf("Load(yaml) status = %q, want behind", fromYAML.CurrentCycleHealth.Status)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	snap, err := Parse([]byte(validJSON))
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "out.json")
	if err := Save(path, snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() after Save error = %v", err)
	}
	if len(loaded.Items()) != len(snap.Items()) {
		t.Errorf("round trip item count = %d, want %d", len(loaded.Items()), len(snap.Items()))
	}
	if loaded.Items()[1].FixCategory != "ci-cd-pipeline" {
		t.Errorf("round trip lost fixCategory, got %q", loaded.Items()[1].FixCategory)
	}
}
