package replay

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/persistence/database"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/persistence/storage"
	"gopkg.in/yaml.v3"
)

const shopScenario = `
url: https://shop.example.com/pricing?utm_source=newsletter
start: 2026-03-10T14:30:00Z
html: |
  <html><body>
  <a id="buy" class="cta" href="/checkout">Buy now</a>
  </body></html>
timeline:
  - scroll: 60
  - click: "#buy"
  - wait: 1s
`

var shopSettings = tracking.Settings{
	Enabled: true,
	Events: []tracking.EventDefinition{
		{Name: "landing", Enabled: true, Trigger: tracking.TriggerPageLoad},
		{Name: "scroll_depth", Enabled: true, Type: tracking.EventTypeScroll, Params: tracking.Params{"thresholds": "50"}},
		{Name: "cta_click", Enabled: true, Type: tracking.EventTypeClick, Selector: ".cta"},
	},
}

func parseScenario(t *testing.T, src string) *Scenario {
	t.Helper()
	var sc Scenario
	if err := yaml.Unmarshal([]byte(src), &sc); err != nil {
		t.Fatal(err)
	}
	if err := sc.Validate(); err != nil {
		t.Fatal(err)
	}
	return &sc
}

func TestRunTimeline(t *testing.T) {
	var out bytes.Buffer
	res, err := Run(parseScenario(t, shopScenario), Options{Settings: shopSettings, Out: &out})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Started {
		t.Fatal("expected tracking to start")
	}

	want := []string{"landing", "scroll_depth", "cta_click"}
	if got := res.Events(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if res.Records[0]["utm_source"] != "newsletter" {
		t.Errorf("utm_source = %v", res.Records[0]["utm_source"])
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 || !strings.Contains(lines[2], `"event":"cta_click"`) {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunWaitsForConsent(t *testing.T) {
	sc := parseScenario(t, `
url: https://shop.example.com/
consent:
  statistics: false
timeline:
  - wait: 2s
  - consent: true
`)
	res, err := Run(sc, Options{Settings: shopSettings})
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Events(); !reflect.DeepEqual(got, []string{"landing"}) {
		t.Errorf("events = %v", got)
	}
}

func TestRunDisabledSettings(t *testing.T) {
	settings := shopSettings
	settings.Enabled = false
	res, err := Run(parseScenario(t, shopScenario), Options{Settings: settings})
	if err != nil {
		t.Fatal(err)
	}
	if res.Started || len(res.Records) != 0 {
		t.Errorf("disabled settings tracked %v", res.Events())
	}
}

func TestRunPersistsState(t *testing.T) {
	db, err := database.NewConnection("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		t.Fatal(err)
	}
	state := storage.NewSQLStorageRepository(db)

	settings := tracking.Settings{
		Enabled: true,
		Events: []tracking.EventDefinition{
			{Name: "landing", Enabled: true, Trigger: tracking.TriggerPageLoad},
			{
				Name:       "welcome_back",
				Enabled:    true,
				Trigger:    tracking.TriggerPageLoad,
				Conditions: []tracking.Condition{{Type: tracking.CondSessionCount, Operator: tracking.OpGreaterOrEqual, Value: "2"}},
			},
		},
	}
	sc := parseScenario(t, "url: https://shop.example.com/\ntimeline:\n  - wait: 2s\n")

	runs := []struct {
		newSession bool
		want       []string
	}{
		{false, []string{"landing"}},
		{false, []string{}},
		{true, []string{"landing", "welcome_back"}},
	}
	for i, run := range runs {
		res, err := Run(sc, Options{Settings: settings, State: state, Visitor: "v1", NewSession: run.newSession})
		if err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
		if got := res.Events(); !reflect.DeepEqual(got, run.want) {
			t.Errorf("run %d events = %v, want %v", i+1, got, run.want)
		}
	}

	if v, ok, _ := state.Get("v1/local", "anticipater_session_count"); !ok || v != "2" {
		t.Errorf("session_count = %q, %v", v, ok)
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]string{
		"missing url": "timeline:\n  - wait: 1s\n",
		"two actions": "url: https://a.example/\ntimeline:\n  - wait: 1s\n    click: a\n",
		"no action":   "url: https://a.example/\ntimeline:\n  - {}\n",
		"bad wait":    "url: https://a.example/\ntimeline:\n  - wait: soon\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			var sc Scenario
			if err := yaml.Unmarshal([]byte(src), &sc); err != nil {
				t.Fatal(err)
			}
			if err := sc.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoadScenarioReadsHTMLFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "page.html"), []byte(`<body><a class="cta" href="/x">Go</a></body>`), 0o600); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "visit.yaml")
	if err := os.WriteFile(path, []byte("url: https://a.example/\nhtml_file: page.html\ntimeline:\n  - click: .cta\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario() error = %v", err)
	}
	if !strings.Contains(sc.HTML, `class="cta"`) {
		t.Errorf("html = %q", sc.HTML)
	}

	res, err := Run(sc, Options{Settings: shopSettings})
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Events(); !reflect.DeepEqual(got, []string{"landing", "cta_click"}) {
		t.Errorf("events = %v", got)
	}
}

func TestRunStepError(t *testing.T) {
	sc := parseScenario(t, "url: https://a.example/\ntimeline:\n  - click: \"#missing\"\n")
	if _, err := Run(sc, Options{Settings: shopSettings}); err == nil {
		t.Error("expected an error for a missing click target")
	}
}

func TestRunWithoutConsentStaysIdle(t *testing.T) {
	sc := parseScenario(t, "url: https://shop.example.com/\nconsent:\n  statistics: false\ntimeline:\n  - scroll: 100\n")
	res, err := Run(sc, Options{Settings: shopSettings})
	if err != nil {
		t.Fatal(err)
	}
	if res.Started || len(res.Records) != 0 {
		t.Errorf("tracked without consent: %v", res.Events())
	}
}
