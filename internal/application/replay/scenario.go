// Package replay mounts the tracking engine on a simulated page and plays
// a scripted visit against it.
package replay

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario describes one page view and what the visitor does on it.
type Scenario struct {
	URL       string         `yaml:"url"`
	Referrer  string         `yaml:"referrer"`
	UserAgent string         `yaml:"user_agent"`
	Cookie    string         `yaml:"cookie"`
	Start     time.Time      `yaml:"start"`
	Loading   bool           `yaml:"loading"`
	Consent   *ConsentConfig `yaml:"consent"`
	Globals   map[string]any `yaml:"globals"`
	HTML      string         `yaml:"html"`
	// HTMLFile is read relative to the scenario file when HTML is empty.
	HTMLFile string `yaml:"html_file"`
	Timeline []Step `yaml:"timeline"`
}

// ConsentConfig simulates a consent framework on the page.
type ConsentConfig struct {
	Statistics bool `yaml:"statistics"`
}

// Step is one timeline action. Exactly one field is set.
type Step struct {
	Wait     string       `yaml:"wait,omitempty"`
	Scroll   *float64     `yaml:"scroll,omitempty"`
	Click    string       `yaml:"click,omitempty"`
	Focus    string       `yaml:"focus,omitempty"`
	MouseOut *float64     `yaml:"mouseout,omitempty"`
	Submit   *SubmitStep  `yaml:"submit,omitempty"`
	Consent  bool         `yaml:"consent,omitempty"`
	Load     bool         `yaml:"load,omitempty"`
	Insert   *InsertStep  `yaml:"insert,omitempty"`
	Video    *VideoStep   `yaml:"video,omitempty"`
	Visible  *VisibleStep `yaml:"visible,omitempty"`
}

type SubmitStep struct {
	FormID string `yaml:"form_id"`
	Title  string `yaml:"title"`
}

type InsertStep struct {
	Parent string `yaml:"parent"`
	HTML   string `yaml:"html"`
}

// VideoStep drives a video element. Action is play, seek, end, mute or unmute.
type VideoStep struct {
	Selector string  `yaml:"selector"`
	Action   string  `yaml:"action"`
	Current  float64 `yaml:"current"`
	Duration float64 `yaml:"duration"`
}

type VisibleStep struct {
	Selector string `yaml:"selector"`
	Visible  bool   `yaml:"visible"`
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}
	if sc.HTML == "" && sc.HTMLFile != "" {
		htmlPath := sc.HTMLFile
		if !filepath.IsAbs(htmlPath) {
			htmlPath = filepath.Join(filepath.Dir(path), htmlPath)
		}
		source, err := os.ReadFile(htmlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read page html: %w", err)
		}
		sc.HTML = string(source)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &sc, nil
}

// Validate checks the scenario shape before anything runs.
func (sc *Scenario) Validate() error {
	if sc.URL == "" {
		return fmt.Errorf("url is required")
	}
	for i, step := range sc.Timeline {
		if n := step.actions(); n != 1 {
			return fmt.Errorf("step %d: want exactly one action, got %d", i+1, n)
		}
		if step.Wait != "" {
			if _, err := time.ParseDuration(step.Wait); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	}
	return nil
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{
		s.Wait != "",
		s.Scroll != nil,
		s.Click != "",
		s.Focus != "",
		s.MouseOut != nil,
		s.Submit != nil,
		s.Consent,
		s.Load,
		s.Insert != nil,
		s.Video != nil,
		s.Visible != nil,
	} {
		if set {
			n++
		}
	}
	return n
}
