package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/application/services"
	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/domain/host"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/browser"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/caching/stores"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/persistence/storage"
)

// Options configures a replay.
type Options struct {
	Settings tracking.Settings
	// State persists browser storage between runs. Nil keeps it in memory.
	State *storage.SQLStorageRepository
	// Visitor scopes the persisted state.
	Visitor string
	// NewSession drops session storage before the page loads.
	NewSession    bool
	StoragePrefix string
	Logger        *logging.ChanneledLogger
	// Out receives each data layer record as a JSON line.
	Out io.Writer
}

// Result is what a replay pushed onto the data layer.
type Result struct {
	// Started is false when consent never arrived or nothing was enabled.
	Started bool
	Records []map[string]any
}

// Events returns the event names in push order.
func (r *Result) Events() []string {
	out := make([]string, 0, len(r.Records))
	for _, rec := range r.Records {
		name, _ := rec["event"].(string)
		out = append(out, name)
	}
	return out
}

// logSink writes debug sink records to the log instead of posting them.
type logSink struct {
	logger *logging.ChanneledLogger
}

func (s logSink) Send(_ context.Context, rec tracking.SinkRecord) error {
	s.logger.Sink().Info("Debug record", "event", rec.EventName, "data", rec.EventData, "page", rec.PageURL)
	return nil
}

// Run plays sc and returns the data layer.
func Run(sc *Scenario, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	visitor := opts.Visitor
	if visitor == "" {
		visitor = "default"
	}

	cfg := browser.PageConfig{
		URL:       sc.URL,
		Referrer:  sc.Referrer,
		UserAgent: sc.UserAgent,
		HTML:      sc.HTML,
		Cookie:    sc.Cookie,
		Start:     sc.Start,
		Loading:   sc.Loading,
		Globals:   sc.Globals,
	}
	if sc.Consent != nil {
		cfg.Consent = host.ConsentState{FrameworkPresent: true, Statistics: sc.Consent.Statistics}
	}
	if opts.State != nil {
		sessionScope := visitor + "/session"
		if opts.NewSession {
			if err := opts.State.Clear(sessionScope); err != nil {
				return nil, fmt.Errorf("failed to reset session storage: %w", err)
			}
		}
		cfg.SessionStorage = storage.NewSQLStorage(opts.State, sessionScope)
		cfg.LocalStorage = storage.NewSQLStorage(opts.State, visitor+"/local")
	}

	page, err := browser.NewPage(cfg)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	page.DataLayer().Subscribe(func(rec map[string]any) {
		result.Records = append(result.Records, rec)
		if opts.Out == nil {
			return
		}
		line, err := json.Marshal(rec)
		if err != nil {
			logger.Debug().Warn("Record not encodable", "error", err.Error())
			return
		}
		fmt.Fprintln(opts.Out, string(line))
	})

	bootstrapService := services.NewBootstrapService(
		staticSettings(opts.Settings),
		services.NewAttributionService(stores.NewAttributionStore(24*time.Hour, logger)),
		services.BootstrapConfig{StoragePrefix: opts.StoragePrefix},
		logger,
	)
	bootstrap := bootstrapService.Build(visitor, sc.URL)

	accessors := services.NewAccessorRegistry()
	accessors.AllowGlobals(globalNames(sc.Globals)...)
	logger.Tracking().Debug("Expression accessors", "names", accessors.Names())

	engine := services.NewTrackingEngine(bootstrap, services.EngineOptions{
		Accessors: accessors,
		Sink:      logSink{logger: logger},
		Logger:    logger,
	})
	engine.Start(page)

	for i, step := range sc.Timeline {
		if err := apply(page, step); err != nil {
			return result, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	engine.Wait()
	result.Started = engine.Started()

	return result, nil
}

func apply(page *browser.Page, step Step) error {
	switch {
	case step.Wait != "":
		d, err := time.ParseDuration(step.Wait)
		if err != nil {
			return err
		}
		page.Advance(d)
	case step.Scroll != nil:
		page.ScrollToPercent(*step.Scroll)
	case step.Click != "":
		return page.Click(step.Click)
	case step.Focus != "":
		return page.Focus(step.Focus)
	case step.MouseOut != nil:
		page.MouseOut(*step.MouseOut)
	case step.Submit != nil:
		page.SubmitForm(step.Submit.FormID, step.Submit.Title)
	case step.Consent:
		page.AcceptConsent()
	case step.Load:
		page.Load()
	case step.Insert != nil:
		parent := step.Insert.Parent
		if parent == "" {
			parent = "body"
		}
		return page.AppendHTML(parent, step.Insert.HTML)
	case step.Video != nil:
		return applyVideo(page, step.Video)
	case step.Visible != nil:
		return page.SetVisible(step.Visible.Selector, step.Visible.Visible)
	}
	return nil
}

func applyVideo(page *browser.Page, v *VideoStep) error {
	switch v.Action {
	case "play":
		return page.PlayVideo(v.Selector)
	case "seek":
		return page.SeekVideo(v.Selector, v.Current, v.Duration)
	case "end":
		return page.EndVideo(v.Selector)
	case "mute":
		return page.MuteVideo(v.Selector, true)
	case "unmute":
		return page.MuteVideo(v.Selector, false)
	}
	return fmt.Errorf("unknown video action %q", v.Action)
}

func globalNames(globals map[string]any) []string {
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type staticSettings tracking.Settings

func (s staticSettings) Settings() tracking.Settings { return tracking.Settings(s) }
