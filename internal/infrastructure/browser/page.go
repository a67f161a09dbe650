// Package browser is a simulated page runtime implementing host.Host. It
// parses real HTML, matches real CSS selectors and runs timers on a virtual
// clock, so the tracking engine can be driven deterministically by tests and
// by the replay command.
package browser

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/host"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/queue"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// PageConfig describes the page to load.
type PageConfig struct {
	URL       string
	Referrer  string
	UserAgent string
	HTML      string
	Cookie    string
	// Start is the virtual clock's initial time, now when zero.
	Start time.Time
	// Loading leaves the document incomplete until Load is called.
	Loading bool
	Consent host.ConsentState
	Globals map[string]any

	// SessionStorage and LocalStorage default to fresh memory stores.
	SessionStorage host.Storage
	LocalStorage   host.Storage
	Queue          *queue.DataLayer
}

type addedListener struct {
	tag string
	fn  func(host.Element)
}

// Page is one loaded page.
type Page struct {
	location  *url.URL
	referrer  string
	userAgent string
	doc       *Document
	complete  bool
	consent   host.ConsentState
	globals   map[string]any

	session host.Storage
	local   host.Storage
	queue   *queue.DataLayer
	loop    *Loop

	listeners  map[host.NotificationKind][]func(host.Notification)
	added      []addedListener
	visibility map[host.Element][]func(bool)
}

// NewPage loads a page.
func NewPage(cfg PageConfig) (*Page, error) {
	location, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url: %w", err)
	}
	source := cfg.HTML
	if source == "" {
		source = "<html><head></head><body></body></html>"
	}
	doc, err := ParseDocument(source)
	if err != nil {
		return nil, err
	}
	doc.cookie = cfg.Cookie

	start := cfg.Start
	if start.IsZero() {
		start = time.Now()
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	p := &Page{
		location:   location,
		referrer:   cfg.Referrer,
		userAgent:  userAgent,
		doc:        doc,
		complete:   !cfg.Loading,
		consent:    cfg.Consent,
		globals:    cfg.Globals,
		session:    cfg.SessionStorage,
		local:      cfg.LocalStorage,
		queue:      cfg.Queue,
		loop:       NewLoop(start),
		listeners:  make(map[host.NotificationKind][]func(host.Notification)),
		visibility: make(map[host.Element][]func(bool)),
	}
	if p.session == nil {
		p.session = NewMemoryStorage()
	}
	if p.local == nil {
		p.local = NewMemoryStorage()
	}
	if p.queue == nil {
		p.queue = queue.NewDataLayer()
	}
	return p, nil
}

func (p *Page) Location() *url.URL         { return p.location }
func (p *Page) Referrer() string           { return p.referrer }
func (p *Page) UserAgent() string          { return p.userAgent }
func (p *Page) Document() host.Document    { return p.doc }
func (p *Page) DocumentComplete() bool     { return p.complete }
func (p *Page) Consent() host.ConsentState { return p.consent }
func (p *Page) SessionStorage() host.Storage {
	return p.session
}
func (p *Page) LocalStorage() host.Storage { return p.local }
func (p *Page) Queue() host.Queue          { return p.queue }
func (p *Page) Now() time.Time             { return p.loop.Now() }

// DataLayer returns the concrete queue.
func (p *Page) DataLayer() *queue.DataLayer { return p.queue }

// Doc returns the concrete document.
func (p *Page) Doc() *Document { return p.doc }

func (p *Page) Every(interval time.Duration, fn func()) {
	p.loop.Every(interval, fn)
}

func (p *Page) Listen(kind host.NotificationKind, fn func(host.Notification)) {
	p.listeners[kind] = append(p.listeners[kind], fn)
}

func (p *Page) OnElementAdded(tag string, fn func(host.Element)) {
	p.added = append(p.added, addedListener{tag: strings.ToLower(tag), fn: fn})
}

func (p *Page) OnVisibilityChange(el host.Element, fn func(bool)) {
	p.visibility[el] = append(p.visibility[el], fn)
}

func (p *Page) Global(name string) (any, bool) {
	v, ok := p.globals[name]
	return v, ok
}

// SetGlobal exports a page global.
func (p *Page) SetGlobal(name string, value any) {
	if p.globals == nil {
		p.globals = make(map[string]any)
	}
	p.globals[name] = value
}

// Dispatch delivers a notification to its listeners in registration order.
func (p *Page) Dispatch(n host.Notification) {
	for _, fn := range p.listeners[n.Kind()] {
		fn(n)
	}
}

// Advance moves the virtual clock.
func (p *Page) Advance(d time.Duration) {
	p.loop.Advance(d)
}

// Load completes the document and delivers the load notification.
func (p *Page) Load() {
	p.complete = true
	p.Dispatch(host.Load{})
}

// AcceptConsent grants statistics consent and notifies listeners.
func (p *Page) AcceptConsent() {
	p.consent.Statistics = true
	p.Dispatch(host.ConsentAccepted{})
}

// Scroll reports new scroll metrics.
func (p *Page) Scroll(top, height, client float64) {
	p.Dispatch(host.Scroll{ScrollTop: top, ScrollHeight: height, ClientHeight: client})
}

// ScrollToPercent scrolls a 1000px viewport over a 5000px page.
func (p *Page) ScrollToPercent(percent float64) {
	p.Scroll(40*percent, 5000, 1000)
}

// Click clicks the first element matching selector.
func (p *Page) Click(selector string) error {
	el, err := p.find(selector)
	if err != nil {
		return err
	}
	p.Dispatch(host.Click{Target: el})
	return nil
}

// Focus focuses the first element matching selector.
func (p *Page) Focus(selector string) error {
	el, err := p.find(selector)
	if err != nil {
		return err
	}
	p.Dispatch(host.Focus{Target: el})
	return nil
}

// MouseOut moves the pointer out of the page at clientY.
func (p *Page) MouseOut(clientY float64) {
	p.Dispatch(host.MouseOut{ClientY: clientY})
}

// SubmitForm reports a successful form submission.
func (p *Page) SubmitForm(formID, title string) {
	p.Dispatch(host.FormSubmit{FormID: formID, FormTitle: title})
}

// SetVisible reports the visibility of the first element matching selector.
func (p *Page) SetVisible(selector string, visible bool) error {
	el, err := p.find(selector)
	if err != nil {
		return err
	}
	for _, fn := range p.visibility[el] {
		fn(visible)
	}
	return nil
}

// AppendHTML parses fragment into the first element matching parentSelector
// and reports every inserted element to OnElementAdded listeners.
func (p *Page) AppendHTML(parentSelector, fragment string) error {
	parent, err := p.find(parentSelector)
	if err != nil {
		return err
	}
	parentNode := parent.(interface{ htmlNode() *html.Node }).htmlNode()

	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}

	for _, n := range nodes {
		parentNode.AppendChild(n)
	}
	for _, n := range nodes {
		p.notifyAdded(n)
	}
	return nil
}

func (p *Page) notifyAdded(n *html.Node) {
	if n.Type == html.ElementNode {
		el := p.doc.wrap(n)
		for _, l := range p.added {
			if l.tag == n.Data {
				l.fn(el)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.notifyAdded(c)
	}
}

// Video returns the video matching selector.
func (p *Page) Video(selector string) (*Video, error) {
	el, err := p.find(selector)
	if err != nil {
		return nil, err
	}
	v, ok := el.(*Video)
	if !ok {
		return nil, fmt.Errorf("%q is not a video", selector)
	}
	return v, nil
}

// PlayVideo starts playback of a video.
func (p *Page) PlayVideo(selector string) error {
	v, err := p.Video(selector)
	if err != nil {
		return err
	}
	v.emit(host.VideoPlay)
	return nil
}

// SeekVideo sets the playback position and duration and reports a time update.
func (p *Page) SeekVideo(selector string, current, duration float64) error {
	v, err := p.Video(selector)
	if err != nil {
		return err
	}
	v.currentTime = current
	v.duration = duration
	v.emit(host.VideoTimeUpdate)
	return nil
}

// EndVideo moves playback to the end, reporting the final time update
// before the ended event.
func (p *Page) EndVideo(selector string) error {
	v, err := p.Video(selector)
	if err != nil {
		return err
	}
	v.currentTime = v.duration
	v.emit(host.VideoTimeUpdate)
	v.emit(host.VideoEnded)
	return nil
}

// MuteVideo changes the muted state of a video.
func (p *Page) MuteVideo(selector string, muted bool) error {
	v, err := p.Video(selector)
	if err != nil {
		return err
	}
	v.muted = muted
	return nil
}

func (p *Page) find(selector string) (host.Element, error) {
	el, err := p.doc.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return el, nil
}
