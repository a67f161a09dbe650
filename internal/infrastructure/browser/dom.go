package browser

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/anticipaterdotcom/ga4-events/internal/domain/host"
	"golang.org/x/net/html"
)

// Document is a parsed page. Element wrappers are cached per node so the
// same DOM node always yields the same host.Element value.
type Document struct {
	root   *html.Node
	cookie string

	mu        sync.Mutex
	wrappers  map[*html.Node]host.Element
	selectors map[string]cascadia.Selector
}

// ParseDocument parses an HTML page.
func ParseDocument(source string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return &Document{
		root:      root,
		wrappers:  make(map[*html.Node]host.Element),
		selectors: make(map[string]cascadia.Selector),
	}, nil
}

func (d *Document) compile(selector string) (cascadia.Selector, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sel, ok := d.selectors[selector]; ok {
		return sel, nil
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	d.selectors[selector] = sel
	return sel, nil
}

// wrap returns the cached wrapper of n; videos get a *Video.
func (d *Document) wrap(n *html.Node) host.Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.wrappers[n]; ok {
		return el
	}
	el := &Element{doc: d, node: n}
	var wrapped host.Element = el
	if n.Data == "video" {
		wrapped = newVideo(el)
	}
	d.wrappers[n] = wrapped
	return wrapped
}

// QuerySelector returns the first element matching selector, nil when none does.
func (d *Document) QuerySelector(selector string) (host.Element, error) {
	sel, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	if n := sel.MatchFirst(d.root); n != nil {
		return d.wrap(n), nil
	}
	return nil, nil
}

// QuerySelectorAll returns every element matching selector in document order.
func (d *Document) QuerySelectorAll(selector string) ([]host.Element, error) {
	sel, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	nodes := sel.MatchAll(d.root)
	out := make([]host.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, d.wrap(n))
	}
	return out, nil
}

// Videos returns every <video> element in document order.
func (d *Document) Videos() []host.Video {
	els, _ := d.QuerySelectorAll("video")
	out := make([]host.Video, 0, len(els))
	for _, el := range els {
		if v, ok := el.(host.Video); ok {
			out = append(out, v)
		}
	}
	return out
}

// Body returns the <body> element.
func (d *Document) Body() host.Element {
	el, _ := d.QuerySelector("body")
	return el
}

// Cookie returns the document cookie string.
func (d *Document) Cookie() string {
	return d.cookie
}

// SetCookie adds or replaces a cookie.
func (d *Document) SetCookie(name, value string) {
	pairs := make([]string, 0)
	for _, pair := range strings.Split(d.cookie, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" || strings.HasPrefix(pair, name+"=") {
			continue
		}
		pairs = append(pairs, pair)
	}
	pairs = append(pairs, name+"="+value)
	d.cookie = strings.Join(pairs, "; ")
}

// Element wraps an element node.
type Element struct {
	doc  *Document
	node *html.Node
}

func (e *Element) htmlNode() *html.Node { return e.node }

// Tag returns the lower-case tag name.
func (e *Element) Tag() string {
	return strings.ToLower(e.node.Data)
}

// Attr returns an attribute value and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr adds or replaces an attribute.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// TextContent concatenates every descendant text node.
func (e *Element) TextContent() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.node)
	return b.String()
}

// ClassName returns the raw class attribute.
func (e *Element) ClassName() string {
	v, _ := e.Attr("class")
	return v
}

// Parent returns the parent element, nil above <html>.
func (e *Element) Parent() host.Element {
	for p := e.node.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return e.doc.wrap(p)
		}
	}
	return nil
}

// Matches tests the element against a selector.
func (e *Element) Matches(selector string) (bool, error) {
	sel, err := e.doc.compile(selector)
	if err != nil {
		return false, err
	}
	return sel.Match(e.node), nil
}

// Closest returns the element or its nearest ancestor matching selector.
func (e *Element) Closest(selector string) (host.Element, error) {
	sel, err := e.doc.compile(selector)
	if err != nil {
		return nil, err
	}
	for n := e.node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && sel.Match(n) {
			return e.doc.wrap(n), nil
		}
	}
	return nil, nil
}

// style returns one inline style property, lower-cased.
func (e *Element) style(property string) string {
	raw, _ := e.Attr("style")
	for _, decl := range strings.Split(raw, ";") {
		name, value, found := strings.Cut(decl, ":")
		if found && strings.EqualFold(strings.TrimSpace(name), property) {
			return strings.ToLower(strings.TrimSpace(value))
		}
	}
	return ""
}

// Video is a <video> element with simulated media state.
type Video struct {
	*Element

	muted       bool
	currentTime float64
	duration    float64
	listeners   map[host.VideoEventKind][]func()
}

func newVideo(el *Element) *Video {
	_, muted := el.Attr("muted")
	return &Video{
		Element:   el,
		muted:     muted,
		listeners: make(map[host.VideoEventKind][]func()),
	}
}

func (v *Video) Autoplay() bool {
	_, ok := v.Attr("autoplay")
	return ok
}

func (v *Video) Loop() bool {
	_, ok := v.Attr("loop")
	return ok
}

func (v *Video) Muted() bool          { return v.muted }
func (v *Video) CurrentTime() float64 { return v.currentTime }
func (v *Video) Duration() float64    { return v.duration }

func (v *Video) Src() string {
	src, _ := v.Attr("src")
	return src
}

// CurrentSrc falls back to the first <source> child.
func (v *Video) CurrentSrc() string {
	if src := v.Src(); src != "" {
		return src
	}
	for c := v.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "source" {
			for _, a := range c.Attr {
				if a.Key == "src" {
					return a.Val
				}
			}
		}
	}
	return ""
}

func (v *Video) InlinePosition() string { return v.style("position") }

// ComputedZIndex reads the inline z-index; anything else counts as auto.
func (v *Video) ComputedZIndex() (int, bool) {
	z, err := strconv.Atoi(v.style("z-index"))
	if err != nil {
		return 0, false
	}
	return z, true
}

func (v *Video) ObjectFit() string { return v.style("object-fit") }

// On registers a media event listener.
func (v *Video) On(kind host.VideoEventKind, fn func()) {
	v.listeners[kind] = append(v.listeners[kind], fn)
}

func (v *Video) emit(kind host.VideoEventKind) {
	for _, fn := range v.listeners[kind] {
		fn()
	}
}
