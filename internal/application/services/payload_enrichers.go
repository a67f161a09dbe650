package services

import (
	"encoding/json"
	"strings"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/domain/host"
)

const (
	elementTextLimit = 100
	defaultPlatforms = "facebook,instagram,linkedin,twitter,youtube"
)

// clickTarget is what a click payload reports about the clicked element.
type clickTarget struct {
	Href    string
	Text    string
	Classes string
}

func describeClickTarget(el host.Element) clickTarget {
	href, _ := el.Attr("href")
	text := []rune(strings.TrimSpace(el.TextContent()))
	if len(text) > elementTextLimit {
		text = text[:elementTextLimit]
	}
	return clickTarget{
		Href:    href,
		Text:    string(text),
		Classes: el.ClassName(),
	}
}

// enrichClick adds the element fields and the detectors switched on in params.
func enrichClick(payload map[string]any, target clickTarget, params tracking.Params) {
	payload["element_text"] = target.Text
	payload["element_url"] = target.Href
	payload["element_classes"] = target.Classes

	if params.Flag("detect_platform") {
		payload["platform"] = detectPlatform(target.Href, params.List("platforms", defaultPlatforms))
	}
	if params.Flag("detect_file") {
		segments := strings.Split(target.Href, "/")
		payload["file_name"] = segments[len(segments)-1]
		payload["file_url"] = target.Href
	}
	if params.Flag("detect_contact") {
		payload["contact_type"] = detectContact(target.Href)
	}
	mergeJSON(payload, params["custom_params"])
}

// detectPlatform returns the last configured platform found in href.
func detectPlatform(href string, platforms []string) string {
	platform := "unknown"
	lower := strings.ToLower(href)
	for _, p := range platforms {
		if strings.Contains(lower, strings.ToLower(p)) {
			platform = p
		}
	}
	return platform
}

func detectContact(href string) string {
	switch {
	case strings.HasPrefix(href, "tel:"):
		return "phone"
	case strings.HasPrefix(href, "mailto:"):
		return "email"
	}
	return "page"
}

// mergeJSON copies the keys of a JSON object into payload. Anything that is
// not a JSON object is ignored.
func mergeJSON(payload map[string]any, raw string) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	var extra map[string]any
	if err := json.Unmarshal([]byte(raw), &extra); err != nil {
		return
	}
	for k, v := range extra {
		payload[k] = v
	}
}

// videoURL prefers the src attribute over the resolved source.
func videoURL(v host.Video) string {
	if src := v.Src(); src != "" {
		return src
	}
	return v.CurrentSrc()
}

func attrOr(el host.Element, name, def string) string {
	if v, ok := el.Attr(name); ok && v != "" {
		return v
	}
	return def
}
