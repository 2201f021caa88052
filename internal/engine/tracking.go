package engine

import (
	"net/url"
	"regexp"
	"strings"
)

var hrefPattern = regexp.MustCompile(`href="(https?://[^"]+)"`)

// InjectTracking rewrites links to pass through the click-tracking
// redirect and appends an open-tracking pixel, both keyed by the delivery
// log id. A blank baseURL disables tracking and returns the HTML as is.
func InjectTracking(html, baseURL, logID string) string {
	if baseURL == "" {
		return html
	}
	base := strings.TrimRight(baseURL, "/")

	html = hrefPattern.ReplaceAllStringFunc(html, func(match string) string {
		target := hrefPattern.FindStringSubmatch(match)[1]
		return `href="` + base + "/t/click/" + logID + "?url=" + url.QueryEscape(target) + `"`
	})

	pixel := `<img src="` + base + "/t/open/" + logID + `" width="1" height="1" alt="" style="display:none">`
	if i := strings.LastIndex(strings.ToLower(html), "</body>"); i >= 0 {
		return html[:i] + pixel + html[i:]
	}
	return html + pixel
}
