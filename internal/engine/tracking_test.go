package engine

import (
	"strings"
	"testing"
)

func TestInjectTrackingRewritesLinks(t *testing.T) {
	html := `<html><body><a href="https://example.com/sale?x=1">Sale</a></body></html>`
	out := InjectTracking(html, "https://mail.example.com", "log-1")

	if strings.Contains(out, `href="https://example.com/sale?x=1"`) {
		t.Error("original link survived rewriting")
	}
	if !strings.Contains(out, `href="https://mail.example.com/t/click/log-1?url=https%3A%2F%2Fexample.com%2Fsale%3Fx%3D1"`) {
		t.Errorf("rewritten link missing:\n%s", out)
	}
}

func TestInjectTrackingAppendsPixel(t *testing.T) {
	html := `<html><body><p>Hello</p></body></html>`
	out := InjectTracking(html, "https://mail.example.com/", "log-2")

	pixel := `src="https://mail.example.com/t/open/log-2"`
	if !strings.Contains(out, pixel) {
		t.Fatalf("pixel missing:\n%s", out)
	}
	if !strings.Contains(out, `style="display:none"></body>`) {
		t.Error("pixel not inserted before </body>")
	}
}

func TestInjectTrackingNoBody(t *testing.T) {
	out := InjectTracking("<p>plain fragment</p>", "https://mail.example.com", "log-3")
	if !strings.HasSuffix(out, `style="display:none">`) {
		t.Errorf("pixel should be appended at end:\n%s", out)
	}
}

func TestInjectTrackingDisabled(t *testing.T) {
	html := `<a href="https://example.com">x</a>`
	if out := InjectTracking(html, "", "log-4"); out != html {
		t.Errorf("blank base URL must be a passthrough, got:\n%s", out)
	}
}

func TestInjectTrackingSkipsNonHTTPLinks(t *testing.T) {
	html := `<a href="mailto:help@example.com">contact</a>`
	out := InjectTracking(html, "https://mail.example.com", "log-5")
	if !strings.Contains(out, `href="mailto:help@example.com"`) {
		t.Errorf("mailto link must not be rewritten:\n%s", out)
	}
}
