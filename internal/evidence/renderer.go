package evidence

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/hakim/threatscore/internal/features"
	"github.com/hakim/threatscore/internal/models"
)

// HTTPRenderer is the default PageRenderer: a plain fetch plus DOM parse.
// It executes no scripts and captures no screenshots. RenderResult.
// Screenshot is always nil, which downstream code treats as "screenshot
// unavailable". Deployments with a headless browser swap in their own
// PageRenderer.
type HTTPRenderer struct {
	client  *http.Client
	maxBody int64
}

// NewHTTPRenderer builds the default renderer. maxBody caps how much of
// the document is read.
func NewHTTPRenderer(transport http.RoundTripper, maxBody int64) *HTTPRenderer {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &HTTPRenderer{
		client:  &http.Client{Transport: transport},
		maxBody: maxBody,
	}
}

// Render fetches and parses the page.
func (r *HTTPRenderer) Render(ctx context.Context, rawURL string, _ RenderOptions) (*RenderResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("evidence: building render request: %w", err)
	}
	req.Header.Set("User-Agent", "threatscore-render/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("evidence: fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	doc, err := html.Parse(io.LimitReader(resp.Body, r.maxBody))
	if err != nil {
		return nil, fmt.Errorf("evidence: parsing %s: %w", rawURL, err)
	}

	base := resp.Request.URL
	ev := &models.HTMLEvidence{
		Headers: make(map[string]string, len(resp.Header)),
		Cookies: len(resp.Header.Values("Set-Cookie")),
	}
	for name := range resp.Header {
		ev.Headers[name] = resp.Header.Get(name)
	}

	var text strings.Builder
	scriptHosts := map[string]bool{}
	walk(doc, base, ev, scriptHosts, &text)

	for host := range scriptHosts {
		ev.ScriptHosts = append(ev.ScriptHosts, host)
	}
	ev.Text = strings.Join(strings.Fields(text.String()), " ")

	return &RenderResult{HTML: ev}, nil
}

func walk(n *html.Node, base *url.URL, ev *models.HTMLEvidence, scriptHosts map[string]bool, text *strings.Builder) {
	switch n.Type {
	case html.ElementNode:
		switch n.Data {
		case "title":
			if ev.Title == "" {
				ev.Title = nodeText(n)
			}
		case "form":
			ev.Forms = append(ev.Forms, parseForm(n, base))
		case "script":
			if src := attr(n, "src"); src != "" {
				if u, err := base.Parse(src); err == nil && u.Hostname() != "" &&
					features.RegisteredDomain(u.Hostname()) != features.RegisteredDomain(base.Hostname()) {
					scriptHosts[u.Hostname()] = true
				}
			} else if looksObfuscated(nodeText(n)) {
				ev.Obfuscated = true
			}
			return // script bodies are not visible text
		case "a":
			if href := attr(n, "href"); href != "" {
				if u, err := base.Parse(href); err == nil && u.Hostname() != "" &&
					features.RegisteredDomain(u.Hostname()) != features.RegisteredDomain(base.Hostname()) {
					ev.ExternalLinks++
				}
			}
		case "meta":
			if strings.EqualFold(attr(n, "http-equiv"), "refresh") {
				ev.MetaRefresh = true
			}
		case "style":
			return
		}
	case html.TextNode:
		text.WriteString(n.Data)
		text.WriteByte(' ')
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child, base, ev, scriptHosts, text)
	}
}

func parseForm(n *html.Node, base *url.URL) models.HTMLForm {
	form := models.HTMLForm{
		Action: attr(n, "action"),
		Method: strings.ToUpper(attr(n, "method")),
	}
	if form.Method == "" {
		form.Method = http.MethodGet
	}

	var findPassword func(*html.Node)
	findPassword = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "input" &&
			strings.EqualFold(attr(node, "type"), "password") {
			form.HasPassword = true
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			findPassword(child)
		}
	}
	findPassword(n)

	if u, err := base.Parse(form.Action); err == nil {
		form.ActionHost = u.Hostname()
		if form.ActionHost != "" &&
			features.RegisteredDomain(form.ActionHost) != features.RegisteredDomain(base.Hostname()) {
			form.ExternalPost = true
		}
		if u.Scheme == "http" {
			form.InsecurePost = true
		}
	}
	return form
}

// looksObfuscated flags the inline-script patterns packers leave behind.
func looksObfuscated(script string) bool {
	if strings.Contains(script, "eval(") &&
		(strings.Contains(script, "atob(") || strings.Contains(script, "unescape(") || strings.Contains(script, "fromCharCode")) {
		return true
	}
	// A single token thousands of characters long is encoded payload, not code.
	for _, tok := range strings.Fields(script) {
		if len(tok) > 4000 {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			b.WriteString(child.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}
