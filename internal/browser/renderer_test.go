package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const nestedControlsPage = `<!doctype html>
<html><body>
<details open><summary>More info</summary><a href="/faq">Shipping FAQ</a></details>
<div tabindex="0"><button onclick="document.body.dataset.clicked = 'buy'">Buy</button></div>
<input type="text" placeholder="Search">
<p>Plain paragraph text</p>
<div style="display:none"><button>Hidden</button></div>
</body></html>`

// newHeadlessChrome starts a real browser, skipping when none is installed.
func newHeadlessChrome(t *testing.T) *ChromeSession {
	t.Helper()
	if testing.Short() {
		t.Skip("starts a browser")
	}
	found := false
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			found = true
			break
		}
	}
	if !found {
		t.Skip("no Chrome binary on PATH")
	}

	s, err := NewChromeSession(ChromeOptions{
		Headless:       true,
		NoSandbox:      true,
		UserDataDir:    t.TempDir(),
		ViewportWidth:  1024,
		ViewportHeight: 768,
		Timeout:        20 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func servePage(t *testing.T, html string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestTagRenderer_TagsNestedControls(t *testing.T) {
	s := newHeadlessChrome(t)
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, servePage(t, nestedControlsPage)))

	text, locators, err := TagRenderer{}.Render(ctx, s)
	require.NoError(t, err)

	// details, summary, link, focusable div, button, input
	require.Len(t, locators, 6, text)
	assert.Contains(t, text, "[$1] details")
	assert.Contains(t, text, "[$2] summary More info")
	assert.Contains(t, text, "[@3] a Shipping FAQ")
	assert.Contains(t, text, "[$4] div Buy")
	assert.Contains(t, text, "[$5] button Buy")
	assert.Contains(t, text, "[#6] input Search")
	assert.Contains(t, text, "Plain paragraph text")
	assert.NotContains(t, text, "Hidden")
	assert.Equal(t, 2, strings.Count(text, "Buy\n"), "direct text of a tagged element is only in its label")

	for id, loc := range locators {
		elements, err := s.QueryAll(ctx, loc)
		require.NoError(t, err)
		assert.Len(t, elements, 1, "id %d", id)
	}

	buy, err := s.QueryAll(ctx, locators[5])
	require.NoError(t, err)
	require.Len(t, buy, 1)
	require.NoError(t, buy[0].Click(ctx))

	var clicked string
	require.NoError(t, s.Evaluate(ctx, `document.body.dataset.clicked || ''`, &clicked))
	assert.Equal(t, "buy", clicked)
}

func TestTagRenderer_RetagsFromScratch(t *testing.T) {
	s := newHeadlessChrome(t)
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, servePage(t, nestedControlsPage)))

	_, first, err := TagRenderer{}.Render(ctx, s)
	require.NoError(t, err)
	_, second, err := TagRenderer{}.Render(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var tagged int
	require.NoError(t, s.Evaluate(ctx, `document.querySelectorAll('[data-ai-id]').length`, &tagged))
	assert.Equal(t, len(second), tagged)
}
