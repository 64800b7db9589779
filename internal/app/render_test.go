package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bill_spider/internal/config"
	"bill_spider/internal/extract"
	"bill_spider/internal/models"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/require"
)

// scriptedBill fills the bill container from a timer after the load event,
// the way the search page populates results client side.
const scriptedBill = `<html><body><div id="app"></div>
<script>
window.addEventListener("load", function () {
  setTimeout(function () {
    document.getElementById("app").innerHTML =
      '<div class="bill-list-item"><span>S. 1 -- Sen. <a href="/member.php?code=1234">Smith</a>: Schools</span>' +
      '<p><b>Summary:</b> Short title<br>Long abstract</p></div>';
  }, 300);
});
</script></body></html>`

func newTestRenderer(t *testing.T) *BrowserRenderer {
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no local browser")
	}
	renderer, err := NewBrowserRenderer(config.BrowserConfig{Bin: bin, Headless: true, SettleMS: 500}, 30*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { renderer.Close() })
	return renderer
}

func TestRenderWaitsForScriptedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, scriptedBill)
	}))
	defer server.Close()

	renderer := newTestRenderer(t)
	html, err := renderer.Render(context.Background(), server.URL)
	require.NoError(t, err)

	record, err := extract.FromHTML(strings.NewReader(html), "2025-26", 1, models.Senate)
	require.NoError(t, err)
	require.Equal(t, "Short title", *record.TitleSummary)
	require.Equal(t, []models.Sponsor{{MemberCode: "1234", Name: "Smith"}}, record.Sponsors)
}

func TestRenderCancelledClosesTab(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, scriptedBill)
	}))
	defer server.Close()

	renderer := newTestRenderer(t)
	before, err := renderer.browser.Pages()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = renderer.Render(ctx, server.URL)
	require.Error(t, err)

	after, err := renderer.browser.Pages()
	require.NoError(t, err)
	require.Len(t, after, len(before))
}
