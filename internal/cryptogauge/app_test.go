package cryptogauge

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testUpstream struct {
	*httptest.Server

	mu    sync.Mutex
	paths []string
}

func (u *testUpstream) requestedPaths() []string {
	u.mu.Lock()
	defer u.mu.Unlock()

	return append([]string(nil), u.paths...)
}

func newTestUpstream(t *testing.T) *testUpstream {
	t.Helper()

	upstream := &testUpstream{}
	upstream.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstream.mu.Lock()
		upstream.paths = append(upstream.paths, r.URL.Path)
		upstream.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testGaugeBody))
	}))
	t.Cleanup(upstream.Close)

	return upstream
}

func newTestApplication(t *testing.T, upstreamURL string) (*application, uint64) {
	t.Helper()

	config, err := newConfigFromYAML([]byte(fmt.Sprintf(`
upstream:
  base-url: %s
pages:
  - name: Markets
    columns:
      - size: full
        widgets:
          - type: crypto-gauge
            title: Bitcoin
            token: btc
            period: "30"
            chart-id: cryptoGaugeChart
            arrow-id: cryptoGaugeArrow
            default-rotate-angle: 208
  - name: Other
    columns:
      - size: full
`, upstreamURL)))
	require.NoError(t, err)

	app, err := newApplication(config)
	require.NoError(t, err)

	return app, config.Pages[0].Columns[0].Widgets[0].GetID()
}

func doTestRequest(handler http.Handler, method, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(method, target, nil))

	return recorder
}

func TestHealthz(t *testing.T) {
	app, _ := newTestApplication(t, newTestUpstream(t).URL)

	response := doTestRequest(app.handler(), http.MethodGet, "/api/healthz")
	assert.Equal(t, http.StatusOK, response.Code)
}

func TestPageRequest(t *testing.T) {
	app, _ := newTestApplication(t, newTestUpstream(t).URL)
	handler := app.handler()

	response := doTestRequest(handler, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, response.Code)

	document, err := goquery.NewDocumentFromReader(response.Body)
	require.NoError(t, err)

	assert.Equal(t, "Markets", document.Find("title").Text())
	assert.Equal(t, 1, document.Find("#page-content").Length())
	assert.Equal(t, 2, document.Find(".nav-item").Length())
	assert.Equal(t, "Markets", document.Find(".nav-item-current").Text())

	stylesheet, _ := document.Find(`link[rel="stylesheet"]`).Attr("href")
	assert.Equal(t, "/static/"+staticFSHash+"/css/main.css", stylesheet)

	response = doTestRequest(handler, http.MethodGet, "/other")
	assert.Equal(t, http.StatusOK, response.Code)

	response = doTestRequest(handler, http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, response.Code)
}

func TestPageContentRequestUpdatesWidgets(t *testing.T) {
	upstream := newTestUpstream(t)
	app, _ := newTestApplication(t, upstream.URL)

	response := doTestRequest(app.handler(), http.MethodGet, "/api/pages/markets/content/")
	require.Equal(t, http.StatusOK, response.Code)

	assert.Equal(t, []string{"/btc/30"}, upstream.requestedPaths())

	document, err := goquery.NewDocumentFromReader(response.Body)
	require.NoError(t, err)

	assert.Equal(t, 1, document.Find(".widget-type-crypto-gauge").Length())
	assert.Equal(t, "0.4200", document.Find("#cryptoGaugeChart text.number").Text())

	arrowStyle, _ := document.Find("#cryptoGaugeArrow").Attr("style")
	assert.Contains(t, arrowStyle, "rotate(129.04deg)")

	response = doTestRequest(app.handler(), http.MethodGet, "/api/pages/missing/content/")
	assert.Equal(t, http.StatusNotFound, response.Code)
}

func TestWidgetFigureAndSnapshot(t *testing.T) {
	app, id := newTestApplication(t, newTestUpstream(t).URL)
	handler := app.handler()
	base := fmt.Sprintf("/api/widgets/%d/", id)

	response := doTestRequest(handler, http.MethodGet, base+"figure")
	assert.Equal(t, http.StatusNotFound, response.Code)

	response = doTestRequest(handler, http.MethodGet, base+"snapshot.png")
	assert.Equal(t, http.StatusNotFound, response.Code)

	response = doTestRequest(handler, http.MethodGet, base+"update")
	require.Equal(t, http.StatusOK, response.Code)

	response = doTestRequest(handler, http.MethodGet, base+"figure")
	require.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, "application/json", response.Header().Get("Content-Type"))

	var fig figure
	require.NoError(t, json.NewDecoder(response.Body).Decode(&fig))
	require.Len(t, fig.Data, 1)
	assert.Equal(t, "indicator", fig.Data[0].Type)
	assert.Equal(t, 0.42, *fig.Data[0].Value)

	response = doTestRequest(handler, http.MethodGet, base+"snapshot.png")
	require.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, "image/png", response.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(response.Body.String(), "\x89PNG"))
}

func TestWidgetUpdateRequest(t *testing.T) {
	upstream := newTestUpstream(t)
	app, id := newTestApplication(t, upstream.URL)
	handler := app.handler()
	base := fmt.Sprintf("/api/widgets/%d/", id)

	response := doTestRequest(handler, http.MethodGet, base+"update?token=eth&period=7")
	require.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, "text/html; charset=utf-8", response.Header().Get("Content-Type"))
	assert.Equal(t, []string{"/eth/7"}, upstream.requestedPaths())

	document, err := goquery.NewDocumentFromReader(response.Body)
	require.NoError(t, err)
	assert.Equal(t, 1, document.Find("#cryptoGaugeChart svg.infolayer").Length())

	response = doTestRequest(handler, http.MethodGet, base+"update?token=../admin")
	assert.Equal(t, http.StatusBadRequest, response.Code)

	response = doTestRequest(handler, http.MethodPost, base+"update")
	assert.Equal(t, http.StatusMethodNotAllowed, response.Code)

	response = doTestRequest(handler, http.MethodGet, base+"unknown")
	assert.Equal(t, http.StatusNotFound, response.Code)

	assert.Len(t, upstream.requestedPaths(), 1)
}

func TestUnknownWidgetRequests(t *testing.T) {
	app, _ := newTestApplication(t, newTestUpstream(t).URL)
	handler := app.handler()

	for _, target := range []string{"/api/widgets/999999999/update", "/api/widgets/abc/update"} {
		response := doTestRequest(handler, http.MethodGet, target)
		assert.Equal(t, http.StatusNotFound, response.Code, target)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestApplication(t, newTestUpstream(t).URL)
	handler := app.handler()

	doTestRequest(handler, http.MethodGet, "/api/pages/markets/content/")

	response := doTestRequest(handler, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, response.Code)

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `cryptogauge_upstream_fetch_total{status="success"}`)
	assert.Contains(t, string(body), `cryptogauge_http_requests_total{method="GET",path="GET /api/pages/{page}/content/{$}",status_code="200"}`)
}

func TestStaticAssets(t *testing.T) {
	app, _ := newTestApplication(t, newTestUpstream(t).URL)

	response := doTestRequest(app.handler(), http.MethodGet, app.StaticAssetPath("js/main.js"))
	require.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, "public, max-age=86400", response.Header().Get("Cache-Control"))
}

func TestDuplicatePageSlugs(t *testing.T) {
	config, err := newConfigFromYAML([]byte(`
pages:
  - name: Markets
    columns:
      - size: full
  - name: markets
    columns:
      - size: full
`))
	require.NoError(t, err)

	_, err = newApplication(config)
	assert.Error(t, err)
}
