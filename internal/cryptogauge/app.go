package cryptogauge

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

var (
	pageTemplate        = mustParseTemplate("page.html", "document.html")
	pageContentTemplate = mustParseTemplate("page-content.html")
)

const staticAssetsCacheDuration = 24 * time.Hour

type application struct {
	Version   string
	CreatedAt time.Time
	Config    *config

	slugToPage map[string]*page
	widgetByID map[uint64]widget
}

func newApplication(config *config) (*application, error) {
	app := &application{
		Version:    buildVersion,
		CreatedAt:  time.Now(),
		Config:     config,
		slugToPage: make(map[string]*page),
		widgetByID: make(map[uint64]widget),
	}

	if len(config.Pages) == 0 {
		return nil, fmt.Errorf("no pages configured")
	}

	app.slugToPage[""] = &config.Pages[0]

	providers := &widgetProviders{
		assetResolver: app.StaticAssetPath,
		upstream:      newGaugeUpstream(&config.Upstream),
	}

	for p := range config.Pages {
		page := &config.Pages[p]

		if page.Slug == "" {
			page.Slug = titleToSlug(page.Title)
		}

		if _, exists := app.slugToPage[page.Slug]; exists && p > 0 {
			return nil, fmt.Errorf("page slug %q is used more than once", page.Slug)
		}

		app.slugToPage[page.Slug] = page

		for c := range page.Columns {
			column := &page.Columns[c]

			for w := range column.Widgets {
				widget := column.Widgets[w]
				app.widgetByID[widget.GetID()] = widget

				widget.setProviders(providers)
			}
		}
	}

	config.Server.BaseURL = strings.TrimRight(config.Server.BaseURL, "/")

	logBearerCredentialStatus(config.Upstream.BearerToken)

	return app, nil
}

// updateWidgets updates every widget of the page concurrently. Widgets handle
// their own errors, so the group never fails.
func (p *page) updateWidgets(ctx context.Context) {
	group, ctx := errgroup.WithContext(ctx)

	for c := range p.Columns {
		for w := range p.Columns[c].Widgets {
			widget := p.Columns[c].Widgets[w]

			group.Go(func() error {
				widget.update(ctx)
				return nil
			})
		}
	}

	group.Wait()
}

type pageTemplateData struct {
	App  *application
	Page *page
}

func (a *application) handlePageRequest(w http.ResponseWriter, r *http.Request) {
	page, exists := a.slugToPage[r.PathValue("page")]

	if !exists {
		a.handleNotFound(w, r)
		return
	}

	data := pageTemplateData{
		Page: page,
		App:  a,
	}

	var responseBytes bytes.Buffer
	err := pageTemplate.Execute(&responseBytes, data)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
		return
	}

	w.Write(responseBytes.Bytes())
}

func (a *application) handlePageContentRequest(w http.ResponseWriter, r *http.Request) {
	page, exists := a.slugToPage[r.PathValue("page")]

	if !exists {
		a.handleNotFound(w, r)
		return
	}

	pageData := pageTemplateData{
		Page: page,
	}

	var err error
	var responseBytes bytes.Buffer

	func() {
		page.mu.Lock()
		defer page.mu.Unlock()

		page.updateWidgets(r.Context())
		err = pageContentTemplate.Execute(&responseBytes, pageData)
	}()

	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
		return
	}

	w.Write(responseBytes.Bytes())
}

func (a *application) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("Page not found"))
}

func (a *application) handleWidgetRequest(w http.ResponseWriter, r *http.Request) {
	widgetValue := r.PathValue("widget")

	widgetID, err := strconv.ParseUint(widgetValue, 10, 64)
	if err != nil {
		a.handleNotFound(w, r)
		return
	}

	widget, exists := a.widgetByID[widgetID]

	if !exists {
		a.handleNotFound(w, r)
		return
	}

	widget.handleRequest(w, r)
}

func (a *application) StaticAssetPath(asset string) string {
	return a.Config.Server.BaseURL + "/static/" + staticFSHash + "/" + asset
}

func (a *application) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", a.handlePageRequest)
	mux.HandleFunc("GET /{page}", a.handlePageRequest)

	mux.HandleFunc("GET /api/pages/{page}/content/{$}", a.handlePageContentRequest)
	mux.HandleFunc("/api/widgets/{widget}/{path...}", a.handleWidgetRequest)
	mux.HandleFunc("GET /api/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle(
		fmt.Sprintf("GET /static/%s/{path...}", staticFSHash),
		http.StripPrefix(
			"/static/"+staticFSHash,
			fileServerWithCache(http.FS(staticFS), staticAssetsCacheDuration),
		),
	)

	if a.Config.Server.AssetsPath != "" {
		assetsFS := fileServerWithCache(http.Dir(a.Config.Server.AssetsPath), 2*time.Hour)
		mux.Handle("/assets/{path...}", http.StripPrefix("/assets/", assetsFS))
	}

	return withRequestMetrics(mux)
}

func (a *application) server() (func() error, func() error) {
	server := http.Server{
		Addr:    fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler: a.handler(),
	}

	start := func() error {
		var absAssetsPath string
		if a.Config.Server.AssetsPath != "" {
			absAssetsPath, _ = filepath.Abs(a.Config.Server.AssetsPath)
		}

		slog.Info("Starting server",
			"host", a.Config.Server.Host,
			"port", a.Config.Server.Port,
			"base_url", a.Config.Server.BaseURL,
			"assets_path", absAssetsPath,
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}

		return nil
	}

	stop := func() error {
		return server.Close()
	}

	return start, stop
}
