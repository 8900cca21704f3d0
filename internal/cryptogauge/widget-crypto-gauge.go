package cryptogauge

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
)

var cryptoGaugeWidgetTemplate = mustParseTemplate("crypto-gauge.html", "widget-base.html", "gauge-chart.html")

const defaultMaxRotateAngle = 20

// Tokens and periods end up as path segments of the upstream URL as they are
var gaugeRequestParamPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type cryptoGaugeWidget struct {
	widgetBase          `yaml:",inline"`
	gaugeStyleOverrides `yaml:",inline"`
	Token               string       `yaml:"token"`
	Period              string       `yaml:"period"`
	Periods             []string     `yaml:"periods"`
	ChartID             string       `yaml:"chart-id"`
	LoaderID            string       `yaml:"loader-id"`
	ArrowID             string       `yaml:"arrow-id"`
	ValueElementID      string       `yaml:"value-element-id"`
	DefaultRotateAngle  float64      `yaml:"default-rotate-angle"`
	MaxRotateAngle      *float64     `yaml:"max-rotate-angle"`
	Variant             gaugeVariant `yaml:"variant"`
	Preset              string       `yaml:"preset"`
	Big                 bool         `yaml:"big"`

	style    gaugeStyle
	drawer   chartDrawer
	document *gaugeDocument
	target   renderTarget

	loaderMu       sync.Mutex
	pendingFetches int

	issuedUpdates atomic.Uint64
	renderMu      sync.Mutex
	lastMetric    *gaugeMetric
	lastFigure    *figure
}

func (widget *cryptoGaugeWidget) initialize() error {
	widget.withTitle("Crypto Gauge").withError(nil)

	if widget.Token == "" || widget.Period == "" {
		return errors.New("token and period are required")
	}

	if widget.Variant == "" {
		widget.Variant = gaugeVariantDefault
	}

	style, err := resolveGaugeStyle(widget.Variant, widget.Preset, &widget.gaugeStyleOverrides)
	if err != nil {
		return err
	}
	widget.style = style
	widget.Preset = style.Preset

	if widget.MaxRotateAngle == nil {
		maxAngle := float64(defaultMaxRotateAngle)
		widget.MaxRotateAngle = &maxAngle
	}

	if widget.ChartID == "" {
		widget.ChartID = fmt.Sprintf("crypto-gauge-%d", widget.ID)
	}

	if widget.Big && widget.ValueElementID == "" {
		widget.ValueElementID = widget.ChartID + "-value"
	}

	ids := []string{widget.ChartID, widget.LoaderID, widget.ArrowID, widget.ValueElementID}
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if ids[i] != "" && ids[i] == ids[j] {
				return fmt.Errorf("element id %q is used more than once", ids[i])
			}
		}
	}

	widget.document = newGaugeDocument(ids...)
	widget.target = widget.document
	widget.drawer = svgChartDrawer{}

	if widget.LoaderID != "" {
		widget.target.setDisplay(widget.LoaderID, false)
	}

	return nil
}

func (widget *cryptoGaugeWidget) update(ctx context.Context) {
	widget.updateChart(ctx, widget.Token, widget.Period)
}

// updateChart fetches the gauge data and, when it is available, redraws the
// chart and moves the arrow. Failures are logged and leave both untouched.
// When calls overlap, the one issued last wins.
func (widget *cryptoGaugeWidget) updateChart(ctx context.Context, token, period string) bool {
	issued := widget.issuedUpdates.Add(1)

	metric := widget.fetchGaugeData(ctx, token, period)
	if metric == nil {
		return false
	}

	widget.renderMu.Lock()
	defer widget.renderMu.Unlock()

	if issued != widget.issuedUpdates.Load() {
		gaugeStaleResultsTotal.Inc()
		slog.Debug("Discarding gauge data of a superseded update", "widget", widget.ID, "token", token, "period", period)
		return false
	}

	if err := widget.plotCryptoGauge(ctx, metric); err != nil {
		slog.Error("Failed to draw gauge chart", "widget", widget.ID, "error", err)
		return false
	}

	widget.updateArrowPosition(metric)
	widget.withError(nil)

	return true
}

func (widget *cryptoGaugeWidget) fetchGaugeData(ctx context.Context, token, period string) *gaugeMetric {
	widget.showLoader()
	defer widget.hideLoader()

	if widget.Providers == nil || widget.Providers.upstream == nil {
		slog.Error("Failed to fetch gauge data", "token", token, "period", period, "error", "no upstream configured")
		return nil
	}

	metric, err := widget.Providers.upstream.fetch(ctx, token, period)
	if err != nil {
		slog.Error("Failed to fetch gauge data", "token", token, "period", period, "error", err)
		return nil
	}

	return metric
}

// The loader stays up while any fetch of the widget is pending.
func (widget *cryptoGaugeWidget) showLoader() {
	if widget.LoaderID == "" {
		return
	}

	widget.loaderMu.Lock()
	defer widget.loaderMu.Unlock()

	widget.pendingFetches++
	widget.target.setDisplay(widget.LoaderID, true)
	widget.target.setDisplay(widget.ChartID, false)
}

func (widget *cryptoGaugeWidget) hideLoader() {
	if widget.LoaderID == "" {
		return
	}

	widget.loaderMu.Lock()
	defer widget.loaderMu.Unlock()

	widget.pendingFetches = max(0, widget.pendingFetches-1)
	if widget.pendingFetches > 0 {
		return
	}

	widget.target.setDisplay(widget.LoaderID, false)
	widget.target.setDisplay(widget.ChartID, true)
}

func (widget *cryptoGaugeWidget) plotCryptoGauge(ctx context.Context, metric *gaugeMetric) error {
	fig := buildGaugeFigure(metric, &widget.style, widget.Big)

	chart, err := widget.drawer.draw(ctx, fig)
	if err != nil {
		return err
	}

	if widget.style.Kind == gaugeChartDonut {
		chart.Style.set("position", "absolute")
	} else {
		widget.patchIndicatorChart(chart)
	}

	widget.target.mountChart(widget.ChartID, chart)
	widget.lastMetric = metric
	widget.lastFigure = fig
	gaugeRendersTotal.WithLabelValues(string(widget.Variant)).Inc()

	return nil
}

func (widget *cryptoGaugeWidget) patchIndicatorChart(chart *drawnChart) {
	chart.Style.set("position", "absolute")

	for _, layer := range chart.Layers {
		layer.Style.set("overflow", "visible")
	}

	if number := chart.textByClass("number"); number != nil {
		if widget.Big {
			number.Style.set("display", "none")
			widget.target.setText(widget.ValueElementID, number.Text)
		} else {
			if widget.style.NumberOffset != "" {
				number.Style.set("transform", widget.style.NumberOffset)
			}
			number.Style.set("font-weight", "600")
		}
	}

	// The value arc is drawn after the background arcs
	if paths := chart.paths(); len(paths) > 0 {
		paths[len(paths)-1].Style.set("stroke-linecap", "round")
	}
}

// arrowAngle interpolates linearly, values outside of [0, 1] are not clamped.
func arrowAngle(defaultAngle, maxAngle, value float64) float64 {
	return defaultAngle + (maxAngle-defaultAngle)*value
}

func formatAngle(angle float64) string {
	return strconv.FormatFloat(math.Round(angle*1e4)/1e4, 'f', -1, 64)
}

func (widget *cryptoGaugeWidget) updateArrowPosition(metric *gaugeMetric) {
	if widget.ArrowID == "" {
		return
	}

	angle := arrowAngle(widget.DefaultRotateAngle, *widget.MaxRotateAngle, metric.Last)
	widget.target.setStyle(widget.ArrowID, "transform", "rotate("+formatAngle(angle)+"deg)")
}

func (widget *cryptoGaugeWidget) Element(id string) *documentElement {
	if id == "" || widget.document == nil {
		return nil
	}

	return widget.document.element(id)
}

func (widget *cryptoGaugeWidget) Render() template.HTML {
	return widget.renderTemplate(widget, cryptoGaugeWidgetTemplate)
}

func (widget *cryptoGaugeWidget) ArrowImageURL() string {
	if widget.Providers == nil || widget.Providers.assetResolver == nil {
		return ""
	}

	return widget.Providers.assetResolver("images/gauge-arrow.svg")
}

func (widget *cryptoGaugeWidget) renderContent() (string, error) {
	return executeTemplateToString(cryptoGaugeWidgetTemplate.Lookup("gauge-content"), widget)
}

func (widget *cryptoGaugeWidget) lastRendered() (*gaugeMetric, *figure) {
	widget.renderMu.Lock()
	defer widget.renderMu.Unlock()

	return widget.lastMetric, widget.lastFigure
}

func (widget *cryptoGaugeWidget) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.PathValue("path") {
	case "update":
		widget.handleUpdateRequest(w, r)
	case "figure":
		_, fig := widget.lastRendered()
		if fig == nil {
			http.Error(w, "no gauge data available yet", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(fig); err != nil {
			slog.Error("Failed to encode gauge figure", "widget", widget.ID, "error", err)
		}
	case "snapshot.png":
		metric, _ := widget.lastRendered()
		if metric == nil {
			http.Error(w, "no gauge data available yet", http.StatusNotFound)
			return
		}

		var buffer bytes.Buffer
		if err := renderDonutSnapshot(&buffer, metric, &widget.style); err != nil {
			slog.Error("Failed to render gauge snapshot", "widget", widget.ID, "error", err)
			http.Error(w, "failed to render snapshot", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Write(buffer.Bytes())
	default:
		http.NotFound(w, r)
	}
}

func (widget *cryptoGaugeWidget) handleUpdateRequest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	token := cmp.Or(query.Get("token"), widget.Token)
	period := cmp.Or(query.Get("period"), widget.Period)

	if !gaugeRequestParamPattern.MatchString(token) || !gaugeRequestParamPattern.MatchString(period) {
		http.Error(w, "invalid token or period", http.StatusBadRequest)
		return
	}

	widget.updateChart(r.Context(), token, period)

	content, err := widget.renderContent()
	if err != nil {
		slog.Error("Failed to render gauge content", "widget", widget.ID, "error", err)
		http.Error(w, "failed to render widget", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(content))
}
