package cryptogauge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

var widgetIDCounter atomic.Uint64

func newWidget(widgetType string) (widget, error) {
	if widgetType == "" {
		return nil, errors.New("widget 'type' property is empty or not specified")
	}

	var w widget

	switch widgetType {
	case "crypto-gauge":
		w = &cryptoGaugeWidget{}
	default:
		return nil, fmt.Errorf("unknown widget type: %s", widgetType)
	}

	w.setID(widgetIDCounter.Add(1))

	return w, nil
}

type widgets []widget

func (w *widgets) UnmarshalYAML(node *yaml.Node) error {
	var nodes []yaml.Node

	if err := node.Decode(&nodes); err != nil {
		return err
	}

	for _, node := range nodes {
		meta := struct {
			Type string `yaml:"type"`
		}{}

		if err := node.Decode(&meta); err != nil {
			return err
		}

		widget, err := newWidget(meta.Type)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}

		if err = node.Decode(widget); err != nil {
			return err
		}

		if err = widget.initialize(); err != nil {
			return fmt.Errorf("line %d: initializing %s widget: %w", node.Line, meta.Type, err)
		}

		*w = append(*w, widget)
	}

	return nil
}

type widget interface {
	// These need to be exported because they get called in templates
	Render() template.HTML
	GetType() string
	GetID() uint64

	initialize() error
	setProviders(*widgetProviders)
	update(context.Context)
	setID(uint64)
	handleRequest(w http.ResponseWriter, r *http.Request)
}

type widgetBase struct {
	ID         uint64           `yaml:"-"`
	Providers  *widgetProviders `yaml:"-"`
	Type       string           `yaml:"type"`
	Title      string           `yaml:"title"`
	TitleURL   string           `yaml:"title-url"`
	HideHeader bool             `yaml:"hide-header"`
	CSSClass   string           `yaml:"css-class"`

	errMu sync.RWMutex
	err   error
}

type widgetProviders struct {
	assetResolver func(string) string
	upstream      *gaugeUpstream
}

func (w *widgetBase) update(ctx context.Context) {

}

func (w *widgetBase) GetID() uint64 {
	return w.ID
}

func (w *widgetBase) setID(id uint64) {
	w.ID = id
}

func (widget *widgetBase) handleRequest(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "not implemented", http.StatusNotImplemented)
}

func (w *widgetBase) GetType() string {
	return w.Type
}

func (w *widgetBase) setProviders(providers *widgetProviders) {
	w.Providers = providers
}

// renderTemplate uses its own buffer since a widget may be rendered by a page
// load and an update request at the same time.
func (w *widgetBase) renderTemplate(data any, t *template.Template) template.HTML {
	var buffer bytes.Buffer

	err := t.Execute(&buffer, data)
	if err != nil {
		w.withError(err)

		slog.Error("Failed to render template", "error", err)

		// need to immediately re-render with the error,
		// otherwise risk breaking the page since the widget
		// will likely be partially rendered with tags not closed.
		buffer.Reset()
		err2 := t.Execute(&buffer, data)

		if err2 != nil {
			slog.Error("Failed to render error within widget", "error", err2, "initial_error", err)
			buffer.Reset()
		}
	}

	return template.HTML(buffer.String())
}

func (w *widgetBase) withTitle(title string) *widgetBase {
	if w.Title == "" {
		w.Title = title
	}

	return w
}

func (w *widgetBase) withError(err error) *widgetBase {
	w.errMu.Lock()
	defer w.errMu.Unlock()

	w.err = err

	return w
}

// RenderError is shown in place of the widget's content until it's cleared.
func (w *widgetBase) RenderError() error {
	w.errMu.RLock()
	defer w.errMu.RUnlock()

	return w.err
}
