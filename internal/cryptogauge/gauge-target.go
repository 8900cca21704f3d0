package cryptogauge

import "sync"

// renderTarget is the set of element mutations a gauge widget performs.
// Operations on ids that are empty or unknown are ignored.
type renderTarget interface {
	setDisplay(elementID string, visible bool)
	setStyle(elementID, property, value string)
	setText(elementID, text string)
	mountChart(elementID string, chart *drawnChart)
}

type documentElement struct {
	ID    string
	Style cssStyle
	Text  string
	Chart *drawnChart
}

// gaugeDocument holds the elements owned by one widget. Mounted charts are
// never mutated, so snapshots can share them.
type gaugeDocument struct {
	mu       sync.RWMutex
	elements map[string]*documentElement
}

func newGaugeDocument(ids ...string) *gaugeDocument {
	document := &gaugeDocument{
		elements: make(map[string]*documentElement, len(ids)),
	}

	for _, id := range ids {
		if id != "" {
			document.elements[id] = &documentElement{ID: id}
		}
	}

	return document
}

func (d *gaugeDocument) setDisplay(elementID string, visible bool) {
	d.setStyle(elementID, "display", ternary(visible, "block", "none"))
}

func (d *gaugeDocument) setStyle(elementID, property, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if element, ok := d.elements[elementID]; ok {
		element.Style.set(property, value)
	}
}

func (d *gaugeDocument) setText(elementID, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if element, ok := d.elements[elementID]; ok {
		element.Text = text
	}
}

func (d *gaugeDocument) mountChart(elementID string, chart *drawnChart) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if element, ok := d.elements[elementID]; ok {
		element.Chart = chart
	}
}

// element returns a copy of the element or nil when it does not exist.
func (d *gaugeDocument) element(elementID string) *documentElement {
	d.mu.RLock()
	defer d.mu.RUnlock()

	element, ok := d.elements[elementID]
	if !ok {
		return nil
	}

	c := *element
	c.Style = append(cssStyle(nil), element.Style...)

	return &c
}
