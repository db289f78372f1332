// Package dom models the hosted document a test run executes against:
// a parsed HTML tree, the console channel test output is written to, and
// the sandboxed fixture containers UI tests run inside.
package dom

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Readiness events fired by the hosting document. ContentLoaded fires when
// the initial document has been parsed, Load when all resources are in.
const (
	EventContentLoaded = "DOMContentLoaded"
	EventLoad          = "load"
)

// Alerter surfaces a blocking, user-facing notice. In a browser this is a
// modal alert; the default implementation logs at warn level.
type Alerter interface {
	Alert(message string)
}

// LogAlerter is the default Alerter
type LogAlerter struct {
	Log log.Logger
}

func (a LogAlerter) Alert(message string) {
	logger := a.Log
	if logger == nil {
		logger = log.Root()
	}
	logger.Warn("Alert", "message", message)
}

// Console is the line-oriented output channel of a hosted document.
// Lines written here form the wire format the supervisor re-parses.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a console writing to w; nil defaults to stdout
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

// Log writes one console line
func (c *Console) Log(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

// Logf formats and writes one console line
func (c *Console) Logf(format string, args ...any) {
	c.Log(fmt.Sprintf(format, args...))
}

// Write implements io.Writer so reporters can stream to the console
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}

// Document is a hosted document: the parsed tree plus the console and
// alert channels the runner reports through.
type Document struct {
	root    *html.Node
	body    *html.Node
	console *Console
	alerter Alerter

	mu        sync.Mutex
	fired     map[string]bool
	listeners map[string][]func()
}

// Parse reads an HTML document from r
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	d := newDocument(root)
	if d.body == nil {
		return nil, fmt.Errorf("document has no body element")
	}
	return d, nil
}

// ParseString parses an HTML document from a string
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// New creates an empty document with just html/head/body
func New() *Document {
	d, err := ParseString("<html><head></head><body></body></html>")
	if err != nil {
		// The static markup above always parses.
		panic(err)
	}
	return d
}

func newDocument(root *html.Node) *Document {
	d := &Document{
		root:      root,
		console:   NewConsole(nil),
		alerter:   LogAlerter{},
		fired:     make(map[string]bool),
		listeners: make(map[string][]func()),
	}
	d.body = d.find(func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Body
	})
	return d
}

// Console returns the document's console channel
func (d *Document) Console() *Console {
	return d.console
}

// SetConsole redirects the console channel, typically to the pipe a
// supervisor captures
func (d *Document) SetConsole(c *Console) {
	if c != nil {
		d.console = c
	}
}

// SetAlerter replaces the document's alert channel
func (d *Document) SetAlerter(a Alerter) {
	if a != nil {
		d.alerter = a
	}
}

// Alert raises a blocking user-facing notice
func (d *Document) Alert(message string) {
	d.alerter.Alert(message)
}

// Body returns the document body element
func (d *Document) Body() *html.Node {
	return d.body
}

// AddEventListener registers fn for a readiness event. If the event has
// already fired, fn is invoked immediately; readiness is a state, not an
// instant.
func (d *Document) AddEventListener(event string, fn func()) {
	d.mu.Lock()
	if d.fired[event] {
		d.mu.Unlock()
		fn()
		return
	}
	d.listeners[event] = append(d.listeners[event], fn)
	d.mu.Unlock()
}

// Fired reports whether the given event has fired
func (d *Document) Fired(event string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fired[event]
}

// FireContentLoaded signals that the initial document content is parsed
func (d *Document) FireContentLoaded() {
	d.fire(EventContentLoaded)
}

// FireLoad signals that the document and all its resources are loaded
func (d *Document) FireLoad() {
	d.fire(EventLoad)
}

func (d *Document) fire(event string) {
	d.mu.Lock()
	if d.fired[event] {
		d.mu.Unlock()
		return
	}
	d.fired[event] = true
	listeners := d.listeners[event]
	d.listeners[event] = nil
	d.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Query returns the first element matching the selector, or nil.
// Supported selectors: tag, #id, tag#id, .class and tag.class.
func (d *Document) Query(selector string) *html.Node {
	tag, id, class := parseSelector(selector)
	return d.find(func(n *html.Node) bool {
		return matches(n, tag, id, class)
	})
}

// Contains reports whether n is attached to the document tree
func (d *Document) Contains(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

func (d *Document) find(match func(*html.Node) bool) *html.Node {
	var walk func(n *html.Node) *html.Node
	walk = func(n *html.Node) *html.Node {
		if match(n) {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := walk(c); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(d.root)
}

func parseSelector(selector string) (tag, id, class string) {
	rest := strings.TrimSpace(selector)
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		tag, id = rest[:i], rest[i+1:]
		return tag, id, ""
	}
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		tag, class = rest[:i], rest[i+1:]
		return tag, "", class
	}
	return rest, "", ""
}

func matches(n *html.Node, tag, id, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if tag != "" && n.Data != tag {
		return false
	}
	if id != "" && attr(n, "id") != id {
		return false
	}
	if class != "" && !hasClass(n, class) {
		return false
	}
	return tag != "" || id != "" || class != ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
