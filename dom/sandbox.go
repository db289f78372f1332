package dom

import (
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SandboxTemplateSelector addresses the template a document may declare to
// supply its own sandbox markup. Absent a declaration, a synthesized
// hidden container is used instead.
const SandboxTemplateSelector = "template#sandbox"

// FixtureKind distinguishes the failure points of UI fixture setup
type FixtureKind string

const (
	FixtureTemplateNotFound FixtureKind = "template_not_found"
	FixtureCloneFailed      FixtureKind = "clone_failed"
	FixtureAttachFailed     FixtureKind = "attach_failed"
)

// FixtureError reports a failure while materializing a UI test fixture.
// It propagates like any other test-body error; the enclosing test fails
// and the batch continues.
type FixtureError struct {
	Kind     FixtureKind
	Selector string
	Err      error
}

func (e *FixtureError) Error() string {
	switch e.Kind {
	case FixtureTemplateNotFound:
		return fmt.Sprintf("template not found: %q", e.Selector)
	case FixtureCloneFailed:
		return fmt.Sprintf("cloning template %q: %v", e.Selector, e.Err)
	default:
		return fmt.Sprintf("attaching fixture %q: %v", e.Selector, e.Err)
	}
}

func (e *FixtureError) Unwrap() error {
	return e.Err
}

// Sandbox is an isolated container attached to the document for the
// duration of one callback, then detached on every exit path.
type Sandbox struct {
	Container *html.Node
	doc       *Document
}

// Query returns the first element under the sandbox container matching
// the selector, or nil
func (s *Sandbox) Query(selector string) *html.Node {
	tag, id, class := parseSelector(selector)
	scoped := &Document{root: s.Container}
	return scoped.find(func(n *html.Node) bool {
		return matches(n, tag, id, class)
	})
}

// WithSandbox acquires a sandbox container, attaches it to the document,
// invokes fn, and guarantees the container is detached before control
// returns to the caller, whether fn returns, errors or panics.
func (d *Document) WithSandbox(fn func(*Sandbox) error) error {
	container := d.acquireContainer()
	d.body.AppendChild(container)
	defer d.body.RemoveChild(container)

	return fn(&Sandbox{Container: container, doc: d})
}

// acquireContainer clones the declared sandbox template when the document
// has one, else synthesizes a hidden, non-interactive container.
func (d *Document) acquireContainer() *html.Node {
	container := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
		Attr: []html.Attribute{
			{Key: "data-sandbox", Val: "true"},
			{Key: "style", Val: "display:none"},
			{Key: "aria-hidden", Val: "true"},
		},
	}
	if tpl := d.Query(SandboxTemplateSelector); tpl != nil {
		for c := tpl.FirstChild; c != nil; c = c.NextSibling {
			container.AppendChild(cloneNode(c))
		}
	}
	return container
}

// InstantiateFixture locates the template addressed by selector, clones
// its content and appends the clone into the sandbox container. The three
// failure points surface as distinct FixtureError kinds.
func (s *Sandbox) InstantiateFixture(selector string) error {
	tpl := s.doc.Query(selector)
	if tpl == nil {
		return &FixtureError{Kind: FixtureTemplateNotFound, Selector: selector}
	}

	clones, err := cloneChildren(tpl)
	if err != nil {
		return &FixtureError{Kind: FixtureCloneFailed, Selector: selector, Err: err}
	}

	for _, c := range clones {
		if c.Parent != nil {
			return &FixtureError{
				Kind:     FixtureAttachFailed,
				Selector: selector,
				Err:      fmt.Errorf("clone already attached"),
			}
		}
		s.Container.AppendChild(c)
	}
	return nil
}

func cloneChildren(n *html.Node) ([]*html.Node, error) {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, cloneNode(c))
	}
	if out == nil {
		return nil, fmt.Errorf("template has no content")
	}
	return out, nil
}

// cloneNode deep-copies a node subtree, leaving the copy detached
func cloneNode(n *html.Node) *html.Node {
	clone := &html.Node{
		Type:     n.Type,
		DataAtom: n.DataAtom,
		Data:     n.Data,
		Attr:     append([]html.Attribute(nil), n.Attr...),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		clone.AppendChild(cloneNode(c))
	}
	return clone
}
