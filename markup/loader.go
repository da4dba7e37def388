// Package markup builds component trees from XML documents. Every element tag
// becomes a styled native component, attributes become props.
package markup

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"github.com/maruel/natural"
	"go.uber.org/zap"

	"ncss/host"
	"ncss/proxy"
)

// Attributes with special meaning, everything else is passed as string prop.
const (
	attrClass = "class"
	attrStyle = "style"
	attrKey   = "key"

	// PropText holds trimmed character data of an element.
	PropText = "text"

	// styleTag elements are not rendered, their content is collected as
	// stylesheet text.
	styleTag = "style"
)

// Document is a loaded markup tree.
type Document struct {
	Root   host.Element
	Styles []string // content of <style> elements in document order
	Source string
}

// Loader turns XML into elements. Component types are memoized per tag so
// trees loaded by the same loader reconcile with each other.
type Loader struct {
	log    *zap.Logger
	styler *proxy.Styler
	types  map[string]host.Component
}

// NewLoader creates loader wrapping components with styler.
func NewLoader(styler *proxy.Styler, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	if styler == nil {
		styler = proxy.New(proxy.WithLogger(log))
	}
	return &Loader{
		log:    log.Named("markup"),
		styler: styler,
		types:  make(map[string]host.Component),
	}
}

// Component returns styled component for tag.
func (l *Loader) Component(tag string) host.Component {
	tag = strings.ToLower(tag)
	if c, ok := l.types[tag]; ok {
		return c
	}
	c := l.styler.Wrap(tag, host.NewNative(tag))
	l.types[tag] = c
	return c
}

// Tags returns tags seen so far in natural order.
func (l *Loader) Tags() []string {
	tags := make([]string, 0, len(l.types))
	for tag := range l.types {
		tags = append(tags, tag)
	}
	slices.SortFunc(tags, func(a, b string) int {
		switch {
		case natural.Less(a, b):
			return -1
		case natural.Less(b, a):
			return 1
		}
		return 0
	})
	return tags
}

// LoadFile loads markup from file.
func (l *Loader) LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open markup: %w", err)
	}
	defer f.Close()

	doc, err := l.Load(f)
	if err != nil {
		return nil, err
	}
	doc.Source = path
	return doc, nil
}

// Load reads markup from r.
func (l *Loader) Load(r io.Reader) (*Document, error) {
	xml := etree.NewDocument()
	xml.ReadSettings = etree.ReadSettings{
		Permissive: true,
	}
	if _, err := xml.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("unable to read markup: %w", err)
	}
	root := xml.Root()
	if root == nil {
		return nil, fmt.Errorf("markup has no root element")
	}
	if strings.EqualFold(root.Tag, styleTag) {
		return nil, fmt.Errorf("markup root must not be <%s>", styleTag)
	}

	doc := &Document{}
	doc.Root = l.element(root, doc)
	l.log.Debug("Markup loaded", zap.Int("styles", len(doc.Styles)), zap.Strings("tags", l.Tags()))
	return doc, nil
}

func (l *Loader) element(e *etree.Element, doc *Document) host.Element {
	props := make(host.Props, len(e.Attr)+1)
	var key string
	for _, a := range e.Attr {
		switch a.Key {
		case attrClass:
			props[proxy.PropClassName] = a.Value
		case attrStyle:
			props[proxy.PropStyle] = a.Value
		case attrKey:
			key = a.Value
		default:
			props[a.Key] = a.Value
		}
	}
	if text := charData(e); text != "" {
		props[PropText] = text
	}

	var children []host.Element
	for _, c := range e.ChildElements() {
		if strings.EqualFold(c.Tag, styleTag) {
			doc.Styles = append(doc.Styles, c.Text())
			continue
		}
		children = append(children, l.element(c, doc))
	}

	el := host.New(l.Component(e.Tag), props, l.styler.Annotate(children...)...)
	el.Key = key
	return el
}

// charData joins direct text of element collapsing whitespace.
func charData(e *etree.Element) string {
	var sb strings.Builder
	for _, tok := range e.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			sb.WriteString(cd.Data)
			sb.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
