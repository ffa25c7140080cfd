package extension

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const maxTextLen = 200

// Page is a parsed DOM snapshot of the tab the agent runs in.
type Page struct {
	URL   string
	Title string
	doc   *goquery.Document
}

func ParsePage(html, pageURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return &Page{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		doc:   doc,
	}, nil
}

// Query returns the first element matching selector. Unparseable selectors
// match nothing.
func (p *Page) Query(selector string) (Element, bool) {
	if p == nil || strings.TrimSpace(selector) == "" {
		return Element{}, false
	}
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return Element{}, false
	}
	return Element{sel: sel}, true
}

func (p *Page) path() string {
	u, err := url.Parse(p.URL)
	if err != nil {
		return ""
	}
	return u.Path
}

// Element is a single node of a Page.
type Element struct {
	sel *goquery.Selection
}

func (e Element) Tag() string {
	return strings.ToLower(goquery.NodeName(e.sel))
}

func (e Element) ID() string {
	return e.Attr("id")
}

func (e Element) Attr(name string) string {
	v, _ := e.sel.Attr(name)
	return v
}

func (e Element) HasAttr(name string) bool {
	_, ok := e.sel.Attr(name)
	return ok
}

func (e Element) ClassName() string {
	return e.Attr("class")
}

func (e Element) Classes() []string {
	return strings.Fields(e.ClassName())
}

func (e Element) HasClass(name string) bool {
	return e.sel.HasClass(name)
}

// dataAttrs lists data-* attributes in document order.
func (e Element) dataAttrs() [][2]string {
	var out [][2]string
	if len(e.sel.Nodes) == 0 {
		return out
	}
	for _, a := range e.sel.Nodes[0].Attr {
		if strings.HasPrefix(a.Key, "data-") {
			out = append(out, [2]string{a.Key, a.Val})
		}
	}
	return out
}

// ClickData is everything the agent records about one click.
type ClickData struct {
	ElementSelector string    `json:"elementSelector"`
	ElementText     string    `json:"elementText"`
	ElementType     string    `json:"elementType"`
	ElementID       string    `json:"elementId"`
	ElementClass    string    `json:"elementClass"`
	PageURL         string    `json:"pageUrl"`
	PageTitle       string    `json:"pageTitle"`
	Timestamp       time.Time `json:"timestamp"`
	Section         string    `json:"section"`
	Module          string    `json:"module"`
}

func ExtractClick(p *Page, el Element, now time.Time) ClickData {
	return ClickData{
		ElementSelector: GenerateSelector(el),
		ElementText:     ElementText(el),
		ElementType:     el.Tag(),
		ElementID:       el.ID(),
		ElementClass:    el.ClassName(),
		PageURL:         p.URL,
		PageTitle:       p.Title,
		Timestamp:       now.UTC(),
		Section:         DetectSection(p),
		Module:          DetectModule(p),
	}
}

// GenerateSelector builds #id, or tag.c1.c2.c3 followed by at most two
// [data-x="v"] attributes.
func GenerateSelector(el Element) string {
	if id := el.ID(); id != "" {
		return "#" + id
	}

	var b strings.Builder
	b.WriteString(el.Tag())
	classes := el.Classes()
	if len(classes) > 3 {
		classes = classes[:3]
	}
	if len(classes) > 0 {
		b.WriteString("." + strings.Join(classes, "."))
	}

	attrs := el.dataAttrs()
	if len(attrs) > 2 {
		attrs = attrs[:2]
	}
	for _, a := range attrs {
		fmt.Fprintf(&b, `[%s="%s"]`, a[0], a[1])
	}
	return b.String()
}

// ElementText picks the first non-blank of the visible text and the usual
// label attributes, trimmed and capped at 200 characters.
func ElementText(el Element) string {
	candidates := []string{
		el.sel.Text(),
		el.Attr("title"),
		el.Attr("alt"),
		el.Attr("placeholder"),
		el.Attr("value"),
		el.Attr("aria-label"),
		el.Attr("data-original-title"),
	}
	for _, c := range candidates {
		if t := strings.TrimSpace(c); t != "" {
			r := []rune(t)
			if len(r) > maxTextLen {
				r = r[:maxTextLen]
			}
			return strings.TrimSpace(string(r))
		}
	}
	return ""
}

// DefaultSection is reported when neither the URL nor the title gives a hint.
const DefaultSection = "explorer"

type sectionPattern struct {
	name  string
	path  *regexp.Regexp
	title *regexp.Regexp
}

func newSectionPattern(name string, words ...string) sectionPattern {
	alt := strings.Join(words, "|")
	return sectionPattern{
		name:  name,
		path:  regexp.MustCompile(`(?i)/(?:` + alt + `)`),
		title: regexp.MustCompile(`(?i)\b(?:` + alt + `)\b`),
	}
}

var sectionPatterns = []sectionPattern{
	newSectionPattern("home", "home", "dashboard"),
	newSectionPattern("profile", "profile", "personal"),
	newSectionPattern("directory", "directory", "people"),
	newSectionPattern("learning", "learning", "lms"),
	newSectionPattern("performance", "performance", "goals"),
	newSectionPattern("compensation", "compensation", "pay"),
	newSectionPattern("timeoff", "timeoff", "leave"),
	newSectionPattern("recruiting", "recruiting", "jobs"),
	newSectionPattern("onboarding", "onboarding"),
	newSectionPattern("admin", "admin", "setup"),
}

// DetectSection guesses the area of the app from the URL path, then the
// full URL, then the page title.
func DetectSection(p *Page) string {
	path := p.path()
	for _, s := range sectionPatterns {
		if s.path.MatchString(path) || s.path.MatchString(p.URL) {
			return s.name
		}
	}
	for _, s := range sectionPatterns {
		if s.title.MatchString(p.Title) {
			return s.name
		}
	}
	return DefaultSection
}

var moduleRe = regexp.MustCompile(`/ui/([^/]+)`)

func DetectModule(p *Page) string {
	if el, ok := p.Query("[data-module], [data-app-id], .sapUiApp"); ok {
		if m := firstNonEmpty(el.Attr("data-module"), el.Attr("data-app-id")); m != "" {
			return m
		}
		return "unknown"
	}
	if m := moduleRe.FindStringSubmatch(p.path()); len(m) == 2 {
		return m[1]
	}
	return "unknown"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
