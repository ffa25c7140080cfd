package extension

import "regexp"

var interactiveTags = map[string]bool{
	"button":   true,
	"a":        true,
	"input":    true,
	"select":   true,
	"textarea": true,
}

var excludedClasses = []*regexp.Regexp{
	regexp.MustCompile(`sapUiBody`),
	regexp.MustCompile(`sapUiGlobalContainer`),
	regexp.MustCompile(`(?i)scroll`),
	regexp.MustCompile(`(?i)loading`),
}

// IsRelevant decides whether a click is worth sending. The selector must
// still resolve in the page, the element must be interactive and its class
// must not look like page chrome. Meaningful text alone does not make a
// non-interactive element relevant.
func IsRelevant(p *Page, c ClickData) bool {
	el, ok := p.Query(c.ElementSelector)
	if !ok {
		return false
	}

	interactive := interactiveTags[c.ElementType] ||
		el.HasAttr("onclick") ||
		el.HasAttr("ng-click") ||
		el.HasClass("sapMBtn") ||
		el.HasClass("sapUiBtn") ||
		el.Attr("role") == "button"

	for _, re := range excludedClasses {
		if re.MatchString(c.ElementClass) {
			return false
		}
	}

	return interactive
}
