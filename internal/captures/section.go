package captures

import "strings"

// DefaultSection labels URLs that match no known area.
const DefaultSection = "General"

var sectionTable = []struct {
	key   string
	label string
}{
	{"home", "Home Dashboard"},
	{"profile", "Employee Profile"},
	{"directory", "Employee Directory"},
	{"learning", "Learning Management"},
	{"performance", "Performance Management"},
	{"goals", "Goal Management"},
	{"compensation", "Compensation"},
	{"timeoff", "Time Off"},
	{"recruiting", "Recruiting"},
	{"onboarding", "Onboarding"},
	{"admin", "Administration"},
}

// ExtractSection maps a page URL to its section label. The table is ordered
// and the first key found anywhere in the URL wins.
func ExtractSection(url string) string {
	u := strings.ToLower(url)
	for _, s := range sectionTable {
		if strings.Contains(u, s.key) {
			return s.label
		}
	}
	return DefaultSection
}
