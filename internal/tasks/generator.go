package tasks

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"sf-clicktask-backend/internal/storage"
)

var (
	labelRe       = regexp.MustCompile(`\[(?:aria-label|data-label|title)="([^"]*)"\]`)
	placeholderRe = regexp.MustCompile(`\[placeholder="([^"]*)"\]`)
)

// GenerateName turns a captured selector and its visible text into a short
// action description. Rules are checked in order and the first match wins.
func GenerateName(selector, text string) string {
	sel := strings.ToLower(selector)
	text = strings.TrimSpace(text)
	label := attr(labelRe, selector)

	switch {
	case strings.Contains(sel, "input"):
		target := firstNonEmpty(label, attr(placeholderRe, selector), "input")
		return fmt.Sprintf("Enter value in %s field", target)
	case strings.Contains(sel, "select") || strings.Contains(sel, "combobox"):
		return fmt.Sprintf("Select %s from %s dropdown", firstNonEmpty(text, "value"), firstNonEmpty(label, "the"))
	case strings.Contains(sel, "button"):
		return "Click " + firstNonEmpty(text, "button")
	case strings.Contains(sel, "a["):
		return "Navigate to " + firstNonEmpty(text, "link")
	default:
		return "Click in " + firstNonEmpty(text, "element")
	}
}

// FromCapture builds the task derived from c. Generated tasks are stored as
// completed and carry the capture itself as clickData.
func FromCapture(c storage.ClickCapture, section string) (storage.NewTask, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return storage.NewTask{}, fmt.Errorf("encode click data: %w", err)
	}
	clickData := string(raw)

	text := strings.TrimSpace(c.Text())
	return storage.NewTask{
		Name:      GenerateName(c.ElementSelector, text),
		Element:   firstNonEmpty(text, c.ElementSelector),
		Section:   section,
		Status:    storage.StatusCompleted,
		ClickData: &clickData,
	}, nil
}

func attr(re *regexp.Regexp, selector string) string {
	m := re.FindStringSubmatch(selector)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
