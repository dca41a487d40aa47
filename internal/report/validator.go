package report

import (
	"regexp"
	"strings"
)

// Each fragment of the report body must match a strict structural grammar
// before it is accepted into the document.
var fragmentChecks = []struct {
	pattern *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`### \*\*.*?\*\*`), "missing title header, expected ### **Title**"},
	{regexp.MustCompile(`\[Read source\]\(.*?\)`), "missing [Read source](url) line"},
	{regexp.MustCompile(`> \*\*Summary\*\*:.*`), "missing > **Summary**: blockquote"},
	{regexp.MustCompile(`\*\*Details\*\*`), "missing **Details** section header"},
	{regexp.MustCompile(`- \*\*.*?\*\*`), "missing bolded sub-point, expected - **Point**"},
}

// ValidateFragment checks one markdown fragment against the required
// structural patterns. It returns every violation so the repair prompt can
// name them all at once.
func ValidateFragment(markdown string) []string {
	var errs []string
	for _, check := range fragmentChecks {
		if !check.pattern.MatchString(markdown) {
			errs = append(errs, check.message)
		}
	}
	return errs
}

// highlightLine matches one entry of the highlights list and captures its
// tag and title.
var highlightLine = regexp.MustCompile(`\*\s+\*\*\[\[(.+?)\]\]\*\*\s+\[\*\*(.+?)\*\*\]`)

// ValidHighlights reports whether the highlights list contains at least one
// correctly tagged entry.
func ValidHighlights(content string) bool {
	return strings.Contains(content, "**[[") && highlightLine.MatchString(content)
}

// linkPattern extracts every markdown link target from a fragment body.
var linkPattern = regexp.MustCompile(`\[[^\]]*\]\((https?://[^)]+)\)`)

// ExtractLinks returns all URLs cited in the given markdown.
func ExtractLinks(markdown string) []string {
	matches := linkPattern.FindAllStringSubmatch(markdown, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, m[1])
	}
	return urls
}
