package references

import (
	"strings"

	"curator/internal/core"
)

// Reference kinds.
const (
	KindPaper = "paper"
	KindOther = "other"
)

// FrontierTag groups retrieved papers that no news item claimed.
const FrontierTag = "Frontier Research"

// DefaultTag is the grouping fallback when neither the highlights list nor
// the fragment categories know an item.
const DefaultTag = "Industry"

// Reference is one entry of the Further Reading section.
type Reference struct {
	Title string
	URL   string
	Kind  string // KindPaper or KindOther
	Label string // Source label rendered after the link (e.g. "arXiv", "GitHub")
	Tag   string // Topic tag used for grouping
}

// Group is one tag section of the Further Reading list.
type Group struct {
	Tag  string
	Refs []Reference
}

// TitleTag pairs a news title with the topic tag the highlights list gave
// it; order carries the presentation order of the tags.
type TitleTag struct {
	Title string
	Tag   string
}

// Quota bounds the final reference list: at most MaxTotal entries, of which
// at most MaxPapers of paper kind, with two-way backfill when either kind
// is scarce.
type Quota struct {
	MaxTotal  int
	MaxPapers int
}

// DefaultQuota is the production allocation.
func DefaultQuota() Quota {
	return Quota{MaxTotal: 25, MaxPapers: 15}
}

// CanonicalURL normalizes a URL for deduplication: trailing slash removed,
// and the arXiv /pdf/ form folded into the /abs/ form so the two variants
// of one record count as one.
func CanonicalURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	if strings.Contains(u, "arxiv.org/pdf/") {
		u = strings.Replace(u, "/pdf/", "/abs/", 1)
	}
	return u
}

// socialShareHosts mark share-intent URLs that are never worth citing.
var socialShareFragments = []string{
	"facebook.com/sharer",
	"twitter.com/intent",
	"linkedin.com/share",
	"reddit.com/submit",
	"weibo.com",
}

// validRefLink rejects share links and bare domains; a URL with fewer than
// three slashes is a homepage, not an article.
func validRefLink(url, title string) bool {
	if url == "" || title == "" {
		return false
	}
	for _, frag := range socialShareFragments {
		if strings.Contains(url, frag) {
			return false
		}
	}
	return strings.Count(url, "/") >= 3
}

// BuildList merges retrieved papers with the citation links carried on
// items, deduplicates by canonical URL, applies the quota, and groups the
// final references by topic tag. usedURLs holds canonical URLs already
// cited in the report body; those are excluded here.
func BuildList(
	papers []core.Paper,
	items []*core.NewsItem,
	usedURLs map[string]bool,
	titleTags []TitleTag,
	categories map[string]string,
	quota Quota,
) []Group {
	seen := make(map[string]bool, len(usedURLs))
	for u := range usedURLs {
		seen[CanonicalURL(u)] = true
	}

	var paperRefs, otherRefs []Reference

	// Retrieved papers that the report body did not already cite.
	for _, paper := range papers {
		key := CanonicalURL(paper.URL)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		paperRefs = append(paperRefs, Reference{
			Title: paper.Title,
			URL:   paper.URL,
			Kind:  KindPaper,
			Label: paper.Source,
			Tag:   FrontierTag,
		})
	}

	// Citation links scraped alongside the items, tagged by topic.
	for _, item := range items {
		tag := tagFor(item, titleTags, categories)
		for _, link := range item.CitationLinks {
			key := CanonicalURL(link.URL)
			if key == "" || seen[key] || !validRefLink(link.URL, link.Title) {
				continue
			}
			seen[key] = true
			ref := Reference{
				Title: link.Title,
				URL:   link.URL,
				Kind:  kindFor(link),
				Label: link.Kind,
				Tag:   tag,
			}
			if ref.Kind == KindPaper {
				paperRefs = append(paperRefs, ref)
			} else {
				otherRefs = append(otherRefs, ref)
			}
		}
	}

	final := applyQuota(paperRefs, otherRefs, quota)
	return groupByTag(final, titleTags)
}

// applyQuota takes papers first up to MaxPapers, fills the remainder with
// other-kind candidates, then backfills leftover slots with more papers.
func applyQuota(papers, others []Reference, quota Quota) []Reference {
	if quota.MaxTotal <= 0 {
		quota = DefaultQuota()
	}

	final := make([]Reference, 0, quota.MaxTotal)

	takePapers := quota.MaxPapers
	if takePapers > len(papers) {
		takePapers = len(papers)
	}
	final = append(final, papers[:takePapers]...)

	takeOthers := quota.MaxTotal - len(final)
	if takeOthers > len(others) {
		takeOthers = len(others)
	}
	final = append(final, others[:takeOthers]...)

	if rest := quota.MaxTotal - len(final); rest > 0 && len(papers) > takePapers {
		if rest > len(papers)-takePapers {
			rest = len(papers) - takePapers
		}
		final = append(final, papers[takePapers:takePapers+rest]...)
	}

	return final
}

// groupByTag orders groups by the highlights' tag order, then the frontier
// bucket, then any remaining tags in first-seen order.
func groupByTag(refs []Reference, titleTags []TitleTag) []Group {
	byTag := make(map[string][]Reference)
	var seenOrder []string
	for _, ref := range refs {
		if _, ok := byTag[ref.Tag]; !ok {
			seenOrder = append(seenOrder, ref.Tag)
		}
		byTag[ref.Tag] = append(byTag[ref.Tag], ref)
	}

	var groups []Group
	emitted := make(map[string]bool)

	emit := func(tag string) {
		if emitted[tag] {
			return
		}
		if refs, ok := byTag[tag]; ok {
			groups = append(groups, Group{Tag: tag, Refs: refs})
			emitted[tag] = true
		}
	}

	for _, tt := range titleTags {
		emit(tt.Tag)
	}
	emit(FrontierTag)
	for _, tag := range seenOrder {
		emit(tag)
	}

	return groups
}

func tagFor(item *core.NewsItem, titleTags []TitleTag, categories map[string]string) string {
	for _, tt := range titleTags {
		if tt.Title == item.Title {
			return tt.Tag
		}
	}
	if tag, ok := categories[item.ItemID]; ok && tag != "" {
		return tag
	}
	return DefaultTag
}

func kindFor(link core.CitationLink) string {
	if strings.Contains(link.URL, "arxiv.org") || strings.EqualFold(link.Kind, "paper") {
		return KindPaper
	}
	return KindOther
}
