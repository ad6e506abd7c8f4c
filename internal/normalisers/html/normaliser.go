package html

import (
	"html"
	"path"
	"regexp"
	"strings"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML pages published by framework sites. A page
// becomes one Reference.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".html", ".htm"}
}

// Normalise converts an HTML page into a single Reference. Reference
// metadata is read from <meta> tags named severity, category, status and
// keywords.
func (n *Normaliser) Normalise(frameworkID, resourceID string, data []byte) (*driven.NormaliseResult, error) {
	raw := string(data)
	if !strings.Contains(raw, "<") {
		return nil, &domain.MalformedContentError{ResourceID: resourceID, Reason: "no markup"}
	}

	content := stripHTML(raw)
	if content == "" {
		return nil, &domain.MalformedContentError{ResourceID: resourceID, Reason: "no text content"}
	}

	meta := extractMeta(raw)
	ref := domain.Reference{
		FrameworkID: frameworkID,
		ID:          stem(resourceID),
		Title:       extractHTMLTitle(raw, resourceID),
		Content:     content,
		Category:    meta["category"],
		Status:      meta["status"],
		Sections:    extractSections(raw),
		Tags:        splitKeywords(meta["keywords"]),
	}
	if v := meta["severity"]; v != "" {
		sev, err := domain.ParseSeverity(v)
		if err != nil {
			return nil, &domain.MalformedContentError{ResourceID: resourceID, Reason: err.Error()}
		}
		ref.Severity = sev
	}
	return &driven.NormaliseResult{References: []domain.Reference{ref}}, nil
}

var (
	titleTag    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	h1Tag       = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	sectionTags = regexp.MustCompile(`(?is)<h[23][^>]*>(.*?)</h[23]>`)
	metaTag     = regexp.MustCompile(`(?is)<meta\s+[^>]*>`)
	metaAttr    = regexp.MustCompile(`(?is)(name|content)\s*=\s*"([^"]*)"`)

	// dropped removes elements whose text is never reference content.
	dropped = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
		regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`),
		regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`),
		regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`),
		regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`),
		regexp.MustCompile(`(?s)<!--.*?-->`),
	}

	// breaks become line breaks before tags are stripped.
	breaks = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`),
		regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`),
		regexp.MustCompile(`(?i)<(br|hr)\s*/?>`),
	}

	allTags       = regexp.MustCompile(`<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// extractMeta collects name/content pairs of <meta> tags, names lower-cased.
func extractMeta(content string) map[string]string {
	meta := make(map[string]string)
	for _, tag := range metaTag.FindAllString(content, -1) {
		var name, value string
		for _, m := range metaAttr.FindAllStringSubmatch(tag, -1) {
			switch strings.ToLower(m[1]) {
			case "name":
				name = strings.ToLower(strings.TrimSpace(m[2]))
			case "content":
				value = strings.TrimSpace(html.UnescapeString(m[2]))
			}
		}
		if name != "" && value != "" {
			meta[name] = value
		}
	}
	return meta
}

func splitKeywords(v string) []string {
	var tags []string
	for _, t := range strings.Split(v, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// inlineText strips tags from a heading and decodes entities.
func inlineText(s string) string {
	s = allTags.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(multiSpaces.ReplaceAllString(s, " "))
}

// extractHTMLTitle uses <title>, then the first <h1>, then the file name.
func extractHTMLTitle(content, resourceID string) string {
	for _, re := range []*regexp.Regexp{titleTag, h1Tag} {
		if m := re.FindStringSubmatch(content); len(m) > 1 {
			if title := inlineText(m[1]); title != "" {
				return title
			}
		}
	}
	return strings.NewReplacer("_", " ", "-", " ").Replace(stem(resourceID))
}

func extractSections(content string) []string {
	var sections []string
	for _, m := range sectionTags.FindAllStringSubmatch(content, -1) {
		if s := inlineText(m[1]); s != "" {
			sections = append(sections, s)
		}
	}
	return sections
}

func stem(resourceID string) string {
	name := path.Base(resourceID)
	return strings.TrimSuffix(name, path.Ext(name))
}

// stripHTML reduces a page to its readable text, one block per line.
func stripHTML(content string) string {
	for _, re := range dropped {
		content = re.ReplaceAllString(content, "")
	}
	for _, re := range breaks {
		content = re.ReplaceAllString(content, "\n")
	}
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")
	content = multiNewlines.ReplaceAllString(content, "\n\n")

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
