package markdown

import (
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown write-ups. Each file holds exactly one Reference.
//
// The layout it understands:
//
//	# LLM01: Prompt Injection
//	Severity: High
//	Tags: injection, input handling
//	Status: final
//
//	## Description
//	...
//
// The H1 gives the title, optionally prefixed with "ID:". H2 and H3 headings
// become sections. Metadata lines may appear anywhere before the first H2.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Pre-compiled regular expressions for markdown parsing.
var (
	titleWithID   = regexp.MustCompile(`^([A-Za-z.]*[0-9][A-Za-z0-9.\-]*)\s*[:\-]\s+(.+)$`)
	metadataLine  = regexp.MustCompile(`^\**([A-Za-z]+)\**\s*:\**\s*(.*)$`)
	codeBlock     = regexp.MustCompile("(?s)```[^`]*```")
	inlineCode    = regexp.MustCompile("`[^`]+`")
	images        = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquote    = regexp.MustCompile(`(?m)^>\s*`)
	hr            = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	listMarkers   = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedList  = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Normalise parses one markdown resource into a single Reference.
func (n *Normaliser) Normalise(frameworkID, resourceID string, data []byte) (*driven.NormaliseResult, error) {
	if !utf8.Valid(data) {
		return nil, &domain.MalformedContentError{ResourceID: resourceID, Reason: "not valid UTF-8"}
	}

	ref := domain.Reference{FrameworkID: frameworkID}
	var body []string
	inHeader := true
	inFence := false

	for _, line := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
		}
		if inFence {
			body = append(body, line)
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "# ") && ref.Title == "":
			id, title := splitTitle(strings.TrimSpace(strings.TrimPrefix(trimmed, "#")))
			if id != "" && ref.ID == "" {
				ref.ID = id
			}
			ref.Title = title
			continue
		case strings.HasPrefix(trimmed, "## "), strings.HasPrefix(trimmed, "### "):
			inHeader = false
			ref.Sections = append(ref.Sections, strings.TrimSpace(strings.TrimLeft(trimmed, "#")))
		case inHeader:
			if ok, err := applyMetadata(&ref, trimmed); err != nil {
				return nil, &domain.MalformedContentError{ResourceID: resourceID, Reason: err.Error()}
			} else if ok {
				continue
			}
		}
		body = append(body, line)
	}

	if ref.Title == "" {
		ref.Title = titleFromPath(resourceID)
	}
	if ref.ID == "" {
		ref.ID = idFromPath(resourceID)
	}
	ref.Content = stripMarkdown(strings.Join(body, "\n"))

	if ref.Content == "" && len(ref.Sections) == 0 {
		return nil, &domain.MalformedContentError{ResourceID: resourceID, Reason: "no content"}
	}

	return &driven.NormaliseResult{References: []domain.Reference{ref}}, nil
}

// splitTitle separates an "LLM01: Prompt Injection" heading into ID and title.
func splitTitle(h1 string) (string, string) {
	if m := titleWithID.FindStringSubmatch(h1); m != nil {
		return m[1], strings.TrimSpace(m[2])
	}
	return "", h1
}

// applyMetadata consumes a "Key: value" header line. Unknown keys are body text.
func applyMetadata(ref *domain.Reference, line string) (bool, error) {
	m := metadataLine.FindStringSubmatch(line)
	if m == nil {
		return false, nil
	}
	value := strings.TrimSpace(strings.Trim(m[2], "*"))

	switch strings.ToLower(m[1]) {
	case "id":
		ref.ID = value
	case "severity":
		sev, err := domain.ParseSeverity(value)
		if err != nil {
			return false, err
		}
		ref.Severity = sev
	case "tags":
		for _, tag := range strings.Split(value, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				ref.Tags = append(ref.Tags, tag)
			}
		}
	case "status":
		ref.Status = strings.ToLower(value)
	case "category":
		ref.Category = strings.ToLower(value)
	default:
		return false, nil
	}
	return true, nil
}

// idFromPath derives a reference ID from the file name.
func idFromPath(resourceID string) string {
	name := path.Base(resourceID)
	return strings.TrimSuffix(name, path.Ext(name))
}

// titleFromPath builds a readable title from the file name.
func titleFromPath(resourceID string) string {
	title := idFromPath(resourceID)
	title = strings.ReplaceAll(title, "_", " ")
	title = strings.ReplaceAll(title, "-", " ")
	return title
}

// stripMarkdown removes common markdown formatting for plain text content.
// This is a simplified implementation that handles common cases.
func stripMarkdown(content string) string {
	content = codeBlock.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "")
	content = images.ReplaceAllString(content, "")

	// Keep link text only
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")

	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")
	content = strings.ReplaceAll(content, "_", " ")

	content = blockquote.ReplaceAllString(content, "")
	content = hr.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	content = multiNewlines.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}
