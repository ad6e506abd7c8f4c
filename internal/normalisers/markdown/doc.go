// Package markdown provides a Normaliser for Markdown risk and mitigation
// write-ups. A file yields one Reference with its H1 title, H2/H3 section
// headings, header metadata lines and plain-text content.
package markdown
