// Package html provides a Normaliser for HTML pages. It extracts readable
// text, the page title and h2/h3 section headings, stripping scripts,
// styles and markup.
package html
