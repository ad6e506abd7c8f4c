// Package normalisers provides implementations of the Normaliser interface
// for the document formats frameworks are published in. Each normaliser
// turns the raw bytes of one resource into References and is selected by
// file extension.
//
// The framework loader registers every normaliser at startup via All.
package normalisers
