// Package plaintext provides a Normaliser for plain text resources.
package plaintext
