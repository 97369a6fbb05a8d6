// Package koi8 wraps the KOI8-R transcoding spec.md lists as an external
// collaborator (§1, §6): the core only needs byte-level encode/decode, not
// a from-scratch codec, so this leans on golang.org/x/text/encoding/charmap
// the way the wider example pack reaches for x/text for legacy encodings.
package koi8

import (
	"golang.org/x/text/encoding/charmap"
)

// Encode converts a UTF-8 Go string to its KOI8-R byte representation.
// Characters with no KOI8-R mapping produce an error, matching the source's
// UnicodeEncodeError behavior for #'string' value literals (spec.md §4.2).
func Encode(s string) ([]byte, error) {
	return charmap.KOI8R.NewEncoder().Bytes([]byte(s))
}

// Decode converts KOI8-R bytes to a UTF-8 Go string. No other package in
// this module calls it.
func Decode(b []byte) (string, error) {
	out, err := charmap.KOI8R.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// FromWindows1251 re-encodes Windows-1251 bytes as KOI8-R, backing the
// CONVERT1251TOKOI8R directive (spec.md §4.2's grammar list).
func FromWindows1251(b []byte) ([]byte, error) {
	utf, err := charmap.Windows1251.NewDecoder().Bytes(b)
	if err != nil {
		return nil, err
	}
	return charmap.KOI8R.NewEncoder().Bytes(utf)
}
