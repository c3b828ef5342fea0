// Package encoding provides text helpers for names stored in mesh files.
package encoding

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// DecodeName converts a stored name to a UTF-8 string. Valid UTF-8 is
// NFC-normalized; anything else is decoded as Windows-1252, which is what
// older DCC exporters wrote. Trailing NUL bytes are dropped.
func DecodeName(data []byte) string {
	data = bytes.TrimRight(data, "\x00")
	if utf8.Valid(data) {
		return norm.NFC.String(string(data))
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("�")))
	}
	return norm.NFC.String(string(decoded))
}

// EncodeName returns the NFC-normalized UTF-8 bytes of s. Invalid UTF-8
// sequences are replaced with U+FFFD.
func EncodeName(s string) []byte {
	b := bytes.ToValidUTF8([]byte(s), []byte("�"))
	return norm.NFC.Bytes(b)
}
