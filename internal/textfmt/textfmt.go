// Package textfmt encodes the two plain-text clipboard formats. CF_UNICODETEXT
// holds NUL-terminated UTF-16LE; CF_TEXT holds NUL-terminated bytes.
package textfmt

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// EncodeUnicode returns s as a CF_UNICODETEXT payload.
func EncodeUnicode(s string) []byte {
	b, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// The encoder replaces invalid UTF-8 rather than failing.
		b = nil
	}
	return append(b, 0, 0)
}

// DecodeUnicode returns the text of a CF_UNICODETEXT payload, stopping at
// the first NUL code unit. A trailing odd byte is ignored.
func DecodeUnicode(b []byte) string {
	n := len(b) &^ 1
	for i := 0; i+1 < n; i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			n = i
			break
		}
	}
	s, err := utf16le.NewDecoder().Bytes(b[:n])
	if err != nil {
		return ""
	}
	return string(s)
}

// EncodeANSI returns s as a CF_TEXT payload.
func EncodeANSI(s string) []byte {
	return append([]byte(s), 0)
}

// DecodeANSI returns the text of a CF_TEXT payload up to the first NUL.
func DecodeANSI(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
