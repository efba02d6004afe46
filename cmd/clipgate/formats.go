package main

import (
	"fmt"
	"strconv"
	"strings"

	"go.klb.dev/clipgate/internal/native"
	"go.klb.dev/clipgate/internal/textfmt"
)

var formatAliases = map[string]uint32{
	"text":    native.CFUnicodeText,
	"unicode": native.CFUnicodeText,
	"ansi":    native.CFText,
	"oemtext": native.CFOEMText,
	"bitmap":  native.CFBitmap,
	"dib":     native.CFDIB,
	"dibv5":   native.CFDIBV5,
	"hdrop":   native.CFHDrop,
	"locale":  native.CFLocale,
}

// wellKnownFormats is the order probe reports availability in.
var wellKnownFormats = []uint32{
	native.CFUnicodeText,
	native.CFText,
	native.CFOEMText,
	native.CFLocale,
	native.CFBitmap,
	native.CFDIB,
	native.CFDIBV5,
	native.CFHDrop,
}

// parseFormat accepts an alias ("text"), a standard name ("CF_TEXT") or a
// numeric id ("13", "0xC0F1").
func parseFormat(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if id, ok := formatAliases[strings.ToLower(s)]; ok {
		return id, nil
	}
	for _, id := range wellKnownFormats {
		if strings.EqualFold(s, native.FormatName(id)) {
			return id, nil
		}
	}
	id, err := strconv.ParseUint(s, 0, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("unknown clipboard format %q", s)
	}
	return uint32(id), nil
}

func formatLabel(id uint32) string {
	if name := native.FormatName(id); name != "" {
		return name
	}
	return fmt.Sprintf("%#x", id)
}

func isText(id uint32) bool {
	return id == native.CFUnicodeText || id == native.CFText || id == native.CFOEMText
}

// encodePayload converts stdin bytes into the clipboard representation of
// format. Non-text formats are copied verbatim.
func encodePayload(id uint32, data []byte) []byte {
	switch id {
	case native.CFUnicodeText:
		return textfmt.EncodeUnicode(string(data))
	case native.CFText, native.CFOEMText:
		return textfmt.EncodeANSI(string(data))
	default:
		return data
	}
}

// decodePayload is the inverse of encodePayload.
func decodePayload(id uint32, data []byte) []byte {
	switch id {
	case native.CFUnicodeText:
		return []byte(textfmt.DecodeUnicode(data))
	case native.CFText, native.CFOEMText:
		return []byte(textfmt.DecodeANSI(data))
	default:
		return data
	}
}
