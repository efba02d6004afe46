package main

import (
	"context"
	"log/slog"
)

// logPayload logs a clipboard transfer at INFO (format, size) and DEBUG (text
// preview up to 120 chars).
func logPayload(event string, format uint32, data []byte) {
	slog.Info(event, "format", formatLabel(format), "size_bytes", len(data))

	if !isText(format) || !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	preview := []rune(string(decodePayload(format, data)))
	if len(preview) > 120 {
		preview = append(preview[:120], '…')
	}
	slog.Debug("clipboard text", "format", formatLabel(format), "preview", string(preview))
}
