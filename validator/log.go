package validator

import "log/slog"

// warn reports a failed check the way the rest of the module pipeline
// logs: structured, with the violated rule's tag as a field rather than
// folded into the message text, so a log pipeline can filter or count by
// tag without parsing prose.
func warn(tag, msg string, args ...any) {
	slog.Warn(msg, append([]any{"tag", tag}, args...)...)
}

// bmRequestType layout (USB 2.0 table 9-2).
const (
	recipMask = uint8(0x1f)
	typeMask  = uint8(0x60)
)
