package logging

// MaxLogFieldLength limits how much of a command or its output ends up in a
// single structured log field.
const MaxLogFieldLength = 1024

// Truncate shortens s to MaxLogFieldLength, appending "..." when anything was
// cut off.
func Truncate(s string) string {
	if len(s) <= MaxLogFieldLength {
		return s
	}
	return s[:MaxLogFieldLength] + "..."
}
