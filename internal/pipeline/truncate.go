package pipeline

const (
	maxOutputLen       = 65536
	maxParentSnippet   = 500
	truncationEllipsis = "\n...[truncated]"
)

// TruncateOutput caps a step's raw output at 65,536 chars, appending an
// ellipsis marker so downstream readers can tell the value was cut.
func TruncateOutput(output string) string {
	if len(output) <= maxOutputLen {
		return output
	}
	return output[:maxOutputLen-len(truncationEllipsis)] + truncationEllipsis
}

// TruncateParentSnippet caps the amount of a parent step's output folded
// into a child step's input context, per parent, so a wide fan-in can't
// blow out the next step's prompt budget on its own.
func TruncateParentSnippet(output string) string {
	if len(output) <= maxParentSnippet {
		return output
	}
	return output[:maxParentSnippet-len(truncationEllipsis)] + truncationEllipsis
}
