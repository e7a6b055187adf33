package pdf2pptx

import (
	"fmt"
	"strings"
)

// Warning is a non-fatal issue met during a conversion. The deck was still
// produced, but it may lack notes or pages.
type Warning struct {
	Page    int // 1-based page number, 0 when the warning is about the document
	Message string
}

func (w Warning) String() string {
	if w.Page > 0 {
		return fmt.Sprintf("page %d: %s", w.Page, w.Message)
	}
	return w.Message
}

// FormatWarnings joins warnings into a single line-per-warning string.
func FormatWarnings(warnings []Warning) string {
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = w.String()
	}
	return strings.Join(lines, "\n")
}
