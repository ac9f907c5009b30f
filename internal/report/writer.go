// Package report serializes analysis results to the output stream.
package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// Write encodes v as a single JSON object followed by a newline. HTML
// characters are written as-is.
func Write(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
