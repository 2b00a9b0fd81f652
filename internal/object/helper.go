package object

import (
	"bytes"
	"fmt"

	"oris/internal/util"
)

// RenderError formats err for a terminal: one-based line and column, the
// message, then the surrounding source with a caret under the position.
// Errors without a position render as their message alone.
func RenderError(src []byte, err error) string {
	pos, ok := Position(err)
	if !ok {
		return fmt.Sprintf("error: %s", err)
	}

	var buf bytes.Buffer

	l, c := util.GetLineAndColumn(src, pos)
	fmt.Fprintf(&buf, "error: %d:%d: %s\n", l, c, err)
	buf.WriteString(util.GetContextLines(src, pos))

	return buf.String()
}
