package util

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// LineColumn translates a byte offset of src into a zero-based line and
// column. Columns count runes, so multi-byte characters take one column.
// Offsets past the end are clamped to the end of src.
func LineColumn(src []byte, pos int) (line int, column int) {
	if pos > len(src) {
		pos = len(src)
	}
	if pos < 0 {
		pos = 0
	}

	lineStart := 0
	for i := 0; i < pos; i++ {
		if src[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	column = utf8.RuneCount(src[lineStart:pos])
	return
}

// GetLineAndColumn is LineColumn made one-based, the way errors are shown.
func GetLineAndColumn(src []byte, pos int) (line int, column int) {
	line, column = LineColumn(src, pos)
	return line + 1, column + 1
}

// GetContextLines renders up to two lines before the one holding pos, then
// that line with a caret under the offending column.
func GetContextLines(src []byte, pos int) string {
	var result bytes.Buffer

	errorLine, errorCol := LineColumn(src, pos)
	lines := strings.Split(string(src), "\n")

	startLine := errorLine - 2
	if startLine < 0 {
		startLine = 0
	}

	for i := startLine; i <= errorLine && i < len(lines); i++ {
		lineContent := strings.TrimRight(lines[i], "\r")

		if i == errorLine {
			margin := fmt.Sprintf("  >  %3d | ", i+1)
			result.WriteString(fmt.Sprintf("%s%s\n", margin, lineContent))
			result.WriteString(fmt.Sprintf("%s^ here",
				replaceVisibleWithSpaces(margin+prefixRunes(lineContent, errorCol))))
		} else {
			result.WriteString(fmt.Sprintf("     %3d | %s\n", i+1, lineContent))
		}
	}

	return result.String()
}

func prefixRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

// replaceVisibleWithSpaces replaces all non-whitespace characters with spaces
// while preserving tabs for correct alignment.
func replaceVisibleWithSpaces(s string) string {
	var buf bytes.Buffer
	for _, c := range s {
		if c == '\t' {
			buf.WriteRune('\t')
		} else {
			buf.WriteRune(' ')
		}
	}
	return buf.String()
}
