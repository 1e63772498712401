package ffmpeg

import (
	"fmt"
	"os"
	"strings"
)

// ConcatLine renders one entry for a concat demuxer input list. The
// demuxer parses single-quoted paths, so embedded quotes use the
// close-escape-reopen sequence and control characters that would break
// the line-oriented format are stripped.
func ConcatLine(path string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', 0:
			return -1
		}
		return r
	}, path)
	escaped := strings.ReplaceAll(cleaned, "'", `'\''`)
	return fmt.Sprintf("file '%s'\n", escaped)
}

// WriteConcatFile writes a concat demuxer input list covering the given
// paths, in order, to dest.
func WriteConcatFile(dest string, paths []string) error {
	var builder strings.Builder
	for _, path := range paths {
		builder.WriteString(ConcatLine(path))
	}
	if err := os.WriteFile(dest, []byte(builder.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}
