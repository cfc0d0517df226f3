package scratch

import (
	"fmt"
	"io"
	"strings"

	"github.com/valyala/fasttemplate"
	"golang.org/x/text/unicode/norm"
)

// Template fields understood by FormatFilename.
const (
	fieldTimestamp = "timestamp"
	fieldExtension = "extension"
)

// FormatFilename substitutes timestamp and extension into format.
//
// Fields are written as {timestamp} and {extension}; any other field is an
// error. The result is NFC-normalised and must be a bare file name.
func FormatFilename(format, timestamp, extension string) (string, error) {
	name, err := fasttemplate.ExecuteFuncStringWithErr(format, "{", "}", func(w io.Writer, tag string) (int, error) {
		switch strings.TrimSpace(tag) {
		case fieldTimestamp:
			return io.WriteString(w, timestamp)
		case fieldExtension:
			return io.WriteString(w, extension)
		default:
			return 0, fmt.Errorf("unknown field {%s}", tag)
		}
	})
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidFilenameFormat, format, err)
	}

	name = norm.NFC.String(name)
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q renders an empty name", ErrInvalidFilenameFormat, format)
	}
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q renders a path, not a file name", ErrInvalidFilenameFormat, format)
	}
	return name, nil
}

// SplitExt splits name into base and extension at the last dot. Leading dots
// never start an extension, so ".profile" has none.
func SplitExt(name string) (base, ext string) {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 {
		return name, ""
	}
	if strings.TrimLeft(name[:dot], ".") == "" {
		return name, ""
	}
	return name[:dot], name[dot:]
}

// CollisionName returns the n-th alternative for name: "{base}_{n}{ext}".
func CollisionName(name string, n int) string {
	base, ext := SplitExt(name)
	return fmt.Sprintf("%s_%d%s", base, n, ext)
}
