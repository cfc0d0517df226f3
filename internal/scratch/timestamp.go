package scratch

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/strftime"
)

// microsecondSuffix is appended to the timestamp pattern when microseconds
// are requested. The rendered value is then cut by subSecondTrim characters.
const (
	microsecondSuffix = "_%f"
	subSecondTrim     = 3
)

var timestampOptions = []strftime.Option{
	strftime.WithMicroseconds('f'),
}

// FormatTimestamp renders now according to cfg.
//
// Without UseMicroseconds the result is strftime(TimestampFormat). With it,
// the pattern TimestampFormat+"_%f" is rendered (six microsecond digits) and
// the last three characters are dropped.
func FormatTimestamp(cfg Config, now time.Time) (string, error) {
	pattern := cfg.TimestampFormat
	if cfg.UseMicroseconds {
		pattern += microsecondSuffix
	}

	s, err := strftime.Format(pattern, now, timestampOptions...)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidTimestampFormat, cfg.TimestampFormat, err)
	}

	if cfg.UseMicroseconds {
		s = s[:len(s)-subSecondTrim]
	}
	return s, nil
}
