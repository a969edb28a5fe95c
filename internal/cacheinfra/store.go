package cacheinfra

import (
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// StoreOption configures the ambient dependencies of a store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	logger  *slog.Logger
	metrics *Metrics
}

// WithLogger sets the logger that receives swallowed store failures.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(o *storeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the instruments a store reports failures to.
func WithMetrics(metrics *Metrics) StoreOption {
	return func(o *storeOptions) {
		o.metrics = metrics
	}
}

func newStoreOptions(opts []StoreOption) storeOptions {
	o := storeOptions{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// maxReadableName caps the human readable part of a derived file name.
const maxReadableName = 64

// FileName derives a file system safe name from a cache key. The readable
// prefix is the snake cased key; the xxhash suffix keeps distinct keys apart
// when their snake case forms collide.
func FileName(key, extension string) string {
	readable := SnakeCase(key)
	if len(readable) > maxReadableName {
		readable = strings.TrimRight(readable[:maxReadableName], "_")
	}

	sum := strconv.FormatUint(xxhash.Sum64String(key), 16)
	if readable == "" {
		return sum + extension
	}
	return readable + "-" + sum + extension
}

// SnakeCase converts s to snake_case, dropping punctuation that is unsafe in
// file names and key namespaces.
func SnakeCase(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	sep := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
			b.WriteByte('_')
		}
	}

	for i, r := range runes {
		switch {
		case r > unicode.MaxASCII:
			sep()
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sep()
				}
			}
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLower(r):
			b.WriteRune(r)
		case unicode.IsDigit(r):
			if i > 0 && unicode.IsLetter(runes[i-1]) {
				sep()
			}
			b.WriteRune(r)
		default:
			sep()
		}
	}

	return strings.Trim(b.String(), "_")
}
