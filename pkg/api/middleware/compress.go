package middleware

import (
	"compress/gzip"
	"net/http"

	"github.com/NYTimes/gziphandler"
)

// CompressionOptOutHeader lets a client skip response compression, e.g. when
// it wants byte-accurate progress reporting on downloads.
const CompressionOptOutHeader = "X-No-Compression"

// compressionMinSize is the smallest body that gets compressed. Smaller
// responses ship faster uncompressed.
const compressionMinSize = 1024

// Compression returns a gzip middleware for bodies of at least 1 KiB,
// honouring the opt-out request header.
func Compression() func(http.Handler) http.Handler {
	gzipWrapper, err := gziphandler.GzipHandlerWithOpts(
		gziphandler.MinSize(compressionMinSize),
		gziphandler.CompressionLevel(gzip.DefaultCompression),
	)
	if err != nil {
		// Options are compile-time constants; this cannot fail at runtime.
		panic("invalid gzip configuration: " + err.Error())
	}

	return func(next http.Handler) http.Handler {
		compressed := gzipWrapper(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(CompressionOptOutHeader) != "" {
				next.ServeHTTP(w, r)
				return
			}
			compressed.ServeHTTP(w, r)
		})
	}
}
