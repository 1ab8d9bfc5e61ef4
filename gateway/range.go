package gateway

import (
	"strconv"
	"strings"
)

// byteRange is a resolved, inclusive [start, end] byte range.
type byteRange struct {
	start, end int64 // end is inclusive
	has        bool
}

// parseRange parses a "bytes=a-b" header per spec.md §6, treating an
// omitted end as "up to size-1" and, preserving the source's quirk noted
// in §9, treating an explicit end of 0 as "to EOF" rather than "just
// byte 0".
func parseRange(header string, size int64) byteRange {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return byteRange{}
	}
	spec := strings.TrimPrefix(header, prefix)
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return byteRange{}
	}
	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || start < 0 {
		return byteRange{}
	}
	if parts[1] == "" {
		return byteRange{start: start, end: size - 1, has: true}
	}
	end, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return byteRange{}
	}
	if end == 0 {
		end = size - 1 // source quirk (spec.md §9): end=0 means "to EOF"
	}
	if end >= size {
		end = size - 1
	}
	if start > end {
		return byteRange{}
	}
	return byteRange{start: start, end: end, has: true}
}
