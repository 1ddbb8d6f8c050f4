package router

import "strings"

// ParseRequestLine splits "METHOD PATH PROTOCOL" into method and path.
// The protocol token is optional. Leading and trailing whitespace,
// including a trailing CR, is ignored.
func ParseRequestLine(line string) (method, path string, err error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", NewError(ErrCodeMalformedRequest, "BAD REQUEST", nil)
	}
	return fields[0], fields[1], nil
}

// Segments canonicalizes a request path: query and fragment are dropped,
// the rest is lower-cased and split on "/" with empty segments removed.
// The root path yields no segments.
func Segments(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.ToLower(path)

	var segs []string
	for s := range strings.SplitSeq(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
