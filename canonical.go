package awsquery

import (
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// emptyPayloadHash is the SHA-256 hex digest of an empty body.
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// canonicalQueryString percent-encodes keys and values over the unreserved
// set, sorts values within a key and keys across the string. The result is a
// pure function of the parameter set, independent of map iteration order.
func canonicalQueryString(query url.Values) string {
	encoded := make(map[string][]string, len(query))
	for key, values := range query {
		k := uriEncode(key, false)
		for _, v := range values {
			encoded[k] = append(encoded[k], uriEncode(v, false))
		}
	}

	keys := slices.Collect(maps.Keys(encoded))
	slices.Sort(keys)

	b := new(strings.Builder)
	for _, k := range keys {
		slices.Sort(encoded[k])
		for _, v := range encoded[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
		}
	}

	return b.String()
}

// canonicalRequest serializes a request into the V4 canonical form and
// returns it together with the semicolon-joined signed header names. The
// path is expected to be already escaped; an empty path means the root.
func canonicalRequest(method, path string, query url.Values, headers http.Header, payloadHash string) (string, string) {
	if path == "" {
		path = "/"
	}

	canonical := make(map[string]string, len(headers))
	names := make([]string, 0, len(headers))
	for name, values := range headers {
		lower := strings.ToLower(name)

		parts := make([]string, 0, len(values))
		for _, v := range values {
			parts = append(parts, collapseSpaces(v))
		}

		canonical[lower] = strings.Join(parts, ",")
		names = append(names, lower)
	}
	slices.Sort(names)

	signedHeaders := strings.Join(names, ";")

	b := new(strings.Builder)
	b.WriteString(strings.ToUpper(method))
	b.WriteByte(lf)
	b.WriteString(path)
	b.WriteByte(lf)
	b.WriteString(canonicalQueryString(query))
	b.WriteByte(lf)
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(canonical[name])
		b.WriteByte(lf)
	}
	b.WriteByte(lf)
	b.WriteString(signedHeaders)
	b.WriteByte(lf)
	b.WriteString(payloadHash)

	return b.String(), signedHeaders
}
