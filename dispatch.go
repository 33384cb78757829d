package awsquery

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

var (
	ErrUnexpectedStatus  = errors.New("unexpected response status")
	ErrMalformedResponse = errors.New("malformed response body")
)

// actionFromBody extracts the URL-decoded Action parameter from an encoded
// request body.
func actionFromBody(body string) string {
	values, err := url.ParseQuery(body)
	if err != nil {
		return ""
	}
	return values.Get("Action")
}

// dispatch maps a completed HTTP exchange back onto domain objects. The
// registry is consulted before any XML is materialized; HTTP 400 bypasses
// it entirely and decodes the error envelope instead.
func dispatch(registry *Registry, lookup ResourceLookup, action string, status int, body []byte) ([]Object, error) {
	if status == http.StatusBadRequest {
		return nil, newErrorFromBody(body)
	}
	if status < 200 || status > 299 {
		return nil, nestError(ErrUnexpectedStatus, "%d for %s", status, action)
	}

	d := registry.lookup(action)

	_, payload, err := parseResponse(body, d.NoKeyAttr)
	if err != nil {
		return nil, nestError(ErrMalformedResponse, "unable to parse %s response: %w", action, err)
	}

	meta := ResponseMeta{
		Action:    action,
		RequestID: requestIDFrom(payload),
		Namespace: payload.Str("-xmlns"),
	}

	switch d.Strategy {
	case StrategyFetchOne:
		p := payload
		if d.Tag != "" {
			if p = payload.Map(splitTag(d.Tag)...); p == nil {
				return nil, nil
			}
		}
		return []Object{d.New(p, meta, lookup)}, nil
	case StrategyFetchItems:
		container := payload.Map(splitTag(d.Tag)...)
		if container == nil {
			// AWS legitimately omits empty containers.
			return nil, nil
		}

		items, ok := containerItems(container, d.ItemTag)
		if !ok {
			return nil, nil
		}

		var objects []Object
		for _, e := range items {
			if m, ok := e.(map[string]any); ok {
				objects = append(objects, d.New(Payload(m), meta, lookup))
			}
		}
		return objects, nil
	default:
		return []Object{d.New(payload, meta, lookup)}, nil
	}
}

func splitTag(tag string) []string {
	return strings.Split(tag, ".")
}

// containerItems returns the container's child sequence. Without an
// explicit item tag it accepts both the EC2 (item) and ELB (member)
// conventions; an explicit tag is forced into a sequence here since the
// materializer only knows the two literal names.
func containerItems(container Payload, itemTag string) ([]any, bool) {
	tags := []string{itemTag}
	if itemTag == "" {
		tags = []string{tagItem, tagMember}
	}

	for _, t := range tags {
		if container.Has(t) {
			return forceList(container.Get(t)), true
		}
	}
	return nil, false
}

// newErrorFromBody decodes the <Errors><Error> (EC2) or ErrorResponse
// (RDS/ELB) envelope. It always produces a non-empty code and message even
// for bodies that do not parse.
func newErrorFromBody(body []byte) *Error {
	e := &Error{
		code:    "Unknown",
		message: strings.TrimSpace(string(body)),
	}

	root, payload, err := parseResponse(body, true)
	if err == nil {
		var ep Payload

		switch root {
		case "Response": // EC2 envelope
			if l := payload.List("Errors", "Error"); len(l) > 0 {
				ep = l[0]
			}
		default: // ErrorResponse
			if l := payload.List("Error"); len(l) > 0 {
				ep = l[0]
			}
		}

		if ep != nil {
			if c := ep.Str("Code"); c != "" {
				e.code = c
			}
			if m := ep.Str("Message"); m != "" {
				e.message = m
			}
		}

		e.requestID = requestIDFrom(payload)
	}

	if e.message == "" {
		e.message = "bad request"
	}

	return e
}

func requestIDFrom(p Payload) string {
	if id := p.Str("requestId"); id != "" {
		return id
	}
	if id := p.Str("RequestID"); id != "" {
		return id
	}
	if id := p.Str("RequestId"); id != "" {
		return id
	}
	return p.Str("ResponseMetadata", "RequestId")
}
