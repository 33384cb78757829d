package awsquery

import (
	"context"
	"errors"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var ErrTransport = errors.New("transport failure")

const formContentType = "application/x-www-form-urlencoded"

// Doer executes one HTTP request. The client defines no retry, backoff or
// timeout policy of its own; wrap the transport for that.
type Doer interface {
	Do(r *http.Request) (*http.Response, error)
}

// Client issues named Query API actions against one endpoint and
// materializes the responses through its registry. Independent calls are
// safe to run concurrently: the signers are pure per call and the registry
// is read-only after construction.
type Client struct {
	endpoint *url.URL
	version  string

	signerV2 *SignerV2
	signerV4 *SignerV4
	useV4    bool
	checksum ChecksumAlgorithm

	registry  *Registry
	transport Doer
	log       zerolog.Logger

	mu        sync.Mutex
	lastError *Error
}

type Option func(*Client)

// WithTransport replaces the HTTP transport.
func WithTransport(d Doer) Option {
	return func(c *Client) { c.transport = d }
}

// WithRegistry replaces the default action registry. The registry must be
// fully populated before the client is used.
func WithRegistry(r *Registry) Option {
	return func(c *Client) { c.registry = r }
}

// WithLogger enables debug logging of requests and responses.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithSignatureV4 signs calls with Signature Version 4 headers instead of
// V2 body parameters.
func WithSignatureV4() Option {
	return func(c *Client) { c.useV4 = true }
}

// WithContentChecksum attaches an x-amz-checksum-* header to V4-signed
// request bodies.
func WithContentChecksum(a ChecksumAlgorithm) Option {
	return func(c *Client) { c.checksum = a }
}

// NewClient returns a client for the given endpoint. Empty credentials are
// a configuration error and fail here, never at request time. The version
// is the API version stamped onto every call's parameter set.
func NewClient(endpoint string, credentials Credentials, version string, opts ...Option) (*Client, error) {
	if err := credentials.validate(); err != nil {
		return nil, err
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}

	c := &Client{
		endpoint:  u,
		version:   version,
		registry:  NewDefaultRegistry(),
		transport: http.DefaultClient,
		log:       zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.signerV2, err = NewSignerV2(credentials, version); err != nil {
		return nil, err
	}
	if c.signerV4, err = NewSignerV4(credentials); err != nil {
		return nil, err
	}

	return c, nil
}

// Call issues a named action with flat key=value parameters (list encodings
// such as Filter.1.Name are the caller's responsibility), signs it per the
// configured signature version, and dispatches the response. API-level
// errors (HTTP 400) come back as *Error and are also recorded as the last
// error.
func (c *Client) Call(ctx context.Context, action string, params map[string]string) ([]Object, error) {
	// The last error always describes this call, even when it never
	// reaches the wire.
	c.setLastError(nil)

	merged := make(map[string]string, len(params)+2)
	maps.Copy(merged, params)
	merged["Action"] = action

	body, err := c.encodeAndSign(merged)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", formContentType)

	if c.useV4 {
		if c.checksum != ChecksumNone {
			name, value, err := ChecksumHeader(c.checksum, []byte(body))
			if err != nil {
				return nil, err
			}
			req.Header.Set(name, value)
		}
		if err := c.signerV4.Sign(req); err != nil {
			return nil, err
		}
	}

	c.log.Debug().Str("action", action).Str("endpoint", c.endpoint.Host).Msg("issuing request")

	resp, err := c.transport.Do(req)
	if err != nil {
		return nil, nestError(ErrTransport, "%s: %w", action, err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, nestError(ErrTransport, "unable to read %s response: %w", action, err)
	}

	c.log.Debug().Str("action", action).Int("status", resp.StatusCode).Int("bytes", len(respBody)).Msg("response received")

	// Resolve the action from the encoded body rather than trusting the
	// argument: the registry is keyed by what was actually sent.
	objects, err := dispatch(c.registry, c, actionFromBody(body), resp.StatusCode, respBody)

	var apiErr *Error
	if errors.As(err, &apiErr) {
		c.setLastError(apiErr)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if len(objects) > 0 {
		c.log.Debug().Str("action", action).Str("request_id", objects[0].RequestID()).Int("objects", len(objects)).Msg("response dispatched")
	}

	return objects, nil
}

// CallOne is Call for actions that materialize a single object. It returns
// nil for empty results.
func (c *Client) CallOne(ctx context.Context, action string, params map[string]string) (Object, error) {
	objects, err := c.Call(ctx, action, params)
	if err != nil || len(objects) == 0 {
		return nil, err
	}
	return objects[0], nil
}

// encodeAndSign produces the request body: for V2 the fully signed
// parameter set, for V4 the bare parameter set (the signature travels in
// headers). Both use the canonical percent-encoding, so the V2 body is
// byte-identical to the string that was signed.
func (c *Client) encodeAndSign(params map[string]string) (string, error) {
	if c.useV4 {
		if c.version != "" && params["Version"] == "" {
			params["Version"] = c.version
		}
		values := make(url.Values, len(params))
		for k, v := range params {
			values.Set(k, v)
		}
		return canonicalQueryString(values), nil
	}

	values, err := c.signerV2.Sign(params, http.MethodPost, c.endpoint.Host, c.endpoint.EscapedPath())
	if err != nil {
		return "", err
	}
	return canonicalQueryString(values), nil
}

// Presign returns a presigned GET URL for r using the client's credentials.
func (c *Client) Presign(r *http.Request) (*url.URL, error) {
	return c.signerV4.Presign(r)
}

// LastError returns the API error recorded by the most recent call, or nil
// after a successful one.
func (c *Client) LastError() *Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

func (c *Client) IsError() bool {
	return c.LastError() != nil
}

func (c *Client) setLastError(e *Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = e
}

func collect[T any](objects []Object) []T {
	var out []T
	for _, o := range objects {
		if t, ok := o.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

func (c *Client) DescribeInstances(ctx context.Context, params map[string]string) ([]*Reservation, error) {
	objects, err := c.Call(ctx, "DescribeInstances", params)
	return collect[*Reservation](objects), err
}

func (c *Client) DescribeVolumes(ctx context.Context, params map[string]string) ([]*Volume, error) {
	objects, err := c.Call(ctx, "DescribeVolumes", params)
	return collect[*Volume](objects), err
}

func (c *Client) DescribeTags(ctx context.Context, params map[string]string) ([]*Tag, error) {
	objects, err := c.Call(ctx, "DescribeTags", params)
	return collect[*Tag](objects), err
}

func (c *Client) DescribeLoadBalancers(ctx context.Context, params map[string]string) ([]*LoadBalancer, error) {
	objects, err := c.Call(ctx, "DescribeLoadBalancers", params)
	return collect[*LoadBalancer](objects), err
}

func (c *Client) DescribeDBInstances(ctx context.Context, params map[string]string) ([]*DBInstance, error) {
	objects, err := c.Call(ctx, "DescribeDBInstances", params)
	return collect[*DBInstance](objects), err
}

func (c *Client) CreateVolume(ctx context.Context, params map[string]string) (*Volume, error) {
	o, err := c.CallOne(ctx, "CreateVolume", params)
	v, _ := o.(*Volume)
	return v, err
}

func (c *Client) AttachVolume(ctx context.Context, volumeID, instanceID, device string) (*Attachment, error) {
	o, err := c.CallOne(ctx, "AttachVolume", map[string]string{
		"VolumeId":   volumeID,
		"InstanceId": instanceID,
		"Device":     device,
	})
	a, _ := o.(*Attachment)
	return a, err
}

func (c *Client) GetConsoleOutput(ctx context.Context, instanceID string) (*ConsoleOutput, error) {
	o, err := c.CallOne(ctx, "GetConsoleOutput", map[string]string{"InstanceId": instanceID})
	out, _ := o.(*ConsoleOutput)
	return out, err
}
