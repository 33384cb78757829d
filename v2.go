package awsquery

import (
	"crypto/hmac"
	"crypto/sha256"
	"hash"
	"net/url"
	"strings"
	"time"
)

// SignerV2 signs Query API parameter sets with AWS Signature Version 2.
// The signed set is meant to be POSTed as application/x-www-form-urlencoded.
type SignerV2 struct {
	credentials Credentials
	version     string

	now func() time.Time
}

// NewSignerV2 returns a signer stamping the given API version onto every
// parameter set that does not carry one.
func NewSignerV2(credentials Credentials, version string) (*SignerV2, error) {
	if err := credentials.validate(); err != nil {
		return nil, err
	}
	return &SignerV2{
		credentials: credentials,
		version:     version,
		now:         time.Now,
	}, nil
}

// Sign merges the required metadata parameters into params, signs
// METHOD\nhost\npath\nsorted-encoded-query with HMAC-SHA256 and returns the
// full parameter set with the base64 Signature attached. Parameter ordering
// in the string to sign is a pure function of the set.
func (s *SignerV2) Sign(params map[string]string, method, host, path string) (url.Values, error) {
	if path == "" {
		path = "/"
	}

	merged := make(url.Values, len(params)+6)
	for k, v := range params {
		merged.Set(k, v)
	}

	merged.Set("AWSAccessKeyId", s.credentials.AccessKeyID)
	merged.Set("Timestamp", s.now().UTC().Format(queryTimestampFormat))
	merged.Set("SignatureVersion", "2")
	merged.Set("SignatureMethod", "HmacSHA256")
	if s.version != "" && merged.Get("Version") == "" {
		merged.Set("Version", s.version)
	}
	if s.credentials.SessionToken != "" {
		merged.Set("SecurityToken", s.credentials.SessionToken)
	}

	b := newHashBuilder(func() hash.Hash {
		return hmac.New(sha256.New, []byte(s.credentials.SecretAccessKey))
	})

	b.WriteString(strings.ToUpper(method))
	b.WriteByte(lf)
	b.WriteString(strings.ToLower(host))
	b.WriteByte(lf)
	b.WriteString(path)
	b.WriteByte(lf)
	b.WriteString(canonicalQueryString(merged))

	merged.Set("Signature", signatureV2(b.Sum()).String())

	return merged, nil
}
