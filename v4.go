package awsquery

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	ErrSignatureMalformed = errors.New("signature malformed")
)

const (
	headerAuthorization     = "Authorization"
	headerHost              = "Host"
	headerXAmzDate          = "x-amz-date"
	headerXAmzSecurityToken = "x-amz-security-token"

	queryXAmzAlgorithm     = "X-Amz-Algorithm"
	queryXAmzCredential    = "X-Amz-Credential"
	queryXAmzDate          = "X-Amz-Date"
	queryXAmzSecurityToken = "X-Amz-Security-Token"
	queryXAmzSignedHeaders = "X-Amz-SignedHeaders"
	queryXAmzSignature     = "X-Amz-Signature"

	v4SigningAlgorithm = "AWS4-HMAC-SHA256"
)

// SignerV4 signs requests with AWS Signature Version 4. Each Sign call is a
// pure function of the request and the clock; no state is shared between
// calls, so a single signer is safe for concurrent use.
type SignerV4 struct {
	credentials Credentials

	now func() time.Time
}

func NewSignerV4(credentials Credentials) (*SignerV4, error) {
	if err := credentials.validate(); err != nil {
		return nil, err
	}
	return &SignerV4{
		credentials: credentials,
		now:         time.Now,
	}, nil
}

// Sign adds x-amz-date (when absent), x-amz-security-token (when the
// credentials carry one) and Authorization headers to r. The body, if any,
// is read to compute the payload hash and restored.
func (s *SignerV4) Sign(r *http.Request) error {
	payloadHash, err := payloadSHA256(r)
	if err != nil {
		return err
	}

	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	if r.Header.Get(headerHost) == "" {
		r.Header.Set(headerHost, host)
	}

	dateTime := r.Header.Get(headerXAmzDate)
	if dateTime == "" {
		dateTime = s.now().UTC().Format(amzDateTimeFormat)
		r.Header.Set(headerXAmzDate, dateTime)
	}

	if s.credentials.SessionToken != "" && r.Header.Get(headerXAmzSecurityToken) == "" {
		r.Header.Set(headerXAmzSecurityToken, s.credentials.SessionToken)
	}

	sc := scopeFromHost(host, dateTime)

	signature, signedHeaders := s.calculate(r.Method, r.URL.EscapedPath(), r.URL.Query(), r.Header, payloadHash, sc, dateTime)

	r.Header.Set(headerAuthorization, v4SigningAlgorithm+
		" Credential="+sc.credential(s.credentials.AccessKeyID)+
		", SignedHeaders="+signedHeaders+
		", Signature="+signature.String())

	return nil
}

// Presign returns a presigned GET variant of r's URL: the X-Amz-Algorithm,
// X-Amz-Credential, X-Amz-Date and X-Amz-SignedHeaders=host parameters are
// appended before signing, and the computed signature is appended as
// X-Amz-Signature. Only the host header is signed.
func (s *SignerV4) Presign(r *http.Request) (*url.URL, error) {
	u := *r.URL

	dateTime := r.Header.Get(headerXAmzDate)
	if dateTime == "" {
		dateTime = s.now().UTC().Format(amzDateTimeFormat)
	}

	sc := scopeFromHost(u.Host, dateTime)

	query := u.Query()
	query.Set(queryXAmzAlgorithm, v4SigningAlgorithm)
	query.Set(queryXAmzCredential, sc.credential(s.credentials.AccessKeyID))
	query.Set(queryXAmzDate, dateTime)
	query.Set(queryXAmzSignedHeaders, "host")
	if s.credentials.SessionToken != "" {
		query.Set(queryXAmzSecurityToken, s.credentials.SessionToken)
	}

	headers := make(http.Header)
	headers.Set(headerHost, u.Host)

	signature, _ := s.calculate(http.MethodGet, u.EscapedPath(), query, headers, emptyPayloadHash, sc, dateTime)

	query.Set(queryXAmzSignature, signature.String())
	u.RawQuery = query.Encode()

	return &u, nil
}

func (s *SignerV4) calculate(method, path string, query url.Values, headers http.Header, payloadHash string, sc scope, dateTime string) (signatureV4, string) {
	canonical, signedHeaders := canonicalRequest(method, path, query, headers, payloadHash)

	stringToSign := v4SigningAlgorithm + "\n" +
		dateTime + "\n" +
		sc.String() + "\n" +
		hex.EncodeToString(sha256Hash([]byte(canonical)))

	key := signingKeyHMACSHA256(s.credentials.SecretAccessKey, sc.date, sc.region, sc.service)

	return mustNewSignatureV4FromDecoded(hmacSHA256(key, stringToSign)), signedHeaders
}

// payloadSHA256 hashes the request body, restoring it for the transport. A
// nil body hashes to the well-known empty-input digest.
func payloadSHA256(r *http.Request) (string, error) {
	if r.Body == nil {
		return emptyPayloadHash, nil
	}

	b, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	if err := r.Body.Close(); err != nil {
		return "", err
	}

	r.Body = io.NopCloser(bytes.NewReader(b))
	r.ContentLength = int64(len(b))

	return hex.EncodeToString(sha256Hash(b)), nil
}
