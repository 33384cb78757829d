package awsquery

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net"
	"regexp"
	"strings"
)

const (
	signatureV4DecodedLength = sha256.Size
	signatureV4EncodedLength = 2 * sha256.Size
)

type signatureV4 []byte

func newSignatureV4FromDecoded(b []byte) (signatureV4, error) {
	if len(b) != signatureV4DecodedLength {
		return nil, ErrSignatureMalformed
	}

	s := make(signatureV4, signatureV4DecodedLength)

	copy(s, b)

	return s, nil
}

func mustNewSignatureV4FromDecoded(b []byte) signatureV4 {
	s, err := newSignatureV4FromDecoded(b)
	if err != nil {
		panic(err)
	}

	return s
}

func (s signatureV4) compare(other signatureV4) bool {
	return subtle.ConstantTimeCompare(s, other) == 1
}

func (s signatureV4) String() string {
	return hex.EncodeToString(s)
}

func sha256Hash(data []byte) []byte {
	h := sha256.New()
	h.Write(data)
	return h.Sum(nil)
}

func hmacSHA256(key []byte, s string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(s))
	return h.Sum(nil)
}

// signingKeyHMACSHA256 derives the scoped signing key:
// date, then region, then service, then the aws4_request terminator.
func signingKeyHMACSHA256(secretAccessKey, date, region, service string) []byte {
	dateKey := hmacSHA256([]byte("AWS4"+secretAccessKey), date)
	dateRegionKey := hmacSHA256(dateKey, region)
	dateRegionServiceKey := hmacSHA256(dateRegionKey, service)
	return hmacSHA256(dateRegionServiceKey, "aws4_request")
}

type scope struct {
	date    string
	region  string
	service string
}

func (s scope) String() string {
	return s.date + "/" + s.region + "/" + s.service + "/aws4_request"
}

func (s scope) credential(accessKeyID string) string {
	return accessKeyID + "/" + s.String()
}

var regionLabel = regexp.MustCompile(`^[a-z]{2}(?:-gov|-iso[a-z]?)?-[a-z]+-\d+$`)

// scopeFromHost derives the signing scope from the target host: the service
// is the first label, and the region is the second label when it is shaped
// like an AWS region, us-east-1 otherwise.
func scopeFromHost(host, dateTime string) scope {
	host = strings.ToLower(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	date := dateTime
	if len(date) > len(amzDateFormat) {
		date = date[:len(amzDateFormat)]
	}

	s := scope{
		date:   date,
		region: "us-east-1",
	}

	labels := strings.Split(host, ".")
	s.service = labels[0]
	if len(labels) > 1 && regionLabel.MatchString(labels[1]) {
		s.region = labels[1]
	}

	return s
}
