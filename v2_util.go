package awsquery

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

const (
	signatureV2DecodedLength = sha256.Size
	signatureV2EncodedLength = 44
)

type signatureV2 []byte

func newSignatureV2FromEncoded(s string) (signatureV2, error) {
	if len(s) != signatureV2EncodedLength {
		return nil, ErrSignatureMalformed
	}

	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrSignatureMalformed
	}

	return b, nil
}

func (s signatureV2) compare(other signatureV2) bool {
	return subtle.ConstantTimeCompare(s, other) == 1
}

func (s signatureV2) String() string {
	return base64.StdEncoding.EncodeToString(s)
}
