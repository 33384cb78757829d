package awsquery

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"hash"
	"hash/crc32"
	"strconv"

	"github.com/minio/crc64nvme"
)

// ChecksumAlgorithm selects the content checksum attached to upload-style
// requests as an x-amz-checksum-* header.
type ChecksumAlgorithm int

const (
	ChecksumNone ChecksumAlgorithm = iota
	ChecksumCRC32
	ChecksumCRC32C
	ChecksumCRC64NVME
	ChecksumSHA1
	ChecksumSHA256
)

func (a ChecksumAlgorithm) valid() bool {
	return a > ChecksumNone && a <= ChecksumSHA256
}

func (a ChecksumAlgorithm) String() string {
	switch a {
	case ChecksumCRC32:
		return "crc32"
	case ChecksumCRC32C:
		return "crc32c"
	case ChecksumCRC64NVME:
		return "crc64nvme"
	case ChecksumSHA1:
		return "sha1"
	case ChecksumSHA256:
		return "sha256"
	default:
		return strconv.Itoa(int(a))
	}
}

func (a ChecksumAlgorithm) newHash() hash.Hash {
	switch a {
	case ChecksumCRC32:
		return crc32.NewIEEE()
	case ChecksumCRC32C:
		return crc32.New(crc32.MakeTable(crc32.Castagnoli))
	case ChecksumCRC64NVME:
		return crc64nvme.New()
	case ChecksumSHA1:
		return sha1.New()
	case ChecksumSHA256:
		return sha256.New()
	default:
		return nil
	}
}

func (a ChecksumAlgorithm) headerName() string {
	return "x-amz-checksum-" + a.String()
}

// ChecksumHeader computes the x-amz-checksum-* header for body, returning
// the header name and the base64-encoded sum.
func ChecksumHeader(a ChecksumAlgorithm, body []byte) (name, value string, err error) {
	if !a.valid() {
		return "", "", errors.New("invalid checksum algorithm")
	}

	h := a.newHash()
	h.Write(body)

	return a.headerName(), base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}
