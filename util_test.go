package awsquery

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/zeebo/assert"
)

func TestNestedError(t *testing.T) {
	outer := errors.New("outer")
	inner := errors.New("inner")

	nested := nestError(outer, "oops: %w", inner)

	t.Run("Error", func(t *testing.T) {
		assert.Equal(t, "outer: oops: inner", nested.Error())
	})
	t.Run("Unwrap", func(t *testing.T) {
		assert.Equal(t, inner, errors.Unwrap(errors.Unwrap(nested)))
	})
	t.Run("Is", func(t *testing.T) {
		assert.That(t, errors.Is(nested, outer))
		assert.That(t, errors.Is(nested, inner))
	})
}

func TestURIEncode(t *testing.T) {
	const (
		testPath   = "photos/Jan/sample.jpg"
		unreserved = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-._~"
	)
	assert.Equal(t, testPath, uriEncode(testPath, true))
	assert.Equal(t, "photos%2FJan%2Fsample.jpg", uriEncode(testPath, false))
	assert.Equal(t, unreserved+"with%20spaces", uriEncode(unreserved+"with spaces", false))
	assert.Equal(t, "a%3Db%26c", uriEncode("a=b&c", false))
	assert.Equal(t, "%2B%2B", uriEncode("++", false))
}

func TestHashBuilder(t *testing.T) {
	const (
		hashZero = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
		hashTest = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	)

	b := newHashBuilder(sha256.New)
	b.Write(nil)
	b.WriteString("")
	assert.Equal(t, hashZero, hex.EncodeToString(b.Sum()))
	b.Write([]byte("test"))
	assert.Equal(t, hashTest, hex.EncodeToString(b.Sum()))
}

func TestCollapseSpaces(t *testing.T) {
	t.Run("runs collapse", func(t *testing.T) {
		assert.Equal(t, "a b c", collapseSpaces("  a   b \t c  "))
	})
	t.Run("quoted values are preserved", func(t *testing.T) {
		assert.Equal(t, `fields="a   b"`, collapseSpaces(`fields="a   b"`))
	})
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", collapseSpaces("   "))
	})
}

func TestSHA256Hash(t *testing.T) {
	assert.Equal(t, emptyPayloadHash, hex.EncodeToString(sha256Hash(nil)))
}

func dummyNow(year int, month time.Month, day, hour, min, sec int) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, day, hour, min, sec, 0, time.UTC)
	}
}
