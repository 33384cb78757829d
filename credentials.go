package awsquery

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

var ErrMissingCredentials = errors.New("missing access key ID or secret access key")

// Credentials are immutable once supplied. The zero value is invalid; every
// signer and client constructor rejects it up front rather than producing
// requests signed with empty keys.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

func NewCredentials(accessKeyID, secretAccessKey, sessionToken string) (Credentials, error) {
	c := Credentials{
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
		SessionToken:    sessionToken,
	}
	return c, c.validate()
}

func (c Credentials) validate() error {
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return ErrMissingCredentials
	}
	return nil
}

// CredentialsFromEnv reads AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
// AWS_SESSION_TOKEN, falling back to the EC2_ACCESS_KEY/EC2_SECRET_KEY names
// the EC2 tooling family uses.
func CredentialsFromEnv() (Credentials, error) {
	accessKeyID := os.Getenv("AWS_ACCESS_KEY_ID")
	if accessKeyID == "" {
		accessKeyID = os.Getenv("EC2_ACCESS_KEY")
	}

	secretAccessKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if secretAccessKey == "" {
		secretAccessKey = os.Getenv("EC2_SECRET_KEY")
	}

	return NewCredentials(accessKeyID, secretAccessKey, os.Getenv("AWS_SESSION_TOKEN"))
}

// SharedCredentials loads a profile from a shared credentials file in the
// standard ~/.aws/credentials format. An empty profile means "default".
func SharedCredentials(path, profile string) (Credentials, error) {
	if profile == "" {
		profile = "default"
	}

	f, err := ini.Load(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("unable to load shared credentials from %s: %w", path, err)
	}

	s, err := f.GetSection(profile)
	if err != nil {
		return Credentials{}, fmt.Errorf("unable to load profile %q from %s: %w", profile, path, err)
	}

	return NewCredentials(
		s.Key("aws_access_key_id").String(),
		s.Key("aws_secret_access_key").String(),
		s.Key("aws_session_token").String(),
	)
}
