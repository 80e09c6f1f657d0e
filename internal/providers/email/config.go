// internal/providers/email/config.go
package email

type Config struct {
	// FromEmail is the verified SES sender identity.
	FromEmail string
	// Subject used when the request does not carry one.
	DefaultSubject string
}

func DefaultConfig() *Config {
	return &Config{
		DefaultSubject: "Your portfolio snapshot",
	}
}
