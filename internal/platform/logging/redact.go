package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

var (
	jwtPattern    = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)
	bearerPattern = regexp.MustCompile(`(?i)^(bearer|basic)\s+.+$`)
)

// sensitiveFields are attribute names whose values never reach a log sink.
// session_id is deliberately absent: it is the correlation key for a
// visitor's requests and carries no privilege.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"apiKey",
	"api_key",
	"accessToken",
	"access_token",
	"authorization",
	"auth",
	"cookie",
	"set-cookie",
	"credentials",
	"privateKey",
	"private_key",
}

// DefaultRedactOptions returns the masq options applied by every logger
// built with New.
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(sensitiveFields)+4)
	for _, name := range sensitiveFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	return append(opts,
		masq.WithFieldPrefix("secret"),
		masq.WithFieldPrefix("private"),
		masq.WithRegex(jwtPattern),
		masq.WithRegex(bearerPattern),
	)
}

// NewReplaceAttr returns a slog ReplaceAttr func that redacts sensitive data,
// extended with any extra masq options.
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}
