package config

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/kart-io/buildnotify/pkg/errors"
)

// RedactedSecret replaces secrets in Redacted copies.
const RedactedSecret = "[redacted]"

var phoneNumberPattern = regexp.MustCompile(`^[0-9()/+ \-]*$`)

// ValidatePhoneList reports whether every comma-separated entry of list
// consists only of digits, parentheses, slash, plus, space or hyphen.
func ValidatePhoneList(list string) bool {
	for _, number := range strings.Split(list, ",") {
		if !phoneNumberPattern.MatchString(number) {
			return false
		}
	}
	return true
}

// Validate checks the notifier configuration
func (n Notifier) Validate() error {
	if n.Message == "" {
		return errors.NewConfigError("message template is required")
	}
	if !ValidatePhoneList(n.Recipients) {
		return errors.NewConfigError("recipients contain characters other than digits, ()/+, space or hyphen").
			WithMetadata("recipients", n.Recipients)
	}
	return nil
}

// Validate checks the gateway configuration before it is saved
func (g Gateway) Validate() error {
	if g.APIKey == "" {
		return errors.New(errors.ErrMissingCredentials, "api key is required")
	}
	if g.Msisdn == "" {
		return errors.New(errors.ErrMissingCredentials, "msisdn is required")
	}
	if g.Password == "" {
		return errors.New(errors.ErrMissingCredentials, "password is required")
	}
	if g.RateLimit < 0 {
		return errors.NewConfigError("rate_limit cannot be negative")
	}
	for _, u := range []struct{ field, raw string }{
		{"base_url", g.BaseURL},
		{"gateway_url", g.GatewayURL},
		{"shortener_url", g.ShortenerURL},
	} {
		if u.raw == "" {
			continue
		}
		if err := validateHTTPURL(u.raw); err != nil {
			return errors.NewConfigError("%s is not a valid http(s) URL", u.field).WithCause(err)
		}
	}
	return nil
}

// Redacted returns a copy safe to log or print.
func (g Gateway) Redacted() Gateway {
	if g.APIKey != "" {
		g.APIKey = RedactedSecret
	}
	if g.Password != "" {
		g.Password = RedactedSecret
	}
	return g
}

// KeepSecrets returns g with the api key and password taken from stored
// wherever g leaves them empty or carries the redaction marker, so a
// redacted copy can be edited and saved back.
func (g Gateway) KeepSecrets(stored Gateway) Gateway {
	if g.APIKey == "" || g.APIKey == RedactedSecret {
		g.APIKey = stored.APIKey
	}
	if g.Password == "" || g.Password == RedactedSecret {
		g.Password = stored.Password
	}
	return g
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Newf(errors.ErrInvalidConfig, "unsupported URL %q", raw)
	}
	return nil
}
