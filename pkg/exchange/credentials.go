package exchange

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// apitoken: printable ASCII without whitespace
	_ = v.RegisterValidation("apitoken", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		for _, r := range s {
			if r > unicode.MaxASCII || !unicode.IsPrint(r) || unicode.IsSpace(r) {
				return false
			}
		}
		return true
	})
	return v
}

type credentialInput struct {
	Key        string `validate:"required,apitoken"`
	Secret     string `validate:"required,apitoken"`
	Passphrase string `validate:"apitoken"`
}

// Credentials is an immutable API key/secret pair, plus the passphrase some
// venues (KuCoin, OKX) require. Build it with NewCredentials.
type Credentials struct {
	key        string
	secret     string
	passphrase string
}

// NewCredentials validates and returns an API key/secret pair.
func NewCredentials(key, secret string) (Credentials, error) {
	return NewCredentialsWithPassphrase(key, secret, "")
}

// NewCredentialsWithPassphrase validates and returns credentials that also
// carry an API passphrase.
func NewCredentialsWithPassphrase(key, secret, passphrase string) (Credentials, error) {
	in := credentialInput{Key: key, Secret: secret, Passphrase: passphrase}
	if err := validate.Struct(in); err != nil {
		return Credentials{}, ConfigurationError("", describeValidation(err), err)
	}
	return Credentials{key: key, secret: secret, passphrase: passphrase}, nil
}

func (c Credentials) Key() string        { return c.key }
func (c Credentials) Secret() string     { return c.secret }
func (c Credentials) Passphrase() string { return c.passphrase }

// IsZero reports whether c was never initialised through NewCredentials.
func (c Credentials) IsZero() bool {
	return c.key == "" || c.secret == ""
}

// String never prints the secret or passphrase.
func (c Credentials) String() string {
	return "Credentials{key: " + MaskKey(c.key) + "}"
}

// Check is called by client constructors. It rejects zero credentials and, when
// needPassphrase is set, credentials without a passphrase.
func (c Credentials) Check(exchange string, needPassphrase bool) error {
	if c.IsZero() {
		return ConfigurationError(exchange, "api key and secret are required", nil)
	}
	if needPassphrase && c.passphrase == "" {
		return ConfigurationError(exchange, "api passphrase is required", nil)
	}
	return nil
}

// MaskKey keeps the first and last four characters of an API key.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, "api "+field+" is required")
		default:
			parts = append(parts, "api "+field+" is malformed")
		}
	}
	return strings.Join(parts, "; ")
}
