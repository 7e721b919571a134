package auth

import (
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// Config holds signing and TTL options. Implementations must be immutable
// once constructed; the codec and flows copy what they need at build time.
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetLoginTokenTTL() time.Duration
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetTransientTokenTTL() time.Duration
	GetPasswordResetTokenTTL() time.Duration
	GetAuthorizationCodeTTL() time.Duration
	GetPasswordResetLinkBase() string
}

// EnvConfig loads auth configuration from the environment.
type EnvConfig struct {
	SigningKey            string        `env:"AUTH_SIGNING_KEY,required,notEmpty"`
	Issuer                string        `env:"AUTH_ISSUER" envDefault:"go-workspace-auth"`
	Audience              []string      `env:"AUTH_AUDIENCE" envSeparator:","`
	LoginTokenTTL         time.Duration `env:"AUTH_LOGIN_TOKEN_TTL" envDefault:"15m"`
	AccessTokenTTL        time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" envDefault:"30m"`
	RefreshTokenTTL       time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" envDefault:"2160h"`
	TransientTokenTTL     time.Duration `env:"AUTH_TRANSIENT_TOKEN_TTL" envDefault:"15m"`
	PasswordResetTokenTTL time.Duration `env:"AUTH_PASSWORD_RESET_TOKEN_TTL" envDefault:"5m"`
	AuthorizationCodeTTL  time.Duration `env:"AUTH_AUTHORIZATION_CODE_TTL" envDefault:"5m"`
	PasswordResetLinkBase string        `env:"AUTH_PASSWORD_RESET_LINK_BASE" envDefault:"https://localhost/reset-password"`
}

// LoadConfigFromEnv parses the AUTH_* environment variables.
func LoadConfigFromEnv() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to load auth config from environment")
	}
	return cfg, nil
}

var _ Config = (*EnvConfig)(nil)

func (c *EnvConfig) GetSigningKey() string { return c.SigningKey }

func (c *EnvConfig) GetIssuer() string { return c.Issuer }

func (c *EnvConfig) GetAudience() []string { return c.Audience }

func (c *EnvConfig) GetLoginTokenTTL() time.Duration { return c.LoginTokenTTL }

func (c *EnvConfig) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }

func (c *EnvConfig) GetRefreshTokenTTL() time.Duration { return c.RefreshTokenTTL }

func (c *EnvConfig) GetTransientTokenTTL() time.Duration { return c.TransientTokenTTL }

func (c *EnvConfig) GetPasswordResetTokenTTL() time.Duration { return c.PasswordResetTokenTTL }

func (c *EnvConfig) GetAuthorizationCodeTTL() time.Duration { return c.AuthorizationCodeTTL }

func (c *EnvConfig) GetPasswordResetLinkBase() string { return c.PasswordResetLinkBase }
