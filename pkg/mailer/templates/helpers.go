package templates

import (
	"time"

	"github.com/notorite/auth-service/config"
)

// Option mutates EmailData before it is shipped in an EmailJob.
type Option func(*EmailData)

func WithResetURL(url string) Option { return func(d *EmailData) { d.ResetURL = url } }
func WithCode(code string) Option    { return func(d *EmailData) { d.Code = code } }

func WithExpiresIn(dur time.Duration) Option {
	return func(d *EmailData) {
		d.ExpiresAtText = time.Now().Add(dur).UTC().Format("02 January 2006, 15:04 MST")
	}
}

// NewBaseEmailData fills the company fields from config, then applies options.
func NewBaseEmailData(cfg *config.Config, name, recipient string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		RecipientEmail: recipient,

		AppName:        cfg.AppName,
		CompanyName:    cfg.CompanyName,
		CompanyAddress: cfg.CompanyAddress,
		LogoURL:        cfg.LogoURL,
		SupportURL:     cfg.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewForgotPasswordData(cfg *config.Config, name, recipient, resetURL string, opts ...Option) map[string]any {
	opts = append([]Option{WithResetURL(resetURL)}, opts...)
	return ToMap(NewBaseEmailData(cfg, name, recipient, opts...))
}

func NewVerifyOTPData(cfg *config.Config, recipient, code string, opts ...Option) map[string]any {
	opts = append([]Option{WithCode(code)}, opts...)
	return ToMap(NewBaseEmailData(cfg, recipient, recipient, opts...))
}
