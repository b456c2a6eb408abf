// Package totp wraps the time-based one-time-password primitive: secret
// generation, provisioning-URI QR rendering and code validation.
package totp

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"net/url"
	"strconv"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	period     = 30
	skew       = 1 // tolerate +/-30 seconds of clock drift
	qrCodeSize = 256
)

// Authenticator generates and validates TOTP material for one issuer label.
type Authenticator struct {
	issuer string
}

func NewAuthenticator(issuer string) *Authenticator {
	return &Authenticator{issuer: issuer}
}

// GenerateSecret creates a fresh base32 secret for the given account.
func (a *Authenticator) GenerateSecret(accountName string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      a.issuer,
		AccountName: accountName,
		Algorithm:   otp.AlgorithmSHA1,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

// ProvisioningURI builds the otpauth:// URI for an existing secret.
func (a *Authenticator) ProvisioningURI(accountName, secret string) string {
	label := url.PathEscape(a.issuer + ":" + accountName)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", a.issuer)
	v.Set("period", strconv.Itoa(period))
	v.Set("digits", "6")
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// QRCodePNG renders the provisioning URI as a base64 data URL of a PNG,
// ready to drop into an <img> tag.
func (a *Authenticator) QRCodePNG(accountName, secret string) (string, error) {
	code, err := qr.Encode(a.ProvisioningURI(accountName, secret), qr.M, qr.Auto)
	if err != nil {
		return "", err
	}
	code, err = barcode.Scale(code, qrCodeSize, qrCodeSize)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Validate checks a one-time code against the secret within the skew window.
func (a *Authenticator) Validate(code, secret string) bool {
	valid, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && valid
}
