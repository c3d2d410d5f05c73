package donation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/ManuelReschke/DonationDesk/internal/pkg/env"
)

// SecretResolver looks up the shared webhook secret of an endpoint.
type SecretResolver interface {
	WebhookSecret(endpoint string) string
}

// EnvSecretResolver reads WEBHOOK_SECRET_<ENDPOINT>, e.g. WEBHOOK_SECRET_DONATION.
type EnvSecretResolver struct{}

func (EnvSecretResolver) WebhookSecret(endpoint string) string {
	key := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(endpoint)))
	return strings.TrimSpace(env.GetEnv("WEBHOOK_SECRET_"+key, ""))
}

// StaticSecrets maps endpoint names to secrets.
type StaticSecrets map[string]string

func (s StaticSecrets) WebhookSecret(endpoint string) string {
	return s[endpoint]
}

// SignatureVerifier checks gateway HMAC-SHA256 signatures over the raw body.
type SignatureVerifier struct {
	secrets SecretResolver
}

func NewSignatureVerifier(secrets SecretResolver) *SignatureVerifier {
	if secrets == nil {
		secrets = EnvSecretResolver{}
	}
	return &SignatureVerifier{secrets: secrets}
}

// Verify must be given the body exactly as received; any re-encoding
// changes the bytes the gateway signed.
func (v *SignatureVerifier) Verify(rawBody []byte, signatureHeader, endpoint string) error {
	secret := v.secrets.WebhookSecret(endpoint)
	if secret == "" {
		return newError(KindSignatureInvalid, "no webhook secret configured for endpoint %q", endpoint)
	}

	sig := strings.TrimSpace(signatureHeader)
	if sig == "" {
		return newError(KindSignatureInvalid, "missing webhook signature")
	}
	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return newError(KindSignatureInvalid, "malformed webhook signature")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	if !hmac.Equal(mac.Sum(nil), decodedSig) {
		return newError(KindSignatureInvalid, "webhook signature mismatch")
	}
	return nil
}

// Sign returns the hex signature a gateway would send for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
