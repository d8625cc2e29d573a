package paypal

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"hash/crc32"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/shopstack/shopstack-paypal/config"
	"github.com/shopstack/shopstack-paypal/internal/core/domain"
)

// supportedAuthAlgo is the only signing algorithm PayPal uses for webhooks.
const supportedAuthAlgo = "SHA256withRSA"

// Verifier implements ports.WebhookVerifier by checking the RSA signature
// PayPal puts on each delivery. The signed message is
//
//	transmissionID|transmissionTime|webhookID|crc32(body)
//
// and the public key comes from the certificate named in PAYPAL-CERT-URL.
// Certificates are cached per URL for the life of the process.
type Verifier struct {
	webhookID string
	rest      *resty.Client

	mu    sync.Mutex
	certs map[string]*x509.Certificate
}

// NewVerifier creates a webhook verifier for the configured webhook id.
func NewVerifier(cfg config.PayPalConfig) *Verifier {
	return &Verifier{
		webhookID: cfg.WebhookID,
		rest:      resty.New().SetTimeout(10 * time.Second),
		certs:     make(map[string]*x509.Certificate),
	}
}

// Verify checks the transmission signature over the raw body.
func (v *Verifier) Verify(ctx context.Context, sig domain.WebhookSignature, body []byte) error {
	if v.webhookID == "" {
		return errors.New("webhook id not configured")
	}
	if sig.AuthAlgo != supportedAuthAlgo {
		return fmt.Errorf("unsupported auth algorithm %q", sig.AuthAlgo)
	}

	cert, err := v.certificate(ctx, sig.CertURL)
	if err != nil {
		return err
	}
	publicKey, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return errors.New("certificate does not carry an RSA public key")
	}

	signature, err := base64.StdEncoding.DecodeString(sig.TransmissionSig)
	if err != nil {
		return errors.New("transmission signature is not valid base64")
	}

	message := fmt.Sprintf("%s|%s|%s|%d",
		sig.TransmissionID, sig.TransmissionTime, v.webhookID, crc32.ChecksumIEEE(body))
	digest := sha256.Sum256([]byte(message))

	if err := rsa.VerifyPKCS1v15(publicKey, crypto.SHA256, digest[:], signature); err != nil {
		return errors.New("signature mismatch")
	}
	return nil
}

// certificate returns the parsed signing certificate for certURL, fetching
// and caching it on first use. Only certificates hosted on paypal.com are
// accepted, so a forged CERT-URL header cannot point at an attacker's key.
func (v *Verifier) certificate(ctx context.Context, certURL string) (*x509.Certificate, error) {
	v.mu.Lock()
	if cert, ok := v.certs[certURL]; ok {
		v.mu.Unlock()
		return cert, nil
	}
	v.mu.Unlock()

	if err := checkCertURL(certURL); err != nil {
		return nil, err
	}

	resp, err := v.rest.R().SetContext(ctx).Get(certURL)
	if err != nil {
		return nil, fmt.Errorf("fetching signing certificate: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("certificate endpoint returned status %d", resp.StatusCode())
	}

	block, _ := pem.Decode(resp.Body())
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("certificate response is not PEM encoded")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing signing certificate: %w", err)
	}
	if now := time.Now(); now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
		return nil, errors.New("signing certificate is not currently valid")
	}

	v.mu.Lock()
	v.certs[certURL] = cert
	v.mu.Unlock()
	return cert, nil
}

// checkCertURL enforces that the certificate is served over HTTPS from a
// paypal.com host.
func checkCertURL(certURL string) error {
	parsed, err := url.Parse(certURL)
	if err != nil {
		return errors.New("malformed certificate URL")
	}
	if parsed.Scheme != "https" {
		return errors.New("certificate URL must use https")
	}
	host := parsed.Hostname()
	if host != "paypal.com" && !strings.HasSuffix(host, ".paypal.com") {
		return fmt.Errorf("certificate URL host %q is not a paypal.com domain", host)
	}
	return nil
}
