package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/logger"
)

const defaultAPIBaseURL = "https://api-m.paypal.com"

// Webhook protocol headers. PayPal signs each transmission and exposes the
// material needed to verify it through these.
const (
	HeaderTransmissionID   = "Paypal-Transmission-Id"
	HeaderTransmissionTime = "Paypal-Transmission-Time"
	HeaderCertURL          = "Paypal-Cert-Url"
	HeaderAuthAlgo         = "Paypal-Auth-Algo"
	HeaderTransmissionSig  = "Paypal-Transmission-Sig"
)

const verificationStatusSuccess = "SUCCESS"

// Client talks to the PayPal REST API with client-credential auth.
type Client struct {
	ClientID     string
	ClientSecret string
	WebhookID    string

	APIBaseURL string

	HTTPClient *http.Client
}

// VerificationHeaders are the provider-supplied values extracted from an
// inbound webhook request.
type VerificationHeaders struct {
	TransmissionID   string
	TransmissionTime string
	CertURL          string
	AuthAlgo         string
	TransmissionSig  string
}

func NewClientFromEnv() *Client {
	return &Client{
		ClientID:     strings.TrimSpace(env.GetEnv("PAYPAL_CLIENT_ID", "")),
		ClientSecret: strings.TrimSpace(env.GetEnv("PAYPAL_CLIENT_SECRET", "")),
		WebhookID:    strings.TrimSpace(env.GetEnv("PAYPAL_WEBHOOK_ID", "")),
		APIBaseURL:   strings.TrimRight(env.GetEnv("PAYPAL_API_BASE_URL", defaultAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// VerifyWebhookSignature authenticates a webhook delivery against PayPal's
// verification endpoint. It fails closed: missing headers, transport errors,
// non-2xx responses and any verification status other than SUCCESS all
// yield false. No error ever escapes this boundary.
func (c *Client) VerifyWebhookSignature(ctx context.Context, rawBody []byte, h VerificationHeaders) bool {
	if h.TransmissionID == "" || h.TransmissionTime == "" || h.CertURL == "" {
		logger.L().Warn("webhook verification headers missing, rejecting without network call")
		return false
	}

	token, err := c.fetchAccessToken(ctx)
	if err != nil {
		logger.L().Error("paypal token fetch failed", zap.Error(err))
		return false
	}

	status, err := c.postVerification(ctx, token, rawBody, h)
	if err != nil {
		logger.L().Error("paypal webhook verification call failed", zap.Error(err))
		return false
	}
	return status == verificationStatusSuccess
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) fetchAccessToken(ctx context.Context) (string, error) {
	if c.ClientID == "" || c.ClientSecret == "" {
		return "", errors.New("PAYPAL_CLIENT_ID/PAYPAL_CLIENT_SECRET are not configured")
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ClientID, c.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("paypal token request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return "", errors.New("paypal token response missing access_token")
	}
	return out.AccessToken, nil
}

func (c *Client) postVerification(ctx context.Context, token string, rawBody []byte, h VerificationHeaders) (string, error) {
	payload := map[string]interface{}{
		"transmission_id":   h.TransmissionID,
		"transmission_time": h.TransmissionTime,
		"cert_url":          h.CertURL,
		"auth_algo":         h.AuthAlgo,
		"transmission_sig":  h.TransmissionSig,
		"webhook_id":        c.WebhookID,
		"webhook_event":     json.RawMessage(rawBody),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/v1/notifications/verify-webhook-signature", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("verification request failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.VerificationStatus), nil
}
