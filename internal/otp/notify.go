package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aldoetobex/legal-consult-backend/pkg/sanitize"
)

// Notifier delivers a freshly issued code to the phone owner.
type Notifier interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// LogNotifier writes the code to the log. Development only.
type LogNotifier struct {
	Log logrus.FieldLogger
}

func (n LogNotifier) SendOTP(_ context.Context, phone, code string) error {
	n.Log.Warnf("[DEV] OTP for %s: %s", sanitize.MaskPhone(phone), code)
	return nil
}

const defaultSMSTimeout = 15 * time.Second

// SMSNotifier posts the code to an HTTP SMS gateway (route=otp).
type SMSNotifier struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
}

// NewSMSNotifier returns a notifier for the given gateway.
func NewSMSNotifier(apiKey, baseURL, sender string) *SMSNotifier {
	if baseURL == "" {
		baseURL = "https://www.smslocal.com/dev/bulkV2"
	}
	return &SMSNotifier{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: defaultSMSTimeout},
	}
}

// SendOTP never logs the code.
func (n *SMSNotifier) SendOTP(ctx context.Context, phone, code string) error {
	if n.APIKey == "" {
		return fmt.Errorf("sms: API key not configured")
	}
	body := map[string]string{
		"route":     "otp",
		"numbers":   phone,
		"variables": code,
	}
	if n.Sender != "" {
		body["sender_id"] = n.Sender
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", n.APIKey)

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
