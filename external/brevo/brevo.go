package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// BrevoMailer sends transactional email through the Brevo (Sendinblue) API.
type BrevoMailer struct {
	apiKey      string
	senderName  string
	senderEmail string
	client      *http.Client
	baseURL     string
}

func NewBrevoMailer(apiKey, senderName, senderEmail string) (*BrevoMailer, error) {
	if apiKey == "" {
		return nil, errors.New("BREVO_API_KEY not set")
	}

	return &BrevoMailer{
		apiKey:      apiKey,
		senderName:  senderName,
		senderEmail: senderEmail,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		baseURL: "https://api.brevo.com/v3",
	}, nil
}

type emailAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type sendRequest struct {
	Sender      emailAddress   `json:"sender"`
	To          []emailAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

// Send delivers one HTML email to a single recipient.
func (m *BrevoMailer) Send(ctx context.Context, toEmail, subject, htmlContent string) error {
	body := sendRequest{
		Sender:      emailAddress{Name: m.senderName, Email: m.senderEmail},
		To:          []emailAddress{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: htmlContent,
	}

	b, _ := json.Marshal(body)

	req, _ := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		m.baseURL+"/smtp/email",
		bytes.NewBuffer(b),
	)

	req.Header.Set("api-key", m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		return errors.New("failed to send email: " + buf.String())
	}

	return nil
}
