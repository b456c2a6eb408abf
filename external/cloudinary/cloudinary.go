package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// CloudinaryUploader pushes image bytes to Cloudinary using the signed
// upload API and returns the served URL.
type CloudinaryUploader struct {
	cloudName string
	apiKey    string
	apiSecret string
	client    *http.Client
	baseURL   string
}

func NewCloudinaryUploader(cloudName, apiKey, apiSecret string) (*CloudinaryUploader, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, errors.New("cloudinary credentials not set")
	}

	return &CloudinaryUploader{
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: "https://api.cloudinary.com/v1_1",
	}, nil
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload stores the image in the given folder and returns its secure URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, data []byte, folder string) (string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := u.sign("folder=" + folder + "&timestamp=" + timestamp)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", "upload")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	_ = w.WriteField("folder", folder)
	_ = w.WriteField("timestamp", timestamp)
	_ = w.WriteField("api_key", u.apiKey)
	_ = w.WriteField("signature", signature)
	if err := w.Close(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/image/upload", u.baseURL, u.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", errors.New("cloudinary upload failed: " + out.Error.Message)
	}
	return out.SecureURL, nil
}

func (u *CloudinaryUploader) sign(params string) string {
	sum := sha1.Sum([]byte(params + u.apiSecret))
	return hex.EncodeToString(sum[:])
}
