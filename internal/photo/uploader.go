package photo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dkiernan/scoutpost/internal/location"
)

const uploadTimeout = 60 * time.Second

// credentialSource supplies the current bearer credential for uploads.
type credentialSource interface {
	Credential() string
}

// APIUploader sends staged photos to the production API's multipart
// upload endpoint, keyed by the owning record's durable identifier.
type APIUploader struct {
	baseURL string
	client  *http.Client
	creds   credentialSource
}

// NewAPIUploader creates an uploader for the given API base URL.
func NewAPIUploader(baseURL string, creds credentialSource) *APIUploader {
	return &APIUploader{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   uploadTimeout,
		},
	}
}

// Upload posts one photo as multipart form data: the binary payload under
// "photo" and, when non-empty, the caption under "caption".
func (u *APIUploader) Upload(ctx context.Context, ownerID int64, photo *Staged) error {
	token := u.creds.Credential()
	if token == "" {
		return location.ErrAuthRequired
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("photo", photo.Name)
	if err != nil {
		return fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(photo.Data); err != nil {
		return fmt.Errorf("build upload form: %w", err)
	}
	if photo.Caption != "" {
		if err := writer.WriteField("caption", photo.Caption); err != nil {
			return fmt.Errorf("build upload form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("build upload form: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/locations/%d/photos", u.baseURL, ownerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return &location.RemoteError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := u.client.Do(req)
	if err != nil {
		return &location.RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &location.RemoteError{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	return nil
}
