package attachments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aldoetobex/legal-consult-backend/pkg/models"
)

// ErrStorageDisabled is returned when no Supabase project is configured.
var ErrStorageDisabled = errors.New("attachment storage is not configured")

/*
Bucket wraps the Supabase Storage REST calls the service needs.

Both `apikey` and `Authorization: Bearer <key>` are sent, which works for the legacy
service_role JWT and for secret API keys.
*/
type Bucket struct {
	baseURL string // e.g. https://<project>.supabase.co
	apiKey  string
	bucket  string
	client  *http.Client
	log     logrus.FieldLogger
}

// NewBucket returns a client for one storage bucket. An empty baseURL or apiKey yields a
// Bucket whose calls fail with ErrStorageDisabled.
func NewBucket(baseURL, apiKey, bucket string, log logrus.FieldLogger) *Bucket {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bucket{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		bucket:  bucket,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// Configured reports whether the bucket can be reached at all.
func (b *Bucket) Configured() bool {
	return b != nil && b.baseURL != "" && b.apiKey != ""
}

// ObjectKey builds a per-owner object key: <entity_type>/<entity_id>/<random>-<filename>
func ObjectKey(kind models.EntityType, id uuid.UUID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return path.Join(string(kind), id.String(), uuid.NewString()[:8]+"-"+name)
}

func (b *Bucket) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	if !b.Configured() {
		return nil, ErrStorageDisabled
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", b.apiKey)
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	return req, nil
}

func (b *Bucket) do(req *http.Request, op string) (*http.Response, error) {
	res, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase %s: %w", op, err)
	}
	if res.StatusCode >= 300 {
		defer res.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return nil, fmt.Errorf("supabase %s error: %s | %s", op, res.Status, string(body))
	}
	return res, nil
}

// Upload stores an object: POST /storage/v1/object/{bucket}/{key}
func (b *Bucket) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", b.baseURL, b.bucket, key)
	req, err := b.newRequest(ctx, http.MethodPost, url, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	res, err := b.do(req, "upload")
	if err != nil {
		return err
	}
	res.Body.Close()
	return nil
}

// SignedURL creates a short-lived download URL:
// POST /storage/v1/object/sign/{bucket}/{key}  body: {"expiresIn": <seconds>}
func (b *Bucket) SignedURL(ctx context.Context, key string, expiresIn int) (string, error) {
	url := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", b.baseURL, b.bucket, key)
	body, _ := json.Marshal(map[string]int{"expiresIn": expiresIn})
	req, err := b.newRequest(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := b.do(req, "sign")
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	var out struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("supabase sign: decode: %w", err)
	}
	if out.SignedURL == "" {
		return "", errors.New("supabase sign: empty signedURL in response")
	}
	// the API answers with a path relative to /storage/v1
	return b.baseURL + "/storage/v1" + out.SignedURL, nil
}

// BulkDelete removes objects in one call:
// POST /storage/v1/object/{bucket}/remove  body: {"prefixes": [...]}
// Missing objects are not an error.
func (b *Bucket) BulkDelete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	url := fmt.Sprintf("%s/storage/v1/object/%s/remove", b.baseURL, b.bucket)
	body, _ := json.Marshal(map[string][]string{"prefixes": keys})
	req, err := b.newRequest(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := b.do(req, "bulk delete")
	if err != nil {
		return err
	}
	res.Body.Close()
	return nil
}

// RemoveObjects drops the stored files of already deleted attachment rows. Failures are
// logged, never returned: the rows are gone and an orphaned object is harmless.
func (b *Bucket) RemoveObjects(ctx context.Context, atts []models.Attachment) {
	keys := make([]string, 0, len(atts))
	for _, a := range atts {
		if a.S3URL != nil && *a.S3URL != "" {
			keys = append(keys, *a.S3URL)
		}
	}
	if len(keys) == 0 || !b.Configured() {
		return
	}
	// the request that deleted the rows may already be finished
	ctx = context.WithoutCancel(ctx)
	if err := b.BulkDelete(ctx, keys); err != nil {
		b.log.WithError(err).WithField("objects", len(keys)).Warn("failed to remove stored attachments")
	}
}
