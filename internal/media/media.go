// Package media hands out presigned upload URLs for listing images.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"campus-market/internal/auth"
	"campus-market/internal/config"
	"campus-market/internal/logger"
)

// ErrUnsupportedType is returned for files that are not images we accept.
var ErrUnsupportedType = errors.New("unsupported image type")

var extensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// store is the part of *minio.Client the uploader uses.
type store interface {
	PresignedPutObject(ctx context.Context, bucket, object string, expires time.Duration) (*url.URL, error)
	EndpointURL() *url.URL
}

// Uploads presigns PUT requests into one bucket.
type Uploads struct {
	client    store
	bucket    string
	publicURL string
	expiry    time.Duration
}

// Upload is what a client needs to put one image and reference it.
type Upload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"uploadUrl"`
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Connect creates the MinIO client and makes sure the bucket exists. An
// empty endpoint disables uploads and returns nil.
func Connect(ctx context.Context, cfg config.MediaConfig) (*Uploads, error) {
	if cfg.Endpoint == "" {
		logger.Infof("media endpoint not configured, uploads disabled")
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client for %s: %w", cfg.Endpoint, err)
	}

	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, existsErr := client.BucketExists(ctx, cfg.Bucket)
		if existsErr != nil || !exists {
			return nil, fmt.Errorf("make bucket %s: %w", cfg.Bucket, err)
		}
	}

	logger.Infof("media uploads go to bucket %s at %s", cfg.Bucket, cfg.Endpoint)
	return newUploads(client, cfg), nil
}

func newUploads(client store, cfg config.MediaConfig) *Uploads {
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &Uploads{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		expiry:    expiry,
	}
}

// Presign returns a PUT URL for a new object under the owner's prefix.
// Only the file name's extension is kept.
func (u *Uploads) Presign(ctx context.Context, ownerID, fileName string) (Upload, error) {
	ext := strings.ToLower(path.Ext(fileName))
	if _, ok := extensions[ext]; !ok {
		return Upload{}, ErrUnsupportedType
	}

	key := fmt.Sprintf("listings/%s/%s%s", ownerID, uuid.New().String(), ext)
	put, err := u.client.PresignedPutObject(ctx, u.bucket, key, u.expiry)
	if err != nil {
		return Upload{}, fmt.Errorf("presign %s: %w", key, err)
	}

	base := u.publicURL
	if base == "" {
		base = u.client.EndpointURL().String()
	}
	return Upload{
		Key:       key,
		UploadURL: put.String(),
		PublicURL: fmt.Sprintf("%s/%s/%s", base, u.bucket, key),
		ExpiresAt: time.Now().Add(u.expiry).UTC(),
	}, nil
}

type presignRequest struct {
	FileName string `json:"fileName"`
}

// Handler handles POST /api/uploads. u may be nil when uploads are disabled.
func Handler(u *Uploads) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if u == nil {
			http.Error(w, "uploads are not configured", http.StatusServiceUnavailable)
			return
		}
		id, _ := auth.FromContext(r.Context())

		var req presignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		up, err := u.Presign(r.Context(), id.UserID, req.FileName)
		if errors.Is(err, ErrUnsupportedType) {
			http.Error(w, "only jpg, png, webp and gif images can be uploaded", http.StatusBadRequest)
			return
		}
		if err != nil {
			logger.Errorf("Presign: %v", err)
			http.Error(w, "could not prepare upload", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(up)
	}
}
