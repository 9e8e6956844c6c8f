package media

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-market/internal/auth"
	"campus-market/internal/config"
)

type fakeStore struct {
	err     error
	bucket  string
	object  string
	expires time.Duration
}

func (f *fakeStore) PresignedPutObject(_ context.Context, bucket, object string, expires time.Duration) (*url.URL, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket, f.object, f.expires = bucket, object, expires
	return url.Parse("http://minio:9000/" + bucket + "/" + object + "?X-Amz-Signature=abc")
}

func (f *fakeStore) EndpointURL() *url.URL {
	u, _ := url.Parse("http://minio:9000")
	return u
}

func TestPresign(t *testing.T) {
	fs := &fakeStore{}
	u := newUploads(fs, config.MediaConfig{Bucket: "listing-images", URLExpiry: time.Minute})

	up, err := u.Presign(context.Background(), "user-1", "My Lamp.JPG")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(up.Key, "listings/user-1/"))
	assert.True(t, strings.HasSuffix(up.Key, ".jpg"))
	assert.Equal(t, up.Key, fs.object)
	assert.Equal(t, time.Minute, fs.expires)
	assert.Equal(t, "http://minio:9000/listing-images/"+up.Key, up.PublicURL)
	assert.Contains(t, up.UploadURL, "X-Amz-Signature")
}

func TestPresignPublicURL(t *testing.T) {
	u := newUploads(&fakeStore{}, config.MediaConfig{Bucket: "b", PublicURL: "https://cdn.campus.edu/"})
	up, err := u.Presign(context.Background(), "user-1", "a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.campus.edu/b/"+up.Key, up.PublicURL)
	assert.Equal(t, 15*time.Minute, u.expiry)
}

func TestPresignRejectsNonImages(t *testing.T) {
	u := newUploads(&fakeStore{}, config.MediaConfig{Bucket: "b"})
	_, err := u.Presign(context.Background(), "user-1", "payload.exe")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestHandler(t *testing.T) {
	u := newUploads(&fakeStore{}, config.MediaConfig{Bucket: "b"})

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", strings.NewReader(`{"fileName":"desk.webp"}`))
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: "user-7"}))
	rec := httptest.NewRecorder()
	Handler(u)(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var up Upload
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&up))
	assert.True(t, strings.HasPrefix(up.Key, "listings/user-7/"))
}

func TestHandlerErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(nil)(rec, httptest.NewRequest(http.MethodPost, "/api/uploads", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	Handler(newUploads(&fakeStore{}, config.MediaConfig{Bucket: "b"}))(rec,
		httptest.NewRequest(http.MethodPost, "/api/uploads", strings.NewReader(`{"fileName":"notes.pdf"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	Handler(newUploads(&fakeStore{err: errors.New("no route")}, config.MediaConfig{Bucket: "b"}))(rec,
		httptest.NewRequest(http.MethodPost, "/api/uploads", strings.NewReader(`{"fileName":"a.png"}`)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
