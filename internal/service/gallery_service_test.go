package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	mu      sync.Mutex
	fail    map[string]bool
	folders []string
}

func (u *fakeUploader) Upload(ctx context.Context, folder, name string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	u.mu.Lock()
	u.folders = append(u.folders, folder)
	u.mu.Unlock()
	if u.fail[name] {
		return "", errors.New("storage rejected " + name)
	}
	return "https://cdn.example.com/" + folder + "/" + name, nil
}

func files(names ...string) []UploadFile {
	out := make([]UploadFile, len(names))
	for i, n := range names {
		out[i] = UploadFile{Name: n, Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte("img"))), nil
		}}
	}
	return out
}

func TestUploadBatchAllSucceed(t *testing.T) {
	svc := NewGalleryService(&fakeUploader{}, 2)
	res, err := svc.UploadBatch(context.Background(), "activities/42", files("a.jpg", "b.jpg", "c.jpg"))
	require.NoError(t, err)
	require.Len(t, res, 3)
	for i, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		assert.Equal(t, name, res[i].Name)
		assert.True(t, strings.HasSuffix(res[i].URL, "activities/42/"+name))
		assert.Empty(t, res[i].Error)
	}
}

func TestUploadBatchPartialFailureKeepsSuccesses(t *testing.T) {
	up := &fakeUploader{fail: map[string]bool{"b.jpg": true}}
	res, err := NewGalleryService(up, 3).UploadBatch(context.Background(), "gallery", files("a.jpg", "b.jpg", "c.jpg"))
	assert.ErrorIs(t, err, ErrPartialFailure)
	require.Len(t, res, 3)
	assert.NotEmpty(t, res[0].URL)
	assert.Empty(t, res[1].URL)
	assert.Contains(t, res[1].Error, "b.jpg")
	assert.NotEmpty(t, res[2].URL)
}

func TestUploadBatchAllFail(t *testing.T) {
	up := &fakeUploader{fail: map[string]bool{"a.jpg": true, "b.jpg": true}}
	_, err := NewGalleryService(up, 2).UploadBatch(context.Background(), "gallery", files("a.jpg", "b.jpg"))
	assert.ErrorIs(t, err, ErrUploadFailed)
}

func TestUploadBatchValidation(t *testing.T) {
	_, err := NewGalleryService(nil, 2).UploadBatch(context.Background(), "g", files("a.jpg"))
	assert.ErrorIs(t, err, ErrStorageDisabled)

	_, err = NewGalleryService(&fakeUploader{}, 2).UploadBatch(context.Background(), "g", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUploadBatchCleansFolder(t *testing.T) {
	up := &fakeUploader{}
	_, err := NewGalleryService(up, 1).UploadBatch(context.Background(), "../../etc/", files("a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []string{"etc"}, up.folders)
}
