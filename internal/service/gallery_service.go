package service

import (
	"context"
	"io"
	"path"
	"strings"

	"basmah/internal/metrics"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Uploader stores one object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, folder, name string, r io.Reader) (string, error)
}

// UploadFile is one item of a batch. Open is called once, from the worker
// that uploads it.
type UploadFile struct {
	Name string
	Open func() (io.ReadCloser, error)
}

type UploadResult struct {
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`
}

// GalleryService uploads image batches in parallel and reports every item.
// A failing item never cancels or rolls back the others.
type GalleryService struct {
	uploader    Uploader
	concurrency int
}

func NewGalleryService(uploader Uploader, concurrency int) *GalleryService {
	if concurrency < 1 {
		concurrency = 4
	}
	return &GalleryService{uploader: uploader, concurrency: concurrency}
}

// UploadBatch returns one result per file in input order. The error wraps
// ErrPartialFailure when some items failed and ErrUploadFailed when all did.
func (s *GalleryService) UploadBatch(ctx context.Context, folder string, files []UploadFile) ([]UploadResult, error) {
	if s.uploader == nil {
		return nil, ErrStorageDisabled
	}
	if len(files) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "no files")
	}
	folder = strings.Trim(path.Clean("/"+folder), "/")

	results := make([]UploadResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, f := range files {
		results[i].Name = f.Name
		g.Go(func() error {
			url, err := s.uploadOne(gctx, folder, f)
			if err != nil {
				results[i].Err = err
				results[i].Error = err.Error()
				metrics.GalleryUploads.WithLabelValues("error").Inc()
				log.Warn().Err(err).Str("file", f.Name).Msg("gallery upload failed")
				return nil
			}
			results[i].URL = url
			metrics.GalleryUploads.WithLabelValues("ok").Inc()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	switch {
	case failed == len(results):
		return results, errors.Wrapf(ErrUploadFailed, "all %d uploads failed", failed)
	case failed > 0:
		return results, errors.Wrapf(ErrPartialFailure, "%d of %d uploads failed", failed, len(results))
	}
	return results, nil
}

func (s *GalleryService) uploadOne(ctx context.Context, folder string, f UploadFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Open == nil {
		return "", errors.Errorf("%s: no content", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return "", errors.Wrapf(err, "open %s", f.Name)
	}
	defer rc.Close()
	return s.uploader.Upload(ctx, folder, f.Name, rc)
}
