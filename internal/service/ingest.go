package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/and161185/tunevault/internal/blobstore"
	"github.com/and161185/tunevault/internal/errs"
)

// ingested is one media/cover pair on its way into the catalog.
type ingested struct {
	Fingerprint string
	Duration    float64
	Location    string
	Cover       string

	media, cover []byte
}

// read buffers both streams, fingerprints the media and probes its duration.
// A failed probe is tolerated: duration stays 0 and the failure is logged.
func (s *TrackServiceImpl) read(media, cover io.Reader) (ingested, error) {
	m, err := io.ReadAll(media)
	if err != nil {
		return ingested{}, fmt.Errorf("read media: %w", err)
	}
	c, err := io.ReadAll(cover)
	if err != nil {
		return ingested{}, fmt.Errorf("read cover: %w", err)
	}
	fp, err := s.fp.Digest(bytes.NewReader(m))
	if err != nil {
		return ingested{}, fmt.Errorf("fingerprint: %w", err)
	}

	up := ingested{Fingerprint: fp, media: m, cover: c}
	d, err := s.probe.ProbeDuration(bytes.NewReader(m))
	if err == nil && !validDuration(d) {
		err = fmt.Errorf("unusable duration %v", d)
	}
	if err != nil {
		s.metrics.ProbeFailure()
		s.log.Warn("duration probe failed, using 0",
			zap.String("code", errs.CodeProbeFailed),
			zap.String("fingerprint", fp),
			zap.Error(errs.Wrap(errs.ErrDependency, errs.CodeProbeFailed, "probe duration", err)),
		)
	} else {
		up.Duration = d
	}
	return up, nil
}

// upload stores both buffers and records their locations. A half-done pair is rolled back.
func (s *TrackServiceImpl) upload(ctx context.Context, up *ingested) error {
	now := s.now()
	loc, err := s.blobs.Put(ctx, blobstore.NewKey("media", now), bytes.NewReader(up.media), int64(len(up.media)))
	if err != nil {
		return fmt.Errorf("store media: %w", err)
	}
	cov, err := s.blobs.Put(ctx, blobstore.NewKey("covers", now), bytes.NewReader(up.cover), int64(len(up.cover)))
	if err != nil {
		s.discard(ctx, ingested{Location: loc})
		return fmt.Errorf("store cover: %w", err)
	}
	up.Location, up.Cover = loc, cov
	up.media, up.cover = nil, nil
	return nil
}

func (s *TrackServiceImpl) ingest(ctx context.Context, media, cover io.Reader) (ingested, error) {
	up, err := s.read(media, cover)
	if err != nil {
		return ingested{}, err
	}
	if err := s.upload(ctx, &up); err != nil {
		return ingested{}, err
	}
	return up, nil
}

// discard deletes uploaded blobs after a failed creation. Failures are logged only.
func (s *TrackServiceImpl) discard(ctx context.Context, ups ...ingested) {
	ctx = context.WithoutCancel(ctx)
	for _, up := range ups {
		for _, loc := range []string{up.Location, up.Cover} {
			if loc == "" {
				continue
			}
			if err := s.blobs.Delete(ctx, loc); err != nil {
				s.log.Warn("blob cleanup failed", zap.String("location", loc), zap.Error(err))
			}
		}
	}
}
