// Package service contains the catalog's application services: track ingestion and
// cataloguing, collections, playlists and their memberships, sharing, and the
// cascading deletes that keep them consistent.
package service

import (
	"io"
	"strings"
	"time"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/metrics"
	"github.com/and161185/tunevault/internal/model"
)

// Fingerprinter computes a deterministic content digest.
type Fingerprinter interface {
	Digest(r io.Reader) (string, error)
}

// Prober reads the playing time of a media stream in seconds.
type Prober interface {
	ProbeDuration(r io.ReadSeeker) (float64, error)
}

func conflict(rec *metrics.Recorder, code, msg string) error {
	rec.Conflict(code)
	return errs.Conflict(code, msg)
}

// resolveOrder maps "", asc and desc to a descending flag; empty means desc.
func resolveOrder(order string) (desc bool, err error) {
	switch strings.ToLower(order) {
	case "", model.SortDesc:
		return true, nil
	case model.SortAsc:
		return false, nil
	default:
		return false, errs.Validation(errs.CodeInvalidSort, "sort order must be asc or desc")
	}
}

func clock() time.Time { return time.Now().UTC() }
