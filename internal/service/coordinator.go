package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/metrics"
	"github.com/and161185/tunevault/internal/repository"
)

// Coordinator runs the deletes that must be atomic across record kinds.
type Coordinator struct {
	store   repository.Store
	tx      repository.Transactor
	metrics *metrics.Recorder
	log     *zap.Logger
	now     func() time.Time
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(store repository.Store, tx repository.Transactor, rec *metrics.Recorder, log *zap.Logger) *Coordinator {
	return &Coordinator{store: store, tx: tx, metrics: rec, log: log, now: clock}
}

// DeletePlaylist soft-deletes the playlist, its memberships and its grants in one unit of work.
// Nothing is observable if any step fails. A retry after success reports NotFound.
func (c *Coordinator) DeletePlaylist(ctx context.Context, playlistID, requester uuid.UUID) error {
	p, err := activePlaylist(ctx, c.store, playlistID)
	if err != nil {
		return err
	}
	if p.OwnerID != requester {
		return errs.Unauthorized(errs.CodeUnauthorized, "only the owner can delete a playlist")
	}

	var links, grants int64
	err = c.tx.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		at := c.now()
		if err := st.Playlists.SoftDelete(ctx, p.ID, at); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				// lost a race with a concurrent delete
				return errs.NotFound(errs.CodePlaylistNotFound, "playlist not found")
			}
			return err
		}
		var err error
		if links, err = st.Memberships.SoftDeleteByPlaylist(ctx, p.ID, at); err != nil {
			return err
		}
		grants, err = st.Grants.SoftDeleteByPlaylist(ctx, p.ID, at)
		return err
	})
	if errors.Is(err, errs.ErrNotFound) {
		return err
	}
	if err != nil {
		c.metrics.TxAbort("delete_playlist")
		c.log.Error("playlist delete aborted", zap.String("playlist", p.ID.String()), zap.Error(err))
		return errs.Wrap(errs.ErrDeletionFailed, errs.CodePlaylistDeletion, "playlist could not be deleted",
			errs.Wrap(errs.ErrTransactionAborted, errs.CodeTxAborted, "rolled back", err))
	}
	c.metrics.Cascade("membership", links)
	c.metrics.Cascade("grant", grants)
	return nil
}
