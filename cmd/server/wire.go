package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/and161185/tunevault/internal/blobstore"
	"github.com/and161185/tunevault/internal/config"
	"github.com/and161185/tunevault/internal/media"
	"github.com/and161185/tunevault/internal/metrics"
	"github.com/and161185/tunevault/internal/migrate"
	"github.com/and161185/tunevault/internal/repository"
	"github.com/and161185/tunevault/internal/repository/memory"
	"github.com/and161185/tunevault/internal/repository/postgres"
	grpcserver "github.com/and161185/tunevault/internal/server/grpc"
	"github.com/and161185/tunevault/internal/service"
)

// catalog is the set of services mounted by the server process.
type catalog struct {
	Tracks      service.TrackService
	Collections service.CollectionService
	Playlists   service.PlaylistService
	Members     service.MembershipService
	Coordinator *service.Coordinator
	Sharing     service.SharingService
	Identity    *service.IdentityImpl
	Auth        *grpcserver.Authenticator
	Metrics     *metrics.Recorder
	API         *grpcserver.Catalog
}

type backend interface {
	repository.Transactor
	Store() repository.Store
}

// openStore returns the configured backend and a release func.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (backend, func(), error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory store, data is lost on exit")
		return memory.New(), func() {}, nil
	}
	if err := migrate.Up(ctx, cfg.DSN, log); err != nil {
		return nil, nil, fmt.Errorf("migrate up: %w", err)
	}
	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	return db, db.Close, nil
}

func openBlobs(ctx context.Context, cfg config.Blob) (blobstore.Store, error) {
	if cfg.Backend == config.BlobMemory {
		return blobstore.NewMemory(), nil
	}
	return blobstore.NewS3(ctx, blobstore.S3Config{
		Region:   cfg.Region,
		Endpoint: cfg.Endpoint,
		Bucket:   cfg.Bucket,
		User:     cfg.User,
		Password: cfg.Password,
	})
}

// buildCatalog wires store, media helpers, blob storage and metrics into the services.
func buildCatalog(ctx context.Context, cfg config.Config, log *zap.Logger, reg prometheus.Registerer) (*catalog, func(), error) {
	db, release, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	blobs, err := openBlobs(ctx, cfg.Blob)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("blob store: %w", err)
	}
	fp, err := media.NewFingerprinter(cfg.Fingerprint)
	if err != nil {
		release()
		return nil, nil, err
	}
	rec := metrics.New(reg)

	st := db.Store()
	identity := service.NewIdentity(st.Users)
	tracks := service.NewTrackService(st, db, fp, media.ID3Prober{}, blobs, rec, log.Named("tracks"))
	c := &catalog{
		Tracks:      tracks,
		Collections: service.NewCollectionService(st, db, tracks, rec, log.Named("collections")),
		Playlists:   service.NewPlaylistService(st, rec),
		Members:     service.NewMembershipService(st, rec),
		Coordinator: service.NewCoordinator(st, db, rec, log.Named("coordinator")),
		Sharing:     service.NewSharingService(st, identity, rec),
		Identity:    identity,
		Auth:        grpcserver.NewAuthenticator([]byte(cfg.JWTKey), identity),
		Metrics:     rec,
	}
	c.API = grpcserver.NewCatalog(c.Identity, c.Tracks, c.Collections, c.Playlists, c.Members, c.Coordinator, c.Sharing)
	log.Info("catalog ready",
		zap.String("store", cfg.Store),
		zap.String("blob", cfg.Blob.Backend),
		zap.String("fingerprint", fp.Algo()),
	)
	return c, release, nil
}
