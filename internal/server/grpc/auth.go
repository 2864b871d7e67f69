package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/model"
	"github.com/and161185/tunevault/internal/service"
)

// Methods under these prefixes are served without a principal.
var publicPrefixes = []string{
	"/grpc.health.v1.Health/",
	"/grpc.reflection.",
}

// ErrNoAuth marks a request without a usable bearer token.
var ErrNoAuth = errors.New("no auth")

// Authenticator turns an HS256 bearer token into a Principal.
// Tokens are issued elsewhere; the subject must name a known user.
type Authenticator struct {
	signKey  []byte
	identity service.Identity
	leeway   time.Duration
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(signKey []byte, identity service.Identity) *Authenticator {
	return &Authenticator{signKey: signKey, identity: identity, leeway: 30 * time.Second}
}

// Subject extracts "authorization: Bearer <JWT>", verifies it and returns its subject.
func (a *Authenticator) Subject(ctx context.Context) (uuid.UUID, error) {
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrNoAuth, err)
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return a.signKey, nil
	}, jwt.WithLeeway(a.leeway))
	if err != nil || !parsed.Valid {
		return uuid.Nil, fmt.Errorf("%w: invalid token", ErrNoAuth)
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrNoAuth)
	}
	return id, nil
}

// Principal resolves the verified subject to a known user.
func (a *Authenticator) Principal(ctx context.Context) (model.Principal, error) {
	id, err := a.Subject(ctx)
	if err != nil {
		return model.Principal{}, err
	}
	return a.identity.Lookup(ctx, id)
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}

// Methods callable with a valid token whose subject is not enrolled yet.
var subjectOnly = map[string]bool{
	"/" + CatalogServiceName + "/Enroll": true,
}

func isPublic(method string) bool {
	for _, p := range publicPrefixes {
		if strings.HasPrefix(method, p) {
			return true
		}
	}
	return false
}

// AuthUnary returns a unary server interceptor that stores the caller's Principal in context.
func AuthUnary(a *Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if isPublic(info.FullMethod) {
			return next(ctx, req)
		}
		var (
			p   model.Principal
			err error
		)
		if subjectOnly[info.FullMethod] {
			p.ID, err = a.Subject(ctx)
		} else {
			p, err = a.Principal(ctx)
		}
		if err != nil {
			if errors.Is(err, ErrNoAuth) || errors.Is(err, errs.ErrNotFound) {
				return nil, status.Error(codes.Unauthenticated, "no auth")
			}
			return nil, ToStatus(err)
		}
		return next(WithPrincipal(ctx, p), req)
	}
}
