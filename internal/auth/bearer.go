package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"

	"github.com/syllabai/syllabai/internal/cache"
	"github.com/syllabai/syllabai/internal/config"
)

const verificationTTL = 2 * time.Minute

var (
	ErrNoVerifier = errors.New("no jwt validation configured")
	ErrNoSubject  = errors.New("token has no sub")
)

// Bearer verifies JWTs issued by the external auth provider, either against a
// JWKS endpoint or an HS256 shared secret.
type Bearer struct {
	cfg    config.AuthConfig
	logger zerolog.Logger

	mu     sync.Mutex
	keyset jwk.Set
	ksAt   time.Time
	ksTTL  time.Duration

	verCache *cache.Cache[string, *Principal]
}

func NewBearer(cfg config.AuthConfig, logger zerolog.Logger) *Bearer {
	return &Bearer{
		cfg:      cfg,
		logger:   logger.With().Str("component", "auth").Logger(),
		ksTTL:    10 * time.Minute,
		verCache: cache.New[string, *Principal](verificationTTL),
	}
}

func (b *Bearer) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if p, ok := b.verCache.Get(token); ok && p != nil {
		return p, nil
	}

	opts := []jwt.ParseOption{jwt.WithValidate(true), jwt.WithAcceptableSkew(30 * time.Second)}
	switch {
	case b.cfg.JWKSURL != "":
		set, err := b.keySet(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, jwt.WithKeySet(set))
	case b.cfg.JWTSecret != "":
		opts = append(opts, jwt.WithKey(jwa.HS256, []byte(b.cfg.JWTSecret)))
	default:
		return nil, ErrNoVerifier
	}
	if b.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(b.cfg.Issuer))
	}
	if b.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(b.cfg.Audience))
	}

	tok, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	sub := tok.Subject()
	if sub == "" {
		return nil, ErrNoSubject
	}

	p := &Principal{UserID: sub}
	if v, ok := tok.Get("email"); ok {
		if email, ok := v.(string); ok {
			p.Email = email
		}
	}

	// never cache past the token's own expiry
	if te := tok.Expiration(); !te.IsZero() && te.Before(time.Now().Add(verificationTTL)) {
		b.verCache.Set(token, p, te)
	} else {
		b.verCache.Put(token, p)
	}
	return p, nil
}

func (b *Bearer) keySet(ctx context.Context) (jwk.Set, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.keyset != nil && time.Since(b.ksAt) <= b.ksTTL {
		return b.keyset, nil
	}
	set, err := jwk.Fetch(ctx, b.cfg.JWKSURL)
	if err != nil {
		if b.keyset != nil {
			b.logger.Warn().Err(err).Msg("jwks refresh failed, using cached keys")
			return b.keyset, nil
		}
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	b.keyset = set
	b.ksAt = time.Now()
	return set, nil
}
