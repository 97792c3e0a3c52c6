package managers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/torao/kazzla/internal/apperrors"
	"github.com/torao/kazzla/internal/interfaces"
	"github.com/torao/kazzla/internal/metrics"
	"github.com/torao/kazzla/internal/repositories"
	"github.com/torao/kazzla/internal/schemas"
)

// DefaultTokenTTL is the lifetime of a token issued without an explicit ttl.
const DefaultTokenTTL = 24 * time.Hour

// tokenBytes is the entropy of a token value (256 bits).
const tokenBytes = 32

// TokenMgr issues and redeems single-use, time-boxed tokens.
type TokenMgr interface {
	Issue(ctx context.Context, db interfaces.DBTX, accountID string, scheme schemas.TokenScheme, target *string, ttl time.Duration) (string, *schemas.Token, error)
	Redeem(ctx context.Context, db interfaces.DBTX, scheme schemas.TokenScheme, value string) (*schemas.Token, error)
	Purge(ctx context.Context, db interfaces.DBTX) (int64, error)
}

// TokenManager stores the SHA-256 digest of each token value, never the value itself.
type TokenManager struct {
	tokens  repositories.TokenRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewTokenManager(m *metrics.Metrics) *TokenManager {
	return &TokenManager{metrics: m, now: time.Now}
}

// Issue creates a token for accountID and returns its plain value, which is not retrievable later.
// ttl <= 0 selects DefaultTokenTTL.
func (tm *TokenManager) Issue(ctx context.Context, db interfaces.DBTX, accountID string, scheme schemas.TokenScheme, target *string, ttl time.Duration) (string, *schemas.Token, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	value, err := newOpaqueToken()
	if err != nil {
		return "", nil, err
	}

	issuedAt := tm.now()
	token := &schemas.Token{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Scheme:    scheme,
		Target:    target,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
	}
	if err := tm.tokens.Insert(ctx, db, token, digestToken(value)); err != nil {
		return "", nil, err
	}

	tm.metrics.TokensIssued.WithLabelValues(string(scheme)).Inc()
	return value, token, nil
}

// Redeem consumes the token with the given value. The row is deleted by the same statement that finds
// it, so of two concurrent callers only one succeeds.
//
// An unknown value yields apperrors.ErrTokenNotFound. An expired token yields the token together with
// apperrors.ErrTokenExpired; its row is already deleted on db, so callers commit when they want the
// expired token gone.
func (tm *TokenManager) Redeem(ctx context.Context, db interfaces.DBTX, scheme schemas.TokenScheme, value string) (*schemas.Token, error) {
	const op = "managers.TokenManager.Redeem"

	if value == "" {
		tm.countRedeem(scheme, "not_found")
		return nil, apperrors.New(op, apperrors.ErrTokenNotFound, "empty token")
	}

	token, err := tm.tokens.Take(ctx, db, scheme, digestToken(value))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			tm.countRedeem(scheme, "not_found")
			return nil, apperrors.New(op, apperrors.ErrTokenNotFound, "")
		}
		return nil, err
	}

	if token.Expired(tm.now()) {
		tm.countRedeem(scheme, "expired")
		log.Debugf("Token %s of scheme %s expired at %s", token.ID, scheme, token.ExpiresAt.Format(time.RFC3339))
		return token, apperrors.New(op, apperrors.ErrTokenExpired, "")
	}

	tm.countRedeem(scheme, "success")
	return token, nil
}

// Purge deletes all expired tokens.
func (tm *TokenManager) Purge(ctx context.Context, db interfaces.DBTX) (int64, error) {
	return tm.tokens.DeleteExpired(ctx, db, tm.now())
}

func (tm *TokenManager) countRedeem(scheme schemas.TokenScheme, outcome string) {
	tm.metrics.TokensRedeemed.WithLabelValues(string(scheme), outcome).Inc()
}

// newOpaqueToken returns 256 random bits encoded as unpadded base64url.
func newOpaqueToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func digestToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
