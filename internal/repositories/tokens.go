package repositories

import (
	"context"
	"time"

	"github.com/torao/kazzla/internal/apperrors"
	"github.com/torao/kazzla/internal/interfaces"
	"github.com/torao/kazzla/internal/schemas"
)

// TokenRepository reads and writes auth_tokens. Only digests of token values are stored.
type TokenRepository struct{}

// Insert stores a token under the digest of its value.
func (TokenRepository) Insert(ctx context.Context, db interfaces.DBTX, token *schemas.Token, digest string) error {
	const op = "repositories.TokenRepository.Insert"

	queryString := `INSERT INTO auth_tokens (id, account_id, scheme, token_hash, target, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := db.Exec(ctx, queryString, token.ID, token.AccountID, string(token.Scheme), digest, token.Target,
		token.IssuedAt, token.ExpiresAt)
	if err != nil {
		if constraint, ok := pgUniqueConstraint(err); ok && constraint == constraintTokenAccount {
			return apperrors.ConflictError{Op: op, Field: "token", Kind: apperrors.ErrInvalidInput}
		}
		if pgIsForeignKeyViolation(err) {
			return apperrors.New(op, apperrors.ErrNotFound, "account")
		}
		return err
	}
	return nil
}

// Take deletes the token matching (scheme, digest) and returns it, in one statement.
// Of several concurrent callers at most one receives the row; the others get apperrors.ErrNotFound.
// Expiry is not checked here.
func (TokenRepository) Take(ctx context.Context, db interfaces.DBTX, scheme schemas.TokenScheme, digest string) (*schemas.Token, error) {
	queryString := `DELETE FROM auth_tokens WHERE scheme = $1 AND token_hash = $2
		RETURNING id, account_id, target, issued_at, expires_at`

	token := &schemas.Token{Scheme: scheme}
	var target *string
	var issuedAt, expiresAt time.Time
	err := db.QueryRow(ctx, queryString, string(scheme), digest).Scan(&token.ID, &token.AccountID, &target, &issuedAt, &expiresAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.New("repositories.TokenRepository.Take", apperrors.ErrNotFound, "token")
		}
		return nil, err
	}
	token.Target = target
	token.IssuedAt = issuedAt
	token.ExpiresAt = expiresAt
	return token, nil
}

// DeleteExpired removes every token that expired before now and returns how many were removed.
func (TokenRepository) DeleteExpired(ctx context.Context, db interfaces.DBTX, now time.Time) (int64, error) {
	tag, err := db.Exec(ctx, "DELETE FROM auth_tokens WHERE expires_at < $1", now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
