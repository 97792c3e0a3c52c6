// Package credentials hashes and verifies account passwords.
//
// The default scheme stores "sha256:" followed by the hex SHA-256 digest of plaintext + ":" + salt,
// where salt is a per-account random string. The bcrypt scheme is available for new hashes; Verify
// dispatches on the stored prefix so both kinds keep working side by side.
package credentials

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/torao/kazzla/internal/apperrors"
	"github.com/torao/kazzla/internal/schemas"
)

type Scheme string

const (
	SchemeSHA256 Scheme = "sha256"
	SchemeBcrypt Scheme = "bcrypt"
)

const (
	// SaltLength is the number of characters of a generated salt.
	SaltLength = 32

	saltAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Store computes and checks password hashes. It performs no I/O.
type Store struct {
	scheme     Scheme
	bcryptCost int
	dummy      schemas.Account
}

// NewStore returns a Store producing hashes of the given scheme. Unknown names fall back to sha256.
func NewStore(scheme string) *Store {
	s := &Store{scheme: SchemeSHA256, bcryptCost: bcrypt.DefaultCost}
	if Scheme(strings.ToLower(scheme)) == SchemeBcrypt {
		s.scheme = SchemeBcrypt
	}

	// Used by VerifyDummy so that unknown accounts cost the same work as known ones.
	_ = s.SetPassword(&s.dummy, "dummy-password-for-timing")
	return s
}

// Scheme returns the scheme new hashes are produced with.
func (s *Store) Scheme() Scheme {
	return s.scheme
}

// SetPassword assigns plaintext as the new password of account.
// A salt is generated when the account has none yet; an existing salt is reused.
func (s *Store) SetPassword(account *schemas.Account, plaintext string) error {
	const op = "credentials.SetPassword"

	if plaintext == "" {
		return apperrors.New(op, apperrors.ErrInvalidInput, "password must not be empty")
	}

	if account.Salt == "" {
		salt, err := GenerateSalt()
		if err != nil {
			return err
		}
		account.Salt = salt
	}

	switch s.scheme {
	case SchemeBcrypt:
		hash, err := bcrypt.GenerateFromPassword([]byte(digest(plaintext, account.Salt)), s.bcryptCost)
		if err != nil {
			return err
		}
		account.HashedPassword = string(SchemeBcrypt) + ":" + string(hash)
	default:
		account.HashedPassword = HashSHA256(plaintext, account.Salt)
	}
	return nil
}

// Verify reports whether candidate matches the password stored on account.
// An account without a stored hash never verifies.
func (s *Store) Verify(account *schemas.Account, candidate string) bool {
	stored := account.HashedPassword
	switch {
	case strings.HasPrefix(stored, string(SchemeSHA256)+":"):
		computed := HashSHA256(candidate, account.Salt)
		return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1
	case strings.HasPrefix(stored, string(SchemeBcrypt)+":"):
		hash := strings.TrimPrefix(stored, string(SchemeBcrypt)+":")
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(digest(candidate, account.Salt))) == nil
	default:
		return false
	}
}

// VerifyDummy burns the same amount of work as Verify against a real account and always fails.
func (s *Store) VerifyDummy(candidate string) bool {
	_ = s.Verify(&s.dummy, candidate)
	return false
}

// HashSHA256 returns the encoded sha256 hash of plaintext with salt.
func HashSHA256(plaintext, salt string) string {
	return string(SchemeSHA256) + ":" + digest(plaintext, salt)
}

// GenerateSalt returns SaltLength characters drawn uniformly from [a-zA-Z0-9] using crypto/rand.
func GenerateSalt() (string, error) {
	max := big.NewInt(int64(len(saltAlphabet)))
	var b strings.Builder
	b.Grow(SaltLength)
	for i := 0; i < SaltLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(saltAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// digest is the hex SHA-256 of plaintext + ":" + salt. bcrypt is fed the digest because it
// only reads the first 72 bytes of its input.
func digest(plaintext, salt string) string {
	sum := sha256.Sum256([]byte(plaintext + ":" + salt))
	return hex.EncodeToString(sum[:])
}
