package managers

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

const (
	sessionIssuer   = "kazzla.com"
	sessionLifetime = 24 * time.Hour
	// epochClaim carries the session epoch of the account at the time the token was issued.
	epochClaim = "sep"
)

// JWTMgr signs and validates the session tokens that carry the signed-in account id.
type JWTMgr interface {
	GenerateJWT(claims jwt.Claims) (string, error)
	ValidateJWT(tokenString string) (jwt.Claims, error)
	GenerateClaims(accountId string, epoch int64) jwt.Claims
	Lifetime() time.Duration
}

// JWTManager handles JWT generation, signing, and validation with an Ed25519 key pair.
type JWTManager struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
}

// NewJWTManager creates a JWTManager for the given key pair.
func NewJWTManager(privateKey ed25519.PrivateKey, publicKey ed25519.PublicKey) JWTMgr {
	return &JWTManager{
		privateKey: privateKey,
		publicKey:  publicKey,
	}
}

// NewJWTManagerFromFile loads the key pair stored at path, generating and saving one on first start.
func NewJWTManagerFromFile(path string) (JWTMgr, error) {
	privateKey, publicKey, err := loadKeyPair(path)
	if err != nil {
		log.Infof("No usable key pair at %q, generating a new one", path)
		privateKey, publicKey, err = generateKeyPair(path)
		if err != nil {
			return nil, err
		}
	}

	return NewJWTManager(privateKey, publicKey), nil
}

// GenerateClaims generates the standard JWT claims plus the session epoch of the account.
func (jm *JWTManager) GenerateClaims(accountId string, epoch int64) jwt.Claims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":      sessionIssuer,
		"iat":      now.Unix(),
		"exp":      now.Add(sessionLifetime).Unix(),
		"sub":      accountId,
		epochClaim: epoch,
	}
}

// SessionEpoch extracts the session epoch from validated claims. Tokens without one are not sessions.
func SessionEpoch(claims jwt.Claims) (int64, bool) {
	mapClaims, ok := claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	switch v := mapClaims[epochClaim].(type) {
	case float64:
		return int64(v), v >= 0
	case json.Number:
		epoch, err := v.Int64()
		return epoch, err == nil && epoch >= 0
	case int64:
		return v, v >= 0
	default:
		return 0, false
	}
}

// Lifetime is how long a generated session token stays valid.
func (jm *JWTManager) Lifetime() time.Duration {
	return sessionLifetime
}

// GenerateJWT generates a new JWT with the given claims.
func (jm *JWTManager) GenerateJWT(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(jm.privateKey)
}

// ValidateJWT validates the given JWT and returns the claims if valid.
func (jm *JWTManager) ValidateJWT(tokenString string) (jwt.Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Verify the signing method
		if token.Method.Alg() != jwt.SigningMethodEdDSA.Alg() {
			return nil, fmt.Errorf("invalid signing method")
		}

		return jm.publicKey, nil
	}, jwt.WithIssuer(sessionIssuer), jwt.WithExpirationRequired())

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	return token.Claims, nil
}

// generateKeyPair generates a new key pair and saves it to a file.
func generateKeyPair(path string) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	// Save the new key pair to a file for persistence
	if path != "" {
		if err := saveKeyPair(privateKey, publicKey, path); err != nil {
			return nil, nil, err
		}
	}

	return privateKey, publicKey, nil
}

// saveKeyPair saves the key pair to the specified file.
func saveKeyPair(privateKey ed25519.PrivateKey, publicKey ed25519.PublicKey, path string) error {
	keyPairBytes := append(append([]byte{}, privateKey...), publicKey...)
	return os.WriteFile(path, keyPairBytes, 0600)
}

// loadKeyPair loads the key pair from the specified file.
func loadKeyPair(path string) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	keyPairBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	// The key pair is the concatenation of private and public keys
	if len(keyPairBytes) != ed25519.PrivateKeySize+ed25519.PublicKeySize {
		return nil, nil, fmt.Errorf("invalid key pair format")
	}

	privateKey := ed25519.PrivateKey(keyPairBytes[:ed25519.PrivateKeySize])
	publicKey := ed25519.PublicKey(keyPairBytes[ed25519.PrivateKeySize:])
	return privateKey, publicKey, nil
}
