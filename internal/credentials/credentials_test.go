package credentials

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torao/kazzla/internal/apperrors"
	"github.com/torao/kazzla/internal/schemas"
)

var saltPattern = regexp.MustCompile(`^[a-zA-Z0-9]{32}$`)

func TestSetPasswordGeneratesSaltAndHash(t *testing.T) {
	store := NewStore("")
	account := &schemas.Account{}

	require.NoError(t, store.SetPassword(account, "hunter2"))

	assert.Regexp(t, saltPattern, account.Salt)
	sum := sha256.Sum256([]byte("hunter2:" + account.Salt))
	assert.Equal(t, "sha256:"+hex.EncodeToString(sum[:]), account.HashedPassword)
}

func TestSetPasswordKeepsExistingSalt(t *testing.T) {
	store := NewStore("sha256")
	account := &schemas.Account{Salt: "abc"}

	require.NoError(t, store.SetPassword(account, "hunter2"))

	assert.Equal(t, "abc", account.Salt)
	assert.Equal(t, HashSHA256("hunter2", "abc"), account.HashedPassword)
}

func TestSetPasswordRejectsEmptyPlaintext(t *testing.T) {
	store := NewStore("")
	account := &schemas.Account{HashedPassword: "sha256:old", Salt: "abc"}

	err := store.SetPassword(account, "")

	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Equal(t, "sha256:old", account.HashedPassword)
}

func TestVerify(t *testing.T) {
	for _, scheme := range []string{"sha256", "bcrypt"} {
		t.Run(scheme, func(t *testing.T) {
			store := NewStore(scheme)
			account := &schemas.Account{}
			require.NoError(t, store.SetPassword(account, "correct horse"))

			assert.True(t, store.Verify(account, "correct horse"))
			assert.False(t, store.Verify(account, "correct horse "))
			assert.False(t, store.Verify(account, ""))
		})
	}
}

func TestVerifyAcrossSchemes(t *testing.T) {
	legacy := NewStore("sha256")
	account := &schemas.Account{}
	require.NoError(t, legacy.SetPassword(account, "secret"))

	assert.True(t, NewStore("bcrypt").Verify(account, "secret"))
}

func TestVerifyEmptyHashNeverMatches(t *testing.T) {
	store := NewStore("")
	account := &schemas.Account{Salt: "abc"}

	assert.False(t, store.Verify(account, ""))
	assert.False(t, store.Verify(account, "anything"))
}

func TestHashIsDeterministic(t *testing.T) {
	assert.Equal(t, HashSHA256("p", "s"), HashSHA256("p", "s"))
	assert.NotEqual(t, HashSHA256("p", "s"), HashSHA256("p", "t"))
	assert.NotEqual(t, HashSHA256("p", "s"), HashSHA256("q", "s"))
}

func TestGenerateSalt(t *testing.T) {
	a, err := GenerateSalt()
	require.NoError(t, err)
	b, err := GenerateSalt()
	require.NoError(t, err)

	assert.Regexp(t, saltPattern, a)
	assert.NotEqual(t, a, b)
}

func TestVerifyDummyAlwaysFails(t *testing.T) {
	assert.False(t, NewStore("").VerifyDummy("dummy-password-for-timing"))
}
