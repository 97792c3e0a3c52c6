package services

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/torao/kazzla/internal/credentials"
	"github.com/torao/kazzla/internal/managers"
	"github.com/torao/kazzla/internal/managers/mocks"
	"github.com/torao/kazzla/internal/metrics"
	"github.com/torao/kazzla/internal/refdata"
	"github.com/torao/kazzla/internal/schemas"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const (
	testAccountID = "6f1c3f2e-8d4b-4c52-9a57-0d7c3a1b2e01"
	testSalt      = "abcdefghijklmnopqrstuvwxyz012345"
	testPassword  = "correct-horse"
	remoteAddress = "192.0.2.10"
)

var (
	accountColumns = []string{"id", "name", "hashed_password", "salt", "language", "timezone", "role", "permissions", "created_at", "session_epoch"}
	contactColumns = []string{"id", "account_id", "schema", "uri", "confirmed", "confirmed_at", "created_at"}
	tokenColumns   = []string{"id", "account_id", "target", "issued_at", "expires_at"}
)

type fakeSession struct {
	accountID string
	epoch     int64
	bound     bool
	resets    int
}

func (f *fakeSession) AccountID() (string, bool) { return f.accountID, f.bound }

func (f *fakeSession) Epoch() int64 { return f.epoch }

func (f *fakeSession) Bind(accountID string, epoch int64) error {
	f.accountID = accountID
	f.epoch = epoch
	f.bound = true
	return nil
}

func (f *fakeSession) Reset() {
	f.accountID = ""
	f.epoch = 0
	f.bound = false
	f.resets++
}

func (f *fakeSession) RemoteAddress() string { return remoteAddress }

func signedIn(accountID string) *fakeSession {
	return &fakeSession{accountID: accountID, bound: true}
}

func setupDependencies(t *testing.T) (Dependencies, pgxmock.PgxPoolIface, *mocks.MockMailManager) {
	poolMock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(poolMock.Close)

	mailMgr := new(mocks.MockMailManager)
	m := metrics.New()
	deps := Dependencies{
		DatabaseMgr: managers.NewDatabaseManager(poolMock),
		TokenMgr:    managers.NewTokenManager(m),
		MailMgr:     mailMgr,
		Credentials: credentials.NewStore("sha256"),
		Catalog: refdata.NewCatalog(
			[]schemas.Language{{Code: "en", Name: "English"}, {Code: "ja", Name: "日本語"}},
			[]schemas.Timezone{{Code: "UTC", Name: "UTC"}, {Code: "Asia/Tokyo", Name: "Tokyo", UTCOffset: 540}},
			nil,
		),
		Metrics: m,
	}
	return deps, poolMock, mailMgr
}

// accountRow returns a row for the account "alice" with testPassword, or with no password when hashed is false.
func accountRow(hashed bool, permissions string) *pgxmock.Rows {
	return accountRowAt(hashed, permissions, 0)
}

// accountRowAt is accountRow after the sessions of "alice" were revoked epoch times.
func accountRowAt(hashed bool, permissions string, epoch int64) *pgxmock.Rows {
	hash := ""
	if hashed {
		hash = credentials.HashSHA256(testPassword, testSalt)
	}
	role := ""
	if permissions != "" {
		role = "administrator"
	}
	return pgxmock.NewRows(accountColumns).
		AddRow(testAccountID, "alice", hash, testSalt, "en", "UTC", role, permissions, fixedNow.Add(-48*time.Hour), epoch)
}

func expectRevokeSessions(poolMock pgxmock.PgxPoolIface, accountID string, epoch int64, rowsAffected int64) {
	poolMock.ExpectExec("UPDATE auth_accounts SET session_epoch = session_epoch \\+ 1").
		WithArgs(accountID, epoch).
		WillReturnResult(pgxmock.NewResult("UPDATE", rowsAffected))
}

func expectUpdatePassword(poolMock pgxmock.PgxPoolIface, hashedPassword interface{}, epoch int64) {
	poolMock.ExpectQuery("UPDATE auth_accounts SET hashed_password").
		WithArgs(testAccountID, hashedPassword, testSalt, fixedNow).
		WillReturnRows(pgxmock.NewRows([]string{"session_epoch"}).AddRow(epoch))
}

func expectAccountByID(poolMock pgxmock.PgxPoolIface, rows *pgxmock.Rows) {
	poolMock.ExpectQuery("WHERE a.id = \\$1").WithArgs(testAccountID).WillReturnRows(rows)
}

func expectEvent(poolMock pgxmock.PgxPoolIface, accountID *string, level schemas.EventLevel, message string) {
	poolMock.ExpectExec("INSERT INTO activity_eventlogs").
		WithArgs(accountID, string(level), remoteAddress, message, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func expectNotification(poolMock pgxmock.PgxPoolIface, code string) {
	poolMock.ExpectExec("INSERT INTO user_notifications").
		WithArgs(testAccountID, schemas.PriorityInformation, "system", code, pgxmock.AnyArg(), fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func accountIDPtr() *string {
	id := testAccountID
	return &id
}
