package routing

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/gin-gonic/gin"
	"github.com/pashagolub/pgxmock/v3"
	log "github.com/sirupsen/logrus"

	"github.com/torao/kazzla/internal/credentials"
	"github.com/torao/kazzla/internal/managers"
	"github.com/torao/kazzla/internal/managers/mocks"
	"github.com/torao/kazzla/internal/refdata"
	"github.com/torao/kazzla/internal/schemas"
	"github.com/torao/kazzla/internal/session"
)

const (
	testAccountID = "6f1c3f2e-8d4b-4c52-9a57-0d7c3a1b2e01"
	testContactID = "c0ffee00-0000-4000-8000-000000000001"
	testSalt      = "abcdefghijklmnopqrstuvwxyz012345"
	testPassword  = "correct-horse"
)

var (
	accountColumns = []string{"id", "name", "hashed_password", "salt", "language", "timezone", "role", "permissions", "created_at", "session_epoch"}
	contactColumns = []string{"id", "account_id", "schema", "uri", "confirmed", "confirmed_at", "created_at"}
)

func setupMocks(t *testing.T) (*mocks.MockDatabaseManager, managers.JWTMgr, *mocks.MockMailManager) {
	poolMock, err := pgxmock.NewPool()
	if err != nil {
		log.Errorf("Error creating mock database pool: %v", err)
	}

	databaseMgrMock := &mocks.MockDatabaseManager{}
	databaseMgrMock.On("GetPool").Return(poolMock)

	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Errorf("Error generating key pair: %v", err)
	}
	jwtMgr := managers.NewJWTManager(privateKey, publicKey)

	mailMgrMock := &mocks.MockMailManager{}

	return databaseMgrMock, jwtMgr, mailMgrMock
}

func setupServer(t *testing.T) (*httpexpect.Expect, pgxmock.PgxPoolIface, managers.JWTMgr) {
	gin.SetMode(gin.TestMode)
	databaseMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
	catalog := refdata.NewCatalog(
		[]schemas.Language{{Code: "en", Name: "English"}, {Code: "ja", Name: "日本語"}},
		[]schemas.Timezone{{Code: "UTC", Name: "UTC"}},
		[]schemas.Message{{Language: "ja", Code: refdata.MsgResetPasswordRequested, Content: "再設定の手順を送信しました。"}},
	)

	router := InitRouter(databaseMgrMock, mailMgrMock, jwtMgr, catalog, Options{
		PublicBaseURL: "https://kazzla.example",
		ApiVersion:    "test",
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
	return httpexpect.Default(t, server.URL), poolMock, jwtMgr
}

func bearer(t *testing.T, jwtMgr managers.JWTMgr, accountID string) string {
	token, err := jwtMgr.GenerateJWT(jwtMgr.GenerateClaims(accountID, 0))
	if err != nil {
		t.Fatalf("Error generating token: %v", err)
	}
	return "Bearer " + token
}

func accountRow() *pgxmock.Rows {
	return pgxmock.NewRows(accountColumns).
		AddRow(testAccountID, "alice", credentials.HashSHA256(testPassword, testSalt), testSalt, "en", "UTC", "", "",
			time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), int64(0))
}

func expectEvent(poolMock pgxmock.PgxPoolIface, level schemas.EventLevel, message string) {
	poolMock.ExpectExec("INSERT INTO activity_eventlogs").
		WithArgs(pgxmock.AnyArg(), string(level), pgxmock.AnyArg(), message, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func TestMetadata(t *testing.T) {
	e, _, _ := setupServer(t)

	e.GET("/").
		Expect().
		Status(http.StatusOK).
		JSON().IsEqual(map[string]interface{}{
		"apiVersion": "test",
		"apiName":    "Kazzla",
	})
}

func TestHealth(t *testing.T) {
	testCases := []struct {
		name    string
		pingErr error
		status  int
	}{
		{"Healthy", nil, http.StatusOK},
		{"DatabaseDown", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, poolMock, _ := setupServer(t)
			poolMock.ExpectPing().WillReturnError(tc.pingErr)

			e.GET("/health").Expect().Status(tc.status)

			if err := poolMock.ExpectationsWereMet(); err != nil {
				t.Errorf("there were unfulfilled expectations: %s", err)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e, _, _ := setupServer(t)

	e.GET("/metrics").
		Expect().
		Status(http.StatusOK).
		Body().Contains("go_goroutines")
}

func TestSignUp(t *testing.T) {
	e, poolMock, _ := setupServer(t)

	poolMock.ExpectBegin()
	poolMock.ExpectQuery("SELECT EXISTS").
		WithArgs("mailto", "alice@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	poolMock.ExpectExec("INSERT INTO auth_accounts").
		WithArgs(pgxmock.AnyArg(), "alice", pgxmock.AnyArg(), pgxmock.AnyArg(), "en", "UTC", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	poolMock.ExpectExec("INSERT INTO auth_contacts").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "mailto", "alice@example.com", false, (*time.Time)(nil), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	poolMock.ExpectExec("INSERT INTO user_notifications").
		WithArgs(pgxmock.AnyArg(), schemas.PriorityInformation, "system", refdata.MsgSignedUp, []string{"alice"}, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	poolMock.ExpectCommit()
	expectEvent(poolMock, schemas.EventLevelInfo, "sign-up success")

	response := e.POST("/api/auth/signup").
		WithJSON(map[string]interface{}{
			"name":     "alice",
			"uri":      "alice@example.com",
			"password": "p@ss",
			"language": "en",
			"timezone": "UTC",
		}).
		Expect().
		Status(http.StatusCreated)

	body := response.JSON().Object()
	body.Value("token").String().NotEmpty()
	account := body.Value("account").Object()
	account.HasValue("name", "alice")
	account.HasValue("language", "en")
	account.HasValue("passwordChangeRequired", false)
	account.Value("contacts").Array().Length().IsEqual(1)
	response.Cookie(session.CookieName).Value().NotEmpty()

	if err := poolMock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestSignUpRejected(t *testing.T) {
	testCases := []struct {
		name         string
		payload      map[string]interface{}
		setup        func(poolMock pgxmock.PgxPoolIface)
		status       int
		responseBody map[string]interface{}
	}{
		{
			name:    "MissingPassword",
			payload: map[string]interface{}{"name": "alice", "uri": "alice@example.com", "language": "en", "timezone": "UTC"},
			setup:   func(pgxmock.PgxPoolIface) {},
			status:  http.StatusBadRequest,
			responseBody: map[string]interface{}{
				"error": map[string]interface{}{"code": schemas.BadRequest.Code, "message": schemas.BadRequest.Message},
			},
		},
		{
			name:    "UnknownTimezone",
			payload: map[string]interface{}{"name": "alice", "uri": "alice@example.com", "password": "p@ss", "language": "en", "timezone": "Mars/Olympus"},
			setup:   func(pgxmock.PgxPoolIface) {},
			status:  http.StatusBadRequest,
			responseBody: map[string]interface{}{
				"error": map[string]interface{}{"code": schemas.BadRequest.Code, "message": schemas.BadRequest.Message},
			},
		},
		{
			name:    "DuplicateContact",
			payload: map[string]interface{}{"name": "bob", "uri": "alice@example.com", "password": "p@ss", "language": "en", "timezone": "UTC"},
			setup: func(poolMock pgxmock.PgxPoolIface) {
				poolMock.ExpectBegin()
				poolMock.ExpectQuery("SELECT EXISTS").
					WithArgs("mailto", "alice@example.com").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
				poolMock.ExpectRollback()
			},
			status: http.StatusConflict,
			responseBody: map[string]interface{}{
				"error": map[string]interface{}{"code": schemas.ContactTaken.Code, "message": schemas.ContactTaken.Message},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, poolMock, _ := setupServer(t)
			tc.setup(poolMock)

			e.POST("/api/auth/signup").
				WithJSON(tc.payload).
				Expect().
				Status(tc.status).
				JSON().IsEqual(tc.responseBody)

			if err := poolMock.ExpectationsWereMet(); err != nil {
				t.Errorf("there were unfulfilled expectations: %s", err)
			}
		})
	}
}

func TestSignInFailure(t *testing.T) {
	e, poolMock, _ := setupServer(t)

	poolMock.ExpectQuery("WHERE a.name = \\$1").WithArgs("nobody@example.com").
		WillReturnRows(pgxmock.NewRows(accountColumns))
	poolMock.ExpectQuery("WHERE c.schema = \\$1 AND c.uri = \\$2").WithArgs("mailto", "nobody@example.com").
		WillReturnRows(pgxmock.NewRows(accountColumns))
	poolMock.ExpectExec("INSERT INTO activity_eventlogs").
		WithArgs((*string)(nil), string(schemas.EventLevelWarn), pgxmock.AnyArg(), "sign-in failure", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	e.POST("/api/auth/signin").
		WithJSON(map[string]interface{}{"account": "nobody@example.com", "password": testPassword}).
		Expect().
		Status(http.StatusUnauthorized).
		JSON().IsEqual(map[string]interface{}{
		"error": map[string]interface{}{"code": schemas.InvalidCredentials.Code, "message": schemas.InvalidCredentials.Message},
	})

	if err := poolMock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestSignInByName(t *testing.T) {
	e, poolMock, _ := setupServer(t)

	poolMock.ExpectQuery("WHERE a.name = \\$1").WithArgs("alice").WillReturnRows(accountRow())
	expectEvent(poolMock, schemas.EventLevelInfo, "sign-in success")

	response := e.POST("/api/auth/signin").
		WithJSON(map[string]interface{}{"account": "alice", "password": testPassword}).
		Expect().
		Status(http.StatusOK)

	response.JSON().Object().Value("account").Object().HasValue("accountId", testAccountID)
	response.Cookie(session.CookieName).Value().NotEmpty()

	if err := poolMock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestResetPasswordLooksTheSameForUnknownContacts(t *testing.T) {
	testCases := []struct {
		name           string
		acceptLanguage string
		message        string
	}{
		{"English", "en-US,en;q=0.9", "If the address is registered, instructions to reset the password have been sent to it."},
		{"Japanese", "ja", "再設定の手順を送信しました。"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, poolMock, _ := setupServer(t)

			poolMock.ExpectQuery("WHERE c.schema = \\$1 AND c.uri = \\$2").WithArgs("mailto", "nobody@example.com").
				WillReturnRows(pgxmock.NewRows(accountColumns))
			poolMock.ExpectExec("INSERT INTO activity_eventlogs").
				WithArgs((*string)(nil), string(schemas.EventLevelWarn), pgxmock.AnyArg(), "password reset requested for unknown contact", pgxmock.AnyArg()).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))

			e.POST("/api/auth/reset_password").
				WithHeader("Accept-Language", tc.acceptLanguage).
				WithJSON(map[string]interface{}{"account": "nobody@example.com"}).
				Expect().
				Status(http.StatusAccepted).
				JSON().IsEqual(map[string]interface{}{"message": tc.message})

			if err := poolMock.ExpectationsWereMet(); err != nil {
				t.Errorf("there were unfulfilled expectations: %s", err)
			}
		})
	}
}

func TestRedeemTicketRejected(t *testing.T) {
	e, poolMock, _ := setupServer(t)

	poolMock.ExpectBegin()
	poolMock.ExpectQuery("DELETE FROM auth_tokens").
		WithArgs(string(schemas.TokenSchemeResetPassword), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "account_id", "target", "issued_at", "expires_at"}))
	poolMock.ExpectCommit()
	poolMock.ExpectExec("INSERT INTO activity_eventlogs").
		WithArgs((*string)(nil), string(schemas.EventLevelWarn), pgxmock.AnyArg(), "password reset ticket invalid or expired", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	e.GET("/api/auth/signin").
		WithQuery("ticket", "does-not-exist").
		Expect().
		Status(http.StatusForbidden).
		JSON().Object().Value("error").Object().HasValue("code", schemas.InvalidTicket.Code)

	if err := poolMock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestSettingsRequireSession(t *testing.T) {
	testCases := []struct {
		name    string
		request func(e *httpexpect.Expect) *httpexpect.Request
	}{
		{"GetAccount", func(e *httpexpect.Expect) *httpexpect.Request { return e.GET("/api/settings/account") }},
		{"UpdateSettings", func(e *httpexpect.Expect) *httpexpect.Request {
			return e.PUT("/api/settings/account").WithJSON(map[string]interface{}{"language": "ja", "timezone": "UTC"})
		}},
		{"Notifications", func(e *httpexpect.Expect) *httpexpect.Request { return e.GET("/api/notifications") }},
		{"RemoveContact", func(e *httpexpect.Expect) *httpexpect.Request {
			return e.DELETE("/api/settings/contacts/" + testContactID)
		}},
		{"Withdraw", func(e *httpexpect.Expect) *httpexpect.Request {
			return e.POST("/api/auth/withdraw").WithJSON(map[string]interface{}{"confirmed": true})
		}},
		{"InvalidToken", func(e *httpexpect.Expect) *httpexpect.Request {
			return e.GET("/api/settings/account").WithHeader("Authorization", "Bearer not-a-token")
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, poolMock, _ := setupServer(t)

			tc.request(e).
				Expect().
				Status(http.StatusUnauthorized).
				JSON().IsEqual(map[string]interface{}{
				"error": map[string]interface{}{"code": schemas.Unauthorized.Code, "message": schemas.Unauthorized.Message},
			})

			if err := poolMock.ExpectationsWereMet(); err != nil {
				t.Errorf("there were unfulfilled expectations: %s", err)
			}
		})
	}
}

func TestGetAccount(t *testing.T) {
	e, poolMock, jwtMgr := setupServer(t)

	poolMock.ExpectQuery("WHERE a.id = \\$1").WithArgs(testAccountID).WillReturnRows(accountRow())
	poolMock.ExpectQuery("FROM auth_contacts WHERE account_id = \\$1").WithArgs(testAccountID).
		WillReturnRows(pgxmock.NewRows(contactColumns).
			AddRow(testContactID, testAccountID, "mailto", "alice@example.com", false, nil, time.Now()))

	e.GET("/api/settings/account").
		WithHeader("Authorization", bearer(t, jwtMgr, testAccountID)).
		Expect().
		Status(http.StatusOK).
		JSON().IsEqual(map[string]interface{}{
		"accountId":              testAccountID,
		"name":                   "alice",
		"language":               "en",
		"timezone":               "UTC",
		"passwordChangeRequired": false,
		"contacts": []interface{}{
			map[string]interface{}{
				"contactId": testContactID,
				"schema":    "mailto",
				"uri":       "alice@example.com",
				"confirmed": false,
			},
		},
	})

	if err := poolMock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestSignedOutBearerIsRejected(t *testing.T) {
	e, poolMock, jwtMgr := setupServer(t)
	token := bearer(t, jwtMgr, testAccountID)

	poolMock.ExpectExec("UPDATE auth_accounts SET session_epoch = session_epoch \\+ 1").
		WithArgs(testAccountID, int64(0)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectEvent(poolMock, schemas.EventLevelInfo, "sign-out success")

	e.POST("/api/auth/signout").
		WithHeader("Authorization", token).
		Expect().
		Status(http.StatusNoContent)

	revoked := pgxmock.NewRows(accountColumns).
		AddRow(testAccountID, "alice", credentials.HashSHA256(testPassword, testSalt), testSalt, "en", "UTC", "", "",
			time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), int64(1))
	poolMock.ExpectQuery("WHERE a.id = \\$1").WithArgs(testAccountID).WillReturnRows(revoked)

	e.GET("/api/settings/account").
		WithHeader("Authorization", token).
		Expect().
		Status(http.StatusUnauthorized).
		JSON().Object().Value("error").Object().HasValue("code", schemas.Unauthorized.Code)

	if err := poolMock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestWithdrawRequiresConfirmation(t *testing.T) {
	e, poolMock, jwtMgr := setupServer(t)

	e.POST("/api/auth/withdraw").
		WithHeader("Authorization", bearer(t, jwtMgr, testAccountID)).
		WithJSON(map[string]interface{}{"confirmed": false}).
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().Value("error").Object().HasValue("code", schemas.ConfirmationRequired.Code)

	if err := poolMock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestCodes(t *testing.T) {
	e, _, _ := setupServer(t)

	e.GET("/api/codes/languages").
		Expect().
		Status(http.StatusOK).
		JSON().Object().Value("records").Array().Length().IsEqual(2)

	e.GET("/api/codes/timezones").
		Expect().
		Status(http.StatusOK).
		JSON().Object().Value("records").Array().Length().IsEqual(1)
}
