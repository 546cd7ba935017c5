package apisvc

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/masomo-admin/core/session"
	dummynotif "github.com/trezcool/masomo-admin/services/notification/dummy"
)

type testLogger struct{}

func (testLogger) Enable(bool)                  {}
func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

// newTestServer stands up a fake platform API; register handlers on the app.
func newTestServer(t *testing.T) (*echo.Echo, *httptest.Server) {
	t.Helper()
	app := echo.New()
	app.Logger.SetLevel(log.OFF)
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)
	return app, srv
}

// newTestClient wires a client, session and recording notifier against srv.
func newTestClient(t *testing.T, srv *httptest.Server) (*Client, *session.Session, *dummynotif.Service) {
	t.Helper()
	sess := session.New()
	notifier := dummynotif.NewService()
	client, err := NewClient(&Options{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Session: sess,
		Notify:  notifier,
		Logger:  testLogger{},
	})
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	return client, sess, notifier
}

func makeAccessToken(t *testing.T, username string, expiresIn time.Duration) string {
	t.Helper()
	claims := &session.Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   "1",
			ExpiresAt: time.Now().Add(expiresIn).Unix(),
		},
		Username: username,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("makeAccessToken() failed: %v", err)
	}
	return token
}

func authenticate(t *testing.T, sess *session.Session, access, refresh string) {
	t.Helper()
	if err := sess.SetTokens(access, refresh); err != nil {
		t.Fatalf("SetTokens() failed: %v", err)
	}
}

func bearerOf(ctx echo.Context) string {
	const prefix = "Bearer "
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) > len(prefix) {
		return auth[len(prefix):]
	}
	return ""
}
