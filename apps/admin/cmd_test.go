package main

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	gommonlog "github.com/labstack/gommon/log"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/document"
	"github.com/trezcool/masomo-admin/core/session"
	apisvc "github.com/trezcool/masomo-admin/services/api"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
	notifsvc "github.com/trezcool/masomo-admin/services/notification"
)

func setup(t *testing.T) (*commandLine, *echo.Echo, *bytes.Buffer) {
	t.Helper()

	app := echo.New()
	app.Logger.SetLevel(gommonlog.OFF)
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)

	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags)
	conf := new(core.Config)
	conf.AppName = "Masomo Admin"
	conf.API.BaseURL = srv.URL
	conf.API.Timeout = 5 * time.Second
	conf.Upload.PollInterval = 10 * time.Millisecond
	conf.Upload.CleanupDelay = 2 * time.Second
	conf.Upload.BatchTimeout = time.Second

	sess := session.New()
	client, err := apisvc.NewClient(&apisvc.Options{
		BaseURL: conf.API.BaseURL,
		Timeout: conf.API.Timeout,
		Session: sess,
		Notify:  notifsvc.NewConsoleService(std, conf),
		Logger:  logsvc.NewConsoleLogger(std),
	})
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	docSvc := document.NewService(client, logsvc.NewConsoleLogger(std), conf)
	t.Cleanup(docSvc.StopPolling)

	out := new(bytes.Buffer)
	return &commandLine{client: client, docSvc: docSvc, sess: sess, out: out}, app, out
}

func accessToken(t *testing.T, username string) string {
	t.Helper()
	claims := &session.Claims{
		StandardClaims: jwt.StandardClaims{Subject: "1", ExpiresAt: time.Now().Add(time.Hour).Unix()},
		Username:       username,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("accessToken() failed: %v", err)
	}
	return token
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
}

func Test_commandLine_usage(t *testing.T) {
	tests := []cliTest{
		{name: "no subcommand", args: []string{}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"lol"}, wantErr: errHelp},
		{name: "login: no username", args: []string{"login"}, wantErr: errHelp},
		{name: "upload: no file", args: []string{"upload", "-type", "notes"}, wantErr: errHelp},
		{name: "upload: no type", args: []string{"upload", "-file", "x.pdf"}, wantErr: errHelp},
		{name: "retry: no id", args: []string{"retry"}, wantErr: errHelp},
		{name: "delete: no id", args: []string{"delete"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, _, _ := setup(t)
			err := cli.run(append([]string{"admin"}, tt.args...))
			if err != tt.wantErr {
				t.Errorf("run() error = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_login(t *testing.T) {
	cli, app, out := setup(t)
	token := accessToken(t, "awa")

	app.POST("/auth/login", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, echo.Map{"access_token": token, "refresh_token": "r1"})
	})
	origReadPassword := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("s3cret"), nil }
	defer func() { readPasswordFunc = origReadPassword }()

	if err := cli.run([]string{"admin", "login", "-username", "awa"}); err != nil {
		t.Fatalf("run() failed: %v", err)
	}
	if !cli.sess.Authenticated() {
		t.Error("session should be authenticated")
	}
	if !strings.Contains(out.String(), "logged in as awa") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func Test_commandLine_upload_watch(t *testing.T) {
	cli, app, out := setup(t)
	_ = cli.sess.SetTokens(accessToken(t, "awa"), "r1")

	app.POST("/documents/upload", func(ctx echo.Context) error {
		if _, err := ctx.FormFile("file"); err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, echo.Map{"success": true, "document_id": "d1"})
	})
	app.GET("/documents/:id", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, echo.Map{"status": "completed", "processing_progress": 100, "chunks_indexed": 3})
	})

	path := filepath.Join(t.TempDir(), "algebra.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatal(err)
	}

	args := []string{"admin", "upload", "-file", path, "-type", "past_paper", "-subject", "Mathematics", "-watch"}
	if err := cli.run(args); err != nil {
		t.Fatalf("run() failed: %v", err)
	}
	if !strings.Contains(out.String(), "uploaded algebra.pdf as document d1") {
		t.Errorf("unexpected output: %q", out.String())
	}
	if !strings.Contains(out.String(), "Completed! 3 chunks indexed") {
		t.Errorf("watch output missing terminal state: %q", out.String())
	}
}

func Test_commandLine_upload_invalidType(t *testing.T) {
	cli, _, out := setup(t)
	_ = cli.sess.SetTokens(accessToken(t, "awa"), "r1")

	path := filepath.Join(t.TempDir(), "algebra.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := cli.run([]string{"admin", "upload", "-file", path, "-type", "mixtape"})
	if err == nil {
		t.Fatal("run() should reject an unknown document type")
	}
	if !strings.Contains(out.String(), "document_type: must be one of: past_paper, marking_scheme, notes, syllabus, textbook") {
		t.Errorf("field errors not surfaced: %q", out.String())
	}
}

func Test_commandLine_stats(t *testing.T) {
	cli, app, out := setup(t)
	_ = cli.sess.SetTokens(accessToken(t, "awa"), "r1")

	app.GET("/rag/stats", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, echo.Map{"total_documents": 4, "total_chunks": 120, "completed": 3, "failed": 1})
	})

	if err := cli.run([]string{"admin", "stats"}); err != nil {
		t.Fatalf("run() failed: %v", err)
	}
	if !strings.Contains(out.String(), "documents: 4") || !strings.Contains(out.String(), "chunks: 120") {
		t.Errorf("unexpected output: %q", out.String())
	}
}
