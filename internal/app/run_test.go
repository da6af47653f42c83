package app

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	var buf bytes.Buffer
	err := Run(&buf, []string{"serve"})
	if err == nil {
		t.Fatal("Run with missing env should return error")
	}
}

func TestRun_MigrateInMemory_ReturnsError(t *testing.T) {
	setTestEnv(t)

	// インメモリDBはプロセス外から移行できない
	if err := Run(&bytes.Buffer{}, []string{"migrate"}); err == nil {
		t.Fatal("migrate against an in-memory database should fail")
	}
}

func TestRun_MigrateSQLiteFile_Succeeds(t *testing.T) {
	setTestEnv(t)
	t.Setenv("DATABASE_URL", "sqlite://"+t.TempDir()+"/bookshelf.db")

	if err := Run(&bytes.Buffer{}, []string{"migrate"}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	// 2回目は変更なしで成功する
	if err := Run(&bytes.Buffer{}, []string{"migrate"}); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestRun_Healthcheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}
	t.Setenv("SERVER_PORT", u.Port())

	if err := Run(&bytes.Buffer{}, []string{"healthcheck"}); err != nil {
		t.Errorf("healthcheck failed: %v", err)
	}

	srv.Close()
	if err := Run(&bytes.Buffer{}, []string{"healthcheck"}); err == nil {
		t.Error("healthcheck should fail when the server is down")
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	setTestEnv(t)
	err := Run(&bytes.Buffer{}, []string{"migrat"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("err = %v, want unknown command error", err)
	}
}
