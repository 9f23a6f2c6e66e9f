package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stellarpass/stellarpass/internal/bootstrap"
	"github.com/stellarpass/stellarpass/internal/clock"
	"github.com/stellarpass/stellarpass/internal/config"
	"github.com/stellarpass/stellarpass/internal/logging"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := config.Config{
		AppName:       "StellarPass",
		AppEnv:        "test",
		StoreBackend:  config.StoreMemory,
		BaseFee:       100,
		NativeTokenID: "CDLZFC3SYJYDZT7K67VZ75HPJVIEUVNIXF47ZG2FB2RMQQVU2HHGCYSC",
		TipLinkHost:   "stellarpass.io",
		RPID:          "localhost",
		RPDisplayName: "StellarPass",
		RPOrigins:     []string{"https://localhost"},
	}
	logger := logging.Discard()
	core, err := bootstrap.Build(context.Background(), bootstrap.Deps{
		Cfg:    cfg,
		Logger: logger,
		Clock:  clock.NewFake(time.Now()),
	})
	if err != nil {
		t.Fatalf("build core: %v", err)
	}
	app := fiber.New()
	if err := Setup(app, Deps{Cfg: cfg, Core: core, Logger: logger}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestSessionLifecycle(t *testing.T) {
	app := newTestApp(t)

	if code, _ := call(t, app, http.MethodPost, "/api/v1/auth/login", "", ""); code != http.StatusNotFound {
		t.Fatalf("login without an account: expected 404, got %d", code)
	}

	code, body := call(t, app, http.MethodPost, "/api/v1/auth/register", "", `{"username":"alice"}`)
	if code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%v)", code, body)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatalf("expected an access token")
	}

	if code, _ := call(t, app, http.MethodPost, "/api/v1/auth/register", "", `{"username":"alice"}`); code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", code)
	}

	code, body = call(t, app, http.MethodGet, "/api/v1/wallet", token, "")
	if code != http.StatusOK || body["balance"] != "12.35" {
		t.Fatalf("wallet: %d %v", code, body)
	}

	code, body = call(t, app, http.MethodPost, "/api/v1/wallet/send", token, `{"destination":"GBOB","amount":"2.50"}`)
	if code != http.StatusCreated || body["balance"] != "9.85" {
		t.Fatalf("send: %d %v", code, body)
	}

	code, body = call(t, app, http.MethodGet, "/api/v1/tip/alice", "", "")
	if code != http.StatusOK {
		t.Fatalf("public tip page: %d %v", code, body)
	}

	if code, _ := call(t, app, http.MethodPost, "/api/v1/auth/logout", token, ""); code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", code)
	}
	if code, _ := call(t, app, http.MethodGet, "/api/v1/wallet", token, ""); code != http.StatusUnauthorized {
		t.Fatalf("token after logout: expected 401, got %d", code)
	}

	code, body = call(t, app, http.MethodPost, "/api/v1/auth/login", "", "")
	if code != http.StatusOK {
		t.Fatalf("login after logout: %d %v", code, body)
	}
	identity, _ := body["identity"].(map[string]any)
	if identity["username"] != "alice" {
		t.Fatalf("expected alice, got %v", identity)
	}
}

func TestChainRoutes(t *testing.T) {
	app := newTestApp(t)
	_, body := call(t, app, http.MethodPost, "/api/v1/auth/register", "", `{"username":"bob"}`)
	token, _ := body["access_token"].(string)

	if code, _ := call(t, app, http.MethodPost, "/api/v1/chain/register", token, ""); code != http.StatusAccepted {
		t.Fatalf("chain register: expected 202, got %d", code)
	}
	code, body := call(t, app, http.MethodGet, "/api/v1/chain/tiplinks/bob", "", "")
	if code != http.StatusOK || body["active"] != true {
		t.Fatalf("tip link: %d %v", code, body)
	}
	if code, _ := call(t, app, http.MethodPost, "/api/v1/chain/tiplink/toggle", token, ""); code != http.StatusAccepted {
		t.Fatalf("toggle: expected 202, got %d", code)
	}
	_, body = call(t, app, http.MethodGet, "/api/v1/chain/tiplinks/bob", "", "")
	if body["active"] != false {
		t.Fatalf("expected inactive tip link, got %v", body)
	}
	if code, _ := call(t, app, http.MethodPost, "/api/v1/chain/register", "", ""); code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated chain call: expected 401, got %d", code)
	}
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	code, body := call(t, app, http.MethodGet, "/healthz", "", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	status, _ := body["status"].(map[string]any)
	if status["contract"] != "in-process" {
		t.Fatalf("unexpected health %v", body)
	}
}
