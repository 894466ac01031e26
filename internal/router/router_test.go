package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"chatrouter-backend/internal/handlers"
	"chatrouter-backend/internal/llm"
	"chatrouter-backend/internal/llm/mocks"
	"chatrouter-backend/internal/middleware"
	"chatrouter-backend/internal/repository"
	"chatrouter-backend/internal/services"
	"chatrouter-backend/internal/websocket"
)

func newTestRouter(t *testing.T, gw llm.Gateway, ratePerMin int) http.Handler {
	t.Helper()

	staticDir := t.TempDir()
	os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<h1>chat</h1>"), 0o644)
	os.WriteFile(filepath.Join(staticDir, "funfact.html"), []byte("<h1>facts</h1>"), 0o644)

	chatService := services.NewChatService(
		gw,
		services.NewClassifier(gw, "small", "classify", time.Second),
		services.NewModelRouter("small", "big"),
		repository.NewConversationMemoryRepo(0),
		services.ChatOptions{DefaultPersona: "persona", ClassifyEnabled: false, Timeout: 5 * time.Second},
	)
	funFactService := services.NewFunFactService(gw, "small", "You are a fun-fact generator.", "gimme a fact.", time.Second)
	sessionAuth := middleware.NewSessionAuth("secret", time.Hour)

	return New(
		sessionAuth,
		handlers.NewChatHandler(chatService),
		handlers.NewFunFactHandler(funFactService),
		handlers.NewSessionHandler(sessionAuth),
		websocket.NewHub(chatService, handlers.ErrorStatus, nil),
		Options{StaticDir: staticDir, FrontendURL: "*", ChatRatePerMin: ratePerMin},
	)
}

func post(h http.Handler, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := newTestRouter(t, mocks.NewMockGateway(ctrl), 0)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK || rr.Body.String() != `{"status":"ok"}` {
		t.Fatalf("unexpected health response %d %s", rr.Code, rr.Body.String())
	}
}

func TestStaticPages(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := newTestRouter(t, mocks.NewMockGateway(ctrl), 0)

	tests := map[string]string{
		"/":        "<h1>chat</h1>",
		"/funfact": "<h1>facts</h1>",
	}
	for path, want := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("%s: expected body to contain %q, got %q", path, want, rr.Body.String())
		}
	}
}

func TestChatFlow_SessionHistoryAndReset(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	h := newTestRouter(t, gw, 0)

	var seen [][]llm.Message
	gw.EXPECT().Complete(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
			seen = append(seen, req.Messages)
			return &llm.Completion{Content: "reply"}, nil
		}).Times(3)

	// first call mints a session
	rr := post(h, "/chat", `{"message":"one"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	token := rr.Header().Get(middleware.SessionTokenHeader)
	if token == "" {
		t.Fatal("expected minted session token")
	}

	if rr := post(h, "/chat", `{"message":"two"}`, token); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(seen[1]) != 3 {
		t.Fatalf("expected history on second turn, got %d messages", len(seen[1]))
	}

	rr = post(h, "/reset", "", token)
	var body map[string]string
	json.NewDecoder(rr.Body).Decode(&body)
	if rr.Code != http.StatusOK || body["message"] != "Conversation reset." {
		t.Fatalf("unexpected reset response %d %v", rr.Code, body)
	}

	if rr := post(h, "/chat", `{"message":"three"}`, token); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(seen[2]) != 1 {
		t.Fatalf("expected no prior turns after reset, got %d messages", len(seen[2]))
	}
}

func TestChat_InvalidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	gw.EXPECT().Complete(gomock.Any(), gomock.Any()).Times(0)
	h := newTestRouter(t, gw, 0)

	rr := post(h, "/chat", `{"message":"hi"}`, "forged")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestSessionEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := newTestRouter(t, mocks.NewMockGateway(ctrl), 0)

	rr := post(h, "/session", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]interface{}
	json.NewDecoder(rr.Body).Decode(&body)
	if body["session_id"] == "" || body["token"] == "" {
		t.Fatalf("expected session id and token, got %v", body)
	}
}

func TestFunFactEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	gw.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(&llm.Completion{Content: "Bananas are berries."}, nil)
	h := newTestRouter(t, gw, 0)

	rr := post(h, "/funfact", "", "")
	var body map[string]string
	json.NewDecoder(rr.Body).Decode(&body)
	if rr.Code != http.StatusOK || body["fact"] != "Bananas are berries." {
		t.Fatalf("unexpected funfact response %d %v", rr.Code, body)
	}
}

func TestChat_Throttled(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	gw.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(&llm.Completion{Content: "ok"}, nil).Times(1)
	h := newTestRouter(t, gw, 1)

	if rr := post(h, "/chat", `{"message":"hi"}`, ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	rr := post(h, "/chat", `{"message":"hi"}`, "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	var body map[string]string
	json.NewDecoder(rr.Body).Decode(&body)
	if body["error"] != "Too many requests. Please try again later." {
		t.Errorf("unexpected throttle body %v", body)
	}
}
