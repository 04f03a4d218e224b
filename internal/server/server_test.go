package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/idelchi/diskscope/internal/command"
	"github.com/idelchi/diskscope/internal/diskusage"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer() *Server {
	scanner := diskusage.NewScanner(diskusage.Options{Workers: 2}, nil)

	return New(command.New(scanner, nil), Options{}, nil)
}

func do(t *testing.T, s *Server, method, target, body string) (int, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, data := send(t, s, req)

	return resp.StatusCode, data
}

func send(t *testing.T, s *Server, req *http.Request) (*http.Response, []byte) {
	t.Helper()

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("App.Test() error = %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}

	return resp, data
}

func TestHealth(t *testing.T) {
	status, body := do(t, newTestServer(), http.MethodGet, "/healthz", "")

	if status != http.StatusOK {
		t.Errorf("status = %d, want %d", status, http.StatusOK)
	}
	if got := strings.TrimSpace(string(body)); got != `{"status":"ok"}` {
		t.Errorf("body = %s", got)
	}
}

func TestInvokeGreet(t *testing.T) {
	status, body := do(t, newTestServer(), http.MethodPost, "/invoke/greet", `{"name":"Grace"}`)

	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", status, http.StatusOK, body)
	}

	var got struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if got.Result != "Hello, Grace! You've been greeted from Go!" {
		t.Errorf("result = %q", got.Result)
	}
}

func TestInvokeAnalyzeAndDelete(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("EvalSymlinks() error = %v", err)
	}
	target := filepath.Join(root, "big.bin")
	if err := os.WriteFile(target, make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s := newTestServer()
	args, _ := json.Marshal(map[string]any{"path": root, "sizeLimit": 1024})

	status, body := do(t, s, http.MethodPost, "/invoke/analyze_directory", string(args))
	if status != http.StatusOK {
		t.Fatalf("analyze status = %d: %s", status, body)
	}

	var analyzed struct {
		Result []diskusage.FileSystemItem `json:"result"`
	}
	if err := json.Unmarshal(body, &analyzed); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(analyzed.Result) != 2 {
		t.Fatalf("analyze returned %d items, want 2: %+v", len(analyzed.Result), analyzed.Result)
	}

	args, _ = json.Marshal(map[string]any{"path": target})

	status, body = do(t, s, http.MethodPost, "/invoke/delete_path", string(args))
	if status != http.StatusOK {
		t.Fatalf("delete status = %d: %s", status, body)
	}
	if got := strings.TrimSpace(string(body)); got != `{"result":null}` {
		t.Errorf("delete body = %s", got)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("file still exists: %v", err)
	}
}

func TestInvokeErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
		wantCode   command.Code
	}{
		{"unknown command", "/invoke/format_disk", `{}`, http.StatusNotFound, command.CodeUnknownCommand},
		{"missing path", "/invoke/analyze_directory", `{"path":"/does/not/exist"}`, http.StatusNotFound, command.CodeNotFound},
		{"bad json", "/invoke/delete_path", `{"path":`, http.StatusBadRequest, command.CodeInvalidArgument},
		{"empty path", "/invoke/delete_path", `{"path":""}`, http.StatusBadRequest, command.CodeInvalidArgument},
	}

	s := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, s, http.MethodPost, tt.target, tt.body)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}

			var got errorBody
			if err := json.Unmarshal(body, &got); err != nil {
				t.Fatalf("json.Unmarshal(%s) error = %v", body, err)
			}
			if got.Error.Code != string(tt.wantCode) {
				t.Errorf("code = %q, want %q", got.Error.Code, tt.wantCode)
			}
			if got.Error.Message == "" {
				t.Error("message is empty")
			}
		})
	}
}

func TestRecoversPanics(t *testing.T) {
	s := newTestServer()
	s.dispatcher.Register("explode", func(_ context.Context, _ json.RawMessage) (any, error) {
		panic("boom")
	})

	status, _ := do(t, s, http.MethodPost, "/invoke/explode", `{}`)
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", status, http.StatusInternalServerError)
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[command.Code]int{
		command.CodeNotFound:        fiber.StatusNotFound,
		command.CodeUnknownCommand:  fiber.StatusNotFound,
		command.CodeInvalidArgument: fiber.StatusBadRequest,
		command.CodeIOError:         fiber.StatusInternalServerError,
		command.CodeCanceled:        StatusClientClosedRequest,
	}

	for code, want := range tests {
		if got := StatusFor(code); got != want {
			t.Errorf("StatusFor(%q) = %d, want %d", code, got, want)
		}
	}
}

func TestInvokeRejectsCrossOriginSimpleRequests(t *testing.T) {
	victim := filepath.Join(t.TempDir(), "victim.txt")
	if err := os.WriteFile(victim, []byte("keep"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	args, _ := json.Marshal(map[string]any{"path": victim})

	tests := []struct {
		name        string
		origin      string
		contentType string
		wantStatus  int
	}{
		{"text/plain from foreign origin", "https://evil.example", "text/plain", http.StatusForbidden},
		{"json from foreign origin", "https://evil.example", "application/json", http.StatusForbidden},
		{"text/plain without origin", "", "text/plain", http.StatusUnsupportedMediaType},
		{"form without origin", "", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"missing content type", "", "", http.StatusUnsupportedMediaType},
	}

	s := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/invoke/delete_path", strings.NewReader(string(args)))
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			resp, body := send(t, s, req)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", resp.StatusCode, tt.wantStatus, body)
			}
			if _, err := os.Stat(victim); err != nil {
				t.Fatalf("file was deleted: %v", err)
			}
		})
	}
}

func TestInvokeAllowsConfiguredOrigin(t *testing.T) {
	s := New(command.New(diskusage.NewScanner(diskusage.Options{}, nil), nil),
		Options{AllowedOrigins: []string{"http://ui.local:3000"}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/invoke/greet", strings.NewReader(`{"name":"UI"}`))
	req.Header.Set("Origin", "http://ui.local:3000")
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, body := send(t, s, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", resp.StatusCode, http.StatusOK, body)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://ui.local:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestPreflightFromForeignOriginIsNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/invoke/delete_path", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")

	resp, _ := send(t, newTestServer(), req)
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
	}
}

func TestInvokeAfterShutdownIsCanceled(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.bin"), make([]byte, 10), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	args, _ := json.Marshal(map[string]any{"path": root})

	s := newTestServer()
	s.cancel()

	status, body := do(t, s, http.MethodPost, "/invoke/analyze_directory", string(args))
	if status != StatusClientClosedRequest {
		t.Errorf("status = %d, want %d: %s", status, StatusClientClosedRequest, body)
	}

	var got errorBody
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("json.Unmarshal(%s) error = %v", body, err)
	}
	if got.Error.Code != string(command.CodeCanceled) {
		t.Errorf("code = %q, want %q", got.Error.Code, command.CodeCanceled)
	}
}
