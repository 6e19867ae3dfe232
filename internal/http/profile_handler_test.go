package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ctv-portal/internal/domain"
)

func performAuthedRequest(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestProfileHandlerUpdateProfile_Success(t *testing.T) {
	f := newHandlerFixture(t, fixtureOptions{})
	registerUser(t, f, "user@example.com", "pw123456", "Test")
	token := loginUser(t, f, "user@example.com", "pw123456")

	rec := performAuthedRequest(f.router, http.MethodPost, "/pages/profile/update", token, map[string]string{
		"name":     "Renamed",
		"phone":    "0901234567",
		"province": "Ha Noi",
		"ward":     "Cau Giay",
		"taxId":    "0312345678",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	id := f.users.usersByEmail["user@example.com"]
	user := f.users.usersByID[id]
	if user.Name != "Renamed" || user.Phone != "0901234567" || user.Tax != "0312345678" {
		t.Fatalf("profile not persisted: %+v", user)
	}
}

func TestProfileHandlerUpdateProfile_MissingPhone(t *testing.T) {
	f := newHandlerFixture(t, fixtureOptions{})
	registerUser(t, f, "user@example.com", "pw123456", "Test")
	token := loginUser(t, f, "user@example.com", "pw123456")

	rec := performAuthedRequest(f.router, http.MethodPost, "/pages/profile/update", token, map[string]string{
		"name": "Renamed",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProfileHandlerUpdateProfile_Unauthenticated(t *testing.T) {
	f := newHandlerFixture(t, fixtureOptions{})

	rec := performRequest(f.router, http.MethodPost, "/pages/profile/update", map[string]string{
		"name":  "Renamed",
		"phone": "0901234567",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestProfileHandlerChangePassword_Success(t *testing.T) {
	f := newHandlerFixture(t, fixtureOptions{})
	registerUser(t, f, "user@example.com", "oldpass", "Test")
	token := loginUser(t, f, "user@example.com", "oldpass")

	rec := performAuthedRequest(f.router, http.MethodPost, "/pages/profile/change-password", token, map[string]string{
		"password": "newpass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = performRequest(f.router, http.MethodPost, "/auth/login", map[string]string{
		"email":    "user@example.com",
		"password": "oldpass",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with old password, got %d", rec.Code)
	}
	loginUser(t, f, "user@example.com", "newpass")
}

func TestProfileHandlerRecentDevices_ReturnsLoginHistory(t *testing.T) {
	f := newHandlerFixture(t, fixtureOptions{})
	registerUser(t, f, "user@example.com", "pw123456", "Test")

	// Login con user agent deja rastro en el historial de dispositivos.
	rec := performRequest(f.router, http.MethodPost, "/auth/login", map[string]string{
		"email":           "user@example.com",
		"password":        "pw123456",
		"userAgentHeader": "Mozilla/5.0 (Linux; Android 14) Chrome/120.0 Mobile Safari/537.36",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", rec.Code)
	}
	token := decodeBody(t, rec)["session"].(map[string]any)["token"].(string)

	rec = performAuthedRequest(f.router, http.MethodGet, "/pages/profile/recent-device", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var logs []domain.LoginLog
	if err := json.Unmarshal(rec.Body.Bytes(), &logs); err != nil {
		t.Fatalf("decode logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected one login log, got %d", len(logs))
	}
	if logs[0].Browser != "Chrome" || logs[0].OS != "Android" || logs[0].DeviceType != domain.DeviceMobile {
		t.Fatalf("unexpected device parse: %+v", logs[0])
	}
}
