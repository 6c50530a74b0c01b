package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riftlabs/corelaunch/internal/corerr"
)

func testChain(t *testing.T) (*Chain, *DeviceTokenKey) {
	t.Helper()
	c := NewChain()
	key, err := newDeviceTokenKey()
	if err != nil {
		t.Fatalf("newDeviceTokenKey: %v", err)
	}
	return c, key
}

func TestDeviceTokenSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Signature") == "" {
			t.Errorf("expected Signature header")
		}
		if r.Header.Get("x-xbl-contract-version") != "1" {
			t.Errorf("expected x-xbl-contract-version: 1")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(DeviceToken{
			Token:         "device-token-abc",
			DisplayClaims: map[string]interface{}{},
		})
	}))
	defer srv.Close()

	c, key := testChain(t)
	c.deviceAuthURL = srv.URL

	token, _, err := c.deviceToken(context.Background(), key, time.Now())
	if err != nil {
		t.Fatalf("deviceToken: %v", err)
	}
	if token.Token != "device-token-abc" {
		t.Errorf("got token %q", token.Token)
	}
}

func TestDeviceTokenErrorStatusNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad signature"}`))
	}))
	defer srv.Close()

	c, key := testChain(t)
	c.deviceAuthURL = srv.URL

	_, _, err := c.deviceToken(context.Background(), key, time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	ce, ok := err.(*corerr.Error)
	if !ok {
		t.Fatalf("expected *corerr.Error, got %T", err)
	}
	if ce.Kind != corerr.KindAuth || ce.Step != string(StepGetDeviceToken) {
		t.Errorf("unexpected error shape: %+v", ce)
	}
	if calls != 1 {
		t.Errorf("expected no retry on HTTP status, got %d calls", calls)
	}
}

func TestSisuAuthenticateMissingSessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MsaOauthRedirect":"https://login.live.com/redirect"}`))
	}))
	defer srv.Close()

	c, key := testChain(t)
	c.sisuAuthenticateURL = srv.URL

	_, _, _, err := c.sisuAuthenticate(context.Background(), key, "device-token", "challenge", time.Now())
	if err == nil {
		t.Fatal("expected error for missing X-SessionId header")
	}
}

func TestSisuAuthenticateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SessionId", "session-123")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MsaOauthRedirect":"https://login.live.com/redirect"}`))
	}))
	defer srv.Close()

	c, key := testChain(t)
	c.sisuAuthenticateURL = srv.URL

	sessionID, redirect, _, err := c.sisuAuthenticate(context.Background(), key, "device-token", "challenge", time.Now())
	if err != nil {
		t.Fatalf("sisuAuthenticate: %v", err)
	}
	if sessionID != "session-123" {
		t.Errorf("got session id %q", sessionID)
	}
	if redirect != "https://login.live.com/redirect" {
		t.Errorf("got redirect %q", redirect)
	}
}

func TestMinecraftTokenMissingUserHash(t *testing.T) {
	c, _ := testChain(t)
	_, err := c.minecraftToken(context.Background(), DeviceToken{Token: "xsts-token"})
	if err == nil {
		t.Fatal("expected error for missing user hash")
	}
}

func TestMinecraftTokenSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"mc-access-token"}`))
	}))
	defer srv.Close()

	c, _ := testChain(t)
	c.minecraftLoginURL = srv.URL

	xsts := DeviceToken{
		Token: "xsts-token",
		DisplayClaims: map[string]interface{}{
			"xui": []interface{}{
				map[string]interface{}{"uhs": "user-hash"},
			},
		},
	}
	token, err := c.minecraftToken(context.Background(), xsts)
	if err != nil {
		t.Fatalf("minecraftToken: %v", err)
	}
	if token != "mc-access-token" {
		t.Errorf("got token %q", token)
	}
}

func TestMinecraftEntitlementsDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, _ := testChain(t)
	c.entitlementsURL = srv.URL

	err := c.minecraftEntitlements(context.Background(), "mc-access-token")
	if err == nil {
		t.Fatal("expected entitlement error")
	}
}

func TestMinecraftProfileSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer mc-access-token" {
			t.Errorf("unexpected Authorization header: %s", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"00000000000000000000000000000001","name":"Steve"}`))
	}))
	defer srv.Close()

	c, _ := testChain(t)
	c.profileURL = srv.URL

	id, name, err := c.minecraftProfile(context.Background(), "mc-access-token")
	if err != nil {
		t.Fatalf("minecraftProfile: %v", err)
	}
	if name != "Steve" {
		t.Errorf("got name %q", name)
	}
	if id != "00000000000000000000000000000001" {
		t.Errorf("got id %q", id)
	}
}

func TestDeviceTokenUserHash(t *testing.T) {
	token := DeviceToken{
		DisplayClaims: map[string]interface{}{
			"xui": []interface{}{
				map[string]interface{}{"uhs": "abc123"},
			},
		},
	}
	uhs, ok := token.UserHash()
	if !ok || uhs != "abc123" {
		t.Errorf("UserHash() = %q, %v", uhs, ok)
	}

	if _, ok := (DeviceToken{}).UserHash(); ok {
		t.Error("expected UserHash() to fail on empty claims")
	}
}
