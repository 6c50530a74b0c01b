package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func signedJWT(t *testing.T, username string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"username": username})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test JWT: %v", err)
	}
	return signed
}

func TestBrandedTokenNeedsRefresh(t *testing.T) {
	fresh := signedJWT(t, "Alex")

	cases := []struct {
		name     string
		token    string
		username string
		force    bool
		want     bool
	}{
		{"empty token", "", "Alex", false, true},
		{"forced", fresh, "Alex", true, true},
		{"stale username", fresh, "Notch", false, true},
		{"matching username", fresh, "Alex", false, false},
		{"garbage token", "not-a-jwt", "Alex", false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := brandedTokenNeedsRefresh(tc.token, tc.username, tc.force)
			if got != tc.want {
				t.Errorf("brandedTokenNeedsRefresh(%q, %q, %v) = %v, want %v", tc.token, tc.username, tc.force, got, tc.want)
			}
		})
	}
}

func TestRefreshBrandedTokenSendsRawRefreshTokenAndHardwareID(t *testing.T) {
	var gotBody, gotHWID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		gotHWID = r.Header.Get("X-Hardware-Id")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh-branded-token"}`))
	}))
	defer srv.Close()

	c := NewChain()
	c.brandedBaseURL = srv.URL
	c.brandedStagingURL = srv.URL

	token, err := c.RefreshBrandedToken(context.Background(), false, "the-refresh-token")
	if err != nil {
		t.Fatalf("RefreshBrandedToken: %v", err)
	}
	if token != "fresh-branded-token" {
		t.Errorf("got token %q", token)
	}
	if gotBody != "the-refresh-token" {
		t.Errorf("expected raw refresh token body, got %q", gotBody)
	}

	wantHWID, err := HardwareID()
	if err != nil {
		t.Fatalf("HardwareID: %v", err)
	}
	if gotHWID != wantHWID {
		t.Errorf("expected hardware id header %q, got %q", wantHWID, gotHWID)
	}
}

func TestRefreshBrandedTokenIfNecessarySkipsWhenFresh(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-token"}`))
	}))
	defer srv.Close()

	s := NewStore(t.TempDir())
	s.chain.brandedBaseURL = srv.URL
	s.chain.brandedStagingURL = srv.URL

	fresh := signedJWT(t, "Alex")
	s.Users["u1"] = Credentials{
		ID:       "u1",
		Username: "Alex",
		BrandedTokens: BrandedTokens{
			Production: &BrandedToken{Value: fresh},
		},
	}

	creds, err := s.RefreshBrandedTokenIfNecessary(context.Background(), "u1", false, false)
	if err != nil {
		t.Fatalf("RefreshBrandedTokenIfNecessary: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no refresh call, got %d", calls)
	}
	if got, _ := creds.BrandedTokens.Token(false); got != fresh {
		t.Errorf("expected unchanged token, got %q", got)
	}
}

func TestRefreshBrandedTokenIfNecessaryForced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-token"}`))
	}))
	defer srv.Close()

	s := NewStore(t.TempDir())
	s.chain.brandedBaseURL = srv.URL
	s.chain.brandedStagingURL = srv.URL

	fresh := signedJWT(t, "Alex")
	s.Users["u1"] = Credentials{
		ID:       "u1",
		Username: "Alex",
		BrandedTokens: BrandedTokens{
			Production: &BrandedToken{Value: fresh},
		},
	}

	creds, err := s.RefreshBrandedTokenIfNecessary(context.Background(), "u1", false, true)
	if err != nil {
		t.Fatalf("RefreshBrandedTokenIfNecessary: %v", err)
	}
	if got, _ := creds.BrandedTokens.Token(false); got != "new-token" {
		t.Errorf("expected refreshed token, got %q", got)
	}
}

func TestHardwareIDStable(t *testing.T) {
	a, err := HardwareID()
	if err != nil {
		t.Fatalf("HardwareID: %v", err)
	}
	b, err := HardwareID()
	if err != nil {
		t.Fatalf("HardwareID: %v", err)
	}
	if a != b {
		t.Errorf("expected stable hardware id, got %q and %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64-char hex sha256, got length %d", len(a))
	}
}
