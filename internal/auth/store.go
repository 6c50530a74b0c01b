package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/riftlabs/corelaunch/internal/corerr"
	"github.com/riftlabs/corelaunch/internal/httpclient"
)

// Store owns the full authenticated-account lifecycle: the persisted
// device key, the per-account credential set, and the active account
// selection. It is the only exported entry point into the Auth Chain;
// callers never construct a Chain directly.
type Store struct {
	chain *Chain

	Users       map[string]Credentials `json:"users"`
	Token       *SaveDeviceToken        `json:"token,omitempty"`
	DefaultUser string                  `json:"defaultUser,omitempty"`

	filePath string
}

// NewStore builds a Store persisting to dataDir/accounts.json.
func NewStore(dataDir string) *Store {
	return &Store{
		chain:    NewChain(),
		Users:    map[string]Credentials{},
		filePath: filepath.Join(dataDir, "accounts.json"),
	}
}

// Load reads the account store from disk. A missing file is not an
// error: a fresh install simply starts with no accounts.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return corerr.New(corerr.KindFilesystem, "reading account store", err)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return corerr.New(corerr.KindJSON, "decoding account store", err)
	}
	return nil
}

// Save writes the account store to disk atomically: a temp file is
// written alongside the target and renamed into place.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return corerr.New(corerr.KindJSON, "encoding account store", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return corerr.New(corerr.KindFilesystem, "creating data directory", err)
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return corerr.New(corerr.KindFilesystem, "writing account store", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return corerr.New(corerr.KindFilesystem, "replacing account store", err)
	}
	return nil
}

// Active returns the default account's credentials, or false if none is
// selected or the selection no longer exists.
func (s *Store) Active() (Credentials, bool) {
	if s.DefaultUser == "" {
		return Credentials{}, false
	}
	c, ok := s.Users[s.DefaultUser]
	return c, ok
}

// SetActive selects id as the default account.
func (s *Store) SetActive(id string) error {
	if _, ok := s.Users[id]; !ok {
		return corerr.New(corerr.KindNoCredentials, fmt.Sprintf("no stored account %q", id), nil)
	}
	s.DefaultUser = id
	return nil
}

// Remove deletes an account and clears the default selection if it was
// the one removed.
func (s *Store) Remove(id string) {
	delete(s.Users, id)
	if s.DefaultUser == id {
		s.DefaultUser = ""
	}
}

// refreshAndGetDeviceToken returns a usable device-token key, reusing
// the cached one while its NotAfter is more than an hour away and
// otherwise generating a fresh one and storing it in s.Token, which the
// next Save writes to disk.
func (s *Store) refreshAndGetDeviceToken(ctx context.Context) (*DeviceTokenKey, DeviceToken, error) {
	anchor := time.Now().UTC()

	if s.Token != nil && s.Token.Token.NotAfter.After(anchor.Add(time.Hour)) {
		key, err := httpclient.ParseDeviceKeyPEM(s.Token.PrivateKey)
		if err != nil {
			return nil, DeviceToken{}, corerr.Step(corerr.KindAuth, string(StepGetDeviceToken), "parsing cached device key", err)
		}
		return &DeviceTokenKey{ID: s.Token.ID, Key: key}, s.Token.Token, nil
	}

	key, err := newDeviceTokenKey()
	if err != nil {
		return nil, DeviceToken{}, err
	}

	token, _, err := s.chain.deviceToken(ctx, key, anchor)
	if err != nil {
		return nil, DeviceToken{}, err
	}

	pemKey, err := key.Key.MarshalPKCS8PEM()
	if err != nil {
		return nil, DeviceToken{}, corerr.Step(corerr.KindAuth, string(StepGetDeviceToken), "serializing device key", err)
	}
	x, y := key.Key.CoordsBase64URL()
	s.Token = &SaveDeviceToken{ID: key.ID, PrivateKey: pemKey, X: x, Y: y, Token: token}

	return key, token, nil
}

// LoginBegin obtains a device token, generates a PKCE verifier/challenge
// pair, and calls Sisu authenticate to produce the redirect URI the
// embedder must open for the user to complete Microsoft login.
func (s *Store) LoginBegin(ctx context.Context) (*LoginFlow, error) {
	key, deviceToken, err := s.refreshAndGetDeviceToken(ctx)
	if err != nil {
		return nil, err
	}

	verifier, err := pkceVerifier()
	if err != nil {
		return nil, corerr.Step(corerr.KindAuth, string(StepSisuAuthenticate), "generating PKCE verifier", err)
	}
	challenge := pkceChallenge(verifier)

	sessionID, redirect, _, err := s.chain.sisuAuthenticate(ctx, key, deviceToken.Token, challenge, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	return &LoginFlow{
		Verifier:    verifier,
		Challenge:   challenge,
		SessionID:   sessionID,
		RedirectURI: redirect,
	}, nil
}

// LoginFinish exchanges the OAuth authorization code the embedder
// collected from the user for Minecraft credentials, walking the rest
// of the signed chain (Sisu authorize, XSTS authorize, Minecraft token,
// entitlements, profile), and records the result in s.Users, making it
// the default account only when none is set yet. It does not save the
// store.
func (s *Store) LoginFinish(ctx context.Context, flow *LoginFlow, code string) (Credentials, error) {
	key, deviceToken, err := s.refreshAndGetDeviceToken(ctx)
	if err != nil {
		return Credentials{}, err
	}

	oauth, _, err := s.chain.oauthToken(ctx, code, flow.Verifier)
	if err != nil {
		return Credentials{}, err
	}

	creds, err := s.finishWithOAuthToken(ctx, key, deviceToken.Token, &flow.SessionID, oauth)
	if err != nil {
		return Credentials{}, err
	}

	s.Users[creds.ID] = creds
	if s.DefaultUser == "" {
		s.DefaultUser = creds.ID
	}
	return creds, nil
}

// Refresh re-runs the chain from a stored refresh token, skipping Sisu
// authenticate (no new session id is needed) and preserving the
// account's id, username, and branded tokens.
func (s *Store) Refresh(ctx context.Context, id string) (Credentials, error) {
	existing, ok := s.Users[id]
	if !ok {
		return Credentials{}, corerr.New(corerr.KindNoCredentials, fmt.Sprintf("no stored account %q", id), nil)
	}

	key, deviceToken, err := s.refreshAndGetDeviceToken(ctx)
	if err != nil {
		return Credentials{}, err
	}

	oauth, _, err := s.chain.oauthRefresh(ctx, existing.RefreshToken)
	if err != nil {
		return Credentials{}, err
	}

	creds, err := s.finishWithOAuthToken(ctx, key, deviceToken.Token, nil, oauth)
	if err != nil {
		return Credentials{}, err
	}
	creds.BrandedTokens = existing.BrandedTokens

	s.Users[creds.ID] = creds
	return creds, nil
}

func (s *Store) finishWithOAuthToken(ctx context.Context, key *DeviceTokenKey, deviceToken string, sessionID *string, oauth oauthTokenResponse) (Credentials, error) {
	anchor := time.Now().UTC()

	authorize, _, err := s.chain.sisuAuthorize(ctx, key, sessionID, oauth.AccessToken, deviceToken, anchor)
	if err != nil {
		return Credentials{}, err
	}

	xsts, _, err := s.chain.xstsAuthorize(ctx, key, authorize, deviceToken, anchor)
	if err != nil {
		return Credentials{}, err
	}

	mcAccessToken, err := s.chain.minecraftToken(ctx, xsts)
	if err != nil {
		return Credentials{}, err
	}

	if err := s.chain.minecraftEntitlements(ctx, mcAccessToken); err != nil {
		return Credentials{}, err
	}

	id, name, err := s.chain.minecraftProfile(ctx, mcAccessToken)
	if err != nil {
		return Credentials{}, err
	}

	return Credentials{
		ID:           id,
		Username:     name,
		AccessToken:  mcAccessToken,
		RefreshToken: oauth.RefreshToken,
		Expires:      time.Now().Add(time.Duration(oauth.ExpiresIn) * time.Second),
	}, nil
}

// pkceVerifier generates the 64-byte-random/128-hex-char PKCE code
// verifier the MSA authorization code exchange requires.
func pkceVerifier() (string, error) {
	b := make([]byte, 64)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// pkceChallenge derives the S256 code challenge from a verifier.
func pkceChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// randomChallengeString produces the opaque CSRF state value Sisu
// authenticate's Query.state parameter carries.
func randomChallengeString() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
