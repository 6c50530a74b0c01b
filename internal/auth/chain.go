package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/riftlabs/corelaunch/internal/corerr"
	"github.com/riftlabs/corelaunch/internal/httpclient"
)

const (
	microsoftClientID = "00000000402b5328"
	redirectURL        = "https://login.live.com/oauth20_desktop.srf"
	requestedScopes     = "service::user.auth.xboxlive.com::MBI_SSL"
)

// DeviceTokenKey is the identity a device token is bound to: a launcher-
// generated UUID plus the ECDSA-P256 proof-of-possession key.
type DeviceTokenKey struct {
	ID  string
	Key *httpclient.DeviceKey
}

func newDeviceTokenKey() (*DeviceTokenKey, error) {
	key, err := httpclient.NewDeviceKey()
	if err != nil {
		return nil, corerr.Step(corerr.KindAuth, string(StepGetDeviceToken), "generating device key", err)
	}
	return &DeviceTokenKey{ID: strings.ToUpper(uuid.New().String()), Key: key}, nil
}

// Chain performs the signed Xbox Live / Sisu / XSTS request sequence.
// It holds no session state of its own; Store composes it with device
// key and credential persistence. Endpoint URLs are fields rather than
// constants so tests can point the chain at an httptest.Server.
type Chain struct {
	client *retryablehttp.Client

	deviceAuthURL      string
	sisuAuthenticateURL string
	sisuAuthorizeURL   string
	xstsAuthorizeURL   string
	oauthTokenURL      string
	minecraftLoginURL  string
	entitlementsURL    string
	profileURL         string
	brandedBaseURL     string
	brandedStagingURL  string
}

// NewChain builds a Chain using the Auth Chain's stricter retry policy:
// 5 attempts, fixed 250ms backoff, retry only on connect/timeout.
func NewChain() *Chain {
	c := httpclient.AuthPolicy()
	c.CheckRetry = httpclient.ConnectOrTimeoutOnly
	return &Chain{
		client:              c,
		deviceAuthURL:       "https://device.auth.xboxlive.com/device/authenticate",
		sisuAuthenticateURL: "https://sisu.xboxlive.com/authenticate",
		sisuAuthorizeURL:    "https://sisu.xboxlive.com/authorize",
		xstsAuthorizeURL:    "https://xsts.auth.xboxlive.com/xsts/authorize",
		oauthTokenURL:       "https://login.live.com/oauth20_token.srf",
		minecraftLoginURL:   "https://api.minecraftservices.com/launcher/login",
		entitlementsURL:     "https://api.minecraftservices.com/entitlements/license",
		profileURL:          "https://api.minecraftservices.com/minecraft/profile",
		brandedBaseURL:      brandedBaseURL,
		brandedStagingURL:   brandedStagingBaseURL,
	}
}

type signedResponse struct {
	body []byte
	date time.Time
}

// sendSigned issues a signed POST and returns the raw body plus the
// response's Date header (or now, if absent) to anchor the next call's
// signature against.
func (c *Chain) sendSigned(ctx context.Context, key *DeviceTokenKey, fullURL, path string, payload interface{}, step Step, anchor time.Time) (signedResponse, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return signedResponse{}, corerr.Step(corerr.KindAuth, string(step), "serializing request body", err)
	}

	sig, err := key.Key.Sign(http.MethodPost, path, "", bodyBytes, anchor)
	if err != nil {
		return signedResponse{}, corerr.Step(corerr.KindAuth, string(step), "constructing signed request", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return signedResponse{}, corerr.Step(corerr.KindAuth, string(step), "building request", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Signature", sig)
	if step != StepSisuAuthorize {
		req.Header.Set("x-xbl-contract-version", "1")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return signedResponse{}, corerr.Step(corerr.KindAuth, string(step), "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return signedResponse{}, corerr.Step(corerr.KindAuth, string(step), "reading response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return signedResponse{}, corerr.Step(corerr.KindAuth, string(step),
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(data)), nil)
	}

	return signedResponse{body: data, date: httpclient.ResponseTimeAnchor(resp)}, nil
}

// deviceToken obtains a fresh device token for key, bound to this
// install's proof-of-possession coordinates.
func (c *Chain) deviceToken(ctx context.Context, key *DeviceTokenKey, anchor time.Time) (DeviceToken, time.Time, error) {
	x, y := key.Key.CoordsBase64URL()
	payload := map[string]interface{}{
		"Properties": map[string]interface{}{
			"AuthMethod": "ProofOfPossession",
			"Id":         "{" + key.ID + "}",
			"DeviceType": "Win32",
			"Version":    "10.16.0",
			"ProofKey": map[string]interface{}{
				"kty": "EC", "x": x, "y": y, "crv": "P-256", "alg": "ES256", "use": "sig",
			},
		},
		"RelyingParty": "http://auth.xboxlive.com",
		"TokenType":    "JWT",
	}

	res, err := c.sendSigned(ctx, key, c.deviceAuthURL, "/device/authenticate", payload, StepGetDeviceToken, anchor)
	if err != nil {
		return DeviceToken{}, time.Time{}, err
	}

	var token DeviceToken
	if err := json.Unmarshal(res.body, &token); err != nil {
		return DeviceToken{}, time.Time{}, corerr.Step(corerr.KindAuth, string(StepGetDeviceToken), "decoding response", err)
	}
	return token, res.date, nil
}

type redirectURIResponse struct {
	MsaOAuthRedirect string `json:"MsaOauthRedirect"`
}

// sisuAuthenticate produces the PKCE redirect URI the embedder must open
// for the user, plus the session id required by later steps.
func (c *Chain) sisuAuthenticate(ctx context.Context, key *DeviceTokenKey, deviceToken, challenge string, anchor time.Time) (sessionID, redirect string, date time.Time, err error) {
	payload := map[string]interface{}{
		"AppId":       microsoftClientID,
		"DeviceToken": deviceToken,
		"Offers":      []string{requestedScopes},
		"Query": map[string]string{
			"code_challenge":        challenge,
			"code_challenge_method": "S256",
			"state":                 randomChallengeString(),
			"prompt":                "select_account",
		},
		"RedirectUri": redirectURL,
		"Sandbox":     "RETAIL",
		"TokenType":   "code",
		"TitleId":     "1794566092",
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", "", time.Time{}, corerr.Step(corerr.KindAuth, string(StepSisuAuthenticate), "serializing request body", err)
	}
	sig, err := key.Key.Sign(http.MethodPost, "/authenticate", "", bodyBytes, anchor)
	if err != nil {
		return "", "", time.Time{}, corerr.Step(corerr.KindAuth, string(StepSisuAuthenticate), "constructing signed request", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.sisuAuthenticateURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", "", time.Time{}, corerr.Step(corerr.KindAuth, string(StepSisuAuthenticate), "building request", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Signature", sig)
	req.Header.Set("x-xbl-contract-version", "1")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", time.Time{}, corerr.Step(corerr.KindAuth, string(StepSisuAuthenticate), "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", time.Time{}, corerr.Step(corerr.KindAuth, string(StepSisuAuthenticate), "reading response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", time.Time{}, corerr.Step(corerr.KindAuth, string(StepSisuAuthenticate),
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(data)), nil)
	}

	sessionID = resp.Header.Get("X-SessionId")
	if sessionID == "" {
		return "", "", time.Time{}, corerr.New(corerr.KindAuth, "missing X-SessionId response header", nil)
	}

	var redirectBody redirectURIResponse
	if err := json.Unmarshal(data, &redirectBody); err != nil {
		return "", "", time.Time{}, corerr.Step(corerr.KindAuth, string(StepSisuAuthenticate), "decoding response", err)
	}

	return sessionID, redirectBody.MsaOAuthRedirect, httpclient.ResponseTimeAnchor(resp), nil
}

type oauthTokenResponse struct {
	ExpiresIn    int64  `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c *Chain) oauthForm(ctx context.Context, form url.Values, step Step) (oauthTokenResponse, time.Time, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.oauthTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return oauthTokenResponse{}, time.Time{}, corerr.Step(corerr.KindAuth, string(step), "building request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return oauthTokenResponse{}, time.Time{}, corerr.Step(corerr.KindAuth, string(step), "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return oauthTokenResponse{}, time.Time{}, corerr.Step(corerr.KindAuth, string(step), "reading response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return oauthTokenResponse{}, time.Time{}, corerr.Step(corerr.KindAuth, string(step),
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(data)), nil)
	}

	var out oauthTokenResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return oauthTokenResponse{}, time.Time{}, corerr.Step(corerr.KindAuth, string(step), "decoding response", err)
	}
	return out, httpclient.ResponseTimeAnchor(resp), nil
}

func (c *Chain) oauthToken(ctx context.Context, code, verifier string) (oauthTokenResponse, time.Time, error) {
	form := url.Values{
		"client_id":     {microsoftClientID},
		"code":          {code},
		"code_verifier": {verifier},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {redirectURL},
		"scope":         {requestedScopes},
	}
	return c.oauthForm(ctx, form, StepGetOAuthToken)
}

func (c *Chain) oauthRefresh(ctx context.Context, refreshToken string) (oauthTokenResponse, time.Time, error) {
	form := url.Values{
		"client_id":     {microsoftClientID},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
		"redirect_uri":  {redirectURL},
		"scope":         {requestedScopes},
	}
	return c.oauthForm(ctx, form, StepRefreshOAuthToken)
}

// sisuAuthorize exchanges an MSA access token for XSTS-ready title and
// user tokens. sessionID is nil on the refresh path.
func (c *Chain) sisuAuthorize(ctx context.Context, key *DeviceTokenKey, sessionID *string, msaAccessToken, deviceToken string, anchor time.Time) (sisuAuthorizeResult, time.Time, error) {
	x, y := key.Key.CoordsBase64URL()
	payload := map[string]interface{}{
		"AccessToken": "t=" + msaAccessToken,
		"AppId":       microsoftClientID,
		"DeviceToken": deviceToken,
		"ProofKey": map[string]interface{}{
			"kty": "EC", "x": x, "y": y, "crv": "P-256", "alg": "ES256", "use": "sig",
		},
		"Sandbox":           "RETAIL",
		"SessionId":         sessionID,
		"SiteName":          "user.auth.xboxlive.com",
		"RelyingParty":      "http://xboxlive.com",
		"UseModernGamertag": true,
	}

	res, err := c.sendSigned(ctx, key, c.sisuAuthorizeURL, "/authorize", payload, StepSisuAuthorize, anchor)
	if err != nil {
		return sisuAuthorizeResult{}, time.Time{}, err
	}

	var out sisuAuthorizeResult
	if err := json.Unmarshal(res.body, &out); err != nil {
		return sisuAuthorizeResult{}, time.Time{}, corerr.Step(corerr.KindAuth, string(StepSisuAuthorize), "decoding response", err)
	}
	return out, res.date, nil
}

func (c *Chain) xstsAuthorize(ctx context.Context, key *DeviceTokenKey, authorize sisuAuthorizeResult, deviceToken string, anchor time.Time) (DeviceToken, time.Time, error) {
	payload := map[string]interface{}{
		"RelyingParty": "rp://api.minecraftservices.com/",
		"TokenType":    "JWT",
		"Properties": map[string]interface{}{
			"SandboxId":   "RETAIL",
			"UserTokens":  []string{authorize.UserToken.Token},
			"DeviceToken": deviceToken,
			"TitleToken":  authorize.TitleToken.Token,
		},
	}

	res, err := c.sendSigned(ctx, key, c.xstsAuthorizeURL, "/xsts/authorize", payload, StepXSTSAuthorize, anchor)
	if err != nil {
		return DeviceToken{}, time.Time{}, err
	}

	var out DeviceToken
	if err := json.Unmarshal(res.body, &out); err != nil {
		return DeviceToken{}, time.Time{}, corerr.Step(corerr.KindAuth, string(StepXSTSAuthorize), "decoding response", err)
	}
	return out, res.date, nil
}

func (c *Chain) minecraftToken(ctx context.Context, xstsToken DeviceToken) (string, error) {
	uhs, ok := xstsToken.UserHash()
	if !ok {
		return "", corerr.Step(corerr.KindAuth, string(StepMinecraftToken), "missing user hash in XSTS display claims", nil)
	}

	body, _ := json.Marshal(map[string]string{
		"platform": "PC_LAUNCHER",
		"xtoken":   fmt.Sprintf("XBL3.0 x=%s;%s", uhs, xstsToken.Token),
	})

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.minecraftLoginURL, bytes.NewReader(body))
	if err != nil {
		return "", corerr.Step(corerr.KindAuth, string(StepMinecraftToken), "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", corerr.Step(corerr.KindAuth, string(StepMinecraftToken), "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", corerr.Step(corerr.KindAuth, string(StepMinecraftToken), "reading response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", corerr.Step(corerr.KindAuth, string(StepMinecraftToken),
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(data)), nil)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", corerr.Step(corerr.KindAuth, string(StepMinecraftToken), "decoding response", err)
	}
	return out.AccessToken, nil
}

func (c *Chain) minecraftEntitlements(ctx context.Context, mcAccessToken string) error {
	reqURL := c.entitlementsURL + "?requestId=" + uuid.New().String()
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return corerr.Step(corerr.KindAuth, string(StepEntitlements), "building request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+mcAccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return corerr.Step(corerr.KindAuth, string(StepEntitlements), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return corerr.Step(corerr.KindAuth, string(StepEntitlements),
			fmt.Sprintf("account has no Minecraft entitlement (status %d): %s", resp.StatusCode, string(data)), nil)
	}
	return nil
}

func (c *Chain) minecraftProfile(ctx context.Context, mcAccessToken string) (id, name string, err error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
	if err != nil {
		return "", "", corerr.Step(corerr.KindAuth, string(StepMinecraftProfile), "building request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+mcAccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", corerr.Step(corerr.KindAuth, string(StepMinecraftProfile), "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", corerr.Step(corerr.KindAuth, string(StepMinecraftProfile), "reading response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", corerr.Step(corerr.KindAuth, string(StepMinecraftProfile),
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(data)), nil)
	}

	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", "", corerr.Step(corerr.KindAuth, string(StepMinecraftProfile), "decoding response", err)
	}
	return out.ID, out.Name, nil
}
