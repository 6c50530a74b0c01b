package auth

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"runtime"
	"sort"

	"github.com/golang-jwt/jwt/v5"

	"github.com/riftlabs/corelaunch/internal/corerr"
)

const (
	brandedBaseURL        = "https://api.norisk.gg"
	brandedStagingBaseURL = "https://api-staging.norisk.gg"
	brandedRefreshPath    = "api/v1/auth/rust_refresh_only"
)

type brandedRefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	NoriskToken  string `json:"norisk_token"`
}

// RefreshBrandedToken exchanges refreshToken for a fresh branded-API
// bearer token. The request body is the raw refresh token string, not a
// JSON envelope; a hardware ID binding the token to this install is
// submitted alongside it.
func (c *Chain) RefreshBrandedToken(ctx context.Context, experimental bool, refreshToken string) (string, error) {
	base := c.brandedBaseURL
	if experimental {
		base = c.brandedStagingURL
	}
	url := fmt.Sprintf("%s/%s", base, brandedRefreshPath)

	hwid, err := HardwareID()
	if err != nil {
		return "", corerr.Step(corerr.KindAuth, string(StepRefreshBrandedToken), "deriving hardware id", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(refreshToken)))
	if err != nil {
		return "", corerr.Step(corerr.KindAuth, string(StepRefreshBrandedToken), "building request", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Hardware-Id", hwid)

	resp, err := c.client.StandardClient().Do(req)
	if err != nil {
		return "", corerr.Step(corerr.KindAuth, string(StepRefreshBrandedToken), "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", corerr.Step(corerr.KindAuth, string(StepRefreshBrandedToken), "reading response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", corerr.Step(corerr.KindAuth, string(StepRefreshBrandedToken),
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(data)), nil)
	}

	var out brandedRefreshResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", corerr.Step(corerr.KindAuth, string(StepRefreshBrandedToken), "decoding response", err)
	}
	return out.AccessToken, nil
}

// brandedTokenNeedsRefresh decodes token's unverified claims and reports
// whether it must be refreshed: the token is absent, its embedded
// username no longer matches the account, decoding fails outright, or
// the caller forces it.
func brandedTokenNeedsRefresh(token, username string, force bool) bool {
	if force || token == "" {
		return true
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	claimed, _ := claims["username"].(string)
	return claimed != username
}

// RefreshBrandedTokenIfNecessary refreshes id's branded token for the
// selected environment when brandedTokenNeedsRefresh says it must, and
// stores the result in s.Users; it does not save the store.
func (s *Store) RefreshBrandedTokenIfNecessary(ctx context.Context, id string, experimental, force bool) (Credentials, error) {
	creds, ok := s.Users[id]
	if !ok {
		return Credentials{}, corerr.New(corerr.KindNoCredentials, fmt.Sprintf("no stored account %q", id), nil)
	}

	current, _ := creds.BrandedTokens.Token(experimental)
	if !brandedTokenNeedsRefresh(current, creds.Username, force) {
		return creds, nil
	}

	fresh, err := s.chain.RefreshBrandedToken(ctx, experimental, creds.RefreshToken)
	if err != nil {
		return Credentials{}, err
	}

	slot := &BrandedToken{Value: fresh}
	if experimental {
		creds.BrandedTokens.Experimental = slot
	} else {
		creds.BrandedTokens.Production = slot
	}
	s.Users[id] = creds
	return creds, nil
}

// HardwareID derives a stable per-install identifier from the OS,
// architecture, and primary network interface's hardware address. It
// purposely avoids any value that changes across reboots or reinstalls.
func HardwareID() (string, error) {
	mac, err := primaryMAC()
	if err != nil {
		return "", corerr.New(corerr.KindOther, "deriving hardware id", err)
	}
	sum := sha256.Sum256([]byte(runtime.GOOS + "|" + runtime.GOARCH + "|" + mac))
	return hex.EncodeToString(sum[:]), nil
}

// primaryMAC returns the lowest-sorted hardware address among non-loopback
// interfaces, or the local hostname when no such interface exists (common
// inside minimal containers), so HardwareID never fails on a headless host.
func primaryMAC() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	var candidates []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		candidates = append(candidates, iface.HardwareAddr.String())
	}
	if len(candidates) == 0 {
		host, err := os.Hostname()
		if err != nil {
			return "", fmt.Errorf("no network interface with a hardware address, and hostname unavailable: %w", err)
		}
		return host, nil
	}
	sort.Strings(candidates)
	return candidates[0], nil
}
