package httpclient

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"encoding/pem"
	"fmt"
	"math/big"
	"net/http"
	"time"
)

// filetimeEpochOffsetSeconds is the number of seconds between the
// Windows FILETIME epoch (1601-01-01) and the Unix epoch (1970-01-01);
// WindowsFileTime scales it to 100ns ticks.
const filetimeEpochOffsetSeconds = 11644473600

// WindowsFileTime converts t to the big-endian u64 Windows FILETIME tick
// count (100ns ticks since 1601-01-01) that Xbox Live's signed-request
// scheme uses as its time anchor. The byte layout here is load-bearing:
// the server hashes the exact bytes sent, so any drift breaks the signature.
func WindowsFileTime(t time.Time) uint64 {
	seconds := t.Unix()
	nanos := t.Nanosecond()
	ticks := (seconds + filetimeEpochOffsetSeconds) * 10_000_000
	ticks += int64(nanos) / 100
	return uint64(ticks)
}

// ResponseTimeAnchor returns the time to use as "now" for a signed
// request: the previous response's Date header when present (to avoid
// clock skew against the server), otherwise the local clock.
func ResponseTimeAnchor(prev *http.Response) time.Time {
	if prev != nil {
		if d := prev.Header.Get("Date"); d != "" {
			if parsed, err := http.ParseTime(d); err == nil {
				return parsed
			}
		}
	}
	return time.Now().UTC()
}

// CanonicalSignatureBuffer builds the exact byte buffer that gets signed
// for a proof-of-possession request:
//
//	u32(1) ‖ u8(0) ‖ u64(time) ‖ u8(0) ‖ method ‖ u8(0) ‖ path ‖ u8(0) ‖
//	authorizationHeader-or-empty ‖ u8(0) ‖ body ‖ u8(0)
func CanonicalSignatureBuffer(method, path, authorizationHeader string, body []byte, timeTicks uint64) []byte {
	buf := make([]byte, 0, 64+len(method)+len(path)+len(authorizationHeader)+len(body))

	var versionBytes [4]byte
	binary.BigEndian.PutUint32(versionBytes[:], 1)
	buf = append(buf, versionBytes[:]...)
	buf = append(buf, 0)

	var timeBytes [8]byte
	binary.BigEndian.PutUint64(timeBytes[:], timeTicks)
	buf = append(buf, timeBytes[:]...)
	buf = append(buf, 0)

	buf = append(buf, []byte(method)...)
	buf = append(buf, 0)

	buf = append(buf, []byte(path)...)
	buf = append(buf, 0)

	buf = append(buf, []byte(authorizationHeader)...)
	buf = append(buf, 0)

	buf = append(buf, body...)
	buf = append(buf, 0)

	return buf
}

// DeviceKey is the ECDSA-P256 proof-of-possession key bound to this
// launcher install. It is generated once and persisted.
type DeviceKey struct {
	Private *ecdsa.PrivateKey
}

// NewDeviceKey generates a fresh P-256 signing key.
func NewDeviceKey() (*DeviceKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating device key: %w", err)
	}
	return &DeviceKey{Private: priv}, nil
}

// CoordsBase64URL returns the public key's X and Y coordinates, each
// rendered as fixed-width (32-byte) big-endian integers and then
// base64url-encoded without padding — the form the JWK proof-of-
// possession claim expects.
func (k *DeviceKey) CoordsBase64URL() (x, y string) {
	return encodeCoord(k.Private.PublicKey.X), encodeCoord(k.Private.PublicKey.Y)
}

func encodeCoord(v *big.Int) string {
	b := make([]byte, 32)
	v.FillBytes(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// MarshalPKCS8PEM serializes the private key to a PEM-encoded PKCS#8
// block for on-disk persistence alongside the device token it signs for.
func (k *DeviceKey) MarshalPKCS8PEM() (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(k.Private)
	if err != nil {
		return "", fmt.Errorf("serializing device key: %w", err)
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// ParseDeviceKeyPEM parses a PEM-encoded PKCS#8 EC private key previously
// produced by MarshalPKCS8PEM.
func ParseDeviceKeyPEM(pemStr string) (*DeviceKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("decoding device key PEM: no PEM block found")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing device key: %w", err)
	}
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("device key is not ECDSA")
	}
	return &DeviceKey{Private: priv}, nil
}

// Sign produces the `Signature` header payload for a request: the
// canonical buffer is hashed with SHA-256 and signed with ECDSA, then
// the payload i32(1) ‖ u64(time) ‖ r ‖ s is base64-standard encoded.
// r and s are each rendered as fixed-width 32-byte big-endian integers,
// matching the P-256 field size.
func (k *DeviceKey) Sign(method, path, authorizationHeader string, body []byte, anchor time.Time) (string, error) {
	ticks := WindowsFileTime(anchor)
	buf := CanonicalSignatureBuffer(method, path, authorizationHeader, body, ticks)

	digest := sha256.Sum256(buf)
	r, s, err := ecdsa.Sign(rand.Reader, k.Private, digest[:])
	if err != nil {
		return "", fmt.Errorf("signing request: %w", err)
	}

	payload := make([]byte, 0, 4+8+32+32)
	var versionBytes [4]byte
	binary.BigEndian.PutUint32(versionBytes[:], 1)
	payload = append(payload, versionBytes[:]...)

	var timeBytes [8]byte
	binary.BigEndian.PutUint64(timeBytes[:], ticks)
	payload = append(payload, timeBytes[:]...)

	rBytes := make([]byte, 32)
	r.FillBytes(rBytes)
	payload = append(payload, rBytes...)

	sBytes := make([]byte, 32)
	s.FillBytes(sBytes)
	payload = append(payload, sBytes...)

	return base64.StdEncoding.EncodeToString(payload), nil
}
