package snapsi

import (
	"crypto/hmac"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	stowrysign "github.com/sagarc03/stowry-go"
)

const (
	// ObjectsPath is the URL prefix under which signed object URLs are served.
	ObjectsPath = "/objects/"

	MaxExpiresSeconds = 604800 // 7 days
	maxClockSkew      = 5 * time.Minute
)

// SecretStore resolves an access key to its secret.
type SecretStore interface {
	Lookup(accessKey string) (string, error)
}

// signedResource binds a content type into the signed path, so an upload
// capability is only valid for the exact type it was issued for.
func signedResource(path, contentType string) string {
	if contentType == "" {
		return path
	}
	return path + "|" + contentType
}

// URLSigner issues capability URLs for objects served by this process.
type URLSigner struct {
	baseURL   *url.URL
	accessKey string
	secretKey string
	now       func() time.Time
}

func NewURLSigner(baseURL, accessKey, secretKey string) (*URLSigner, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("new url signer: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("new url signer: base url must be absolute: %q", baseURL)
	}
	if accessKey == "" || secretKey == "" {
		return nil, errors.New("new url signer: access key and secret key are required")
	}

	return &URLSigner{
		baseURL:   u,
		accessKey: accessKey,
		secretKey: secretKey,
		now:       time.Now,
	}, nil
}

// Sign returns a URL allowing method on key until the returned expiry.
// contentType must be empty for reads and set for uploads.
func (s *URLSigner) Sign(method, key, contentType string, ttl time.Duration) (string, time.Time, error) {
	expires := int64(ttl / time.Second)
	if expires <= 0 || expires > MaxExpiresSeconds {
		return "", time.Time{}, fmt.Errorf("sign url: %w: ttl must be between 1s and %ds", ErrInvalidInput, MaxExpiresSeconds)
	}

	now := s.now()
	timestamp := now.Unix()
	path := strings.TrimRight(s.baseURL.Path, "/") + ObjectsPath + key
	resourcePath := ObjectsPath + key

	sig := stowrysign.Sign(s.secretKey, method, signedResource(resourcePath, contentType), timestamp, expires)

	query := url.Values{}
	query.Set(stowrysign.StowryCredentialParam, s.accessKey)
	query.Set(stowrysign.StowryDateParam, strconv.FormatInt(timestamp, 10))
	query.Set(stowrysign.StowryExpiresParam, strconv.FormatInt(expires, 10))
	query.Set(stowrysign.StowrySignatureParam, sig)

	u := *s.baseURL
	u.Path = path
	u.RawQuery = query.Encode()

	return u.String(), time.Unix(timestamp+expires, 0), nil
}

// URLVerifier checks capability URLs issued by a URLSigner sharing the same keys.
type URLVerifier struct {
	store SecretStore
	now   func() time.Time
}

func NewURLVerifier(store SecretStore) *URLVerifier {
	return &URLVerifier{store: store, now: time.Now}
}

// Verify checks the signature of a request against its method, path
// (relative to the objects prefix, e.g. "/objects/{key}") and, for uploads,
// the Content-Type header.
//
// Returns an error wrapping ErrUnauthorized when:
//   - any signature parameter is missing or malformed
//   - expires is outside 1..MaxExpiresSeconds
//   - the URL expired or was issued too far in the future
//   - the access key is unknown
//   - the signature does not match
func (v *URLVerifier) Verify(r *http.Request, resourcePath string) error {
	query := r.URL.Query()

	credential := query.Get(stowrysign.StowryCredentialParam)
	date := query.Get(stowrysign.StowryDateParam)
	expiresParam := query.Get(stowrysign.StowryExpiresParam)
	signature := query.Get(stowrysign.StowrySignatureParam)

	if credential == "" || date == "" || expiresParam == "" || signature == "" {
		return fmt.Errorf("missing required signature parameters: %w", ErrUnauthorized)
	}

	timestamp, err := strconv.ParseInt(date, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid date: %w", ErrUnauthorized)
	}

	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil || expires <= 0 || expires > MaxExpiresSeconds {
		return fmt.Errorf("invalid expires: must be between 1 and %d: %w", MaxExpiresSeconds, ErrUnauthorized)
	}

	now := v.now()
	issued := time.Unix(timestamp, 0)
	if issued.After(now.Add(maxClockSkew)) {
		return fmt.Errorf("request timestamp in the future: %w", ErrUnauthorized)
	}
	if now.After(issued.Add(time.Duration(expires) * time.Second)) {
		return fmt.Errorf("request has expired: %w", ErrUnauthorized)
	}

	secretKey, err := v.store.Lookup(credential)
	if err != nil {
		return fmt.Errorf("invalid access key: %w", ErrUnauthorized)
	}

	contentType := ""
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		contentType = r.Header.Get("Content-Type")
	}

	method := r.Method
	if method == http.MethodHead {
		method = http.MethodGet
	}

	expected := stowrysign.Sign(secretKey, method, signedResource(resourcePath, contentType), timestamp, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch: %w", ErrUnauthorized)
	}

	return nil
}
