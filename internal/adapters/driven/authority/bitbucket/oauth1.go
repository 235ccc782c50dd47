package bitbucket

import (
	"crypto"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // OAuth 1.0a mandates SHA-1
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
)

// Signature methods.
const (
	MethodHMACSHA1 = "HMAC-SHA1"
	MethodRSASHA1  = "RSA-SHA1"
)

// signer builds OAuth 1.0a Authorization headers.
type signer struct {
	consumerKey    string
	consumerSecret string
	privateKey     *rsa.PrivateKey
	now            func() time.Time
	nonce          func() string
}

func newSigner(consumerKey, consumerSecret string, key *rsa.PrivateKey) *signer {
	return &signer{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		privateKey:     key,
		now:            time.Now,
		nonce:          func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

func (s *signer) method() string {
	if s.privateKey != nil {
		return MethodRSASHA1
	}
	return MethodHMACSHA1
}

// authorization returns the Authorization header for a request. extra holds
// protocol parameters such as oauth_callback and oauth_verifier.
func (s *signer) authorization(method, rawURL, token, tokenSecret string, extra map[string]string) (string, error) {
	oauthParams := map[string]string{
		"oauth_consumer_key":     s.consumerKey,
		"oauth_nonce":            s.nonce(),
		"oauth_signature_method": s.method(),
		"oauth_timestamp":        strconv.FormatInt(s.now().Unix(), 10),
		"oauth_version":          "1.0",
	}
	if token != "" {
		oauthParams["oauth_token"] = token
	}
	for k, v := range extra {
		oauthParams[k] = v
	}

	base, err := SignatureBaseString(method, rawURL, oauthParams)
	if err != nil {
		return "", err
	}

	var signature string
	if s.privateKey != nil {
		signature, err = SignRSA(base, s.privateKey)
		if err != nil {
			return "", err
		}
	} else {
		signature = SignHMAC(base, s.consumerSecret, tokenSecret)
	}
	oauthParams["oauth_signature"] = signature

	keys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, PercentEncode(k), PercentEncode(oauthParams[k])))
	}
	return "OAuth " + strings.Join(parts, ", "), nil
}

// SignatureBaseString builds METHOD&enc(URL)&enc(params). Query parameters
// of rawURL are merged with params; pairs are sorted by key, then value.
func SignatureBaseString(method, rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	type pair struct{ k, v string }
	pairs := make([]pair, 0, len(params))
	for k, v := range params {
		pairs = append(pairs, pair{PercentEncode(k), PercentEncode(v)})
	}
	for k, vs := range u.Query() {
		for _, v := range vs {
			pairs = append(pairs, pair{PercentEncode(k), PercentEncode(v)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k == pairs[j].k {
			return pairs[i].v < pairs[j].v
		}
		return pairs[i].k < pairs[j].k
	})

	encoded := make([]string, len(pairs))
	for i, p := range pairs {
		encoded[i] = p.k + "=" + p.v
	}

	return strings.ToUpper(method) + "&" +
		PercentEncode(normalizeURL(u)) + "&" +
		PercentEncode(strings.Join(encoded, "&")), nil
}

// normalizeURL lowercases scheme and host, drops default ports, query and
// fragment.
func normalizeURL(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
		host += ":" + port
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path
}

// SignHMAC signs base with consumerSecret&tokenSecret. tokenSecret may be
// empty.
func SignHMAC(base, consumerSecret, tokenSecret string) string {
	key := PercentEncode(consumerSecret) + "&" + PercentEncode(tokenSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignRSA signs base with PKCS#1 v1.5 over SHA-1.
func SignRSA(base string, key *rsa.PrivateKey) (string, error) {
	sum := sha1.Sum([]byte(base)) //nolint:gosec // OAuth 1.0a mandates SHA-1
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA1, sum[:])
	if err != nil {
		return "", fmt.Errorf("rsa sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// PercentEncode applies RFC 3986 encoding: everything but unreserved
// characters becomes %XX with uppercase hex.
func PercentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

// LoadPrivateKey reads a PEM encoded RSA key in PKCS#1 or PKCS#8 form.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: %s is not PEM encoded", domain.ErrInvalidInput, path)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse private key: %v", domain.ErrInvalidInput, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an RSA key", domain.ErrInvalidInput, path)
	}
	return key, nil
}
