package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Signed links expire after 30 minutes.
const LinkTTL = 1800 * time.Second

// Reasons surfaced on the access-denied redirect.
const (
	DenyReasonUnauthorized = "unauthorized"
	DenyReasonExpired      = "expired"
	DenyReasonInvalid      = "invalid"
)

var (
	ErrLinkMissingParams = errors.New("missing link parameters")
	ErrLinkExpired       = errors.New("link expired")
	ErrLinkInvalid       = errors.New("link signature invalid")
)

// DenyReason maps a verification error to its redirect reason code.
func DenyReason(err error) string {
	switch {
	case errors.Is(err, ErrLinkExpired):
		return DenyReasonExpired
	case errors.Is(err, ErrLinkInvalid):
		return DenyReasonInvalid
	default:
		return DenyReasonUnauthorized
	}
}

// LinkIdentity is the verified identity carried by a signed link. It is
// request-scoped; nothing about it is persisted by verification itself.
type LinkIdentity struct {
	UserID   string
	UserName string
}

// LinkSigner generates and verifies time-boxed HMAC-signed links. This is a
// capability-link scheme, not a session: every request must re-supply and
// re-verify all four parameters.
type LinkSigner struct {
	secret []byte
	now    func() time.Time
}

func NewLinkSigner(secret string) *LinkSigner {
	return &LinkSigner{secret: []byte(secret), now: time.Now}
}

// canonicalString joins key=value pairs for exactly {timestamp, user_id,
// user_name}, sorted lexicographically by key. The ordering must match the
// link-generating side byte for byte.
func (s *LinkSigner) canonicalString(userID, userName, timestamp string) string {
	params := map[string]string{
		"timestamp": timestamp,
		"user_id":   userID,
		"user_name": userName,
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

// Sign returns the lowercase hex HMAC-SHA256 signature for the given
// parameters.
func (s *LinkSigner) Sign(userID, userName string, timestamp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(s.canonicalString(userID, userName, strconv.FormatInt(timestamp, 10))))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignedURL builds a complete signed link below baseURL at the given path.
func (s *LinkSigner) SignedURL(baseURL, path, userID, userName string) string {
	timestamp := s.now().Unix()
	values := url.Values{}
	values.Set("user_id", userID)
	values.Set("user_name", userName)
	values.Set("timestamp", strconv.FormatInt(timestamp, 10))
	values.Set("signature", s.Sign(userID, userName, timestamp))
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), path, values.Encode())
}

// Verify checks authenticity and freshness of the four link parameters and
// returns the verified identity. The failure mode is one of
// ErrLinkMissingParams, ErrLinkExpired or ErrLinkInvalid.
func (s *LinkSigner) Verify(userID, userName, timestamp, signature string) (*LinkIdentity, error) {
	if userID == "" || userName == "" || timestamp == "" || signature == "" {
		return nil, ErrLinkMissingParams
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, ErrLinkInvalid
	}

	if s.now().Unix()-ts > int64(LinkTTL/time.Second) {
		return nil, ErrLinkExpired
	}

	expected := s.Sign(userID, userName, ts)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return nil, ErrLinkInvalid
	}

	return &LinkIdentity{UserID: userID, UserName: userName}, nil
}
