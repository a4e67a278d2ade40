package service

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkSignerRoundTrip(t *testing.T) {
	signer := NewLinkSigner("test-secret")

	ts := time.Now().Unix()
	sig := signer.Sign("12345", "Jane Doe", ts)

	identity, err := signer.Verify("12345", "Jane Doe", strconv.FormatInt(ts, 10), sig)
	require.NoError(t, err)
	assert.Equal(t, "12345", identity.UserID)
	assert.Equal(t, "Jane Doe", identity.UserName)
}

func TestLinkSignerRejectsExpiredLink(t *testing.T) {
	signer := NewLinkSigner("test-secret")

	issued := time.Now()
	signer.now = func() time.Time { return issued }
	sig := signer.Sign("12345", "Jane Doe", issued.Unix())

	// One second past the TTL.
	signer.now = func() time.Time { return issued.Add(LinkTTL + time.Second) }
	_, err := signer.Verify("12345", "Jane Doe", strconv.FormatInt(issued.Unix(), 10), sig)
	assert.ErrorIs(t, err, ErrLinkExpired)
	assert.Equal(t, DenyReasonExpired, DenyReason(err))
}

func TestLinkSignerAcceptsLinkWithinTTL(t *testing.T) {
	signer := NewLinkSigner("test-secret")

	issued := time.Now()
	signer.now = func() time.Time { return issued }
	sig := signer.Sign("12345", "Jane Doe", issued.Unix())

	signer.now = func() time.Time { return issued.Add(LinkTTL) }
	_, err := signer.Verify("12345", "Jane Doe", strconv.FormatInt(issued.Unix(), 10), sig)
	assert.NoError(t, err)
}

func TestLinkSignerRejectsTamperedParams(t *testing.T) {
	signer := NewLinkSigner("test-secret")

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig := signer.Sign("12345", "Jane Doe", time.Now().Unix())

	tests := []struct {
		name      string
		userID    string
		userName  string
		timestamp string
		signature string
	}{
		{"changed user_id", "99999", "Jane Doe", ts, sig},
		{"changed user_name", "12345", "Mallory", ts, sig},
		{"changed timestamp", "12345", "Jane Doe", strconv.FormatInt(time.Now().Unix()-5, 10), sig},
		{"garbage signature", "12345", "Jane Doe", ts, "deadbeef"},
		{"non-numeric timestamp", "12345", "Jane Doe", "not-a-number", sig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := signer.Verify(tt.userID, tt.userName, tt.timestamp, tt.signature)
			assert.ErrorIs(t, err, ErrLinkInvalid)
			assert.Equal(t, DenyReasonInvalid, DenyReason(err))
		})
	}
}

func TestLinkSignerRejectsMissingParams(t *testing.T) {
	signer := NewLinkSigner("test-secret")

	_, err := signer.Verify("", "", "", "")
	assert.ErrorIs(t, err, ErrLinkMissingParams)
	assert.Equal(t, DenyReasonUnauthorized, DenyReason(err))
}

func TestLinkSignerRejectsWrongSecret(t *testing.T) {
	signer := NewLinkSigner("test-secret")
	other := NewLinkSigner("other-secret")

	ts := time.Now().Unix()
	sig := other.Sign("12345", "Jane Doe", ts)

	_, err := signer.Verify("12345", "Jane Doe", strconv.FormatInt(ts, 10), sig)
	assert.ErrorIs(t, err, ErrLinkInvalid)
}

func TestSignedURLVerifies(t *testing.T) {
	signer := NewLinkSigner("test-secret")

	link := signer.SignedURL("http://localhost:8080/", "/api/v1/telegram/form", "12345", "Jane Doe")

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/telegram/form", parsed.Path)

	q := parsed.Query()
	identity, err := signer.Verify(q.Get("user_id"), q.Get("user_name"), q.Get("timestamp"), q.Get("signature"))
	require.NoError(t, err)
	assert.Equal(t, "12345", identity.UserID)
	assert.Equal(t, "Jane Doe", identity.UserName)
}
