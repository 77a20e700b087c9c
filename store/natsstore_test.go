package store

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(cfg Config) *NATSStore {
	if cfg.LinkTTL == 0 {
		cfg.LinkTTL = time.Hour
	}
	return &NATSStore{
		config: cfg,
		logger: slog.Default(),
		now:    func() time.Time { return time.Unix(1_700_000_000, 0) },
	}
}

func TestPresignedURL_NoGateway(t *testing.T) {
	s := testStore(Config{Bucket: "doc-repo"})

	link, err := s.PresignedURL(context.Background(), "page-12.png")
	require.NoError(t, err)
	assert.Equal(t, "#", link)
}

func TestPresignedURL_SignedLink(t *testing.T) {
	s := testStore(Config{
		Bucket:        "doc-repo",
		GatewayURL:    "https://gw.example.com/objects",
		SigningSecret: "secret",
		LinkTTL:       time.Hour,
	})

	link, err := s.PresignedURL(context.Background(), "page-12.png")
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "gw.example.com", u.Host)
	assert.Equal(t, "/objects/doc-repo/page-12.png", u.Path)

	expires := u.Query().Get("expires")
	assert.Equal(t, "1700003600", expires)

	mac := hmac.New(sha256.New, []byte("secret"))
	fmt.Fprintf(mac, "page-12.png:%s", expires)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), u.Query().Get("signature"))
}

func TestPresignedURL_DifferentKeysDifferentSignatures(t *testing.T) {
	s := testStore(Config{
		Bucket:        "doc-repo",
		GatewayURL:    "https://gw.example.com",
		SigningSecret: "secret",
	})

	a, err := s.PresignedURL(context.Background(), "a.png")
	require.NoError(t, err)
	b, err := s.PresignedURL(context.Background(), "b.png")
	require.NoError(t, err)

	ua, _ := url.Parse(a)
	ub, _ := url.Parse(b)
	assert.NotEqual(t, ua.Query().Get("signature"), ub.Query().Get("signature"))
}
