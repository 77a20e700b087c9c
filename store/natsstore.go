package store

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Config holds object store settings.
type Config struct {
	// Bucket is the JetStream object store bucket name.
	Bucket string `yaml:"bucket"`

	// GatewayURL is the base URL of the object gateway that serves
	// presigned links (the gateway validates the signature).
	GatewayURL string `yaml:"gateway_url"`

	// SigningSecret signs presigned links.
	SigningSecret string `yaml:"signing_secret"`

	// LinkTTL is how long presigned links stay valid.
	LinkTTL time.Duration `yaml:"link_ttl"`
}

// DefaultConfig returns object store defaults.
func DefaultConfig() Config {
	return Config{
		Bucket:  "doc-repo",
		LinkTTL: 1 * time.Hour,
	}
}

// NATSStore is an ObjectStore backed by a JetStream object store bucket.
type NATSStore struct {
	objects jetstream.ObjectStore
	config  Config
	logger  *slog.Logger
	now     func() time.Time
}

// NATSStoreOption configures a NATSStore.
type NATSStoreOption func(*NATSStore)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) NATSStoreOption {
	return func(s *NATSStore) {
		s.logger = logger
	}
}

// NewNATSStore creates an object store on the given NATS connection,
// creating the bucket if it does not exist.
func NewNATSStore(ctx context.Context, nc *nats.Conn, cfg Config, opts ...NATSStoreOption) (*NATSStore, error) {
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultConfig().Bucket
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = DefaultConfig().LinkTTL
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("get jetstream: %w", err)
	}

	objects, err := js.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket: cfg.Bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store bucket %s: %w", cfg.Bucket, err)
	}

	s := &NATSStore{
		objects: objects,
		config:  cfg,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Exists reports whether an object is stored under key.
func (s *NATSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.objects.GetInfo(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("stat object %s: %w", key, err)
}

// Put stores data under key unless the key already holds an object.
// Concurrent callers with the same content hash converge on one artifact.
func (s *NATSStore) Put(ctx context.Context, key string, data []byte) error {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Debug("Object already stored, skipping put", "key", key)
		return nil
	}

	if _, err := s.objects.PutBytes(ctx, key, data); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}

	s.logger.Debug("Stored object", "key", key, "bytes", len(data))
	return nil
}

// PresignedURL returns a time-limited gateway link for an object. The
// link carries an expiry timestamp and an HMAC signature over key and
// expiry that the gateway validates.
func (s *NATSStore) PresignedURL(_ context.Context, key string) (string, error) {
	if s.config.GatewayURL == "" {
		// No gateway configured; links degrade to inert anchors.
		return "#", nil
	}

	expires := s.now().Add(s.config.LinkTTL).Unix()
	sig := s.sign(key, expires)

	u, err := url.Parse(s.config.GatewayURL)
	if err != nil {
		return "", fmt.Errorf("parse gateway url: %w", err)
	}
	u = u.JoinPath(s.config.Bucket, key)

	q := u.Query()
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("signature", sig)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (s *NATSStore) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, []byte(s.config.SigningSecret))
	fmt.Fprintf(mac, "%s:%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
