package cookie

import (
	"context"
	"crypto/rand"
	"golang.org/x/crypto/sha3"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lernia/authgate/internal/cache"
	"github.com/Lernia/authgate/internal/config"
	"github.com/Lernia/authgate/internal/crypto"
	"github.com/Lernia/authgate/internal/domain/token"
	"github.com/Lernia/authgate/internal/fingerprint"
	"github.com/Lernia/authgate/internal/ratelimit"
	"gorm.io/gorm"
)

const tokenCachePrefix = "authtoken:"

// Client carries the per-request facts the manager binds credentials to
type Client struct {
	UserAgent      string
	AcceptLanguage string
	IP             string
	Secure         bool
}

// Identity is the authenticated principal a valid cookie resolves to
type Identity struct {
	UserID string
	CSRF   string
}

// IssuedCookie is a sealed credential ready to be set on the response.
// HTTP attributes (HttpOnly, Secure, SameSite=Strict, Path=/) are applied
// by the transport layer.
type IssuedCookie struct {
	Name      string
	Value     string
	CSRF      string
	ExpiresAt time.Time
}

// Validation is the outcome of a successful cookie check. Rotated is
// non-nil when the credential was opportunistically rotated and the new
// cookie must replace the old one on the response.
type Validation struct {
	Identity Identity
	Rotated  *IssuedCookie
}

// Manager orchestrates the auth-cookie lifecycle: issuance, validation,
// rotation and revocation. The database is authoritative; the cache store
// is a lossy accelerator whose absence must never change an outcome.
type Manager struct {
	repo    token.Repository
	store   cache.Store
	limiter *ratelimit.Limiter
	prints  *fingerprint.Generator
	cipher  *crypto.Cipher
	cfg     config.CookieConfig

	// now is the clock for expiry and rotation math; overridable in tests
	now func() time.Time
}

// NewManager wires a Manager from its collaborators
func NewManager(
	repo token.Repository,
	store cache.Store,
	limiter *ratelimit.Limiter,
	prints *fingerprint.Generator,
	cipher *crypto.Cipher,
	cfg config.CookieConfig,
) *Manager {
	return &Manager{
		repo:    repo,
		store:   store,
		limiter: limiter,
		prints:  prints,
		cipher:  cipher,
		cfg:     cfg,
		now:     time.Now,
	}
}

// CookieName returns the configured cookie name
func (m *Manager) CookieName() string {
	return m.cfg.Name
}

// Lifetime returns the configured cookie lifetime
func (m *Manager) Lifetime() time.Duration {
	return time.Duration(m.cfg.LifetimeSecs) * time.Second
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func generateCSRF() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashSecret derives the one-way persisted hash of a cookie secret
func hashSecret(secret string) string {
	h := sha3.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// Issue creates and persists a fresh credential for userID and returns the
// sealed cookie. Credentials are never issued over plaintext transport.
func (m *Manager) Issue(ctx context.Context, userID string, client Client) (*IssuedCookie, error) {
	if !client.Secure {
		return nil, ErrInsecureTransport
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, err
	}

	csrf, err := generateCSRF()
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.Lifetime())
	hash := hashSecret(secret)

	row := &token.AuthToken{
		UserID:     userID,
		TokenHash:  hash,
		DeviceHash: m.prints.Generate(client.UserAgent, client.AcceptLanguage, client.IP),
		IPHash:     m.prints.IPHash(client.IP),
		ExpiresAt:  expiresAt,
		LastUsedAt: now,
	}

	if err := m.repo.Create(row); err != nil {
		return nil, fmt.Errorf("failed to persist auth token: %w", err)
	}

	payload := &Payload{
		UID:         userID,
		Token:       secret,
		Fingerprint: row.DeviceHash,
		IssuedAt:    now.Unix(),
		ExpiresAt:   expiresAt.Unix(),
		IPHash:      row.IPHash,
		CSRF:        csrf,
	}

	value, err := Seal(m.cipher, payload)
	if err != nil {
		return nil, err
	}

	m.warmCache(ctx, hash, userID, expiresAt)

	slog.Info("Auth cookie issued", "user_id", userID, "expires_at", expiresAt)

	return &IssuedCookie{
		Name:      m.cfg.Name,
		Value:     value,
		CSRF:      csrf,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate checks a raw cookie value against the request's client facts.
// An empty value returns ErrNoCookie with no side effects. Every other
// failure is a rejection: it is logged, counted against the requesting
// IP's rate limit, and the caller must clear the cookie. On success the
// credential is rotated when its rotation interval has elapsed.
func (m *Manager) Validate(ctx context.Context, raw string, client Client) (*Validation, error) {
	if raw == "" {
		return nil, ErrNoCookie
	}

	payload, err := Open(m.cipher, raw)
	if err != nil {
		return nil, m.reject(ctx, client, err)
	}

	now := m.now().UTC()

	if now.Unix() >= payload.ExpiresAt {
		return nil, m.reject(ctx, client, ErrExpiredCookie)
	}

	if m.prints.Generate(client.UserAgent, client.AcceptLanguage, client.IP) != payload.Fingerprint {
		return nil, m.reject(ctx, client, ErrDeviceMismatch)
	}

	if m.cfg.StrictIPCheck && m.prints.IPHash(client.IP) != payload.IPHash {
		return nil, m.reject(ctx, client, ErrIPMismatch)
	}

	hash := hashSecret(payload.Token)
	if err := m.lookupToken(ctx, hash, payload.UID); err != nil {
		return nil, m.reject(ctx, client, err)
	}

	result := &Validation{
		Identity: Identity{UserID: payload.UID, CSRF: payload.CSRF},
	}

	if rotated := m.maybeRotate(ctx, payload, hash, client); rotated != nil {
		result.Rotated = rotated
	}

	return result, nil
}

// lookupToken resolves the token hash through the cache fast path, then
// the persistent store. The store answer refreshes the cache entry. Only
// store-path validations stamp last_used_at; the cache path stays free of
// database writes, bounding the stamp's lag by the cache TTL.
func (m *Manager) lookupToken(ctx context.Context, hash, uid string) error {
	if entry, ok := m.cachedToken(ctx, hash); ok {
		if entry.UserID == uid && m.now().UTC().Before(entry.ExpiresAt) {
			return nil
		}
		// Stale or mismatched cache entry; the store decides
	}

	row, err := m.repo.FindActiveByHash(hash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTokenRevoked
		}
		return fmt.Errorf("token lookup failed: %w", err)
	}

	if row.UserID != uid {
		return ErrTokenRevoked
	}

	if err := m.repo.UpdateLastUsed(hash, m.now().UTC()); err != nil {
		slog.Warn("Failed to stamp token last_used_at", "error", err)
	}

	m.warmCache(ctx, hash, row.UserID, row.ExpiresAt)
	return nil
}

// maybeRotate replaces the credential when its rotation interval has
// elapsed: the old row is revoked first with a conditional update, so of
// two concurrent rotations exactly one wins and the loser skips harmlessly.
func (m *Manager) maybeRotate(ctx context.Context, payload *Payload, hash string, client Client) *IssuedCookie {
	interval := time.Duration(m.cfg.RotationInterval) * time.Second
	if m.now().UTC().Sub(time.Unix(payload.IssuedAt, 0)) < interval {
		return nil
	}

	won, err := m.repo.RevokeActiveByHash(hash)
	if err != nil {
		slog.Warn("Token rotation revoke failed, keeping current credential", "user_id", payload.UID, "error", err)
		return nil
	}
	if !won {
		// A concurrent request already rotated this credential
		return nil
	}

	if err := m.store.Delete(ctx, tokenCachePrefix+hash); err != nil {
		slog.Warn("Failed to drop rotated token from cache", "error", err)
	}

	rotated, err := m.Issue(ctx, payload.UID, client)
	if err != nil {
		// The old row is already revoked; the user re-authenticates on the
		// next request. Never fail the current one.
		slog.Warn("Token rotation re-issue failed", "user_id", payload.UID, "error", err)
		return nil
	}

	slog.Info("Auth cookie rotated", "user_id", payload.UID)
	return rotated
}

// Destroy revokes the credential behind a raw cookie value. The cookie
// itself is cleared by the transport layer regardless of what happens
// here, so decode and revocation failures only warn.
func (m *Manager) Destroy(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}

	payload, err := Open(m.cipher, raw)
	if err != nil {
		slog.Warn("Logout with undecodable cookie", "error", err)
		return nil
	}

	hash := hashSecret(payload.Token)
	if _, err := m.repo.RevokeActiveByHash(hash); err != nil {
		return fmt.Errorf("failed to revoke token on logout: %w", err)
	}

	if err := m.store.Delete(ctx, tokenCachePrefix+hash); err != nil {
		slog.Warn("Failed to drop revoked token from cache", "error", err)
	}

	slog.Info("Auth cookie destroyed", "user_id", payload.UID)
	return nil
}

// RevokeAllForUser revokes every active credential of a user and is the
// lever for a forced global logout.
func (m *Manager) RevokeAllForUser(_ context.Context, userID string) error {
	return m.repo.RevokeAllForUser(userID)
}

// reject logs the rejection reason, charges it against the requesting
// IP's rate limit, and normalizes the outcome for the caller.
func (m *Manager) reject(ctx context.Context, client Client, reason error) error {
	slog.Warn("Auth cookie rejected", "reason", reason, "ip", client.IP)
	m.limiter.Hit(ctx, client.IP)
	if IsRejection(reason) {
		return reason
	}
	// Infrastructure failures degrade to the replay/revoked outcome
	return ErrTokenRevoked
}

// cachedTokenEntry is the short-TTL cache image of an active token row.
// Entries are deleted on revocation and carry their own expiry, bounding
// the staleness window.
type cachedTokenEntry struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (m *Manager) cachedToken(ctx context.Context, hash string) (*cachedTokenEntry, bool) {
	raw, err := m.store.Get(ctx, tokenCachePrefix+hash)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.Warn("Token cache read failed, falling back to store", "error", err)
		}
		return nil, false
	}

	var entry cachedTokenEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// warmCache stores the validated token for the fast path. Failures never
// abort the caller.
func (m *Manager) warmCache(ctx context.Context, hash, userID string, expiresAt time.Time) {
	ttl := time.Duration(m.cfg.CacheTTLSecs) * time.Second
	if until := expiresAt.Sub(m.now().UTC()); until < ttl {
		ttl = until
	}
	if ttl <= 0 {
		return
	}

	data, err := json.Marshal(cachedTokenEntry{UserID: userID, ExpiresAt: expiresAt})
	if err != nil {
		return
	}

	if err := m.store.Set(ctx, tokenCachePrefix+hash, string(data), ttl); err != nil {
		slog.Warn("Failed to warm token cache", "error", err)
	}
}
