package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/pos-backend/api/responses"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/pos-backend/pkg/redis"
)

// CheckoutReplayTTL bounds how long a committed checkout receipt can be replayed.
const CheckoutReplayTTL = 7 * 24 * time.Hour

const (
	idempotencyHeader = "Idempotency-Key"
	maxReplayKeyLen   = 255
	// A claim left by a crashed request must not block retries for the full TTL.
	claimTTL       = time.Minute
	anonymousScope = "anonymous"
)

// replayEntry is what lives under a key. Code 0 marks a claim whose handler has not finished.
type replayEntry struct {
	Fingerprint string `json:"fp"`
	Code        int    `json:"code,omitempty"`
	ContentType string `json:"ct,omitempty"`
	Payload     []byte `json:"payload,omitempty"`
}

func (e replayEntry) pending() bool { return e.Code == 0 }

type replayGuard struct {
	store pkgredis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

// Idempotency makes the wrapped handler safe to retry. The first request under a
// register session's Idempotency-Key claims it; a successful response is stored for
// ttl and replayed verbatim, a failed one releases the key.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = CheckoutReplayTTL
	}
	g := &replayGuard{store: store, ttl: ttl, logg: logg}
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(next, w, r)
		})
	}
}

func (g *replayGuard) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	switch {
	case clientKey == "":
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
		return
	case len(clientKey) > maxReplayKeyLen:
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	fp := fingerprint(r, body)
	key := g.store.IdempotencyKey(sessionScope(r), clientKey)

	claimed, err := g.claim(r, key, fp)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, err)
		return
	}
	if !claimed {
		g.replay(w, r, key, fp)
		return
	}

	capture := &capturingWriter{ResponseWriter: w}
	next.ServeHTTP(capture, r)
	g.commit(r, key, fp, capture)
}

func (g *replayGuard) claim(r *http.Request, key, fp string) (bool, error) {
	marker, err := json.Marshal(replayEntry{Fingerprint: fp})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency claim")
	}
	ok, err := g.store.SetNX(r.Context(), key, string(marker), claimTTL)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key")
	}
	return ok, nil
}

func (g *replayGuard) replay(w http.ResponseWriter, r *http.Request, key, fp string) {
	ctx := r.Context()
	raw, err := g.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// released between our claim attempt and this read
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this Idempotency-Key is being retried, try again"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency entry"))
		return
	}

	var entry replayEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency entry"))
		return
	}
	if entry.Fingerprint != fp {
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if entry.pending() {
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this Idempotency-Key is still in progress"))
		return
	}

	if entry.ContentType != "" {
		w.Header().Set("Content-Type", entry.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(entry.Code)
	_, _ = w.Write(entry.Payload)
}

func (g *replayGuard) commit(r *http.Request, key, fp string, capture *capturingWriter) {
	ctx := r.Context()
	code := capture.statusCode()
	if code < 200 || code >= 300 {
		if err := g.store.Del(ctx, key); err != nil && g.logg != nil {
			g.logg.Error(ctx, "release idempotency key", err)
		}
		return
	}

	entry := replayEntry{
		Fingerprint: fp,
		Code:        code,
		ContentType: capture.Header().Get("Content-Type"),
		Payload:     capture.buf.Bytes(),
	}
	encoded, err := json.Marshal(entry)
	if err == nil {
		err = g.store.Set(ctx, key, string(encoded), g.ttl)
	}
	if err != nil && g.logg != nil {
		g.logg.Error(ctx, "store idempotent response", err)
	}
}

func sessionScope(r *http.Request) string {
	if id := SessionIDFromContext(r.Context()); id != "" {
		return id
	}
	return anonymousScope
}

// fingerprint binds a key to one method, path and body.
func fingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + " " + r.URL.Path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type capturingWriter struct {
	http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (c *capturingWriter) WriteHeader(code int) {
	if c.code == 0 {
		c.code = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *capturingWriter) Write(p []byte) (int, error) {
	if c.code == 0 {
		c.code = http.StatusOK
	}
	c.buf.Write(p)
	return c.ResponseWriter.Write(p)
}

func (c *capturingWriter) statusCode() int {
	if c.code == 0 {
		return http.StatusOK
	}
	return c.code
}
