package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"quiz-funnel-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	roleAdmin       = "admin"
	tokenIssuer     = "quiz-funnel-service"
	defaultTokenTTL = 8 * time.Hour
)

// Claims is the JWT payload issued to admins.
type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthConfig configures the single admin account.
type AuthConfig struct {
	Username     string
	PasswordHash string
	Secret       string
	TokenTTL     time.Duration
}

// Authenticator checks admin credentials against a bcrypt hash and issues HS256 tokens.
type Authenticator struct {
	username string
	hash     []byte
	hmac     []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewAuthenticator(cfg AuthConfig) *Authenticator {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Authenticator{
		username: cfg.Username,
		hash:     []byte(cfg.PasswordHash),
		hmac:     []byte(cfg.Secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// HashPassword returns the bcrypt hash stored in admin.password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login verifies the credentials and returns a signed token. Without a configured
// hash or secret every login is rejected.
func (a *Authenticator) Login(username, password string) (string, error) {
	if len(a.hash) == 0 || len(a.hmac) == 0 {
		return "", domain.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) != 1 {
		return "", domain.ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword(a.hash, []byte(password)) != nil {
		return "", domain.ErrUnauthorized
	}
	return a.IssueJWT(username, roleAdmin)
}

func (a *Authenticator) IssueJWT(sub, role string) (string, error) {
	now := a.now()
	claims := &Claims{
		Sub:  sub,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(a.hmac)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *Authenticator) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Role != roleAdmin {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

type claimsKey struct{}

// ClaimsFromContext returns the claims of the authenticated admin, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// Middleware rejects requests without a valid bearer token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			writeUnauthorized(w, "missing bearer token")
			return
		}
		claims, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			writeUnauthorized(w, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
