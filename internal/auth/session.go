// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session identifies a guest player within one game across reconnects.
// There are no accounts: a session token is minted when a player joins and
// presented on every subsequent HTTP or WebSocket request.
type Session struct {
	GameID uuid.UUID
	Name   string
	Seat   int
}

// Keyring signs and verifies session tokens. Construct one at startup and
// inject it; keys live for the process lifetime.
type Keyring struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	expire     time.Duration
}

// NewKeyring generates a fresh ed25519 key pair. Token lifetime comes from
// the TOKEN_EXPIRE_TIME env var ("never", "0" or empty => no expiry).
func NewKeyring() (*Keyring, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	k := &Keyring{privateKey: priv, publicKey: pub}

	duration := os.Getenv("TOKEN_EXPIRE_TIME")
	if duration != "never" && duration != "0" && duration != "" {
		d, err := time.ParseDuration(duration)
		if err != nil {
			return nil, fmt.Errorf("failed to parse token expire time: %w", err)
		}
		k.expire = d
	}
	return k, nil
}

// CreateToken mints a signed token for a player session.
func (k *Keyring) CreateToken(s Session) (string, error) {
	claims := jwt.MapClaims{
		"sub":  s.Name,
		"gid":  s.GameID.String(),
		"seat": strconv.Itoa(s.Seat),
	}
	if k.expire > 0 {
		claims["exp"] = time.Now().Add(k.expire).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(k.privateKey)
}

// Authenticate verifies a token string and returns the session it names.
func (k *Keyring) Authenticate(tokenString string) (*Session, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return k.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid jwt claims")
	}
	name, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("missing sub in jwt")
	}
	gidStr, ok := claims["gid"].(string)
	if !ok {
		return nil, fmt.Errorf("missing gid in jwt")
	}
	gid, err := uuid.Parse(gidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid gid in jwt: %w", err)
	}
	seatStr, ok := claims["seat"].(string)
	if !ok {
		return nil, fmt.Errorf("missing seat in jwt")
	}
	seat, err := strconv.Atoi(seatStr)
	if err != nil {
		return nil, fmt.Errorf("invalid seat in jwt: %w", err)
	}

	return &Session{GameID: gid, Name: name, Seat: seat}, nil
}
