package devapi

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("devapi: invalid token")
	ErrExpiredToken = errors.New("devapi: token expired")
	ErrRevokedToken = errors.New("devapi: token revoked")
	ErrBadLogin     = errors.New("devapi: invalid credentials")
)

// Account is a login the dev API accepts.
type Account struct {
	Email    string `json:"email" yaml:"email" koanf:"email"`
	Password string `json:"-" yaml:"password" koanf:"password"`
	Area     string `json:"area" yaml:"area" koanf:"area"`
	OwnerID  string `json:"owner_id" yaml:"owner_id" koanf:"owner_id"`
}

// DefaultAccounts returns one office and one bus operator login matching the sample data.
func DefaultAccounts() []Account {
	return []Account{
		{Email: "office@tripdesk.test", Password: "secret", Area: "office", OwnerID: "office-1"},
		{Email: "operator@tripdesk.test", Password: "secret", Area: "bus_operator", OwnerID: "operator-1"},
	}
}

// Claims carries the tenant scope of a token.
type Claims struct {
	Area    string `json:"area"`
	OwnerID string `json:"owner_id"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens and remembers revocations.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	accounts map[string]Account
	revoked  map[string]struct{}
}

// NewIssuer builds an issuer for accounts.
func NewIssuer(secret string, ttl time.Duration, accounts []Account, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	byEmail := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		byEmail[a.Email] = a
	}
	return &Issuer{
		secret:   []byte(secret),
		ttl:      ttl,
		now:      now,
		accounts: byEmail,
		revoked:  map[string]struct{}{},
	}
}

// Login checks credentials and issues a token.
func (i *Issuer) Login(email, password string) (string, Account, error) {
	i.mu.RLock()
	account, ok := i.accounts[email]
	i.mu.RUnlock()
	if !ok || account.Password != password {
		return "", Account{}, ErrBadLogin
	}
	token, err := i.Issue(account)
	return token, account, err
}

// Issue signs a token for account.
func (i *Issuer) Issue(account Account) (string, error) {
	now := i.now()
	claims := Claims{
		Area:    account.Area,
		OwnerID: account.OwnerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   account.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses a token and rejects expired or revoked ones.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	i.mu.RLock()
	_, revoked := i.revoked[claims.ID]
	i.mu.RUnlock()
	if revoked {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

// Revoke invalidates a token id.
func (i *Issuer) Revoke(id string) {
	i.mu.Lock()
	i.revoked[id] = struct{}{}
	i.mu.Unlock()
}
