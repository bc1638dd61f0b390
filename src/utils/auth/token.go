package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwt"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

const roleClaim = "role"

var ErrInvalidToken = errors.New("invalid token")

// Identity carried by a bearer token
type Claims struct {
	UserID    string         `json:"user_id"`
	Role      model.UserRole `json:"role"`
	ExpiresAt time.Time      `json:"expires_at"`
}

func (self *Claims) IsAdmin() bool {
	return self.Role == model.UserRoleAdmin
}

// Issues and verifies HS256 signed tokens
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokens(config *config.Config) *Tokens {
	return &Tokens{
		secret: []byte(config.Auth.JwtSecret),
		issuer: config.Auth.Issuer,
		ttl:    config.Auth.TokenTTL,
	}
}

func (self *Tokens) Issue(userId string, role model.UserRole) (signed string, claims *Claims, err error) {
	now := time.Now().UTC().Truncate(time.Second)
	claims = &Claims{
		UserID:    userId,
		Role:      role,
		ExpiresAt: now.Add(self.ttl),
	}

	token := jwt.New()
	for k, v := range map[string]interface{}{
		jwt.SubjectKey:    userId,
		jwt.IssuerKey:     self.issuer,
		jwt.IssuedAtKey:   now,
		jwt.ExpirationKey: claims.ExpiresAt,
		roleClaim:         string(role),
	} {
		err = token.Set(k, v)
		if err != nil {
			return
		}
	}

	buf, err := jwt.Sign(token, jwa.HS256, self.secret)
	if err != nil {
		return
	}
	return string(buf), claims, nil
}

func (self *Tokens) Verify(signed string) (claims *Claims, err error) {
	token, err := jwt.Parse([]byte(signed), jwt.WithVerify(jwa.HS256, self.secret))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}

	err = jwt.Validate(token, jwt.WithIssuer(self.issuer), jwt.WithAcceptableSkew(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}

	if token.Subject() == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	role, _ := token.Get(roleClaim)
	roleStr, _ := role.(string)

	return &Claims{
		UserID:    token.Subject(),
		Role:      model.UserRole(roleStr),
		ExpiresAt: token.Expiration(),
	}, nil
}
