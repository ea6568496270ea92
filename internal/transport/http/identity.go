package http

import (
	"errors"
	"net/http"
	"strings"

	"challenge-arena/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var (
	errMissingIdentity = errors.New("missing player identity")
	errInvalidToken    = errors.New("invalid token")
)

// playerClaims is the token shape issued by the account service.
type playerClaims struct {
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	AgeGroup string `json:"age_group"`
	jwt.RegisteredClaims
}

// IdentityResolver turns a request into the caller's identity. With a
// secret it only trusts HS256 tokens; without one it reads plain headers
// or query parameters, which is meant for local play and tests.
type IdentityResolver struct {
	secret []byte
}

func NewIdentityResolver(secret string) *IdentityResolver {
	return &IdentityResolver{secret: []byte(secret)}
}

// Enforced reports whether callers must present a token.
func (r *IdentityResolver) Enforced() bool {
	return len(r.secret) > 0
}

func (r *IdentityResolver) Resolve(req *http.Request) (domain.Identity, error) {
	if r.Enforced() {
		return r.fromToken(req)
	}
	q := req.URL.Query()
	who := domain.Identity{
		ID:       firstNonEmpty(req.Header.Get("X-Player-Id"), q.Get("player_id")),
		Name:     firstNonEmpty(req.Header.Get("X-Player-Name"), q.Get("name")),
		Avatar:   firstNonEmpty(req.Header.Get("X-Player-Avatar"), q.Get("avatar")),
		AgeGroup: firstNonEmpty(req.Header.Get("X-Player-Age-Group"), q.Get("age_group")),
	}
	if who.ID == "" {
		return domain.Identity{}, errMissingIdentity
	}
	if who.Name == "" {
		who.Name = who.ID
	}
	return who, nil
}

func (r *IdentityResolver) fromToken(req *http.Request) (domain.Identity, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer "))
	if raw == "" {
		// browsers cannot set headers on a websocket handshake
		raw = req.URL.Query().Get("token")
	}
	if raw == "" {
		return domain.Identity{}, errMissingIdentity
	}

	var claims playerClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Identity{}, errors.Join(errInvalidToken, err)
	}
	if claims.Subject == "" {
		return domain.Identity{}, errMissingIdentity
	}
	who := domain.Identity{
		ID:       claims.Subject,
		Name:     claims.Name,
		Avatar:   claims.Avatar,
		AgeGroup: claims.AgeGroup,
	}
	if who.Name == "" {
		who.Name = who.ID
	}
	return who, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
