package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/opsdeck/opsdeck/internal/common/errors"
)

// Identity is the local user as carried by the session token. The
// client never verifies the signature; the store does that. Claims are
// only read to know who "self" is for read receipts, self-mention
// highlighting, and call identity.
type Identity struct {
	UserID      string
	DisplayName string
}

func ParseIdentity(token string) (*Identity, error) {
	if token == "" {
		return nil, errors.Unauthorized("session token is empty")
	}

	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, errors.Malformed("session token could not be parsed")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.Malformed("session token carries no claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.Malformed("session token missing subject")
	}

	identity := &Identity{UserID: sub}
	if name, ok := claims["name"].(string); ok {
		identity.DisplayName = name
	}
	return identity, nil
}
