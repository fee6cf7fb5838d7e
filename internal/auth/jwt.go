package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the identity fields the external provider embeds in its
// tokens. Only Subject is guaranteed; the profile fields may be empty.
type Claims struct {
	Subject  string
	Username string
	Email    string
	Picture  string
}

// ParseToken validates an HS256 token issued by the identity provider and
// returns the claims we care about. Token issuance lives outside this
// service; we only verify.
func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	claims := &Claims{Subject: sub}
	claims.Username, _ = mapClaims["username"].(string)
	claims.Email, _ = mapClaims["email"].(string)
	claims.Picture, _ = mapClaims["picture"].(string)
	return claims, nil
}
