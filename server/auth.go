package server

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// sellerFromToken validates an HS256 token and returns the seller identity
// it carries. The seller_id claim is the only identity the tool layer ever
// trusts; nothing from the message stream can override it.
func sellerFromToken(token string, secret []byte) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}

	switch id := claims["seller_id"].(type) {
	case string:
		if id == "" {
			return "", fmt.Errorf("empty seller_id claim")
		}
		return id, nil
	case float64:
		return fmt.Sprintf("%.0f", id), nil
	default:
		return "", fmt.Errorf("missing seller_id claim")
	}
}
