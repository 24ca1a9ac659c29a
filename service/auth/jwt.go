package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/rentfi/go-rentfi/env"
	"github.com/rentfi/go-rentfi/service/persist"
)

// TokenType distinguishes the JWTs we issue
type TokenType string

const (
	TokenTypeAuth TokenType = "auth"
)

// ErrInvalidJWT is returned when a JWT fails parsing or signature verification
var ErrInvalidJWT = errors.New("invalid or expired JWT")

type rentFiClaims struct {
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// AuthTokenClaims bind a caller to the wallet address they control. The
// address is the identity the registry and listing store authorize against.
type AuthTokenClaims struct {
	Address persist.EthereumAddress `json:"address"`
	rentFiClaims
}

// GenerateAuthToken issues an auth JWT for the given address
func GenerateAuthToken(ctx context.Context, address persist.EthereumAddress) (string, error) {
	secret := env.GetString("AUTH_JWT_SECRET")
	validFor := time.Duration(env.GetInt64("AUTH_JWT_TTL")) * time.Second

	claims := AuthTokenClaims{
		Address:      address,
		rentFiClaims: newRentFiClaims(TokenTypeAuth, validFor),
	}

	return generateJWT(claims, secret)
}

// ParseAuthToken validates an auth JWT and returns its claims
func ParseAuthToken(ctx context.Context, token string) (AuthTokenClaims, error) {
	claims := AuthTokenClaims{}
	parsedToken, err := jwt.ParseWithClaims(token, &claims, keyFunc(env.GetString("AUTH_JWT_SECRET")))

	if err != nil || !parsedToken.Valid {
		return AuthTokenClaims{}, ErrInvalidJWT
	}
	if claims.TokenType != TokenTypeAuth {
		return AuthTokenClaims{}, ErrInvalidJWT
	}

	return claims, nil
}

func newRentFiClaims(tokenType TokenType, validFor time.Duration) rentFiClaims {
	return rentFiClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validFor)),
		},
	}
}

func generateJWT(claims jwt.Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func keyFunc(secret string) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidJWT
		}
		return []byte(secret), nil
	}
}
