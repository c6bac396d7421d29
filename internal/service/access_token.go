package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidAccessToken is the uniform failure for every bad bearer token:
// corrupt, tampered, wrong algorithm, or expired. Callers never learn which.
var ErrInvalidAccessToken = errors.New("invalid access token")

// AccessClaims is what a validated bearer token proves.
type AccessClaims struct {
	AccountID string
	Email     string
}

// AccessTokenIssuer signs and verifies short-lived self-contained bearer
// tokens. They are stateless: no revocation, security rests on the short TTL.
type AccessTokenIssuer struct {
	secret []byte
	expiry time.Duration
}

func NewAccessTokenIssuer(secret string, expiry time.Duration) *AccessTokenIssuer {
	return &AccessTokenIssuer{
		secret: []byte(secret),
		expiry: expiry,
	}
}

func (i *AccessTokenIssuer) Expiry() time.Duration {
	return i.expiry
}

func (i *AccessTokenIssuer) Issue(accountID, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   accountID,
		"email": email,
		"exp":   now.Add(i.expiry).Unix(),
		"iat":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", err
	}

	return signed, nil
}

func (i *AccessTokenIssuer) Validate(tokenString string) (*AccessClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidAccessToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidAccessToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, ErrInvalidAccessToken
	}
	email, _ := claims["email"].(string)

	return &AccessClaims{AccountID: sub, Email: email}, nil
}
