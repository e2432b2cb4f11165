package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that does not identify a member.
var ErrInvalidToken = errors.New("invalid token")

// MemberAuthenticator resolves the member behind an access token.
type MemberAuthenticator interface {
	Authenticate(token string) (memberID string, err error)
}

// MemberClaims are the access token claims issued by the member service.
type MemberClaims struct {
	jwt.RegisteredClaims

	MemberID string `json:"member_id"`
	Nickname string `json:"nickname,omitempty"`
}

// JWTManager verifies (and, for tooling and tests, issues) HS256 access tokens.
type JWTManager struct {
	secret []byte
	issuer string
}

// NewJWTManager creates a new JWT manager.
func NewJWTManager(secret, issuer string) *JWTManager {
	return &JWTManager{secret: []byte(secret), issuer: issuer}
}

// IssueAccessToken signs a token for memberID valid for ttl.
func (j *JWTManager) IssueAccessToken(memberID, nickname string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := MemberClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   memberID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		MemberID: memberID,
		Nickname: nickname,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// Authenticate validates an access token and returns its member id.
func (j *JWTManager) Authenticate(tokenString string) (string, error) {
	claims, err := j.ValidateAccessToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.MemberID, nil
}

// ValidateAccessToken parses and validates a token.
func (j *JWTManager) ValidateAccessToken(tokenString string) (*MemberClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &MemberClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithIssuer(j.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*MemberClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.MemberID == "" {
		claims.MemberID = claims.Subject
	}
	if claims.MemberID == "" {
		return nil, fmt.Errorf("%w: no member", ErrInvalidToken)
	}
	return claims, nil
}
