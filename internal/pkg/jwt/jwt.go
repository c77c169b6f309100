package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Token types carried in the "type" claim.
const (
	TypeAccess = "access"
	TypeStream = "sse"
)

// Stream tokens travel in the query string, so they expire quickly.
const streamTokenTTL = 5 * time.Minute

var (
	ErrWrongTokenType = errors.New("token type not accepted here")
	ErrMissingSubject = errors.New("token has no user_id")
)

type Service interface {
	GenerateAccessToken(actor user.Actor) (token string, expiresAt int64, err error)
	GenerateStreamToken(userID string) (token string, expiresIn int, err error)
	ValidateStreamToken(tokenString string) (userID string, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	auth      *jwtauth.JWTAuth
	accessTTL time.Duration
}

// NewJWTService verifies HS256 tokens signed with secretKey. Access tokens are normally issued by
// the identity service; GenerateAccessToken exists for tooling and tests.
func NewJWTService(secretKey string, accessTTL time.Duration) Service {
	return &JWTService{
		auth:      jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		accessTTL: accessTTL,
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.auth
}

// sign adds the type and exp claims and encodes the token.
func (j *JWTService) sign(tokenType string, ttl time.Duration, claims map[string]interface{}) (string, int64, error) {
	exp := time.Now().Add(ttl).Unix()
	claims["type"] = tokenType
	claims["exp"] = exp

	_, signed, err := j.auth.Encode(claims)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, exp, nil
}

func (j *JWTService) GenerateAccessToken(actor user.Actor) (string, int64, error) {
	claims := map[string]interface{}{
		"user_id":    actor.UserID,
		"company_id": actor.CompanyID,
		"role":       string(actor.Role),
	}
	// HR and admin accounts may have no employee profile; the claim is then null.
	if actor.EmployeeID != "" {
		claims["employee_id"] = actor.EmployeeID
	} else {
		claims["employee_id"] = nil
	}
	return j.sign(TypeAccess, j.accessTTL, claims)
}

// GenerateStreamToken issues a token accepted only by the notification stream.
func (j *JWTService) GenerateStreamToken(userID string) (string, int, error) {
	signed, _, err := j.sign(TypeStream, streamTokenTTL, map[string]interface{}{"user_id": userID})
	if err != nil {
		return "", 0, err
	}
	return signed, int(streamTokenTTL / time.Second), nil
}

// ValidateStreamToken checks signature, expiry and type, and returns the user the token was issued to.
func (j *JWTService) ValidateStreamToken(tokenString string) (string, error) {
	token, err := jwtauth.VerifyToken(j.auth, tokenString)
	if err != nil {
		return "", err
	}

	if typ, _ := token.Get("type"); typ != TypeStream {
		return "", ErrWrongTokenType
	}
	raw, _ := token.Get("user_id")
	userID, _ := raw.(string)
	if userID == "" {
		return "", ErrMissingSubject
	}
	return userID, nil
}
