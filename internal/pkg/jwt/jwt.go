package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	ClaimUserID     = "user_id"
	ClaimEmployeeID = "employee_id"
	ClaimRole       = "role"
	ClaimType       = "type"
	TokenTypeAccess = "access"
)

type Service interface {
	GenerateAccessToken(actor user.Actor) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpiration time.Duration
	tokenAuth             *jwtauth.JWTAuth
	now                   func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpiration time.Duration) *JWTService {
	return &JWTService{
		accessTokenExpiration: accessTokenExpiration,
		tokenAuth:             jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                   time.Now,
	}
}

func (j *JWTService) GenerateAccessToken(actor user.Actor) (token string, expiresAt int64, err error) {
	if actor.UserID == "" || !actor.Role.Valid() {
		return "", 0, fmt.Errorf("generate access token: %w", auth.ErrMissingClaims)
	}
	expiresAt = j.now().Add(j.accessTokenExpiration).Unix()

	claims := map[string]interface{}{
		ClaimUserID: actor.UserID,
		ClaimRole:   string(actor.Role),
		ClaimType:   TokenTypeAccess,
		"exp":       expiresAt,
	}
	// Admins without an employee profile carry no employee_id claim.
	if actor.EmployeeID != "" {
		claims[ClaimEmployeeID] = actor.EmployeeID
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// ActorFromContext resolves the authenticated caller from claims placed on the
// context by jwtauth.Verifier.
func ActorFromContext(ctx context.Context) (user.Actor, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return user.Actor{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	if token == nil {
		return user.Actor{}, auth.ErrInvalidToken
	}
	return ActorFromClaims(claims)
}

func ActorFromClaims(claims map[string]interface{}) (user.Actor, error) {
	if t, _ := claims[ClaimType].(string); t != TokenTypeAccess {
		return user.Actor{}, auth.ErrUnsupportedToken
	}

	userID, _ := claims[ClaimUserID].(string)
	role, _ := claims[ClaimRole].(string)
	if userID == "" || !user.Role(role).Valid() {
		return user.Actor{}, auth.ErrMissingClaims
	}

	employeeID, _ := claims[ClaimEmployeeID].(string)
	return user.Actor{
		UserID:     userID,
		EmployeeID: employeeID,
		Role:       user.Role(role),
	}, nil
}
