package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"crypto-core/pkg/errs"
	"crypto-core/pkg/model"
)

const operatorSubject = "operator"

// tokenTTL bounds how long an issued session stays valid.
const tokenTTL = 72 * time.Hour

// Claims are the JWT claims carried by an API session token.
type Claims struct {
	jwt.RegisteredClaims
}

func generateToken(secret string, expiresAt time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operatorSubject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseToken(tokenStr, secret string) error {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid token claims")
	}
	return nil
}

// checkAPIPassword accepts either a bcrypt hash or a plain value in the
// configured password slot.
func checkAPIPassword(configured, supplied string) bool {
	if configured == "" {
		return false
	}
	if strings.HasPrefix(configured, "$2a$") || strings.HasPrefix(configured, "$2b$") {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(supplied)) == 1
}

// AuthMiddleware enforces JWT auth for protected routes.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				model.Fail(errors.New("missing Authorization header"), string(errs.CategoryAuthentication)))
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				model.Fail(errors.New("invalid Authorization header"), string(errs.CategoryAuthentication)))
			return
		}

		if err := parseToken(parts[1], secret); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				model.Fail(errors.New("invalid or expired token"), string(errs.CategoryAuthentication)))
			return
		}
		c.Next()
	}
}

// login exchanges the operator password for a session token.
func (s *Server) login(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest,
			model.Fail(errors.New("invalid request payload"), string(errs.CategoryValidation)))
		return
	}
	if !checkAPIPassword(s.cfg.APIPassword, req.Password) {
		c.JSON(http.StatusUnauthorized,
			model.Fail(errors.New("invalid credentials"), string(errs.CategoryAuthentication)))
		return
	}

	expiresAt := time.Now().Add(tokenTTL)
	token, err := generateToken(s.cfg.JWTSecret, expiresAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError,
			model.Fail(errors.New("failed to generate token"), string(errs.CategoryAuthentication)))
		return
	}

	c.JSON(http.StatusOK, model.OK(gin.H{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	}, "authenticated"))
}
