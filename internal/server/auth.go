package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "intraview.user_id"

var errMissingSubject = errors.New("token has no subject")

// tokenVerifier checks HS256 bearer tokens and yields their subject.
type tokenVerifier struct {
	secret []byte
}

func newTokenVerifier(secret string) *tokenVerifier {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	return &tokenVerifier{secret: []byte(secret)}
}

func (v *tokenVerifier) subject(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("token is not valid")
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", errMissingSubject
	}
	return sub, nil
}

// identify resolves the caller from the Authorization header. Requests
// without a token continue anonymously; a bad token is rejected.
func (s *Server) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || s.verifier == nil {
			c.Next()
			return
		}

		if len(header) <= 7 || !strings.EqualFold(header[:7], "Bearer ") {
			respondError(c, errUnauthorized("authorization header must be a bearer token"))
			return
		}

		userID, err := s.verifier.subject(strings.TrimSpace(header[7:]))
		if err != nil {
			respondError(c, errUnauthorized(err.Error()))
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// requireUser rejects anonymous requests.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == "" {
			respondError(c, errUnauthorized("authentication required"))
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}
