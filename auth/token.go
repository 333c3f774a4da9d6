package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/roboticeyes/arpreview/event"
)

const (
	// AuthorizationKey is the key for getting the HTTP header authorization
	AuthorizationKey = "authorization"

	// KeyUserID is used as an identifier
	KeyUserID = "UserID"
)

// Claims is our custom metadata of the JWT
type Claims struct {
	UserID string `json:"user_id"`
	jwt.StandardClaims
}

// NewToken signs a token for the user which expires after ttl
func (k *Keys) NewToken(userID string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(ttl).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(k.SigningKey()))
}

// ParseToken validates the token string and returns its claims
func (k *Keys) ParseToken(tokenString string) (*Claims, error) {
	key := k.SigningKey()
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(key), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// ValidateToken checks the bearer token of a request. Requests pass
// unchecked if no signing key is configured.
func (k *Keys) ValidateToken(c *gin.Context) {
	if !k.Enabled() {
		c.Next()
		return
	}

	tokenString := c.GetHeader(AuthorizationKey)
	if tokenString == "" {
		log.Debug("Missing authentication token in header")
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	split := strings.SplitN(tokenString, " ", 2)
	if len(split) != 2 || strings.ToLower(split[0]) != "bearer" {
		log.Debug("Missing bearer keyword in token")
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	claims, err := k.ParseToken(strings.TrimSpace(split[1]))
	if err != nil {
		log.Debug("Rejecting token: ", err)
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	c.Set(KeyUserID, claims.UserID)
	t := time.Unix(claims.StandardClaims.ExpiresAt, 0)
	log.WithFields(event.Fields{
		"UserID": claims.UserID,
	}).Debugf("Token is valid. Expires in %v", time.Until(t))
	c.Next()
}
