package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/token"
)

const claimsContextKey = "auth_claims"

// Authorized returns an echo middleware that validates the accessToken
// cookie and attaches its claims to the request context. An expired token
// yields 410 Gone so the client refreshes instead of forcing a re-login.
func Authorized(access *token.Issuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie("accessToken")
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Unauthorized!",
				})
			}

			claims, err := access.Verify(cookie.Value)
			if err != nil {
				if errors.Is(err, token.ErrExpired) {
					return c.JSON(http.StatusGone, echo.Map{
						"error": "Need to refresh token!",
					})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Unauthorized!",
				})
			}

			c.Set(claimsContextKey, claims)
			return next(c)
		}
	}
}

// GetClaims extracts the verified claims set by Authorized.
func GetClaims(c echo.Context) *token.Claims {
	v := c.Get(claimsContextKey)
	if v == nil {
		return nil
	}
	if cl, ok := v.(*token.Claims); ok {
		return cl
	}
	return nil
}
