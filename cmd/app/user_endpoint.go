package main

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/apperr"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/middleware"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/services"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/token"
	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/validation"
)

// respondError maps a service error onto the wire. Internal failures never
// leak their cause.
func respondError(c echo.Context, err error) error {
	msg := err.Error()
	if apperr.KindOf(err) == apperr.KindInternal {
		msg = "Internal server error!"
	}
	return c.JSON(apperr.StatusCode(err), echo.Map{"error": msg})
}

// setAuthCookies attaches the token pair as http-only cookies. The cookie
// lifetime is the refresh window; access-token expiry is enforced by the
// token itself.
func setAuthCookies(c echo.Context, accessToken, refreshToken string, maxAge time.Duration) {
	for name, value := range map[string]string{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			MaxAge:   int(maxAge.Seconds()),
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
		})
	}
}

func clearAuthCookies(c echo.Context) {
	for _, name := range []string{"accessToken", "refreshToken"} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
		})
	}
}

func registerUserHandler(userSvc *services.UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(validation.RegisterRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		if err := validation.Struct(req); err != nil {
			return respondError(c, err)
		}

		result, err := userSvc.Register(c.Request().Context(), req.Email, req.Password)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, result)
	}
}

func verifyAccountHandler(userSvc *services.UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(validation.VerifyAccountRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		if err := validation.Struct(req); err != nil {
			return respondError(c, err)
		}

		result, err := userSvc.VerifyAccount(c.Request().Context(), req.Email, req.Token)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, result)
	}
}

func loginHandler(authSvc *services.AuthService, cookieMaxAge time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(validation.LoginRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		if err := validation.Struct(req); err != nil {
			return respondError(c, err)
		}

		result, err := authSvc.Login(
			c.Request().Context(),
			req.Email,
			req.Password,
			c.Request().UserAgent(),
		)
		if err != nil {
			return respondError(c, err)
		}

		setAuthCookies(c, result.AccessToken, result.RefreshToken, cookieMaxAge)
		return c.JSON(http.StatusOK, result)
	}
}

func logoutHandler(authSvc *services.AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		if claims == nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
		}

		if err := authSvc.Logout(c.Request().Context(), claims.UserID, c.Request().UserAgent()); err != nil {
			return respondError(c, err)
		}

		clearAuthCookies(c)
		return c.JSON(http.StatusOK, echo.Map{"loggedOut": true})
	}
}

func refreshTokenHandler(authSvc *services.AuthService, cookieMaxAge time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie("refreshToken")
		if err != nil || cookie.Value == "" {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Please sign in!"})
		}

		pair, err := authSvc.RefreshToken(c.Request().Context(), cookie.Value)
		if err != nil {
			return respondError(c, err)
		}

		setAuthCookies(c, pair.AccessToken, pair.RefreshToken, cookieMaxAge)
		return c.JSON(http.StatusOK, pair)
	}
}

func updateUserHandler(userSvc *services.UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		if claims == nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
		}

		req := new(validation.UpdateUserRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		if err := validation.Struct(req); err != nil {
			return respondError(c, err)
		}

		var avatar []byte
		if file, err := c.FormFile("avatar"); err == nil && file != nil {
			src, err := file.Open()
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid avatar upload"})
			}
			defer src.Close()
			avatar, err = io.ReadAll(src)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid avatar upload"})
			}
		}

		result, err := userSvc.UpdateProfile(c.Request().Context(), claims.UserID, req, avatar)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, result)
	}
}

func get2FAQRCodeHandler(authSvc *services.AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		if claims == nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
		}

		qrcode, err := authSvc.Get2FAQRCode(c.Request().Context(), claims.UserID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"qrcode": qrcode})
	}
}

func enable2FAHandler(authSvc *services.AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		if claims == nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
		}

		req := new(validation.TwoFARequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		if err := validation.Struct(req); err != nil {
			return respondError(c, err)
		}

		result, err := authSvc.Enable2FA(c.Request().Context(), claims.UserID, req.OTPToken, c.Request().UserAgent())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, result)
	}
}

func verify2FAHandler(authSvc *services.AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		if claims == nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
		}

		req := new(validation.TwoFARequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		if err := validation.Struct(req); err != nil {
			return respondError(c, err)
		}

		result, err := authSvc.Verify2FA(c.Request().Context(), claims.UserID, req.OTPToken, c.Request().UserAgent())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, result)
	}
}

func disable2FAHandler(authSvc *services.AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		if claims == nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
		}

		req := new(validation.TwoFARequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		if err := validation.Struct(req); err != nil {
			return respondError(c, err)
		}

		result, err := authSvc.Disable2FA(c.Request().Context(), claims.UserID, req.OTPToken, c.Request().UserAgent())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, result)
	}
}

func registerUserRoutes(g *echo.Group, userSvc *services.UserService, authSvc *services.AuthService, access *token.Issuer, cookieMaxAge time.Duration) {
	users := g.Group("/users")

	// public
	users.POST("/register", registerUserHandler(userSvc))
	users.PUT("/verify_account", verifyAccountHandler(userSvc))
	users.POST("/login", loginHandler(authSvc, cookieMaxAge))
	users.GET("/refresh_token", refreshTokenHandler(authSvc, cookieMaxAge))

	// authenticated
	protected := users.Group("")
	protected.Use(middleware.Authorized(access))
	protected.DELETE("/logout", logoutHandler(authSvc))
	protected.PUT("/update", updateUserHandler(userSvc))
	protected.GET("/get_2fa_qr_code", get2FAQRCodeHandler(authSvc))
	protected.POST("/enable_2fa", enable2FAHandler(authSvc))
	protected.PUT("/verify_2fa", verify2FAHandler(authSvc))
	protected.PUT("/disable_2fa", disable2FAHandler(authSvc))
}
