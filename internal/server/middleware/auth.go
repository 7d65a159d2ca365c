package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Permissions checked by the import routes.
const (
	PermissionImportCreate = "import.create"
	PermissionImportView   = "import.view"
)

var allPermissions = []string{
	PermissionImportCreate,
	PermissionImportView,
}

// AuthMiddleware accepts either the configured API key or a JWT verified
// with the app's KeyFunc as bearer token.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		ac := c.(*AppContext)
		app := ac.App

		if app.APIKey != "" && subtle.ConstantTimeCompare([]byte(token), []byte(app.APIKey)) == 1 {
			ac.User = &AppUser{ID: "api", Role: "admin", Permissions: allPermissions}
			return next(c)
		}

		if app.KeyFunc == nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}
		parsed, err := jwt.Parse(token, app.KeyFunc)
		if err != nil || !parsed.Valid {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		user, err := userFromClaims(claims)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
		}
		ac.User = user
		return next(c)
	}
}

func userFromClaims(claims jwt.MapClaims) (*AppUser, error) {
	var id string
	switch v := claims["id"].(type) {
	case string:
		id = v
	case float64:
		id = fmt.Sprintf("%.0f", v)
	default:
		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			return nil, fmt.Errorf("Invalid user ID")
		}
		id = sub
	}

	role := "user"
	if r, ok := claims["role"].(string); ok {
		role = r
	}

	var permissions []string
	if perms, ok := claims["permissions"].([]any); ok {
		for _, p := range perms {
			if s, ok := p.(string); ok {
				permissions = append(permissions, s)
			}
		}
	}
	if role == "admin" {
		permissions = allPermissions
	}
	return &AppUser{ID: id, Role: role, Permissions: permissions}, nil
}
