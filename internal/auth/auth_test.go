package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	token, expiresAt, err := tm.GenerateToken("ats-1", domain.RoleATS, "Omar")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expiresAt, 5*time.Second)

	sess, err := tm.ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, "ats-1", sess.ActorID)
	assert.Equal(t, domain.RoleATS, sess.Role)
	assert.Equal(t, "Omar", sess.DisplayName)
	assert.Equal(t, token, sess.Token)
	assert.NotEmpty(t, sess.ID)
	assert.NotEqual(t, sess.ActorID, sess.ID)
	assert.WithinDuration(t, expiresAt, sess.ExpiresAt, time.Second)

	other, _, err := tm.GenerateToken("ats-1", domain.RoleATS, "Omar")
	require.NoError(t, err)
	otherSess, err := tm.ParseSession(other)
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, otherSess.ID)
}

func TestTokenRejections(t *testing.T) {
	tm := NewTokenManager("secret", 30)

	_, _, err := tm.GenerateToken("", domain.RoleATS, "")
	assert.Error(t, err)
	_, _, err = tm.GenerateToken("u-1", domain.Role("janitor"), "")
	assert.Error(t, err)

	token, _, err := tm.GenerateToken("emp-1", domain.RoleEmployee, "Jane")
	require.NoError(t, err)
	_, err = NewTokenManager("other-secret", 30).ParseToken(token)
	assert.Error(t, err)

	expired := NewTokenManager("secret", 1)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.GenerateToken("emp-1", domain.RoleEmployee, "Jane")
	require.NoError(t, err)
	_, err = tm.ParseToken(old)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Role: domain.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "x"}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.ParseToken(unsigned)
	assert.Error(t, err)
}

func newAuthApp(tm *TokenManager, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	app.Get("/whoami", NewAuthMiddleware(tm).Handle, guard, func(c *fiber.Ctx) error {
		sess, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("no session")
		}
		return c.SendString(sess.ActorID + "/" + string(sess.Role))
	})
	return app
}

func call(t *testing.T, app *fiber.App, header string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set(fiber.HeaderAuthorization, header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestMiddlewareAndRoles(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	employeeToken, _, err := tm.GenerateToken("emp-1", domain.RoleEmployee, "Jane")
	require.NoError(t, err)
	managerToken, _, err := tm.GenerateToken("mgr-1", domain.RoleManager, "Ravi")
	require.NoError(t, err)

	app := newAuthApp(tm, RequireRole(domain.RoleManager, domain.RoleAdmin))
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, ""))
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "Basic abc"))
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "Bearer "))
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "Bearer garbage"))
	assert.Equal(t, fiber.StatusForbidden, call(t, app, "Bearer "+employeeToken))
	assert.Equal(t, fiber.StatusOK, call(t, app, "bearer "+managerToken))

	staffOnly := newAuthApp(tm, RequireStaff())
	assert.Equal(t, fiber.StatusForbidden, call(t, staffOnly, "Bearer "+employeeToken))
	assert.Equal(t, fiber.StatusOK, call(t, staffOnly, "Bearer "+managerToken))

	anyone := newAuthApp(tm, RequireRole())
	assert.Equal(t, fiber.StatusOK, call(t, anyone, "Bearer "+employeeToken))
}
