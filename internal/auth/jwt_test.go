package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	want := Identity{UserID: "u-1", Email: "a@b.c", Role: RoleResident, BuildingID: "b-1"}

	token, err := m.GenerateAccessToken(want)
	require.NoError(t, err)

	claims, err := m.ParseAndValidate(token)
	require.NoError(t, err)
	assert.Equal(t, want, claims.Identity())
}

func TestJWTRejects(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewJWTManager("other", time.Minute).GenerateAccessToken(Identity{UserID: "u", Role: RoleResident})
		require.NoError(t, err)
		_, err = m.ParseAndValidate(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := NewJWTManager("secret", -time.Minute).GenerateAccessToken(Identity{UserID: "u", Role: RoleResident})
		require.NoError(t, err)
		_, err = m.ParseAndValidate(token)
		assert.Error(t, err)
	})

	t.Run("system role cannot be minted by clients", func(t *testing.T) {
		token, err := m.GenerateAccessToken(Identity{UserID: "u", Role: RoleSystem})
		require.NoError(t, err)
		_, err = m.ParseAndValidate(token)
		assert.Error(t, err)
	})

	t.Run("unknown role", func(t *testing.T) {
		claims := &Claims{UserID: "u", Role: "janitor", RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = m.ParseAndValidate(token)
		assert.Error(t, err)
	})
}

func TestRoleElevated(t *testing.T) {
	assert.False(t, RoleResident.Elevated())
	assert.True(t, RoleOperator.Elevated())
	assert.True(t, RoleSupport.Elevated())
	assert.True(t, RoleAdmin.Elevated())
	assert.True(t, RoleSystem.Elevated())
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewJWTManager("secret", time.Minute)

	r := gin.New()
	r.GET("/me", AuthRequired(m), func(c *gin.Context) {
		id, _ := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID})
	})
	r.GET("/ops", AuthRequired(m), RequireRole(RoleOperator), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	resident, _ := m.GenerateAccessToken(Identity{UserID: "u-1", Role: RoleResident})
	operator, _ := m.GenerateAccessToken(Identity{UserID: "u-2", Role: RoleOperator})

	do := func(path, token string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do("/me", ""))
	assert.Equal(t, http.StatusUnauthorized, do("/me", "garbage"))
	assert.Equal(t, http.StatusOK, do("/me", resident))
	assert.Equal(t, http.StatusForbidden, do("/ops", resident))
	assert.Equal(t, http.StatusNoContent, do("/ops", operator))
}
