package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"rbac-console/internal/domain"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-checked"))
	require.NoError(t, err)
	return tok
}

func TestDecode_SubjectPrecedence(t *testing.T) {
	d := NewUnverifiedDecoder()

	claims, err := d.Decode(signed(t, jwt.MapClaims{"sub": "s-1", "admin_id": "adm-1", "id": "i-1"}))
	require.NoError(t, err)
	assert.Equal(t, "adm-1", claims.SubjectID)

	claims, err = d.Decode(signed(t, jwt.MapClaims{"id": "i-1", "user_id": "u-1"}))
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.SubjectID)

	claims, err = d.Decode(signed(t, jwt.MapClaims{"id": float64(42)}))
	require.NoError(t, err)
	assert.Equal(t, "42", claims.SubjectID)
}

func TestDecode_ExpiryAndRole(t *testing.T) {
	exp := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	tok := signed(t, jwt.MapClaims{"sub": "s", "exp": exp.Unix(), "role": map[string]any{"name": "admin"}})

	claims, err := NewUnverifiedDecoder().Decode("Bearer " + tok)
	require.NoError(t, err)
	assert.True(t, exp.Equal(claims.ExpiresAt))
	assert.Equal(t, "admin", claims.RoleName)
}

func TestDecode_ExpiredTokenStillDecodes(t *testing.T) {
	tok := signed(t, jwt.MapClaims{"sub": "s", "exp": time.Now().Add(-time.Hour).Unix()})

	claims, err := NewUnverifiedDecoder().Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, "s", claims.SubjectID)
}

func TestDecode_Malformed(t *testing.T) {
	d := NewUnverifiedDecoder()

	_, err := d.Decode("")
	assert.ErrorIs(t, err, domain.ErrNoToken)

	for _, tok := range []string{"x.y.z", "not-a-jwt", "a.b"} {
		_, err := d.Decode(tok)
		assert.Error(t, err, tok)
	}
}

func TestDecode_UnreadableHeaderFallsBackToPayload(t *testing.T) {
	d := NewUnverifiedDecoder()

	// header is "foo", payload is {"admin_id":"adm-1"}
	claims, err := d.Decode("Zm9v.eyJhZG1pbl9pZCI6ImFkbS0xIn0.sig")
	require.NoError(t, err)
	assert.Equal(t, "adm-1", claims.SubjectID)

	// payload is "foo"
	_, err = d.Decode("Zm9v.Zm9v.sig")
	assert.Error(t, err)
}
