package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	key := []byte("secret")
	actor := Actor{ID: "65f0c0ffee", Name: "Dr. Rao", Email: "rao@uni.edu", Role: "admin", Department: "CSE"}

	token, err := GenerateJWT(key, actor, time.Minute)
	require.NoError(t, err)

	claims, err := ParseJWT(key, token)
	require.NoError(t, err)
	assert.Equal(t, actor, claims.Actor())

	_, err = ParseJWT([]byte("other"), token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := GenerateJWT(key, actor, -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(key, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSecretHash(t *testing.T) {
	hash, err := HashSecret("123456")
	require.NoError(t, err)
	assert.True(t, CheckSecret("123456", hash))
	assert.False(t, CheckSecret("654321", hash))
}

func TestAuthorizer(t *testing.T) {
	a, err := NewAuthorizer([]string{"admin", " academic_head ", ""})
	require.NoError(t, err)

	tests := []struct {
		role, obj, act string
		want           bool
	}{
		{"admin", ObjTracking, ActRead, true},
		{"academic_head", ObjTracking, ActRead, true},
		{"academic_head", ObjNotice, ActDelete, true},
		{"academic", ObjTracking, ActRead, false},
		{"academic", ObjAnalytics, ActRead, true},
		{"academic", ObjNotice, ActList, true},
		{"academic", ObjNotice, ActDelete, false},
		{"admin", ObjNotice, ActList, true},
		{"student", ObjAnalytics, ActRead, false},
		{"", ObjTracking, ActRead, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, a.Can(tc.role, tc.obj, tc.act), "%s %s %s", tc.role, tc.obj, tc.act)
	}
}
