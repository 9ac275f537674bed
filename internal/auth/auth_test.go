package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/windfall/fluentmind/internal/auth"
)

type mockIDTokenVerifier struct {
	mock.Mock
}

func (m *mockIDTokenVerifier) VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error) {
	args := m.Called(ctx, idToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fbauth.Token), args.Error(1)
}

// jwtShaped returns a three-segment string; signature checks are the SDK's job.
func jwtShaped(kid string) string {
	return "eyJhbGciOiJSUzI1NiIsImtpZCI6Ii" + kid + ".eyJzdWIiOiJ1In0.c2ln"
}

func TestFirebaseVerifier_Valid(t *testing.T) {
	client := new(mockIDTokenVerifier)
	client.On("VerifyIDToken", mock.Anything, jwtShaped("a")).Return(&fbauth.Token{
		UID: "firebase-uid",
		Claims: map[string]interface{}{
			"email": "ada@example.com",
			"name":  "Ada",
		},
	}, nil)

	claims, err := auth.NewFirebaseVerifierWithClient(client).Verify(context.Background(), jwtShaped("a"))
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid", claims.Subject)
	require.NotNil(t, claims.Email)
	assert.Equal(t, "ada@example.com", *claims.Email)
	require.NotNil(t, claims.Name)
	assert.Equal(t, "Ada", *claims.Name)
	client.AssertExpectations(t)
}

func TestFirebaseVerifier_SubjectFallback(t *testing.T) {
	client := new(mockIDTokenVerifier)
	client.On("VerifyIDToken", mock.Anything, mock.Anything).Return(&fbauth.Token{
		Claims: map[string]interface{}{"user_id": "legacy-uid", "email": ""},
	}, nil)

	claims, err := auth.NewFirebaseVerifierWithClient(client).Verify(context.Background(), jwtShaped("a"))
	require.NoError(t, err)
	assert.Equal(t, "legacy-uid", claims.Subject)
	assert.Nil(t, claims.Email)
	assert.Nil(t, claims.Name)
}

func TestFirebaseVerifier_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		token *fbauth.Token
		err   error
	}{
		{name: "sdk rejection", err: errors.New("ID token has expired")},
		{name: "empty subject", token: &fbauth.Token{Claims: map[string]interface{}{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mockIDTokenVerifier)
			if tt.token != nil {
				client.On("VerifyIDToken", mock.Anything, mock.Anything).Return(tt.token, nil)
			} else {
				client.On("VerifyIDToken", mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			_, err := auth.NewFirebaseVerifierWithClient(client).Verify(context.Background(), jwtShaped("a"))
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestFirebaseVerifier_UnknownKeysCostOneCheckEach(t *testing.T) {
	client := new(mockIDTokenVerifier)
	client.On("VerifyIDToken", mock.Anything, mock.Anything).
		Return(nil, errors.New("failed to verify token signature"))
	v := auth.NewFirebaseVerifierWithClient(client)

	for i := 0; i < 50; i++ {
		_, err := v.Verify(context.Background(), jwtShaped(fmt.Sprintf("bogus%d", i)))
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	}
	client.AssertNumberOfCalls(t, "VerifyIDToken", 50)
}

func TestFirebaseVerifier_GarbageNeverReachesProvider(t *testing.T) {
	client := new(mockIDTokenVerifier)
	v := auth.NewFirebaseVerifierWithClient(client)

	for _, token := range []string{"not-a-jwt", "a.b", "a.b.c.d", ""} {
		_, err := v.Verify(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken, token)
	}
	client.AssertNotCalled(t, "VerifyIDToken", mock.Anything, mock.Anything)
}

func TestNewFirebaseVerifier_RequiresProject(t *testing.T) {
	_, err := auth.NewFirebaseVerifier(context.Background(), "  ")
	assert.Error(t, err)
}

func TestHMACVerifier(t *testing.T) {
	v := auth.NewHMACVerifier("dev-secret")
	exp := time.Now().Add(time.Hour).Unix()

	t.Run("valid with uid fallback", func(t *testing.T) {
		token, err := auth.SignHS256("dev-secret", jwt.MapClaims{
			"uid":          "local-user",
			"display_name": "Local",
			"exp":          exp,
		})
		require.NoError(t, err)

		claims, err := v.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "local-user", claims.Subject)
		assert.Nil(t, claims.Email)
		require.NotNil(t, claims.Name)
		assert.Equal(t, "Local", *claims.Name)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := auth.SignHS256("other", jwt.MapClaims{"sub": "u", "exp": exp})
		require.NoError(t, err)

		_, err = v.Verify(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		token, err := auth.SignHS256("dev-secret", jwt.MapClaims{"email": "x@example.com", "exp": exp})
		require.NoError(t, err)

		_, err = v.Verify(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := auth.SignHS256("dev-secret", jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Hour).Unix()})
		require.NoError(t, err)

		_, err = v.Verify(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}
