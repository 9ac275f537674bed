package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// IDTokenVerifier is the part of the Firebase Admin auth client used here.
// *fbauth.Client satisfies it.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier validates Firebase ID tokens through the Admin SDK. The
// SDK checks signature, audience, issuer and lifetime, and keeps Google's
// signing keys cached until their Cache-Control max-age runs out.
type FirebaseVerifier struct {
	client IDTokenVerifier
}

// NewFirebaseVerifier creates a verifier bound to projectID. Verifying ID
// tokens needs no service account, so the app is created without
// credentials unless opts supply some.
func NewFirebaseVerifier(ctx context.Context, projectID string, opts ...option.ClientOption) (*FirebaseVerifier, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("firebase project id is required")
	}
	if len(opts) == 0 {
		opts = []option.ClientOption{option.WithoutAuthentication()}
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase auth client: %w", err)
	}

	return NewFirebaseVerifierWithClient(client), nil
}

// NewFirebaseVerifierWithClient wraps an existing ID token verifier.
func NewFirebaseVerifierWithClient(client IDTokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

// Verify validates tokenString and maps its claims.
func (v *FirebaseVerifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	if strings.Count(tokenString, ".") != 2 {
		return nil, fmt.Errorf("%w: not a JWT", ErrInvalidToken)
	}

	token, err := v.client.VerifyIDToken(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	subject := token.UID
	if subject == "" {
		if s := optionalString(token.Claims, "sub", "user_id"); s != nil {
			subject = *s
		}
	}
	if subject == "" {
		return nil, fmt.Errorf("%w: missing subject claim", ErrInvalidToken)
	}

	return &Claims{
		Subject: subject,
		Email:   optionalString(token.Claims, "email"),
		Name:    optionalString(token.Claims, "name"),
	}, nil
}
