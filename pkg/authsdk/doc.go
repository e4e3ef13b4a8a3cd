/*
Package authsdk is the Go client for the collab API, plus the request,
response and error types the server itself uses.

# SDKClient vs Session

  - SDKClient: unauthenticated calls (register, login, refresh, logout, health)
  - Session: authenticated calls with automatic token refresh

	client := authsdk.NewSDKClient("https://api.example.com")

	_, err := client.Register(ctx, authsdk.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})

	session, err := client.AuthenticateWithPassword(ctx, "alice", "correct-horse")

	me, err := session.Me(ctx)
	project, err := session.CreateProject(ctx, authsdk.ProjectRequest{Title: "Rocket"})

# Automatic Token Refresh

A Session reads the exp claim of its access token and refreshes 30 seconds
before it runs out. Refresh always rotates the refresh token, so sharing one
refresh token between two Sessions will end both of them: presenting a
rotated refresh token revokes every session the user has.

# Error Handling

Failed calls return *APIError. Compare with errors.Is against the
predefined values:

	_, err := client.Login(ctx, "alice", "wrong")
	if errors.Is(err, authsdk.ErrInvalidCredentials) {
		// ...
	}

Validation failures carry per-field messages in APIError.Fields.

# Thread Safety

Sessions are safe for concurrent use.
*/
package authsdk
