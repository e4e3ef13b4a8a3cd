package authsdk

import "time"

// ============================================================================
// Account Types
// ============================================================================

// RegisterRequest is the body of POST /register. Role is optional and may
// only be "creator" or "member".
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest is the body of POST /login and POST /token.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by a successful login. Access and Refresh are
// empty when the server only delivers tokens by cookie.
type TokenResponse struct {
	Access   string `json:"access,omitempty"`
	Refresh  string `json:"refresh,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// RefreshRequest is the body of POST /refresh and POST /logout. Refresh
// may be left empty when the refresh_token cookie is sent instead.
type RefreshRequest struct {
	Refresh string `json:"refresh,omitempty"`
}

// RefreshResponse is a rotated pair.
type RefreshResponse struct {
	Access  string `json:"access,omitempty"`
	Refresh string `json:"refresh,omitempty"`
}

// UserResponse is the authenticated user's profile (GET /me).
type UserResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// ============================================================================
// Project Types
// ============================================================================

// ProjectRequest is the body of POST /projects and PUT /projects/{id}.
// TeamMembers are usernames.
type ProjectRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Image       string   `json:"image,omitempty"`
	StageColor  string   `json:"stageColor,omitempty"`
	Category    string   `json:"category,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Website     string   `json:"website,omitempty"`
	TeamSize    int      `json:"teamSize,omitempty"`
	TeamMembers []string `json:"team_members,omitempty"`
	Stage       string   `json:"stage,omitempty"`
}

// ProjectResponse is a project as the API returns it. Creator and
// TeamMembers are usernames.
type ProjectResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Creator     string    `json:"creator"`
	Image       string    `json:"image"`
	StageColor  string    `json:"stageColor"`
	Category    string    `json:"category"`
	Roles       []string  `json:"roles"`
	Website     string    `json:"website"`
	TeamSize    int       `json:"teamSize"`
	TeamMembers []string  `json:"team_members"`
	Stage       string    `json:"stage"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ============================================================================
// Conversation Types
// ============================================================================

// ConversationRequest starts a conversation with the named user.
type ConversationRequest struct {
	User string `json:"user"`
}

type ConversationResponse struct {
	ID        string    `json:"id"`
	User1     string    `json:"user1"`
	User2     string    `json:"user2"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessageRequest posts to a conversation.
type ChatMessageRequest struct {
	Content string `json:"content"`
}

type ChatMessageResponse struct {
	ID           string    `json:"id"`
	Conversation string    `json:"conversation"`
	Sender       string    `json:"sender"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints.
type HealthResponse struct {
	// Status is the overall health status: "ok" or "degraded"
	Status string `json:"status"`

	// Uptime is how long the service has been running
	Uptime string `json:"uptime"`

	// Version is the service version
	Version string `json:"version"`

	// Checks contains the status of individual components (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database status: "ok" or "error: <message>"
	Database string `json:"database"`

	// Provider is "ok", or "disabled" when external sign-in isn't configured
	Provider string `json:"provider"`
}
