package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/collab/internal/api/obs"
	"github.com/aussiebroadwan/collab/internal/api/service"
	"github.com/aussiebroadwan/collab/internal/api/store"
	"github.com/aussiebroadwan/collab/pkg/httpx"
	"github.com/aussiebroadwan/collab/pkg/slogx"

	_ "github.com/aussiebroadwan/collab/api/docs" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Transport  *Transport
	Metrics    *obs.Metrics
	LandingURL string
	Dev        bool

	TokenService      *service.TokenService
	CredentialService *service.CredentialService
	ExternalService   *service.ExternalAuthService // Optional: nil when no provider is configured
	ProjectService    *service.ProjectService
	MessagingService  *service.MessagingService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Transport:    &Transport{Delivery: DeliveryBoth},
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerExternal()
	r.registerProjects()
	r.registerConversations()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Collab API
//	@version		0.1.0
//	@description	Authentication and collaboration backend: password and external sign-in issuing HS256 JWT access/refresh pairs, plus projects and direct conversations.
//	@description
//	@description				Access tokens are accepted from the Authorization header or the access_token cookie.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/collab
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.Mux
	if r.Metrics != nil {
		h = r.Metrics.Instrument(h)
	}
	httpx.Chain(h, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(r.TokenService.Verifier, httpx.AccessTokenCookie)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Credentials: r.CredentialService,
		Tokens:      r.TokenService,
		Transport:   r.Transport,
		Metrics:     r.Metrics,
	}

	// Registration is limited by IP; the username is attacker controlled
	r.Mux.Handle("POST /register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Password attempts are limited by IP + username to slow brute force
	login := httpx.Chain(http.HandlerFunc(h.HandleLogin),
		httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username"),
	)
	r.Mux.Handle("POST /login", login)
	r.Mux.Handle("POST /token", login)

	r.Mux.Handle("POST /refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			r.authn(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerExternal() {
	external := r.ExternalService
	if external == nil {
		// Still route the endpoints so callers get provider_not_configured
		// rather than a 404.
		external = &service.ExternalAuthService{}
	}

	h := &ExternalHandler{
		External:   external,
		Transport:  r.Transport,
		Metrics:    r.Metrics,
		LandingURL: r.LandingURL,
		Dev:        r.Dev,
	}

	r.Mux.Handle("GET /auth/external/redirect",
		httpx.Chain(http.HandlerFunc(h.HandleRedirect),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /auth/external/callback",
		httpx.Chain(http.HandlerFunc(h.HandleCallback),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerProjects() {
	h := &ProjectsHandler{Projects: r.ProjectService}

	read := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, r.authn(), httpx.RateLimitByUser(httpx.LenientLimit))
	}
	write := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, r.authn(), httpx.RateLimitByUser(httpx.ModerateLimit))
	}

	r.Mux.Handle("GET /projects", read(h.HandleList))
	r.Mux.Handle("POST /projects", write(h.HandleCreate))
	r.Mux.Handle("GET /projects/{id}", read(h.HandleGet))
	r.Mux.Handle("PUT /projects/{id}", write(h.HandleUpdate))
	r.Mux.Handle("DELETE /projects/{id}", write(h.HandleDelete))
}

func (r *Router) registerConversations() {
	h := &ConversationsHandler{Messaging: r.MessagingService}

	read := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, r.authn(), httpx.RateLimitByUser(httpx.LenientLimit))
	}
	write := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, r.authn(), httpx.RateLimitByUser(httpx.ModerateLimit))
	}

	r.Mux.Handle("GET /conversations", read(h.HandleList))
	r.Mux.Handle("POST /conversations", write(h.HandleStart))
	r.Mux.Handle("GET /conversations/{id}", read(h.HandleGet))
	r.Mux.Handle("GET /conversations/{id}/messages", read(h.HandleListMessages))
	r.Mux.Handle("POST /conversations/{id}/messages", write(h.HandleSend))
	r.Mux.Handle("DELETE /messages/{id}", write(h.HandleDeleteMessage))
}

func (r *Router) registerSystem() {
	// Monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.ExternalService != nil),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}
}
