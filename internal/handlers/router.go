// internal/handlers/router.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"agenthub/internal/a2a"
	"agenthub/internal/agent"
	"agenthub/internal/auth"
	"agenthub/internal/config"
	"agenthub/internal/handlers/agents"
	"agenthub/internal/handlers/calendar"
	"agenthub/internal/handlers/team"
	httpserver "agenthub/internal/http"
	"agenthub/internal/middleware"
	"agenthub/internal/models"
	"agenthub/internal/oauth"
	"agenthub/internal/repo"
	"agenthub/internal/runtime"
)

// Deps bundles everything the route tree needs.
type Deps struct {
	Repo    repo.Repo
	Runtime *runtime.Client
	Coord   *agent.Coordinator
	Config  config.Config
}

func RegisterRoutes(mux *chi.Mux, d Deps) {
	dispatcher := agent.NewDispatcher(d.Coord, d.Runtime)
	relay := a2a.NewRelay(d.Repo, d.Runtime)

	authH := auth.NewHandlers(d.Repo, d.Coord, d.Config.Cookies.Secure)
	agentH := agents.New(d.Repo, d.Coord, dispatcher)
	calH := calendar.New(d.Coord, oauth.NewExchanger(d.Config.Google.ClientID, d.Config.Google.ClientSecret), d.Config)
	teamH := team.New(d.Repo, relay, d.Runtime)

	// Employee auth
	mux.Post("/auth/register", authH.RegisterHandler())
	mux.Post("/auth/login", authH.LoginHandler())
	mux.Post("/auth/logout", authH.LogoutHandler())
	mux.Get("/auth/user", authH.MeHandler())
	mux.Put("/auth/user", authH.UpdateProfileHandler())

	// Employee agent + calendar
	mux.Route("/agent", func(sr chi.Router) {
		sr.Use(middleware.RequireEmployee)
		sr.Get("/status", agentH.Status(models.KindEmployee))
		sr.Post("/chat", agentH.Chat(models.KindEmployee))
	})
	mux.Route("/calendar", func(sr chi.Router) {
		// The callback is hit by the provider redirect, which carries no
		// session cookie guarantee; the state parameter identifies the
		// principal instead.
		sr.Get("/callback", calH.Callback())
		sr.With(middleware.RequireEmployee).Get("/connect", calH.Connect(models.KindEmployee))
		sr.With(middleware.RequireEmployee).Post("/disconnect", calH.Disconnect(models.KindEmployee))
	})

	// Boss namespace
	mux.Route("/boss", func(sr chi.Router) {
		sr.Post("/auth/register", authH.BossRegisterHandler())
		sr.Post("/auth/login", authH.BossLoginHandler())
		sr.Post("/auth/logout", authH.BossLogoutHandler())
		sr.Get("/auth/user", authH.BossMeHandler())
		sr.Put("/auth/user", authH.BossUpdateProfileHandler())

		sr.Route("/agent", func(br chi.Router) {
			br.Use(middleware.RequireBoss)
			br.Get("/status", agentH.Status(models.KindBoss))
			br.Post("/chat", agentH.Chat(models.KindBoss))
		})
		sr.Route("/calendar", func(br chi.Router) {
			br.Use(middleware.RequireBoss)
			br.Get("/connect", calH.Connect(models.KindBoss))
			br.Post("/disconnect", calH.Disconnect(models.KindBoss))
		})

		sr.Group(func(br chi.Router) {
			br.Use(middleware.RequireBoss)
			br.Get("/employees", teamH.Employees)
			br.Get("/team", teamH.Team)
			br.Post("/team", teamH.Action)
			br.Post("/a2a/test", teamH.A2ATest)
		})
	})

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpserver.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
