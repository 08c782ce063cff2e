package router

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gamedoc/config"
	docHandler "gamedoc/internal/document"
	docservice "gamedoc/internal/document/service"
	gameHandler "gamedoc/internal/game"
	gameservice "gamedoc/internal/game/service"
	inviteHandler "gamedoc/internal/invitation"
	inviteservice "gamedoc/internal/invitation/service"
	noteHandler "gamedoc/internal/note"
	noteservice "gamedoc/internal/note/service"
	teamHandler "gamedoc/internal/team"
	teamservice "gamedoc/internal/team/service"
	"gamedoc/internal/user"
	"gamedoc/middleware"
	"gamedoc/pkg/response"
	"gamedoc/socket"
)

type Deps struct {
	DB     *sql.DB
	Hub    *socket.Hub
	Config *config.Config
	// Storage is nil when image uploads are disabled.
	Storage gameservice.Presigner
}

func Setup(deps Deps) http.Handler {
	mux := http.NewServeMux()
	authn := middleware.NewAuthenticator(deps.Config.JWTSecret, user.NewSyncer(deps.DB))

	handle := func(route string, h http.HandlerFunc) {
		mux.Handle(route, middleware.Metrics(route, authn.AuthMiddleware(h)))
	}

	// WebSocket
	handle("/ws", func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(deps.Hub, w, r, middleware.UserID(r.Context()))
	})

	// REST API
	docs := docHandler.NewDocumentHandler(docservice.NewDocumentService(deps.DB, deps.Hub))
	handle("/api/documents", docs.GetDocuments)
	handle("/api/documents/get", docs.GetDocument)
	handle("/api/documents/create", docs.CreateDocument)
	handle("/api/documents/create-with-sections", docs.CreateDocumentWithSections)
	handle("/api/documents/update", docs.UpdateDocument)
	handle("/api/documents/delete", docs.DeleteDocument)
	handle("/api/documents/access", docs.ResolveAccess)
	handle("/api/documents/members", docs.GetDocumentMembers)
	handle("/api/documents/members/remove", docs.RemoveCollaborator)
	handle("/api/sections", docs.GetSections)
	handle("/api/sections/create", docs.CreateSection)
	handle("/api/sections/update", docs.UpdateSection)
	handle("/api/sections/reorder", docs.ReorderSection)
	handle("/api/sections/delete", docs.DeleteSection)

	games := gameHandler.NewGameHandler(gameservice.NewGameService(deps.DB, deps.Storage, deps.Hub))
	handle("/api/games", games.GetGames)
	handle("/api/games/get", games.GetGame)
	handle("/api/games/create", games.CreateGame)
	handle("/api/games/update", games.UpdateGame)
	handle("/api/games/delete", games.DeleteGame)
	handle("/api/games/image", games.RequestImageUpload)

	teams := teamHandler.NewTeamHandler(teamservice.NewTeamService(deps.DB))
	handle("/api/teams", teams.GetTeams)
	handle("/api/teams/get", teams.GetTeam)
	handle("/api/teams/create", teams.CreateTeam)
	handle("/api/teams/delete", teams.DeleteTeam)
	handle("/api/teams/members", teams.GetMembers)
	handle("/api/teams/members/remove", teams.RemoveMember)

	invites := inviteHandler.NewInvitationHandler(inviteservice.NewInvitationService(deps.DB, deps.Config.InvitationTTL))
	handle("/api/invitations", invites.GetPending)
	handle("/api/invitations/sent", invites.GetSent)
	handle("/api/invitations/create", invites.Invite)
	handle("/api/invitations/accept", invites.Accept)
	handle("/api/invitations/decline", invites.Decline)
	handle("/api/invitations/revoke", invites.Revoke)

	notes := noteHandler.NewNoteHandler(noteservice.NewNoteService(deps.DB))
	handle("/api/notes", notes.GetNotes)
	handle("/api/notes/get", notes.GetNote)
	handle("/api/notes/create", notes.CreateNote)
	handle("/api/notes/update", notes.UpdateNote)
	handle("/api/notes/delete", notes.DeleteNote)

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.DB.PingContext(r.Context()); err != nil {
			response.Fail(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		response.OK(w, http.StatusOK, "", nil)
	})

	return middleware.CORSMiddleware(deps.Config.CORSOrigin)(mux)
}
