package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/op-tournament/internal/bracket"
	"github.com/AdamBeresnev/op-tournament/internal/httputil"
	"github.com/AdamBeresnev/op-tournament/internal/live"
	"github.com/AdamBeresnev/op-tournament/internal/middleware"
	"github.com/AdamBeresnev/op-tournament/internal/service"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

type application struct {
	tournaments *service.TournamentService
	teams       *service.TeamService
	brackets    *service.BracketService
	matches     *service.MatchService

	auth     *middleware.Authenticator
	sessions *scs.SessionManager
	hub      *live.Hub
	devLogin bool

	gatewaySecret string
}

type bracketView struct {
	TournamentID uuid.UUID       `json:"tournamentId"`
	Rounds       int             `json:"rounds"`
	Matches      []bracket.Match `json:"matches"`
	ChampionID   *uuid.UUID      `json:"championId,omitempty"`
}

func urlID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("Invalid %s", key), err)
		return uuid.Nil, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httputil.BadRequest(w, "Invalid request body", err)
		return false
	}
	return true
}

// requester is only called behind RequireAuth.
func requester(r *http.Request) uuid.UUID {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	return userID
}

func newRouter(app *application, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if app.sessions != nil {
		r.Use(app.sessions.LoadAndSave)
	}
	r.Use(app.auth.Identify)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if app.devLogin {
		// Stand-in for the auth gateway during local development
		r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
			var input struct {
				UserID uuid.UUID `json:"userId"`
			}
			if !decodeJSON(w, r, &input) {
				return
			}
			if input.UserID == uuid.Nil {
				httputil.BadRequest(w, "userId is required", nil)
				return
			}
			if err := app.auth.Login(r.Context(), input.UserID); err != nil {
				httputil.InternalServerError(w, "Failed to start session", err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		if err := app.auth.Logout(r.Context()); err != nil {
			httputil.InternalServerError(w, "Failed to end session", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Route("/tournaments", func(r chi.Router) {
		r.With(middleware.RequireAuth).Get("/", func(w http.ResponseWriter, r *http.Request) {
			tournaments, err := app.tournaments.GetTournamentsForOrganizer(r.Context(), requester(r))
			if err != nil {
				httputil.Error(w, err)
				return
			}
			if tournaments == nil {
				tournaments = []bracket.Tournament{}
			}
			httputil.WriteJSON(w, http.StatusOK, tournaments)
		})

		r.With(middleware.RequireAuth).Post("/", func(w http.ResponseWriter, r *http.Request) {
			var input service.CreateTournamentInput
			if !decodeJSON(w, r, &input) {
				return
			}
			tournament, err := app.tournaments.CreateTournament(r.Context(), requester(r), input)
			if err != nil {
				httputil.Error(w, err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, tournament)
		})

		r.Route("/{tournamentID}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				id, ok := urlID(w, r, "tournamentID")
				if !ok {
					return
				}
				data, err := app.tournaments.GetTournamentData(r.Context(), id)
				if err != nil {
					httputil.Error(w, err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, data)
			})

			r.Get("/bracket", func(w http.ResponseWriter, r *http.Request) {
				id, ok := urlID(w, r, "tournamentID")
				if !ok {
					return
				}
				b, err := app.brackets.GetBracket(r.Context(), id)
				if err != nil {
					httputil.Error(w, err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, bracketView{
					TournamentID: b.TournamentID,
					Rounds:       b.Rounds,
					Matches:      b.Matches,
					ChampionID:   b.Champion(),
				})
			})

			r.Get("/matches/{matchID}", func(w http.ResponseWriter, r *http.Request) {
				id, ok := urlID(w, r, "tournamentID")
				if !ok {
					return
				}
				matchID, ok := urlID(w, r, "matchID")
				if !ok {
					return
				}
				match, err := app.matches.GetMatch(r.Context(), id, matchID)
				if err != nil {
					httputil.Error(w, err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, match)
			})

			r.Get("/live", func(w http.ResponseWriter, r *http.Request) {
				id, ok := urlID(w, r, "tournamentID")
				if !ok {
					return
				}
				if _, err := app.tournaments.GetTournament(r.Context(), id); err != nil {
					httputil.Error(w, err)
					return
				}
				// The upgrader has already answered the client on failure
				if err := app.hub.ServeWS(w, r, id); err != nil {
					slog.Warn("websocket upgrade failed", "tournament_id", id, "error", err)
				}
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)

				r.Post("/status", func(w http.ResponseWriter, r *http.Request) {
					id, ok := urlID(w, r, "tournamentID")
					if !ok {
						return
					}
					var input struct {
						Status bracket.TournamentStatus `json:"status"`
					}
					if !decodeJSON(w, r, &input) {
						return
					}
					if err := app.tournaments.TransitionStatus(r.Context(), id, requester(r), input.Status); err != nil {
						httputil.Error(w, err)
						return
					}
					w.WriteHeader(http.StatusNoContent)
				})

				r.Post("/bracket", func(w http.ResponseWriter, r *http.Request) {
					id, ok := urlID(w, r, "tournamentID")
					if !ok {
						return
					}
					result, err := app.brackets.GenerateBracket(r.Context(), id, requester(r))
					if err != nil {
						httputil.Error(w, err)
						return
					}
					httputil.WriteJSON(w, http.StatusCreated, result)
				})

				r.Post("/matches/{matchID}/result", func(w http.ResponseWriter, r *http.Request) {
					id, ok := urlID(w, r, "tournamentID")
					if !ok {
						return
					}
					matchID, ok := urlID(w, r, "matchID")
					if !ok {
						return
					}
					var input service.CompleteMatchInput
					if !decodeJSON(w, r, &input) {
						return
					}
					result, err := app.matches.CompleteMatch(r.Context(), id, matchID, requester(r), input)
					if err != nil {
						httputil.Error(w, err)
						return
					}
					httputil.WriteJSON(w, http.StatusOK, result)
				})

				r.Post("/teams", func(w http.ResponseWriter, r *http.Request) {
					id, ok := urlID(w, r, "tournamentID")
					if !ok {
						return
					}
					var input service.RegisterTeamInput
					if !decodeJSON(w, r, &input) {
						return
					}
					team, err := app.teams.RegisterTeam(r.Context(), id, requester(r), input)
					if err != nil {
						httputil.Error(w, err)
						return
					}
					httputil.WriteJSON(w, http.StatusCreated, team)
				})
			})
		})
	})

	r.Route("/teams/{teamID}", func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Put("/seed", func(w http.ResponseWriter, r *http.Request) {
			teamID, ok := urlID(w, r, "teamID")
			if !ok {
				return
			}
			var input struct {
				Seed *int `json:"seed"`
			}
			if !decodeJSON(w, r, &input) {
				return
			}
			if err := app.teams.SetSeed(r.Context(), teamID, requester(r), input.Seed); err != nil {
				httputil.Error(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
			teamID, ok := urlID(w, r, "teamID")
			if !ok {
				return
			}
			if err := app.teams.WithdrawTeam(r.Context(), teamID, requester(r)); err != nil {
				httputil.Error(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		// Manual override for fees settled outside the gateway
		r.Post("/payment", func(w http.ResponseWriter, r *http.Request) {
			teamID, ok := urlID(w, r, "teamID")
			if !ok {
				return
			}
			team, err := app.teams.ConfirmPayment(r.Context(), teamID, requester(r))
			if err != nil {
				httputil.Error(w, err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, team)
		})
	})

	// Called by the payment gateway once an entry fee has settled
	r.With(middleware.RequireGatewaySecret(app.gatewaySecret)).Post("/gateway/teams/{teamID}/payment", func(w http.ResponseWriter, r *http.Request) {
		teamID, ok := urlID(w, r, "teamID")
		if !ok {
			return
		}
		team, err := app.teams.ConfirmGatewayPayment(r.Context(), teamID)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, team)
	})

	return r
}
