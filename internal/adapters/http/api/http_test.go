package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/m-mukund/fpl-optimizer/internal/adapters/http/api"
	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
)

// Mock implementations for testing
type mockDependencies struct {
	proposal    *model.TransferProposal
	team        model.TeamPayload
	players     []model.Player
	err         error
	gotRoster   []model.RosterSlot
	gotBudget   int
	gotQuery    string
	transferHit int
}

func (m *mockDependencies) RecommendTransfer(_ context.Context, roster []model.RosterSlot, budget int) (*model.TransferProposal, error) {
	m.transferHit++
	m.gotRoster, m.gotBudget = roster, budget
	return m.proposal, m.err
}

func (m *mockDependencies) BestTeam(context.Context) (model.TeamPayload, error) {
	return m.team, m.err
}

func (m *mockDependencies) SearchPlayers(_ context.Context, q string) ([]model.Player, error) {
	m.gotQuery = q
	return m.players, m.err
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies, opts ...api.ServerOption) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, opts...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("Health serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "fpl_optimizer_")
		})

		Convey("Stats returns provider stats", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldEqual, true)
		})

		Convey("Unknown paths are 404", func() {
			w := do(mux, http.MethodGet, "/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestTransferHandler(t *testing.T) {
	Convey("Given a server whose service proposes a transfer", t, func() {
		deps := &mockDependencies{proposal: &model.TransferProposal{
			Outgoing:    model.OutgoingPlayer{RosterSlot: model.RosterSlot{PlayerID: 7, WebName: "Gabriel"}, Position: model.DEF, Cost: 4, Points: 3},
			Incoming:    model.PlayerProjection{PlayerID: 99, WebName: "Saliba", Position: model.DEF, Cost: 8, Points: 6, PeriodID: 2},
			Improvement: 3,
		}}
		mux := newMux(deps)
		body := `{"current_team":[{"player_id":7,"web_name":"Gabriel","position":"DEF"}],"remaining_budget":5}`

		for _, path := range []string{"/recommend-transfer", "/predict"} {
			Convey("POST "+path+" returns the proposal", func() {
				w := do(mux, http.MethodPost, path, body)

				So(w.Code, ShouldEqual, http.StatusOK)
				out := decode(w)
				So(out["success"], ShouldEqual, true)
				transfer := out["optimal_transfer"].(map[string]any)
				So(transfer["improvement"], ShouldEqual, 3.0)
				So(transfer["incoming_player"].(map[string]any)["player_id"], ShouldEqual, 99.0)
				So(transfer["outgoing_player"].(map[string]any)["web_name"], ShouldEqual, "Gabriel")
				So(deps.gotRoster, ShouldResemble, []model.RosterSlot{{PlayerID: 7, WebName: "Gabriel"}})
				So(deps.gotBudget, ShouldEqual, 5)
			})
		}

		Convey("No proposal is encoded as null", func() {
			deps.proposal = nil
			w := do(mux, http.MethodPost, "/recommend-transfer", body)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"optimal_transfer":null`)
		})

		Convey("Malformed input is rejected without calling the service", func() {
			for _, bad := range []string{
				`{`,
				`{"remaining_budget":5}`,
				`{"current_team":[]}`,
				`{"current_team":[],"remaining_budget":1.5}`,
				`{"current_team":"7","remaining_budget":5}`,
			} {
				w := do(mux, http.MethodPost, "/recommend-transfer", bad)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			}
			So(deps.transferHit, ShouldEqual, 0)
		})

		Convey("GET is not allowed", func() {
			w := do(mux, http.MethodGet, "/recommend-transfer", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Service errors map to status codes", func() {
			cases := []struct {
				err    error
				status int
				code   string
			}{
				{fmt.Errorf("%w: negative", model.ErrInvalidRequest), http.StatusBadRequest, "bad_request"},
				{model.ErrNoActivePeriod, http.StatusNotFound, "no_active_period"},
				{model.NewUpstreamError("store", "projection", errors.New("refused")), http.StatusBadGateway, "upstream_unavailable"},
				{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
			}
			for _, c := range cases {
				deps.err = c.err
				w := do(mux, http.MethodPost, "/recommend-transfer", body)
				So(w.Code, ShouldEqual, c.status)
				So(decode(w)["code"], ShouldEqual, c.code)
			}
		})
	})
}

func TestTeamHandler(t *testing.T) {
	Convey("Given a server with an assembled team", t, func() {
		deps := &mockDependencies{team: model.TeamPayload{Players: []model.PlayerProjection{
			{PlayerID: 50, WebName: "Trippier", Position: model.DEF, Cost: 20, Points: 9, PeriodID: 2},
		}}}
		mux := newMux(deps)

		for _, path := range []string{"/best-team", "/best_team"} {
			Convey("GET "+path+" wraps the payload", func() {
				w := do(mux, http.MethodGet, path, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				out := decode(w)
				So(out["success"], ShouldEqual, true)
				players := out["best_team"].(map[string]any)["players"].([]any)
				So(len(players), ShouldEqual, 1)
				So(players[0].(map[string]any)["web_name"], ShouldEqual, "Trippier")
			})
		}

		Convey("An empty team encodes an empty list", func() {
			deps.team = model.TeamPayload{}
			w := do(mux, http.MethodGet, "/best-team", "")
			So(w.Body.String(), ShouldContainSubstring, `"players":[]`)
		})

		Convey("No active gameweek is 404", func() {
			deps.err = model.ErrNoActivePeriod
			w := do(mux, http.MethodGet, "/best-team", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestAutocompleteHandler(t *testing.T) {
	Convey("Given a server with matching players", t, func() {
		deps := &mockDependencies{players: []model.Player{{ID: 12, WebName: "Salah"}}}
		mux := newMux(deps)

		Convey("Matches are returned as a bare list", func() {
			w := do(mux, http.MethodGet, "/autocomplete?query=sal", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, `[{"player_id":12,"web_name":"Salah"}]`)
			So(deps.gotQuery, ShouldEqual, "sal")
		})

		Convey("No matches encode an empty list", func() {
			deps.players = nil
			w := do(mux, http.MethodGet, "/autocomplete", "")
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, `[]`)
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("A request id is generated when absent", func() {
			w := do(mux, http.MethodGet, "/autocomplete?query=x", "")
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
		})

		Convey("A supplied request id is echoed", func() {
			req := httptest.NewRequest(http.MethodGet, "/autocomplete?query=x", nil)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})

		Convey("CORS allows any origin by default", func() {
			req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
			req.Header.Set("Origin", "http://localhost:3000")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNoContent)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})
	})

	Convey("Given a restricted origin list", t, func() {
		mux := newMux(&mockDependencies{}, api.WithAllowedOrigins([]string{"https://fpl.example"}))

		req := httptest.NewRequest(http.MethodGet, "/autocomplete?query=x", nil)
		req.Header.Set("Origin", "https://fpl.example")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://fpl.example")

		req = httptest.NewRequest(http.MethodGet, "/autocomplete?query=x", nil)
		req.Header.Set("Origin", "https://evil.example")
		w = httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		So(w.Header().Get("Access-Control-Allow-Origin"), ShouldBeEmpty)
	})
}

func TestErrorHelpers(t *testing.T) {
	Convey("Op errors keep their kind and cause", t, func() {
		cause := errors.New("eof")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "api.op: bad request: eof")

		So(api.Wrap("api.op", nil), ShouldBeNil)
		So(api.NewKind("api.op", api.ErrBadRequest).Error(), ShouldEqual, "api.op: bad request")
	})
}
