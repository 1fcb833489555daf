package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/storyflow"
	httpadapter "github.com/aretw0/storyflow/pkg/adapters/http"
	"github.com/aretw0/storyflow/pkg/adapters/memory"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/dsl"
	"github.com/aretw0/storyflow/pkg/observability"
	"github.com/aretw0/storyflow/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(newAdapter(t).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newAdapter(t *testing.T) *httpadapter.Server {
	t.Helper()

	b := dsl.New("inn")
	b.Add("start").Entry().Go("greet")
	b.Add("greet").Dialogue("Room or meal?").Speaker("Keeper").
		ResponseDo("room", "A room.", dsl.Assign("mc.gold", "subtract", 3)).
		Response("meal", "A meal.").
		Pin("room", "end").
		Pin("meal", "end")
	b.Add("end").Exit(domain.ExitTerminal, "")

	loader, err := memory.NewLoader(b.MustBuild())
	require.NoError(t, err)
	loader.SetVariables(map[string]domain.Variable{
		"mc.gold": domain.NewVariable("mc.gold", domain.KindNumber, 10),
	})

	metrics := observability.NewMetrics()
	engine, err := storyflow.New("", storyflow.WithLoader(loader), storyflow.WithLifecycleHooks(metrics.Hooks()))
	require.NoError(t, err)

	return httpadapter.NewServer(engine, session.NewManager(memory.NewStore()),
		httpadapter.WithMetrics(metrics.Handler()),
	)
}

func call(t *testing.T, ts *httptest.Server, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decodeSession(t *testing.T, raw []byte) httpadapter.SessionResponse {
	t.Helper()
	var resp httpadapter.SessionResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.NotNil(t, resp.State)
	return resp
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	status, raw := call(t, ts, http.MethodPost, "/sessions", httpadapter.CreateSessionRequest{GraphID: "inn"})
	require.Equal(t, http.StatusCreated, status, string(raw))
	resp := decodeSession(t, raw)
	require.NotEmpty(t, resp.State.SessionID)
	return resp.State.SessionID
}

func TestServer_SessionFlow(t *testing.T) {
	ts := newServer(t)
	id := createSession(t, ts)

	status, raw := call(t, ts, http.MethodPost, "/sessions/"+id+"/play", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	resp := decodeSession(t, raw)
	require.NotNil(t, resp.Result)
	assert.Equal(t, domain.ResultWaitingForChoice, resp.Result.Kind)
	assert.Len(t, resp.Result.Candidates, 2)

	status, raw = call(t, ts, http.MethodPost, "/sessions/"+id+"/choose", httpadapter.ChooseRequest{ResponseID: "room"})
	require.Equal(t, http.StatusOK, status, string(raw))
	resp = decodeSession(t, raw)
	assert.Equal(t, "end", resp.State.CurrentNodeID)
	assert.Equal(t, 7.0, resp.State.Variables["mc.gold"].Value)
	require.NotNil(t, resp.Diff)
	assert.Equal(t, 7.0, resp.Diff.Variables["mc.gold"])

	status, raw = call(t, ts, http.MethodPost, "/sessions/"+id+"/back", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	resp = decodeSession(t, raw)
	assert.Equal(t, domain.StatusWaitingForChoice, resp.State.Status)
	assert.Equal(t, 10.0, resp.State.Variables["mc.gold"].Value)

	status, raw = call(t, ts, http.MethodGet, "/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "greet", decodeSession(t, raw).State.CurrentNodeID)

	status, _ = call(t, ts, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = call(t, ts, http.MethodGet, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_DebugControls(t *testing.T) {
	ts := newServer(t)
	id := createSession(t, ts)

	status, raw := call(t, ts, http.MethodPut, "/sessions/"+id+"/variables/mc.gold", httpadapter.ValueRequest{Value: 42})
	require.Equal(t, http.StatusOK, status, string(raw))
	resp := decodeSession(t, raw)
	assert.Equal(t, 42.0, resp.State.Variables["mc.gold"].Value)
	assert.Equal(t, domain.SourceUserOverride, resp.State.Variables["mc.gold"].Source)

	status, _ = call(t, ts, http.MethodPut, "/sessions/"+id+"/variables/mc.gold", httpadapter.ValueRequest{Value: "lots"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, ts, http.MethodPut, "/sessions/"+id+"/variables/mc.fame", httpadapter.ValueRequest{Value: 1})
	assert.Equal(t, http.StatusBadRequest, status)

	status, raw = call(t, ts, http.MethodPost, "/sessions/"+id+"/breakpoints/greet", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, decodeSession(t, raw).State.Breakpoints, "greet")

	status, raw = call(t, ts, http.MethodPost, "/sessions/"+id+"/play", nil)
	require.Equal(t, http.StatusOK, status)
	resp = decodeSession(t, raw)
	assert.Equal(t, domain.ResultBreakpointHit, resp.Result.Kind)

	status, raw = call(t, ts, http.MethodPut, "/sessions/"+id+"/mode", httpadapter.ModeRequest{ViewMode: domain.ViewPlayer})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.ViewPlayer, decodeSession(t, raw).State.ViewMode)

	status, _ = call(t, ts, http.MethodPut, "/sessions/"+id+"/mode", httpadapter.ModeRequest{ViewMode: "director"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, raw = call(t, ts, http.MethodPost, "/sessions/"+id+"/extend", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2*domain.DefaultMaxSteps, decodeSession(t, raw).State.MaxSteps)

	status, raw = call(t, ts, http.MethodPost, "/sessions/"+id+"/reset", nil)
	require.Equal(t, http.StatusOK, status)
	resp = decodeSession(t, raw)
	assert.Equal(t, "start", resp.State.CurrentNodeID)
	assert.Equal(t, 10.0, resp.State.Variables["mc.gold"].Value)
}

func TestServer_Errors(t *testing.T) {
	ts := newServer(t)

	status, _ := call(t, ts, http.MethodPost, "/sessions", httpadapter.CreateSessionRequest{GraphID: "cellar"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, ts, http.MethodPost, "/sessions/ghost/step", nil)
	assert.Equal(t, http.StatusNotFound, status)

	id := createSession(t, ts)
	status, _ = call(t, ts, http.MethodPost, "/sessions/"+id+"/choose", httpadapter.ChooseRequest{ResponseID: "room"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = call(t, ts, http.MethodPost, "/sessions/"+id+"/back", nil)
	assert.Equal(t, http.StatusConflict, status)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/sessions/"+id+"/choose", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_GraphsAndMetrics(t *testing.T) {
	ts := newServer(t)

	status, raw := call(t, ts, http.MethodGet, "/graphs", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"graphs":["inn"]}`, string(raw))

	id := createSession(t, ts)
	status, _ = call(t, ts, http.MethodPost, "/sessions/"+id+"/step", nil)
	require.Equal(t, http.StatusOK, status)

	status, raw = call(t, ts, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), `storyflow_steps_total{graph_id="inn",result="advanced"} 1`)
}

func TestServer_OpenAPI(t *testing.T) {
	srv := newAdapter(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := ts.Client().Get(ts.URL + "/openapi.yaml")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/yaml", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	doc, err := openapi3.NewLoader().LoadFromData(raw)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))

	routes, ok := srv.Handler().(chi.Routes)
	require.True(t, ok)
	err = chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if route != "/" {
			route = strings.TrimSuffix(route, "/")
		}
		item := doc.Paths.Value(route)
		if assert.NotNil(t, item, "route %s is undocumented", route) {
			assert.NotNil(t, item.GetOperation(method), "%s %s is undocumented", method, route)
		}
		return nil
	})
	require.NoError(t, err)
}
