package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"privatetasks/internal/config"
	"privatetasks/internal/masq"
	"privatetasks/internal/models"
	"privatetasks/internal/session"
	"privatetasks/internal/store"
	"privatetasks/internal/views"
)

type testEnv struct {
	h      *Handlers
	ctrl   *session.Controller
	client *masq.LocalClient
	broker *masq.Broker
}

func setupTestHandlers(t *testing.T) *testEnv {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	broker := masq.NewBroker()
	client := masq.NewLocalClient(s, broker, masq.Options{
		App:            config.AppInfo{Name: "Private Tasks"},
		HubURLs:        []string{"http://hub.test"},
		MasqAppBaseURL: "https://masq.test/",
		PairingTimeout: 5 * time.Second,
	})
	ctrl := session.New(client, session.Options{WriteTimeout: time.Second})
	t.Cleanup(ctrl.Wait)
	if err := ctrl.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	h := New(ctrl, broker, nil, "Private Tasks") // nil templates for API tests
	return &testEnv{h: h, ctrl: ctrl, client: client, broker: broker}
}

func signedReply(t *testing.T, link string, accepted bool, username string) masq.Reply {
	t.Helper()
	invite, err := masq.DecodeLink(link)
	if err != nil {
		t.Fatalf("DecodeLink failed: %v", err)
	}
	key, err := invite.LinkKey()
	if err != nil {
		t.Fatalf("LinkKey failed: %v", err)
	}
	reply := masq.Reply{Channel: invite.Channel, Accepted: accepted, ProfileID: "p-" + username, Username: username}
	if err := reply.Sign(key); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	return reply
}

func postForm(h http.HandlerFunc, path string, form url.Values, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func postReply(h *Handlers, channel string, reply masq.Reply) *httptest.ResponseRecorder {
	body, _ := json.Marshal(reply)
	req := httptest.NewRequest("POST", "/pairing/"+channel, bytes.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("channel", channel)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	h.PairingReply(rec, req)
	return rec
}

// login pairs the controller through the hub endpoint.
func login(t *testing.T, env *testEnv) {
	t.Helper()
	link := env.ctrl.State().Link()
	reply := signedReply(t, link, true, "alice")

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- postForm(env.h.Connect, "/connect", url.Values{"stay_connected": {"true"}}, "")
	}()

	if rec := postReply(env.h, reply.Channel, reply); rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d from hub, got %d: %s", http.StatusNoContent, rec.Code, rec.Body.String())
	}

	select {
	case rec := <-done:
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("expected redirect after connect, got %d", rec.Code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("connect did not complete")
	}
	if !env.ctrl.State().LoggedIn() {
		t.Fatal("expected logged in after pairing")
	}
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) SessionView {
	t.Helper()
	var view SessionView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	return view
}

func TestHomeHandler_RendersPairingPage(t *testing.T) {
	env := setupTestHandlers(t)
	tmpl, err := views.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	env.h.templates = tmpl

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	env.h.Home(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Not connected") || !strings.Contains(body, "https://masq.test/link/") {
		t.Errorf("expected pairing page, got %s", body)
	}
}

func TestSessionHandler_AwaitingPairing(t *testing.T) {
	env := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	env.h.Session(rec, httptest.NewRequest("GET", "/api/session", nil))

	view := decodeSession(t, rec)
	if view.Phase != "awaiting_pairing" {
		t.Errorf("expected awaiting_pairing, got %q", view.Phase)
	}
	if !strings.HasPrefix(view.Link, "https://masq.test/link/") {
		t.Errorf("unexpected link %q", view.Link)
	}
}

func TestConnect_ThenTaskLifecycle(t *testing.T) {
	env := setupTestHandlers(t)
	login(t, env)

	rec := postForm(env.h.CreateTask, "/tasks", url.Values{"label": {"milk"}}, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	view := decodeSession(t, rec)
	if !view.Tasks.Equal(models.TaskMap{"milk": false}) {
		t.Fatalf("unexpected tasks %v", view.Tasks)
	}
	if view.Username != "alice" {
		t.Errorf("expected username alice, got %q", view.Username)
	}

	postForm(env.h.CreateTask, "/tasks", url.Values{"label": {"bread"}}, "")
	rec = postForm(env.h.ToggleTask, "/tasks/toggle", url.Values{"label": {"bread"}}, "")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	env.ctrl.Wait()

	stored, err := env.client.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !models.TaskMap(stored).Equal(models.TaskMap{"milk": false, "bread": true}) {
		t.Errorf("unexpected stored tasks %v", stored)
	}

	postForm(env.h.DeleteTask, "/tasks/delete", url.Values{"label": {"milk"}}, "")
	env.ctrl.Wait()

	rec = httptest.NewRecorder()
	env.h.Tasks(rec, httptest.NewRequest("GET", "/api/tasks", nil))
	var tasks models.TaskMap
	json.NewDecoder(rec.Body).Decode(&tasks)
	if !tasks.Equal(models.TaskMap{"bread": true}) {
		t.Errorf("unexpected tasks %v", tasks)
	}
	stored, _ = env.client.List(context.Background())
	if !models.TaskMap(stored).Equal(models.TaskMap{"bread": true}) {
		t.Errorf("unexpected stored tasks %v", stored)
	}
}

func TestCreateTask_RequiresLogin(t *testing.T) {
	env := setupTestHandlers(t)

	rec := postForm(env.h.CreateTask, "/tasks", url.Values{"label": {"milk"}}, "application/json")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestToggleTask_MissingLabel(t *testing.T) {
	env := setupTestHandlers(t)
	login(t, env)

	rec := postForm(env.h.ToggleTask, "/tasks/toggle", url.Values{}, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestDeleteTask_UnknownLabel(t *testing.T) {
	env := setupTestHandlers(t)
	login(t, env)

	rec := postForm(env.h.DeleteTask, "/tasks/delete", url.Values{"label": {"ghost"}}, "application/json")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestLogout_ReturnsToPairing(t *testing.T) {
	env := setupTestHandlers(t)
	login(t, env)
	oldLink := env.ctrl.State().Link()
	postForm(env.h.CreateTask, "/tasks", url.Values{"label": {"milk"}}, "")

	rec := postForm(env.h.Logout, "/logout", url.Values{}, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	view := decodeSession(t, rec)
	if view.Phase != "awaiting_pairing" {
		t.Errorf("expected awaiting_pairing, got %q", view.Phase)
	}
	if len(view.Tasks) != 0 {
		t.Errorf("expected no tasks, got %v", view.Tasks)
	}
	if view.Link == "" || view.Link == oldLink {
		t.Errorf("expected a fresh link, got %q", view.Link)
	}
}

func TestConnect_RejectedPairing(t *testing.T) {
	env := setupTestHandlers(t)
	link := env.ctrl.State().Link()
	reply := signedReply(t, link, false, "")

	if rec := postReply(env.h, reply.Channel, reply); rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	rec := postForm(env.h.Connect, "/connect", url.Values{}, "application/json")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected status %d, got %d", http.StatusBadGateway, rec.Code)
	}
	view := decodeSession(t, rec)
	if view.Phase != "awaiting_pairing" || view.Link != link {
		t.Errorf("expected to stay on the same link, got %+v", view)
	}
	if view.Error == "" {
		t.Error("expected visible error")
	}

	// The same link can still be accepted.
	login(t, env)
	if env.ctrl.State().Username() != "alice" {
		t.Errorf("expected alice after retry, got %q", env.ctrl.State().Username())
	}
}

func TestWhitespaceTask_CreateToggleDelete(t *testing.T) {
	env := setupTestHandlers(t)
	login(t, env)

	rec := postForm(env.h.CreateTask, "/tasks", url.Values{"label": {" "}}, "application/json")
	if view := decodeSession(t, rec); !view.Tasks.Equal(models.TaskMap{" ": false}) {
		t.Fatalf("expected whitespace task, got %v", view.Tasks)
	}

	rec = postForm(env.h.ToggleTask, "/tasks/toggle", url.Values{"label": {" "}}, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: expected status %d, got %d", http.StatusOK, rec.Code)
	}
	rec = postForm(env.h.DeleteTask, "/tasks/delete", url.Values{"label": {" "}}, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected status %d, got %d", http.StatusOK, rec.Code)
	}
	env.ctrl.Wait()

	stored, err := env.client.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("expected no stored tasks, got %v", stored)
	}
}

func TestPairingReply_Errors(t *testing.T) {
	env := setupTestHandlers(t)
	reply := signedReply(t, env.ctrl.State().Link(), true, "alice")

	tampered := reply
	tampered.Username = "mallory"
	if rec := postReply(env.h, reply.Channel, tampered); rec.Code != http.StatusForbidden {
		t.Errorf("tampered: expected status %d, got %d", http.StatusForbidden, rec.Code)
	}

	if rec := postReply(env.h, "other", reply); rec.Code != http.StatusBadRequest {
		t.Errorf("mismatch: expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	unknown := reply
	unknown.Channel = "other"
	if rec := postReply(env.h, "other", unknown); rec.Code != http.StatusNotFound {
		t.Errorf("unknown: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	if rec := postReply(env.h, reply.Channel, reply); rec.Code != http.StatusNoContent {
		t.Errorf("valid: expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if rec := postReply(env.h, reply.Channel, reply); rec.Code != http.StatusConflict {
		t.Errorf("repeat: expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestPairingReply_InvalidJSON(t *testing.T) {
	env := setupTestHandlers(t)

	req := httptest.NewRequest("POST", "/pairing/abc", strings.NewReader("{"))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("channel", "abc")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	env.h.PairingReply(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestRoutes_EndToEnd(t *testing.T) {
	env := setupTestHandlers(t)
	tmpl, err := views.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	env.h.templates = tmpl

	srv := httptest.NewServer(env.h.Routes())
	t.Cleanup(srv.Close)

	reply := signedReply(t, env.ctrl.State().Link(), true, "alice")

	client := srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	connectDone := make(chan int, 1)
	go func() {
		resp, err := client.PostForm(srv.URL+"/connect", url.Values{"stay_connected": {"true"}})
		if err != nil {
			connectDone <- 0
			return
		}
		resp.Body.Close()
		connectDone <- resp.StatusCode
	}()

	body, _ := json.Marshal(reply)
	resp, err := client.Post(srv.URL+"/pairing/"+reply.Channel, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("pairing reply failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, resp.StatusCode)
	}

	select {
	case code := <-connectDone:
		if code != http.StatusSeeOther {
			t.Fatalf("expected redirect from connect, got %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("connect did not complete")
	}

	resp, err = client.PostForm(srv.URL+"/tasks", url.Values{"label": {"eggs"}})
	if err != nil {
		t.Fatalf("create task failed: %v", err)
	}
	resp.Body.Close()

	resp, err = client.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("home failed: %v", err)
	}
	defer resp.Body.Close()
	var page bytes.Buffer
	page.ReadFrom(resp.Body)
	if !strings.Contains(page.String(), "You are connected alice") || !strings.Contains(page.String(), "eggs") {
		t.Errorf("expected logged in page with eggs, got %s", page.String())
	}

	resp, err = client.Get(srv.URL + "/static/app.css")
	if err != nil {
		t.Fatalf("static failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected stylesheet, got %d", resp.StatusCode)
	}
}
