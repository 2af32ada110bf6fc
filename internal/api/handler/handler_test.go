package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"studyhub/internal/api/handler"
	"studyhub/internal/api/middleware"
	"studyhub/internal/domain"
	"studyhub/internal/security"
	"studyhub/internal/service"
)

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response["success"] != true {
		t.Error("expected success to be true")
	}

	data, ok := response["data"].(map[string]any)
	if !ok {
		t.Fatal("expected data to be a map")
	}

	if data["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", data["status"])
	}
}

// In-memory fakes so the handlers run against the real services and the
// real error-to-status mapping.

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func copySession(s *domain.Session) *domain.Session {
	cp := *s
	cp.Members = make(map[string]domain.Member, len(s.Members))
	for id, m := range s.Members {
		cp.Members[id] = m
	}
	return &cp
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *domain.Session) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[session.Code]; exists {
		return false, nil
	}
	r.sessions[session.Code] = copySession(session)
	return true, nil
}

func (r *fakeSessionRepo) Get(ctx context.Context, code string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copySession(session), nil
}

func (r *fakeSessionRepo) Mutate(ctx context.Context, code string, fn func(*domain.Session) error) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	next := copySession(session)
	if err := fn(next); err != nil {
		return nil, err
	}
	r.sessions[code] = next
	return copySession(next), nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[code]; !ok {
		return domain.ErrNotFound
	}
	delete(r.sessions, code)
	return nil
}

func (r *fakeSessionRepo) ActiveCodes(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var codes []string
	for code, session := range r.sessions {
		if session.IsActive {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

func (r *fakeSessionRepo) Watch(ctx context.Context, code string) (<-chan domain.Session, func(), error) {
	return make(chan domain.Session), func() {}, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[string][]domain.Message
}

func (r *fakeMessageRepo) Append(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[msg.SessionCode] = append(r.messages[msg.SessionCode], *msg)
	return nil
}

func (r *fakeMessageRepo) List(ctx context.Context, code string) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Message(nil), r.messages[code]...), nil
}

func (r *fakeMessageRepo) Clear(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, code)
	return nil
}

func (r *fakeMessageRepo) Subscribe(ctx context.Context, code string) (<-chan domain.Message, func(), error) {
	return make(chan domain.Message), func() {}, nil
}

type fakeQueueRepo struct {
	mu      sync.Mutex
	entries []domain.QueueEntry
}

func (r *fakeQueueRepo) Enqueue(ctx context.Context, entry *domain.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeQueueRepo) Dequeue(ctx context.Context, wait time.Duration) (*domain.QueueEntry, error) {
	return nil, nil
}

func (r *fakeQueueRepo) SetStatus(ctx context.Context, entry *domain.QueueEntry, status domain.QueueStatus) error {
	return nil
}

func (r *fakeQueueRepo) Stale(ctx context.Context, cutoff time.Time) ([]domain.QueueEntry, error) {
	return nil, nil
}

func (r *fakeQueueRepo) Subscribe(ctx context.Context, code string) (<-chan domain.QueueEntry, func(), error) {
	return make(chan domain.QueueEntry), func() {}, nil
}

type fakeTypingRepo struct{}

func (r *fakeTypingRepo) Set(ctx context.Context, ev *domain.TypingEvent, ttl time.Duration) error {
	return nil
}

func (r *fakeTypingRepo) Subscribe(ctx context.Context, code string) (<-chan domain.TypingEvent, func(), error) {
	return make(chan domain.TypingEvent), func() {}, nil
}

type fakePresenceRepo struct {
	mu    sync.Mutex
	beats map[string]bool
}

func (r *fakePresenceRepo) Heartbeat(ctx context.Context, code, userID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beats[code+":"+userID] = true
	return nil
}

func (r *fakePresenceRepo) Alive(ctx context.Context, code, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.beats[code+":"+userID], nil
}

func (r *fakePresenceRepo) Clear(ctx context.Context, code, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.beats, code+":"+userID)
	return nil
}

type testEnv struct {
	router http.Handler
	queue  *fakeQueueRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	sessionRepo := &fakeSessionRepo{sessions: map[string]*domain.Session{}}
	messageRepo := &fakeMessageRepo{messages: map[string][]domain.Message{}}
	queueRepo := &fakeQueueRepo{}
	presenceRepo := &fakePresenceRepo{beats: map[string]bool{}}

	sessionService := service.NewSessionService(sessionRepo, messageRepo, nil, nil)
	membershipService := service.NewMembershipService(sessionRepo, presenceRepo)
	presenceService := service.NewPresenceService(sessionRepo, presenceRepo, membershipService, 30*time.Second, time.Minute)
	chatService := service.NewChatService(membershipService, messageRepo, queueRepo, &fakeTypingRepo{}, 10*time.Second)

	sessionHandler := handler.NewSessionHandler(sessionService)
	memberHandler := handler.NewMemberHandler(membershipService, presenceService)
	chatHandler := handler.NewChatHandler(chatService)

	r := chi.NewRouter()
	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", sessionHandler.Create)
		r.Route("/{sessionCode}", func(r chi.Router) {
			r.Use(middleware.SessionContext)
			r.Get("/", sessionHandler.Get)
			r.Post("/end", sessionHandler.End)
			r.Post("/join", memberHandler.Join)
			r.Post("/heartbeat", memberHandler.Heartbeat)
			r.Post("/messages", chatHandler.Post)
		})
	})

	return &testEnv{router: r, queue: queueRepo}
}

func (e *testEnv) do(t *testing.T, as security.Identity, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := makeJSONRequest(t, method, path, body)
	req = req.WithContext(middleware.WithIdentity(req.Context(), as))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return envelope
}

// createSession creates a session through the API and returns its code.
func (e *testEnv) createSession(t *testing.T, owner security.Identity) string {
	t.Helper()
	rec := e.do(t, owner, http.MethodPost, "/api/v1/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	code, _ := data["code"].(string)
	if code == "" {
		t.Fatal("create: no session code in response")
	}
	return code
}

var owner = security.Identity{UserID: "owner-1", DisplayName: "Alice"}

func TestSessionEndpoints(t *testing.T) {
	t.Run("create returns a six digit code", func(t *testing.T) {
		env := newTestEnv(t)
		code := env.createSession(t, owner)
		if !regexp.MustCompile(`^[0-9]{6}$`).MatchString(code) {
			t.Errorf("expected a 6-digit code, got %q", code)
		}
	})

	t.Run("owner ends the session", func(t *testing.T) {
		env := newTestEnv(t)
		code := env.createSession(t, owner)

		rec := env.do(t, owner, http.MethodPost, "/api/v1/sessions/"+code+"/end", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		data := decodeEnvelope(t, rec)["data"].(map[string]any)
		if data["is_active"] != false {
			t.Error("expected the ended session to be inactive")
		}
	})

	t.Run("non-owner cannot end", func(t *testing.T) {
		env := newTestEnv(t)
		code := env.createSession(t, owner)
		guest := security.Identity{UserID: "guest-1", DisplayName: "Bob"}
		env.do(t, guest, http.MethodPost, "/api/v1/sessions/"+code+"/join", nil)

		rec := env.do(t, guest, http.MethodPost, "/api/v1/sessions/"+code+"/end", nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected status %d, got %d", http.StatusForbidden, rec.Code)
		}
		if decodeEnvelope(t, rec)["success"] != false {
			t.Error("expected success to be false")
		}
	})

	t.Run("ending twice is gone", func(t *testing.T) {
		env := newTestEnv(t)
		code := env.createSession(t, owner)

		env.do(t, owner, http.MethodPost, "/api/v1/sessions/"+code+"/end", nil)
		rec := env.do(t, owner, http.MethodPost, "/api/v1/sessions/"+code+"/end", nil)
		if rec.Code != http.StatusGone {
			t.Errorf("expected status %d, got %d", http.StatusGone, rec.Code)
		}
	})

	t.Run("unknown code is not found", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, owner, http.MethodGet, "/api/v1/sessions/999999", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("malformed code is rejected before lookup", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, owner, http.MethodGet, "/api/v1/sessions/12ab56", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})
}

func TestJoinEndpoint(t *testing.T) {
	t.Run("guest joins", func(t *testing.T) {
		env := newTestEnv(t)
		code := env.createSession(t, owner)
		guest := security.Identity{UserID: "guest-1", DisplayName: "Bob"}

		rec := env.do(t, guest, http.MethodPost, "/api/v1/sessions/"+code+"/join", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		data := decodeEnvelope(t, rec)["data"].(map[string]any)
		members := data["members"].(map[string]any)
		if len(members) != 2 {
			t.Errorf("expected 2 members, got %d", len(members))
		}
	})

	t.Run("joining twice conflicts", func(t *testing.T) {
		env := newTestEnv(t)
		code := env.createSession(t, owner)
		guest := security.Identity{UserID: "guest-1", DisplayName: "Bob"}

		env.do(t, guest, http.MethodPost, "/api/v1/sessions/"+code+"/join", nil)
		rec := env.do(t, guest, http.MethodPost, "/api/v1/sessions/"+code+"/join", nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
		}
	})

	t.Run("full session conflicts", func(t *testing.T) {
		env := newTestEnv(t)
		code := env.createSession(t, owner)

		for i := 1; i < domain.MemberLimit; i++ {
			guest := security.Identity{UserID: fmt.Sprintf("guest-%d", i), DisplayName: fmt.Sprintf("Guest %d", i)}
			rec := env.do(t, guest, http.MethodPost, "/api/v1/sessions/"+code+"/join", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("join %d: expected status %d, got %d", i, http.StatusOK, rec.Code)
			}
		}

		late := security.Identity{UserID: "too-late", DisplayName: "Straggler"}
		rec := env.do(t, late, http.MethodPost, "/api/v1/sessions/"+code+"/join", nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
		}
	})

	t.Run("joining an ended session is gone", func(t *testing.T) {
		env := newTestEnv(t)
		code := env.createSession(t, owner)
		env.do(t, owner, http.MethodPost, "/api/v1/sessions/"+code+"/end", nil)

		guest := security.Identity{UserID: "guest-1", DisplayName: "Bob"}
		rec := env.do(t, guest, http.MethodPost, "/api/v1/sessions/"+code+"/join", nil)
		if rec.Code != http.StatusGone {
			t.Errorf("expected status %d, got %d", http.StatusGone, rec.Code)
		}
	})
}

func TestPostMessageEndpoint(t *testing.T) {
	t.Run("member posts and queues responder work", func(t *testing.T) {
		env := newTestEnv(t)
		code := env.createSession(t, owner)

		body := map[string]string{"content": "what is a closure?"}
		rec := env.do(t, owner, http.MethodPost, "/api/v1/sessions/"+code+"/messages", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
		}
		data := decodeEnvelope(t, rec)["data"].(map[string]any)
		if data["content"] != "what is a closure?" {
			t.Errorf("unexpected content: %v", data["content"])
		}
		if len(env.queue.entries) != 1 {
			t.Fatalf("expected 1 queued entry, got %d", len(env.queue.entries))
		}
		if env.queue.entries[0].Status != domain.QueuePending {
			t.Errorf("expected pending entry, got %s", env.queue.entries[0].Status)
		}
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		code := env.createSession(t, owner)

		rec := env.do(t, owner, http.MethodPost, "/api/v1/sessions/"+code+"/messages", map[string]string{"content": ""})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("non-member is forbidden", func(t *testing.T) {
		env := newTestEnv(t)
		code := env.createSession(t, owner)
		outsider := security.Identity{UserID: "outsider", DisplayName: "Eve"}

		rec := env.do(t, outsider, http.MethodPost, "/api/v1/sessions/"+code+"/messages", map[string]string{"content": "hi"})
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected status %d, got %d", http.StatusForbidden, rec.Code)
		}
	})

	t.Run("ended session is gone", func(t *testing.T) {
		env := newTestEnv(t)
		code := env.createSession(t, owner)
		env.do(t, owner, http.MethodPost, "/api/v1/sessions/"+code+"/end", nil)

		rec := env.do(t, owner, http.MethodPost, "/api/v1/sessions/"+code+"/messages", map[string]string{"content": "hi"})
		if rec.Code != http.StatusGone {
			t.Errorf("expected status %d, got %d", http.StatusGone, rec.Code)
		}
	})
}

// Helper to make JSON request
func makeJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}
