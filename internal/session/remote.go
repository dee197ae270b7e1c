package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"minibot/internal/domain"
)

const remoteTimeout = 30 * time.Second

// RemoteStore proxies session persistence to a personalization service.
// Besides storing conversation turns it can answer questions about the user
// behind a session, which the loop uses for context pre-fetch and the
// query_user_context tool.
type RemoteStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]*domain.Session
}

func NewRemoteStore(baseURL, apiKey string, logger *slog.Logger) *RemoteStore {
	return &RemoteStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: remoteTimeout},
		logger:  logger,
		cache:   make(map[string]*domain.Session),
	}
}

// Healthy probes the service so Select can fall back before any turn runs.
func (r *RemoteStore) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	r.auth(req)
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("personalization service not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("personalization service returned %d", resp.StatusCode)
	}
	return nil
}

type remoteTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type remoteSession struct {
	Key       string       `json:"key"`
	Turns     []remoteTurn `json:"turns"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// GetOrCreate fetches the remote session, creating it on first reference.
// Turns arrive in whatever order the service stored them; they are sorted
// chronologically before use so replays never see interleaved history.
func (r *RemoteStore) GetOrCreate(ctx context.Context, key string) (*domain.Session, error) {
	r.mu.Lock()
	if sess, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return sess, nil
	}
	r.mu.Unlock()

	var remote remoteSession
	err := r.post(ctx, "/v1/sessions/get_or_create", map[string]string{"key": key}, &remote)
	if err != nil {
		return nil, err
	}

	sess := &domain.Session{Key: key, CreatedAt: remote.CreatedAt, UpdatedAt: remote.UpdatedAt}
	for _, t := range remote.Turns {
		sess.Turns = append(sess.Turns, domain.Turn(t))
	}
	sortTurns(sess.Turns)
	sess.Persisted = len(sess.Turns)

	r.mu.Lock()
	r.cache[key] = sess
	r.mu.Unlock()
	return sess, nil
}

// Save pushes unpersisted turns to the service. On failure the turns stay
// unsynced and the next Save retries them.
func (r *RemoteStore) Save(ctx context.Context, sess *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess.Persisted > len(sess.Turns) {
		if err := r.post(ctx, "/v1/sessions/"+url.PathEscape(sess.Key)+"/clear", nil, nil); err != nil {
			return fmt.Errorf("clear remote session %s: %w", sess.Key, err)
		}
		sess.Persisted = 0
	}

	pending := sess.Turns[sess.Persisted:]
	if len(pending) == 0 {
		return nil
	}

	payload := make([]remoteTurn, 0, len(pending))
	for _, t := range pending {
		payload = append(payload, remoteTurn(t))
	}
	if err := r.post(ctx, "/v1/sessions/"+url.PathEscape(sess.Key)+"/messages", payload, nil); err != nil {
		return fmt.Errorf("sync %d turns for %s: %w", len(pending), sess.Key, err)
	}
	sess.Persisted = len(sess.Turns)
	r.cache[sess.Key] = sess
	return nil
}

// Delete drops the local cache entry only. Remote history is retained by
// the service for user modeling.
func (r *RemoteStore) Delete(ctx context.Context, key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache[key]; ok {
		delete(r.cache, key)
		return true
	}
	return false
}

func (r *RemoteStore) Close() error { return nil }

// PrefetchContext asks the service for a context snapshot relevant to the
// incoming message, in a single call.
func (r *RemoteStore) PrefetchContext(ctx context.Context, key, message string) (string, error) {
	var out struct {
		Context string `json:"context"`
	}
	err := r.post(ctx, "/v1/context/prefetch", map[string]string{"key": key, "message": message}, &out)
	if err != nil {
		return "", err
	}
	return out.Context, nil
}

// UserContext answers a free-form question about the user behind a session.
func (r *RemoteStore) UserContext(ctx context.Context, key, query string) (string, error) {
	var out struct {
		Answer string `json:"answer"`
	}
	err := r.post(ctx, "/v1/context/query", map[string]string{"key": key, "query": query}, &out)
	if err != nil {
		return "", err
	}
	return out.Answer, nil
}

func (r *RemoteStore) auth(req *http.Request) {
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
}

func (r *RemoteStore) post(ctx context.Context, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, buf)
	if err != nil {
		return err
	}
	r.auth(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("personalization request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("personalization service %s returned %d: %s", path, resp.StatusCode, data)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// sortTurns orders turns chronologically, oldest first (stable so equal
// timestamps keep arrival order).
func sortTurns(turns []domain.Turn) {
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].Timestamp.Before(turns[j].Timestamp)
	})
}
