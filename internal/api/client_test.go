package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func staticToken(token string) TokenSource {
	return TokenFunc(func() (string, bool) { return token, token != "" })
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   []byte
}

// newTestClient spins up an httptest server whose every request is recorded
// and answered by handler, and returns a Client pointed at it.
func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, 0)
		if r.Body != nil {
			buf := make([]byte, 4096)
			n, _ := r.Body.Read(buf)
			body = buf[:n]
		}
		requests = append(requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
			Body:   body,
		})
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return New(server.URL, staticToken("tok-1"), 2*time.Second, nil), &requests
}

func respondJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestClientAttachesBearerToken(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, `[]`)
	})
	if _, err := client.Conversations(context.Background()); err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if len(*requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*requests))
	}
	if got := (*requests)[0].Auth; got != "Bearer tok-1" {
		t.Fatalf("Authorization = %q", got)
	}
}

func TestClientFailsFastWithoutCredential(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := New(server.URL, staticToken(""), 2*time.Second, nil)
	_, err := client.Conversations(context.Background())
	if KindOf(err) != KindAuth {
		t.Fatalf("expected an auth error, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatal("missing credentials must not reach the network")
	}
}

func TestClientClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		kind   Kind
	}{
		{401, KindAuth},
		{403, KindPermission},
		{500, KindServer},
		{503, KindServer},
		{404, KindGeneric},
		{422, KindGeneric},
	}
	for _, tc := range cases {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, tc.status, `{"detail":"nope"}`)
		})
		_, err := client.Conversations(context.Background())
		if err == nil {
			t.Fatalf("status %d: expected an error", tc.status)
		}
		if got := KindOf(err); got != tc.kind {
			t.Errorf("status %d classified as %s, want %s", tc.status, got, tc.kind)
		}
		var apiErr *Error
		if !errors.As(err, &apiErr) || apiErr.StatusCode != tc.status {
			t.Errorf("status %d: lost status code in %v", tc.status, err)
		}
	}
}

func TestClientSurfacesBackendDetail(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusForbidden, `{"detail":"You must be enrolled in this course"}`)
	})
	_, err := client.SendMessage(context.Background(), 9, "hi", 4)
	if Reason(err) != "You must be enrolled in this course" {
		t.Fatalf("detail not surfaced: %v", err)
	}
}

func TestSendMessageBody(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusCreated, `{"id":101,"content":"hi"}`)
	})
	created, err := client.SendMessage(context.Background(), 9, "hi", 4)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if created.ID != 101 {
		t.Fatalf("created id = %d", created.ID)
	}

	req := (*requests)[0]
	if req.Method != http.MethodPost || req.Path != "/messages/send/" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
	var body map[string]any
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body["receiver_id"] != float64(9) || body["content"] != "hi" || body["course_id_write"] != float64(4) {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestConversationPaginationQuery(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, `{"next":null,"results":[]}`)
	})

	if _, err := client.Conversation(context.Background(), 1, 2, 1); err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if _, err := client.Conversation(context.Background(), 1, 2, 3); err != nil {
		t.Fatalf("page 3: %v", err)
	}

	first := (*requests)[0]
	if first.Path != "/messages/conversation/" {
		t.Fatalf("path = %q", first.Path)
	}
	if first.Query != "user1=1&user2=2" {
		t.Fatalf("page 1 query = %q, page param must be omitted", first.Query)
	}
	if second := (*requests)[1]; second.Query != "page=3&user1=1&user2=2" {
		t.Fatalf("page 3 query = %q", second.Query)
	}
}

func TestTypingStatusQuery(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, `{"is_typing":true}`)
	})
	status, err := client.TypingStatus(context.Background(), 7)
	if err != nil {
		t.Fatalf("TypingStatus: %v", err)
	}
	if !status.IsTyping {
		t.Fatal("expected is_typing true")
	}
	req := (*requests)[0]
	if req.Path != "/messages/typing/status/" || req.Query != "receiver_id=7" {
		t.Fatalf("unexpected request %s?%s", req.Path, req.Query)
	}
}

func TestMarkMessageReadUsesPatch(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if err := client.MarkMessageRead(context.Background(), 55); err != nil {
		t.Fatalf("MarkMessageRead: %v", err)
	}
	req := (*requests)[0]
	if req.Method != http.MethodPatch || req.Path != "/messages/55/read/" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
}
