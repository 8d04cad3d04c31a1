package judge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		content string
		want    bool
		wantErr error
	}{
		{"true", true, nil},
		{"false", false, nil},
		{"True", true, nil},
		{"FALSE", false, nil},
		{"yes", true, nil},
		{"no", false, nil},
		{"true.", true, nil},
		{" true\n", true, nil},
		{"true, the note is thorough", true, nil},
		{"maybe", false, ErrNoVerdict},
		{"", false, ErrNoVerdict},
		{"the answer is true", false, ErrNoVerdict},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			got, err := parseVerdict(tt.content)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("parseVerdict(%q) error = %v, want %v", tt.content, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("parseVerdict(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func chatReply(content string) string {
	return `{"choices":[{"message":{"content":` + mustJSON(content) + `}}]}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestClient_Judge(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatReply("true")))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key", "test-model", 0)
	verdict, err := c.Judge(context.Background(), "Is this helpful?", "a helpful note")
	if err != nil {
		t.Fatalf("Judge() error = %v", err)
	}
	if !verdict {
		t.Error("Judge() = false, want true")
	}

	if gotAuth != "Bearer secret-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("roles = %q, %q", gotReq.Messages[0].Role, gotReq.Messages[1].Role)
	}
	if gotReq.Messages[1].Content != "a helpful note" {
		t.Errorf("user content = %q", gotReq.Messages[1].Content)
	}
}

func TestClient_JudgeNoAuthHeaderWithoutKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(chatReply("false")))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "m", 0)
	verdict, err := c.Judge(context.Background(), "p", "t")
	if err != nil {
		t.Fatalf("Judge() error = %v", err)
	}
	if verdict {
		t.Error("Judge() = true, want false")
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}

func TestClient_JudgeErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr: ErrUnavailable,
		},
		{
			name: "unparseable body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
			wantErr: ErrUnavailable,
		},
		{
			name: "empty choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices":[]}`))
			},
			wantErr: ErrNoVerdict,
		},
		{
			name: "non-verdict reply",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(chatReply("it depends")))
			},
			wantErr: ErrNoVerdict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, "", "m", 0)
			_, err := c.Judge(context.Background(), "p", "t")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Judge() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_JudgeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnect, then
		// hold the response until the client's timeout fires.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "m", 50*time.Millisecond)
	_, err := c.Judge(context.Background(), "p", "t")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Judge() error = %v, want ErrUnavailable", err)
	}
}

func TestStub(t *testing.T) {
	s := &Stub{Markers: []string{"Helpful", "thorough"}}

	tests := []struct {
		text string
		want bool
	}{
		{"a helpful note", true},
		{"a HELPFUL note", true},
		{"quite thorough indeed", true},
		{"nothing of note", false},
	}
	for _, tt := range tests {
		got, err := s.Judge(context.Background(), "p", tt.text)
		if err != nil {
			t.Fatalf("Judge(%q) error = %v", tt.text, err)
		}
		if got != tt.want {
			t.Errorf("Judge(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}

	if n := len(s.Calls()); n != len(tests) {
		t.Errorf("Calls() = %d, want %d", n, len(tests))
	}

	failing := &Stub{Err: ErrUnavailable}
	if _, err := failing.Judge(context.Background(), "p", "t"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("failing stub error = %v, want ErrUnavailable", err)
	}
}

func TestFunc(t *testing.T) {
	f := Func(func(ctx context.Context, prompt, text string) (bool, error) {
		return text == "yes", nil
	})
	got, err := f.Judge(context.Background(), "p", "yes")
	if err != nil || !got {
		t.Errorf("Func.Judge() = %v, %v", got, err)
	}
}
