package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/baron-png/quality-core/internal/domain"
	"github.com/baron-png/quality-core/internal/port/collaborator"
)

func TestRegister(t *testing.T) {
	var gotReq collaborator.RegisterRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/register" {
			t.Errorf("path = %q, want /register", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"user":{"id":"user-77","email":"head@acme.edu"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, nil)
	got, err := c.Register(context.Background(), collaborator.RegisterRequest{
		Email:     "head@acme.edu",
		FirstName: "Dana",
		LastName:  "Reed",
		TenantID:  "t1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got.ID != "user-77" {
		t.Errorf("id = %q, want user-77", got.ID)
	}
	if gotReq.Email != "head@acme.edu" || gotReq.TenantID != "t1" {
		t.Errorf("request payload = %+v", gotReq)
	}
}

func TestRegisterConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, nil)
	_, err := c.Register(context.Background(), collaborator.RegisterRequest{Email: "dupe@acme.edu"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestRegisterMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, nil)
	_, err := c.Register(context.Background(), collaborator.RegisterRequest{Email: "x@acme.edu"})
	if err == nil {
		t.Fatal("expected error for missing user id")
	}
}
