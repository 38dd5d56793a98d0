package notification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestTelegramChannel_SendsFormEncodedMessage(t *testing.T) {
	t.Parallel()

	var gotPath, gotChatID, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotChatID = r.PostFormValue("chat_id")
		gotText = r.PostFormValue("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	channel := NewTelegramChannel("test-token", srv.URL, zap.NewNop())

	if err := channel.Send(context.Background(), "555123", "hello there"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/bottest-token/sendMessage" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotChatID != "555123" {
		t.Errorf("expected chat_id 555123, got %q", gotChatID)
	}
	if gotText != "hello there" {
		t.Errorf("expected message text, got %q", gotText)
	}
}

func TestTelegramChannel_NonOKStatusIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	channel := NewTelegramChannel("test-token", srv.URL, zap.NewNop())

	if err := channel.Send(context.Background(), "555123", "hello"); err == nil {
		t.Fatal("expected error on 400 response")
	}
}
