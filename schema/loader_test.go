package schema

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleDoc = `
version: "7.0"
types:
  User:
    description: A bot or user account.
    fields:
      - {name: id, type: Integer, required: true}
      - {name: is_bot, type: Boolean, required: true}
      - {name: username, type: String}
  Chat:
    fields:
      - {name: id, type: Integer, required: true}
      - {name: type, type: String, required: true}
  Message:
    fields:
      - {name: message_id, type: Integer, required: true}
      - {name: from, type: User}
      - {name: chat, type: Chat, required: true}
      - {name: text, type: String}
      - {name: reply_to_message, type: Message}
  InlineKeyboardMarkup:
    fields:
      - {name: inline_keyboard, type: Array of Array of String, required: true}
  ForceReply:
    fields:
      - {name: force_reply, type: Boolean, required: true}
  ReplyMarkup:
    oneof: [InlineKeyboardMarkup, ForceReply]
methods:
  getMe:
    description: Basic information about the bot.
    returns: User
  sendMessage:
    params:
      - {name: chat_id, type: Integer, required: true}
      - {name: text, type: String, required: true}
      - {name: reply_markup, type: ReplyMarkup}
    returns: Message
  sendPhoto:
    params:
      - {name: chat_id, type: Integer, required: true}
      - {name: photo, type: File, required: true}
      - {name: caption, type: String}
    returns: Message
`

func TestParseDocument(t *testing.T) {
	store, err := Parse([]byte(sampleDoc), "inline")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if store.Version != "7.0" {
		t.Fatalf("version: got %q", store.Version)
	}
	if len(store.TypeNames) != 6 || len(store.MethodNames) != 3 {
		t.Fatalf("got %d types, %d methods", len(store.TypeNames), len(store.MethodNames))
	}

	user := store.Type("User")
	if user == nil {
		t.Fatal("type User missing")
	}
	if len(user.Fields) != 3 || !user.Fields[0].Required || user.Fields[2].Required {
		t.Fatalf("User fields: %+v", user.Fields)
	}

	markup := store.Type("ReplyMarkup")
	if markup == nil || len(markup.Variants) != 2 || markup.Variants[0] != "InlineKeyboardMarkup" {
		t.Fatalf("ReplyMarkup: %+v", markup)
	}

	if store.Method("sendMessage").HasAttachment {
		t.Fatal("sendMessage must not be attachment-capable")
	}
	if !store.Method("sendPhoto").HasAttachment {
		t.Fatal("sendPhoto must be attachment-capable")
	}
}

func TestParseSortsNames(t *testing.T) {
	store, err := Parse([]byte(sampleDoc), "inline")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for i := 1; i < len(store.TypeNames); i++ {
		if store.TypeNames[i-1] >= store.TypeNames[i] {
			t.Fatalf("type names not sorted: %v", store.TypeNames)
		}
	}
	for i := 1; i < len(store.MethodNames); i++ {
		if store.MethodNames[i-1] >= store.MethodNames[i] {
			t.Fatalf("method names not sorted: %v", store.MethodNames)
		}
	}
}

func TestParseRejectsDuplicateField(t *testing.T) {
	doc := `
types:
  User:
    fields:
      - {name: id, type: Integer, required: true}
      - {name: id, type: String}
`
	_, err := Parse([]byte(doc), "inline")
	var se *SchemaError
	if !errors.As(err, &se) || se.Code != ValidationError {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(se.Message, `field "id" twice`) {
		t.Fatalf("unexpected message: %s", se.Message)
	}
}

func TestParseRejectsFieldsAndOneof(t *testing.T) {
	doc := `
types:
  Markup:
    oneof: [A, B]
    fields:
      - {name: x, type: Integer}
`
	_, err := Parse([]byte(doc), "inline")
	var se *SchemaError
	if !errors.As(err, &se) || se.Code != ValidationError {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseRejectsEmptyDocument(t *testing.T) {
	_, err := Parse([]byte("version: \"1\"\n"), "inline")
	var se *SchemaError
	if !errors.As(err, &se) || se.Code != ValidationError {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseRejectsMethodWithoutReturns(t *testing.T) {
	doc := `
methods:
  getMe:
    params:
      - {name: x, type: Integer}
`
	_, err := Parse([]byte(doc), "inline")
	var se *SchemaError
	if !errors.As(err, &se) || se.Code != ValidationError {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseRejectsBadName(t *testing.T) {
	doc := `
types:
  "1Bad":
    fields:
      - {name: x, type: Integer}
`
	_, err := Parse([]byte(doc), "inline")
	var se *SchemaError
	if !errors.As(err, &se) || se.Code != ValidationError {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	if err := os.WriteFile(path, []byte(sampleDoc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if store.Method("getMe") == nil {
		t.Fatal("getMe missing after Load")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	var se *SchemaError
	if !errors.As(err, &se) || se.Code != InputError {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestLoadFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleDoc))
	}))
	defer srv.Close()

	store, err := Load(context.Background(), srv.URL+"/schema.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if store.Type("Message") == nil {
		t.Fatal("Message missing after Load")
	}
}

func TestLoadRetriesTransientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(sampleDoc))
	}))
	defer srv.Close()

	_, err := Load(context.Background(), srv.URL,
		WithMaxRetries(3), WithBackoffBase(time.Millisecond))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestLoadRejectsUnsupportedScheme(t *testing.T) {
	_, err := Load(context.Background(), "ftp://example.com/schema.yaml")
	var se *SchemaError
	if !errors.As(err, &se) || se.Code != InputError {
		t.Fatalf("expected input error, got %v", err)
	}
}
