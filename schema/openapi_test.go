package schema

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

const sampleOpenAPI = `
openapi: 3.0.0
info:
  title: Bot API
  version: "7.0"
paths:
  /getMe:
    post:
      summary: Basic information about the bot.
      responses:
        "200":
          description: OK
          content:
            application/json:
              schema:
                type: object
                properties:
                  ok:
                    type: boolean
                  result:
                    $ref: '#/components/schemas/User'
  /sendPhoto:
    post:
      requestBody:
        content:
          multipart/form-data:
            schema:
              type: object
              required: [chat_id, photo]
              properties:
                chat_id:
                  type: integer
                photo:
                  type: string
                  format: binary
                caption:
                  type: string
      responses:
        "200":
          description: OK
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Message'
components:
  schemas:
    User:
      type: object
      required: [id, is_bot]
      properties:
        id:
          type: integer
        is_bot:
          type: boolean
        username:
          type: string
    Message:
      type: object
      required: [message_id]
      properties:
        message_id:
          type: integer
        from:
          $ref: '#/components/schemas/User'
        entities:
          type: array
          items:
            type: string
    ReplyMarkup:
      oneOf:
        - $ref: '#/components/schemas/User'
        - $ref: '#/components/schemas/Message'
`

func loadOpenAPI(t *testing.T, text string) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(text))
	if err != nil {
		t.Fatalf("load openapi: %v", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("validate openapi: %v", err)
	}
	return doc
}

func TestBuildStoreFromOpenAPI(t *testing.T) {
	store, err := BuildStoreFromOpenAPI(loadOpenAPI(t, sampleOpenAPI))
	if err != nil {
		t.Fatalf("BuildStoreFromOpenAPI: %v", err)
	}

	if store.Version != "7.0" {
		t.Fatalf("version: got %q", store.Version)
	}

	user := store.Type("User")
	if user == nil {
		t.Fatal("type User missing")
	}
	byName := map[string]FieldSpec{}
	for _, f := range user.Fields {
		byName[f.Name] = f
	}
	if !byName["id"].Required || !byName["is_bot"].Required || byName["username"].Required {
		t.Fatalf("User required flags wrong: %+v", user.Fields)
	}

	msg := store.Type("Message")
	if msg == nil {
		t.Fatal("type Message missing")
	}
	var from FieldSpec
	for _, f := range msg.Fields {
		if f.Name == "from" {
			from = f
		}
	}
	if from.Type.Kind != KindRef || from.Type.Ref != "User" {
		t.Fatalf("Message.from: %+v", from.Type)
	}

	markup := store.Type("ReplyMarkup")
	if markup == nil || len(markup.Variants) != 2 || markup.Variants[0] != "User" {
		t.Fatalf("ReplyMarkup: %+v", markup)
	}
}

func TestOpenAPIMethodsAndAttachments(t *testing.T) {
	store, err := BuildStoreFromOpenAPI(loadOpenAPI(t, sampleOpenAPI))
	if err != nil {
		t.Fatalf("BuildStoreFromOpenAPI: %v", err)
	}

	getMe := store.Method("getMe")
	if getMe == nil {
		t.Fatal("getMe missing")
	}
	// Envelope-shaped response schemas unwrap to the result payload.
	if getMe.Returns.Kind != KindRef || getMe.Returns.Ref != "User" {
		t.Fatalf("getMe returns: %+v", getMe.Returns)
	}
	if getMe.HasAttachment {
		t.Fatal("getMe must not be attachment-capable")
	}

	sendPhoto := store.Method("sendPhoto")
	if sendPhoto == nil {
		t.Fatal("sendPhoto missing")
	}
	if !sendPhoto.HasAttachment {
		t.Fatal("sendPhoto must be attachment-capable")
	}
	if len(sendPhoto.Params) != 3 {
		t.Fatalf("sendPhoto params: %+v", sendPhoto.Params)
	}
	var photo FieldSpec
	for _, p := range sendPhoto.Params {
		if p.Name == "photo" {
			photo = p
		}
	}
	if photo.Type.Kind != KindPrimitive || photo.Type.Prim != File || !photo.Required {
		t.Fatalf("sendPhoto photo param: %+v", photo)
	}
}

func TestBuildStoreFromOpenAPINilDocument(t *testing.T) {
	if _, err := BuildStoreFromOpenAPI(nil); err == nil {
		t.Fatal("expected error for nil document")
	}
}
