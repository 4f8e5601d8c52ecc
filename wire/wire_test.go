package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mark3labs/botapigen/bind"
	"github.com/mark3labs/botapigen/resolve"
	"github.com/mark3labs/botapigen/schema"
)

const testDoc = `
types:
  User:
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
      - {name: chat, type: Chat, required: true}
      - {name: from, type: User}
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
  BotCommand:
    fields:
      - {name: command, type: String, required: true}
      - {name: description, type: String, required: true}
  Animal:
    fields:
      - {name: name, type: String, required: true}
  Person:
    fields:
      - {name: name, type: String, required: true}
      - {name: age, type: Integer}
  AnimalFirst:
    oneof: [Animal, Person]
  PersonFirst:
    oneof: [Person, Animal]
methods:
  getMe:
    returns: User
  getUsers:
    returns: Array of User
  classify:
    returns: AnimalFirst
  classifyReversed:
    returns: PersonFirst
  setMyCommands:
    params:
      - {name: commands, type: Array of BotCommand, required: true}
    returns: Boolean
  sendMessage:
    params:
      - {name: chat_id, type: Integer, required: true}
      - {name: text, type: String, required: true}
      - {name: reply_markup, type: ReplyMarkup}
    returns: Message
  sendPhoto:
    params:
      - {name: chat_id, type: Integer, required: true}
      - {name: photo, type: File or String, required: true}
      - {name: caption, type: String}
      - {name: reply_markup, type: ReplyMarkup}
    returns: Message
`

func testBindings(t *testing.T) *bind.Bindings {
	t.Helper()
	store, err := schema.Parse([]byte(testDoc), "inline")
	require.NoError(t, err)
	graph, err := resolve.Resolve(store)
	require.NoError(t, err)
	b, err := bind.Generate(graph)
	require.NoError(t, err)
	return b
}

func testNode(t *testing.T, b *bind.Bindings, name string) *resolve.Node {
	t.Helper()
	gt := b.Type(name)
	require.NotNil(t, gt, "type %s", name)
	return gt.Node
}
