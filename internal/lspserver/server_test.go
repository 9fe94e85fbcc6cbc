package lspserver

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	s := NewServer(bytes.NewReader(nil), &out, &bytes.Buffer{})
	return s, &out
}

func readFramedMessages(t *testing.T, buf *bytes.Buffer) []rpcMessage {
	t.Helper()
	r := NewTransport(bytes.NewReader(buf.Bytes()), &bytes.Buffer{})
	var msgs []rpcMessage
	for {
		msg, err := r.ReadMessage()
		if err != nil {
			break
		}
		msgs = append(msgs, *msg)
	}
	return msgs
}

func TestDidOpenPublishesDiagnostics(t *testing.T) {
	s, out := newTestServer(t)

	params, err := json.Marshal(map[string]interface{}{
		"textDocument": map[string]interface{}{
			"uri":  "file:///scripts/entity/tactical/actor.nut",
			"text": "local x = undeclaredThing;",
		},
	})
	require.NoError(t, err)

	s.handleDidOpen(&rpcMessage{Method: "textDocument/didOpen", Params: params})

	msgs := readFramedMessages(t, out)
	require.Len(t, msgs, 1)
	assert.Equal(t, "textDocument/publishDiagnostics", msgs[0].Method)
}

func TestFormattingReturnsEdit(t *testing.T) {
	s, out := newTestServer(t)
	uri := "file:///scripts/x.nut"
	s.docs.open(uri, "local x=1;")

	idParam := json.RawMessage(`1`)
	params, err := json.Marshal(map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": uri},
	})
	require.NoError(t, err)

	s.handleFormatting(&rpcMessage{ID: idParam, Params: params})

	msgs := readFramedMessages(t, out)
	require.Len(t, msgs, 1)
	assert.Nil(t, msgs[0].Error)
}

func TestDefinitionThroughInheritString(t *testing.T) {
	s, out := newTestServer(t)
	require.NoError(t, s.ws.IndexFile("/scripts/entity/tactical/base.nut", `base <- {};`))

	uri := "file:///scripts/entity/tactical/actor.nut"
	text := `this.actor <- this.inherit("scripts/entity/tactical/base", {});`
	s.docs.open(uri, text)

	idParam := json.RawMessage(`2`)
	params, err := json.Marshal(map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": uri},
		"position":     lspPosition{Line: 0, Character: 29},
	})
	require.NoError(t, err)

	s.handleDefinition(&rpcMessage{ID: idParam, Params: params})

	msgs := readFramedMessages(t, out)
	require.Len(t, msgs, 1)
	assert.Nil(t, msgs[0].Error)
}
