package emailer

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendgridApiMailSend(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewSendgridApiMail("key", "Cogniloop", "noreply@example.com")
	m.host = srv.URL
	attachments := []Attachment{{Name: "notes.txt", Data: []byte("hello")}}
	require.NoError(t, m.Send("", "alice@example.com", "Reset", "<p>hi</p>", attachments))

	personalizations := got["personalizations"].([]interface{})
	first := personalizations[0].(map[string]interface{})
	assert.Equal(t, "Reset", first["subject"])
	assert.Equal(t, "noreply@example.com", got["from"].(map[string]interface{})["email"])

	atts := got["attachments"].([]interface{})
	require.Len(t, atts, 1)
	att := atts[0].(map[string]interface{})
	assert.Equal(t, "notes.txt", att["filename"])
	assert.Equal(t, "text/plain", att["type"])
	assert.Equal(t, "aGVsbG8=", att["content"])
}

func TestSendgridApiMailRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	m := NewSendgridApiMail("bad", "Cogniloop", "noreply@example.com")
	m.host = srv.URL
	assert.Error(t, m.Send("", "alice@example.com", "Reset", "<p>hi</p>", nil))
}
