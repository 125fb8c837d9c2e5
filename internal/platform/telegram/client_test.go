package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendMessage(t *testing.T) {
	var got sendMessageReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botsecret/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	c := NewClient("secret")
	c.BaseURL = srv.URL

	require.NoError(t, c.SendMessage(context.Background(), 42, "new analysis"))
	assert.Equal(t, int64(42), got.ChatID)
	assert.Equal(t, "new analysis", got.Text)
}

func TestClient_SendDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botsecret/sendDocument", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "42", r.FormValue("chat_id"))

		file, header, err := r.FormFile("document")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "analysis_1.pdf", header.Filename)
		assert.Equal(t, "%PDF", string(data))
	}))
	defer srv.Close()

	c := NewClient("secret")
	c.BaseURL = srv.URL

	assert.NoError(t, c.SendDocument(context.Background(), 42, []byte("%PDF"), "analysis_1.pdf"))
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	c := NewClient("secret")
	c.BaseURL = srv.URL

	err := c.SendMessage(context.Background(), 1, "hi")
	assert.ErrorContains(t, err, "chat not found")
}
