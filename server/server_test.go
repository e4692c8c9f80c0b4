package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService echoes the message back and records the session it saw.
type stubService struct {
	lastSession string
	err         error
}

func (s *stubService) Run(ctx context.Context, userID, sessionID, message string) (string, error) {
	s.lastSession = sessionID
	if s.err != nil {
		return "", s.err
	}
	return "echo: " + message, nil
}

func performRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestChatEndpoint(t *testing.T) {
	service := &stubService{}
	router := New(service, nil).Router(nil, false)

	recorder := performRequest(router, http.MethodPost, "/api/v1/chat",
		`{"user_id": "farmer123", "session_id": "s1", "message": "how is my wheat?"}`)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response chatResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "echo: how is my wheat?", response.Response)
	assert.Equal(t, "s1", response.SessionID)
}

func TestChatMintsSessionID(t *testing.T) {
	service := &stubService{}
	router := New(service, nil).Router(nil, false)

	recorder := performRequest(router, http.MethodPost, "/api/v1/chat",
		`{"user_id": "farmer123", "message": "hello"}`)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response chatResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.NotEmpty(t, response.SessionID)
	assert.Equal(t, service.lastSession, response.SessionID)
}

func TestChatValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing message", `{"user_id": "farmer123"}`},
		{"missing user_id", `{"message": "hello"}`},
		{"malformed json", `{"user_id": `},
		{"empty body", ""},
	}

	router := New(&stubService{}, nil).Router(nil, false)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := performRequest(router, http.MethodPost, "/api/v1/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Contains(t, recorder.Body.String(), "error")
		})
	}
}

func TestChatServiceFailure(t *testing.T) {
	service := &stubService{err: errors.New("graph exploded")}
	router := New(service, nil).Router(nil, false)

	recorder := performRequest(router, http.MethodPost, "/api/v1/chat",
		`{"user_id": "farmer123", "message": "hello"}`)

	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "failed to process message")
	// Internal details never leak to the client.
	assert.NotContains(t, recorder.Body.String(), "graph exploded")
}

func TestHealthAndRoot(t *testing.T) {
	router := New(&stubService{}, nil).Router(nil, false)

	recorder := performRequest(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status": "ok"}`, recorder.Body.String())

	recorder = performRequest(router, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Crop/Farmer Chatbot API")
}
