package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"loveoracle/app/config"
	"loveoracle/app/service/conversation"
	"loveoracle/app/service/instruction"
	"loveoracle/app/service/memory"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDialogues struct{}

func (stubDialogues) Open(_ context.Context, _ string) (conversation.Dialogue, error) {
	return stubDialogue{}, nil
}

type stubDialogue struct{}

func (stubDialogue) Send(_ context.Context, _ string) (string, error) {
	return "Lời giải B", nil
}

func (stubDialogue) SendImage(_ context.Context, _ string, _ []byte, _ string) (string, error) {
	return "Lời giải A", nil
}

func newTestServer(t *testing.T) *Service {
	memorySvc, err := memory.New(nil)
	require.NoError(t, err)

	composer, err := instruction.New(nil)
	require.NoError(t, err)

	s := &Service{
		cfg: &config.Config{
			Server: config.Server{TeacherPassword: "ADMIN"},
		},
		conversationSvc: conversation.NewService(stubDialogues{}, memorySvc, composer),
		memorySvc:       memorySvc,
	}

	s.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	s.registerRoutes()

	return s
}

func startSessionRequest(t *testing.T, fields map[string]string, withImage bool) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}

	if withImage {
		part, err := writer.CreateFormFile("image", "que.jpg")
		require.NoError(t, err)
		_, err = part.Write([]byte{0xff, 0xd8, 0xff})
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/session", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	return req
}

func decodeSession(t *testing.T, resp *http.Response) sessionResponse {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var result sessionResponse
	require.NoError(t, json.Unmarshal(data, &result))

	return result
}

func TestServer_StartSession(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(startSessionRequest(t, map[string]string{
		"name":       "Hoa",
		"birth_year": "1998",
		"gender":     "Nữ",
	}, true), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeSession(t, resp)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, "active", result.State)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, "Lời giải A", result.Messages[0].Text)
}

func TestServer_StartSession_MissingField(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(startSessionRequest(t, map[string]string{
		"name":   "Hoa",
		"gender": "Nữ",
	}, true), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestServer_StartSession_MissingImage(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(startSessionRequest(t, map[string]string{
		"name":       "Hoa",
		"birth_year": "1998",
		"gender":     "Nữ",
	}, false), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestServer_UserMessage(t *testing.T) {
	s := newTestServer(t)
	startSession(t, s)

	resp, err := s.app.Test(jsonRequest(http.MethodPost, "/api/session/message", `{"text":"Hỏi thêm"}`), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeSession(t, resp)
	require.Len(t, result.Messages, 2)
	assert.Equal(t, "Hỏi thêm", result.Messages[0].Text)
	assert.Equal(t, "Lời giải B", result.Messages[1].Text)
}

func TestServer_UserMessage_WithoutSession(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(jsonRequest(http.MethodPost, "/api/session/message", `{"text":"Hỏi thêm"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_TeacherRoutesRequirePassword(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(jsonRequest(http.MethodPut, "/api/teacher/ai", `{"enabled":false}`), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_TeacherLogin(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(jsonRequest(http.MethodPost, "/api/teacher/login", `{"password":"ADMIN"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = s.app.Test(jsonRequest(http.MethodPost, "/api/teacher/login", `{"password":"wrong"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_TeacherTakeover(t *testing.T) {
	s := newTestServer(t)
	startSession(t, s)

	// teacher turns the AI off
	req := jsonRequest(http.MethodPut, "/api/teacher/ai", `{"enabled":false}`)
	req.Header.Set(teacherPasswordHeader, "ADMIN")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// the user's question is accepted but left pending
	resp, err = s.app.Test(jsonRequest(http.MethodPost, "/api/session/message", `{"text":"Hỏi thêm"}`), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeSession(t, resp)
	require.Len(t, result.Messages, 1)
	assert.True(t, result.AwaitingOperator)

	// the teacher answers in the AI's place
	req = jsonRequest(http.MethodPost, "/api/teacher/message", `{"text":"Trả lời trực tiếp"}`)
	req.Header.Set(teacherPasswordHeader, "ADMIN")
	resp, err = s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result = decodeSession(t, resp)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, memory.SenderOperator, result.Messages[0].Sender)
}

func TestServer_EndSessionAndClearMemory(t *testing.T) {
	s := newTestServer(t)
	startSession(t, s)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodPost, "/api/session/end", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, s.memorySvc.Len())

	req := httptest.NewRequest(http.MethodDelete, "/api/teacher/memory", nil)
	req.Header.Set(teacherPasswordHeader, "ADMIN")
	resp, err = s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, s.memorySvc.Len())
}

func startSession(t *testing.T, s *Service) {
	resp, err := s.app.Test(startSessionRequest(t, map[string]string{
		"name":       "Hoa",
		"birth_year": "1998",
		"gender":     "Nữ",
	}, true), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
