package server

import (
	"errors"
	"io"

	"loveoracle/app/service/conversation"
	"loveoracle/app/service/memory"

	"github.com/gofiber/fiber/v2"
)

type sessionResponse struct {
	SessionID        string           `json:"session_id,omitempty"`
	State            string           `json:"state"`
	Messages         []memory.Message `json:"messages"`
	AIEnabled        bool             `json:"ai_enabled"`
	AwaitingOperator bool             `json:"awaiting_operator,omitempty"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type loginRequest struct {
	Password string `json:"password"`
}

type overlaysRequest struct {
	PromptInstruction string `json:"prompt_instruction"`
	KnowledgeBase     string `json:"knowledge_base"`
}

type aiToggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Service) handleStartSession(c *fiber.Ctx) error {
	intake := conversation.Intake{
		Name:      c.FormValue("name"),
		BirthYear: c.FormValue("birth_year"),
		Gender:    c.FormValue("gender"),
	}

	artifact, err := readArtifact(c)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity,
			"Vui lòng điền đầy đủ thông tin và tải lên hình ảnh quẻ của bạn.")
	}

	session, err := s.conversationSvc.StartSession(c.Context(), intake, artifact)
	if err != nil {
		return mapConversationError(err)
	}

	return c.JSON(sessionResponse{
		SessionID: session.ID,
		State:     string(session.State),
		Messages:  session.Transcript,
		AIEnabled: s.conversationSvc.AIEnabled(),
	})
}

func readArtifact(c *fiber.Ctx) (conversation.Artifact, error) {
	header, err := c.FormFile("image")
	if err != nil {
		return conversation.Artifact{}, err
	}

	file, err := header.Open()
	if err != nil {
		return conversation.Artifact{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return conversation.Artifact{}, err
	}

	return conversation.Artifact{
		Data:     data,
		MimeType: header.Header.Get("Content-Type"),
	}, nil
}

func (s *Service) handleGetSession(c *fiber.Ctx) error {
	session := s.conversationSvc.Snapshot()

	return c.JSON(sessionResponse{
		SessionID: session.ID,
		State:     string(session.State),
		Messages:  session.Transcript,
		AIEnabled: s.conversationSvc.AIEnabled(),
	})
}

func (s *Service) handleUserMessage(c *fiber.Ctx) error {
	return s.submitTurn(c, memory.SenderUser)
}

func (s *Service) handleTeacherMessage(c *fiber.Ctx) error {
	return s.submitTurn(c, memory.SenderOperator)
}

func (s *Service) submitTurn(c *fiber.Ctx, sender memory.Sender) error {
	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := s.conversationSvc.SubmitTurn(c.Context(), sender, req.Text)
	if err != nil {
		return mapConversationError(err)
	}

	return c.JSON(sessionResponse{
		State:            string(conversation.StateActive),
		Messages:         result.Messages,
		AIEnabled:        s.conversationSvc.AIEnabled(),
		AwaitingOperator: result.AwaitingOperator,
	})
}

func (s *Service) handleEndSession(c *fiber.Ctx) error {
	if err := s.conversationSvc.EndSession(); err != nil {
		return mapConversationError(err)
	}

	return c.JSON(fiber.Map{"state": string(conversation.StateCollecting)})
}

func (s *Service) handleTeacherLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Password != s.cfg.Server.TeacherPassword {
		return fiber.NewError(fiber.StatusUnauthorized, "Mật khẩu không đúng. Vui lòng thử lại.")
	}

	return c.JSON(fiber.Map{"ok": true})
}

func (s *Service) handleGetOverlays(c *fiber.Ctx) error {
	prompt, knowledge := s.conversationSvc.Overlays()

	return c.JSON(overlaysRequest{
		PromptInstruction: prompt,
		KnowledgeBase:     knowledge,
	})
}

func (s *Service) handleSetOverlays(c *fiber.Ctx) error {
	var req overlaysRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	s.conversationSvc.SetOverlays(req.PromptInstruction, req.KnowledgeBase)

	return c.JSON(fiber.Map{"ok": true})
}

func (s *Service) handleSetAIEnabled(c *fiber.Ctx) error {
	var req aiToggleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	s.conversationSvc.SetAIEnabled(req.Enabled)

	return c.JSON(fiber.Map{"enabled": req.Enabled})
}

func (s *Service) handleClearMemory(c *fiber.Ctx) error {
	s.memorySvc.Clear()

	return c.JSON(fiber.Map{"ok": true})
}

func mapConversationError(err error) error {
	switch {
	case errors.Is(err, conversation.ErrValidation):
		return fiber.NewError(fiber.StatusUnprocessableEntity,
			"Vui lòng điền đầy đủ thông tin và tải lên hình ảnh quẻ của bạn.")
	case errors.Is(err, conversation.ErrBusy),
		errors.Is(err, conversation.ErrNoSession),
		errors.Is(err, conversation.ErrSessionActive):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway,
			"Đã có lỗi xảy ra khi bắt đầu luận giải. Vui lòng thử lại sau.")
	}
}
