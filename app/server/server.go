package server

import (
	"context"
	"errors"
	"log/slog"

	"loveoracle/app/config"
	"loveoracle/app/service/conversation"
	"loveoracle/app/service/memory"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

const teacherPasswordHeader = "X-Teacher-Password"

type Service struct {
	cfg             *config.Config
	conversationSvc *conversation.Service
	memorySvc       *memory.Service

	app *fiber.App
}

func New(di *do.Injector) (*Service, error) {
	s := &Service{
		cfg:             do.MustInvoke[*config.Config](di),
		conversationSvc: do.MustInvoke[*conversation.Service](di),
		memorySvc:       do.MustInvoke[*memory.Service](di),
	}

	s.app = fiber.New(fiber.Config{
		BodyLimit:             16 * 1024 * 1024,
		DisableStartupMessage: true,
	})

	s.registerRoutes()

	return s, nil
}

func (s *Service) registerRoutes() {
	api := s.app.Group("/api")

	api.Post("/session", s.handleStartSession)
	api.Get("/session", s.handleGetSession)
	api.Post("/session/message", s.handleUserMessage)
	api.Post("/session/end", s.handleEndSession)

	api.Post("/teacher/login", s.handleTeacherLogin)

	teacher := api.Group("/teacher", s.requireTeacher)
	teacher.Get("/overlays", s.handleGetOverlays)
	teacher.Put("/overlays", s.handleSetOverlays)
	teacher.Put("/ai", s.handleSetAIEnabled)
	teacher.Post("/message", s.handleTeacherMessage)
	teacher.Delete("/memory", s.handleClearMemory)
	teacher.Get("/transcript", s.handleGetSession)
}

// requireTeacher is the privileged-operator gate: a boolean decision consumed
// by the teacher routes. Credential hardening is out of scope.
func (s *Service) requireTeacher(c *fiber.Ctx) error {
	if c.Get(teacherPasswordHeader) != s.cfg.Server.TeacherPassword {
		return fiber.NewError(fiber.StatusUnauthorized, "Mật khẩu không đúng. Vui lòng thử lại.")
	}

	return c.Next()
}

func (s *Service) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		slog.Info("HTTP server listening", "addr", s.cfg.Server.Listen)

		return s.app.Listen(s.cfg.Server.Listen)
	})

	group.Go(func() error {
		<-ctx.Done()

		return s.app.Shutdown()
	})

	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
