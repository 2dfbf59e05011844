// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/adapters/loader"
	"github.com/0xcro3dile/docqa-go/internal/config"
	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/usecases"
	"github.com/0xcro3dile/docqa-go/internal/session"
)

const (
	// SessionHeader carries the session ID for API clients.
	SessionHeader = "X-Session-ID"
	// SessionCookie carries the session ID for browsers.
	SessionCookie = "docqa_session"
)

// Server is the HTTP server for the document Q&A API.
type Server struct {
	app       *fiber.App
	chat      *usecases.ChatService
	loader    *loader.FileLoader
	uploadDir string
	addr      string
	logger    *zap.Logger
}

// NewServer creates a new HTTP server.
func NewServer(chat *usecases.ChatService, fl *loader.FileLoader, cfg config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fl == nil {
		fl = loader.NewFileLoader()
	}
	s := &Server{
		chat:      chat,
		loader:    fl,
		uploadDir: cfg.UploadDir,
		addr:      cfg.Addr,
		logger:    logger.Named("http"),
	}
	if s.uploadDir == "" {
		s.uploadDir = os.TempDir()
	}

	bodyLimit := cfg.MaxUploadMB * 1024 * 1024
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "docqa",
		BodyLimit:             bodyLimit,
		ErrorHandler:          s.errorHandler,
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          300 * time.Second,
	})

	s.app.Use(s.requestLogger)
	s.app.Use(fiberrecover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET, POST, DELETE, OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, " + SessionHeader,
		ExposeHeaders: SessionHeader,
	}))

	s.registerRoutes()
	return s
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			s.logger.Warn("shutdown", zap.Error(err))
		}
	}()

	s.logger.Info("docqa server starting", zap.String("addr", s.addr))
	return s.app.Listen(s.addr)
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)

	chat := api.Group("", s.withSession)
	chat.Post("/chat/upload", s.handleUpload)
	chat.Post("/chat", s.handleChat)
	chat.Get("/documents", s.handleDocuments)
	chat.Delete("/documents/:index", s.handleRemoveDocument)
	chat.Delete("/documents", s.handleClearDocuments)
	chat.Get("/history", s.handleHistory)
	chat.Delete("/history", s.handleNewChat)
}

// withSession attaches the caller's session to the request context,
// minting a new session ID when none was sent.
func (s *Server) withSession(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Get(SessionHeader))
	if id == "" {
		id = c.Cookies(SessionCookie)
	}
	if id == "" {
		id = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     SessionCookie,
			Value:    id,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	c.Set(SessionHeader, id)
	c.SetUserContext(session.WithID(c.UserContext(), id))
	return c.Next()
}

// handleUpload answers a question about an uploaded file.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file uploaded")
	}
	question := c.FormValue("question")

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.uploadDir, "upload-*"+strings.ToLower(filepath.Ext(fh.Filename)))
	if err != nil {
		return err
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := c.SaveFile(fh, tmp.Name()); err != nil {
		return err
	}

	ctx := c.UserContext()
	up, err := s.loader.LoadAs(ctx, tmp.Name(), filepath.Base(fh.Filename), fh.Header.Get(fiber.HeaderContentType))
	if err != nil {
		return err
	}

	resp, err := s.chat.AskWithFile(ctx, up, question)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

type chatRequest struct {
	Question string `json:"question" form:"question"`
}

// handleChat answers a question against the session's documents.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	resp, err := s.chat.Ask(c.UserContext(), req.Question)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

type documentView struct {
	Index      int       `json:"index"`
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	TextLength int       `json:"text_length"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func (s *Server) handleDocuments(c *fiber.Ctx) error {
	docs := s.chat.Documents(c.UserContext())
	views := make([]documentView, len(docs))
	for i, d := range docs {
		views[i] = documentView{
			Index:      i,
			ID:         d.ID,
			Name:       d.Name,
			Size:       d.Size,
			TextLength: len([]rune(d.Text)),
			UploadedAt: d.UploadedAt,
		}
	}
	return c.JSON(fiber.Map{"documents": views, "count": len(views)})
}

func (s *Server) handleRemoveDocument(c *fiber.Ctx) error {
	i, err := c.ParamsInt("index")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid document index")
	}
	removed, err := s.chat.RemoveDocument(c.UserContext(), i)
	if err != nil {
		return err
	}
	if !removed {
		return fiber.NewError(fiber.StatusNotFound, "Document not found")
	}
	return c.JSON(fiber.Map{"status": "success"})
}

func (s *Server) handleClearDocuments(c *fiber.Ctx) error {
	s.chat.ClearDocuments(c.UserContext())
	return c.JSON(fiber.Map{"status": "success"})
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	messages := s.chat.History(c.UserContext())
	if messages == nil {
		messages = []entities.ChatMessage{}
	}
	return c.JSON(fiber.Map{"messages": messages})
}

func (s *Server) handleNewChat(c *fiber.Ctx) error {
	s.chat.NewChat(c.UserContext())
	return c.JSON(fiber.Map{"status": "success"})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy", "service": "docqa"})
}

// errorHandler renders every failure as {"detail": message}.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"

	var reqErr *usecases.RequestError
	var fe *fiber.Error
	switch {
	case errors.As(err, &reqErr):
		code, msg = reqErr.Status.Code(), reqErr.Message
	case errors.As(err, &fe):
		code, msg = fe.Code, fe.Message
	default:
		s.logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"detail": msg})
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	if err := c.Next(); err != nil {
		if herr := s.errorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}
	s.logger.Info("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("took", time.Since(start)))
	return nil
}
