// Package server exposes the command dispatcher over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/idelchi/diskscope/internal/command"
)

// StatusClientClosedRequest is returned for commands cancelled by server
// shutdown. fasthttp does not report client disconnects, so a request whose
// caller went away runs to completion.
const StatusClientClosedRequest = 499

// DefaultAllowedOrigins are the origins of the desktop UI.
//
//nolint:gochecknoglobals // Config constant
var DefaultAllowedOrigins = []string{"http://localhost:1420", "http://tauri.localhost"}

// Options configures a Server.
type Options struct {
	// AllowedOrigins lists the browser origins allowed to invoke commands.
	// Empty selects DefaultAllowedOrigins; "*" allows any origin.
	AllowedOrigins []string
}

// Server serves POST /invoke/:command and GET /healthz.
type Server struct {
	app        *fiber.App
	dispatcher *command.Dispatcher
	log        *zap.Logger
	origins    []string

	// ctx is passed to every command and cancelled on shutdown.
	ctx    context.Context //nolint:containedctx // Server lifetime
	cancel context.CancelFunc
}

// New builds a Server around dispatcher. A nil logger discards all output.
func New(dispatcher *command.Dispatcher, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = DefaultAllowedOrigins
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		dispatcher: dispatcher,
		log:        log,
		origins:    opts.AllowedOrigins,
		ctx:        ctx,
		cancel:     cancel,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "diskscope",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.origins, ","),
		AllowMethods: strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ","),
		AllowHeaders: fiber.HeaderContentType,
	}))

	s.app.Get("/healthz", handleHealth)

	invoke := s.app.Group("/invoke", s.guardInvoke)
	invoke.Post("/:command", s.handleInvoke)

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context, addr string) error {
	defer s.cancel()

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("listening", zap.String("addr", addr), zap.Strings("commands", s.dispatcher.Names()))
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listening on %s: %w", addr, err)
		}

		return nil
	case <-ctx.Done():
		s.log.Info("shutting down")

		// Running commands stop before Shutdown waits for their requests
		s.cancel()

		if err := s.app.Shutdown(); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}

		return <-errCh
	}
}

// guardInvoke rejects foreign origins and bodies that are not JSON. Requiring
// application/json forces browsers to preflight cross-origin invocations.
func (s *Server) guardInvoke(c *fiber.Ctx) error {
	if origin := c.Get(fiber.HeaderOrigin); origin != "" && !s.allowsOrigin(origin) {
		return fiber.NewError(fiber.StatusForbidden, fmt.Sprintf("origin %q is not allowed", origin))
	}

	mediaType, _, err := mime.ParseMediaType(c.Get(fiber.HeaderContentType))
	if err != nil || mediaType != fiber.MIMEApplicationJSON {
		return fiber.NewError(fiber.StatusUnsupportedMediaType, "Content-Type must be application/json")
	}

	return c.Next()
}

func (s *Server) allowsOrigin(origin string) bool {
	return slices.Contains(s.origins, "*") || slices.ContainsFunc(s.origins, func(allowed string) bool {
		return strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin)
	})
}

func handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleInvoke(c *fiber.Ctx) error {
	name := c.Params("command")

	// Body is only valid for the lifetime of the handler
	args := json.RawMessage(append([]byte(nil), c.Body()...))

	result, err := s.dispatcher.Invoke(s.ctx, name, args)
	if err != nil {
		code := command.CodeOf(err)

		s.log.Debug("invoke failed", zap.String("command", name), zap.String("code", string(code)), zap.Error(err))

		return c.Status(StatusFor(code)).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    code,
				"message": err.Error(),
			},
		})
	}

	return c.JSON(fiber.Map{"result": result})
}

// handleError renders routing errors and recovered panics in the invoke error shape.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := "internal"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
		code = "http_error"
	}

	s.log.Warn("request failed", zap.String("path", c.Path()), zap.Int("status", status), zap.Error(err))

	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": err.Error(),
		},
	})
}

// StatusFor maps a command failure code onto an HTTP status.
func StatusFor(code command.Code) int {
	switch code {
	case command.CodeNotFound, command.CodeUnknownCommand:
		return fiber.StatusNotFound
	case command.CodeInvalidArgument:
		return fiber.StatusBadRequest
	case command.CodeCanceled:
		return StatusClientClosedRequest
	default:
		return fiber.StatusInternalServerError
	}
}
