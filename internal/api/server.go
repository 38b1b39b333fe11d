// Package api serves dataset samples and evaluation runs over HTTP.
package api

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/touchstone3d/semseg/internal/config"
	"github.com/touchstone3d/semseg/internal/evaluator"
)

type Server struct {
	App *fiber.App

	config      *config.ServerEnvConfig
	evaluations Evaluations
	samples     Samples
	numClasses  int
}

type Option func(*Server)

// WithSamples exposes a dataset under /dataset.
func WithSamples(s Samples) Option {
	return func(srv *Server) { srv.samples = s }
}

// WithNumClasses sets the class count reported by /health.
func WithNumClasses(n int) Option {
	return func(srv *Server) { srv.numClasses = n }
}

func NewServer(cfg *config.ServerEnvConfig, evaluations Evaluations, opts ...Option) *Server {
	if cfg == nil {
		cfg = &config.ServerEnvConfig{Address: "127.0.0.1", Port: 8080}
	}
	if cfg.BodySizeLimit <= 0 {
		cfg.BodySizeLimit = DefaultBodyLimit
	}

	log.Info().
		Any("serverConfig", cfg).
		Msg("server configuration loaded")

	app := fiber.New(fiber.Config{
		ErrorHandler:          fiberErrHandler,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		BodyLimit:             cfg.BodySizeLimit,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(ZstdMiddleware(cfg.BodySizeLimit, []string{"/health"}))
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	s := &Server{
		App:         app,
		config:      cfg,
		evaluations: evaluations,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.App.Get("/health", s.health)
	s.App.Post("/evaluate", bodyHandler(s.evaluate))
	s.App.Get("/runs", s.listRuns)
	s.App.Get("/runs/latest", s.latestRun)
	s.App.Get("/runs/:id", s.getRun)
	s.App.Get("/dataset", s.datasetInfo)
	s.App.Get("/dataset/samples/:index", s.getSample)
}

func fiberErrHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)

	ev := log.Warn()
	if code >= fiber.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).
		Int("status_code", code).
		Str("path", c.Path()).
		Str("method", c.Method()).
		Msg("request failed")

	return c.Status(code).JSON(createResponse(map[string]any{}, err))
}

// bodyHandler decodes the JSON body into Req and wraps the handler result in
// the response envelope.
func bodyHandler[Req, Resp any](handler func(*fiber.Ctx, Req) (Resp, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		resp, err := handler(c, req)
		if err != nil {
			return err
		}
		return c.JSON(createResponse(resp, nil))
	}
}

func (s *Server) health(c *fiber.Ctx) error {
	resp := HealthResponse{Status: "ok", NumClasses: s.numClasses}
	if s.samples != nil {
		resp.Samples = s.samples.Len()
	}
	return c.JSON(createResponse(resp, nil))
}

func (s *Server) evaluate(c *fiber.Ctx, req evaluator.EvaluationRequest) (*evaluator.EvaluationResult, error) {
	return s.evaluations.Evaluate(c.UserContext(), req)
}

func (s *Server) listRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", DefaultRunsLimit)
	if limit <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("limit must be positive, got %d", limit))
	}
	limit = min(limit, MaxRunsLimit)

	runs, err := s.evaluations.Runs(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(createResponse(runs, nil))
}

func (s *Server) latestRun(c *fiber.Ctx) error {
	run, err := s.evaluations.Latest(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(createResponse(run, nil))
}

func (s *Server) getRun(c *fiber.Ctx) error {
	run, err := s.evaluations.Run(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(createResponse(run, nil))
}

func (s *Server) datasetInfo(c *fiber.Ctx) error {
	if s.samples == nil {
		return fiber.NewError(fiber.StatusNotFound, "no dataset loaded")
	}
	info := DatasetInfo{
		Samples: s.samples.Len(),
		Mode:    string(s.samples.Mode()),
		Classes: []string{},
	}
	if cm := s.samples.ClassMap(); cm != nil {
		info.Classes = cm.Classes
	}
	return c.JSON(createResponse(info, nil))
}

func (s *Server) getSample(c *fiber.Ctx) error {
	if s.samples == nil {
		return fiber.NewError(fiber.StatusNotFound, "no dataset loaded")
	}
	index, err := c.ParamsInt("index")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid sample index %q", c.Params("index")))
	}

	sample, err := s.samples.Get(c.UserContext(), index)
	if err != nil {
		return err
	}
	return c.JSON(createResponse(SampleResponse{
		Index:     index,
		ID:        sample.ID,
		Points:    sample.PointRows(),
		Labels:    sample.LabelSlice(),
		MinCorner: sample.MinCorner,
	}, nil))
}

// Listen blocks serving on the configured address.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)
	log.Info().Str("addr", addr).Msg("api listening")
	return s.App.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.App.ShutdownWithContext(ctx)
}
