package web

import (
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	embedded "github.com/goserg/poolrating"
	"github.com/goserg/poolrating/internal/config"
	"github.com/goserg/poolrating/internal/domain"
	"github.com/goserg/poolrating/internal/service"
	"github.com/goserg/poolrating/internal/storage"
	"github.com/goserg/poolrating/internal/web/webpath"
)

var errBadRequest = errors.New("bad request")

type Server struct {
	ratingService *service.RatingService
	app           *fiber.App
	cfg           config.Server
	cronSecret    string
	log           *logrus.Entry
}

func New(rs *service.RatingService, cfg config.Config, l *logrus.Logger) (*Server, error) {
	server := Server{
		ratingService: rs,
		cfg:           cfg.Server,
		cronSecret:    cfg.Cron.Secret,
		log:           l.WithField("from", "web"),
	}

	fsFS, err := fs.Sub(embedded.Views, "views")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(fsFS), ".html")
	engine.Reload(cfg.Server.Debug)
	engine.Debug(cfg.Server.Debug)
	engine.AddFunc("Signed", signed)

	app := fiber.New(fiber.Config{
		Views:                 engine,
		ErrorHandler:          server.handleError,
		DisableStartupMessage: true,
	})

	app.Get(webpath.Home, server.handleMain)

	app.Get(webpath.ApiLeaderboard, server.handleLeaderboard)
	app.Get(webpath.ApiStreaks, server.handleStreaks)
	app.Post(webpath.ApiProfiles, server.handleCreateProfile)
	app.Get(webpath.ApiPlayerHistory, server.handlePlayerHistory)
	app.Get(webpath.ApiGameRatings, server.handleGameRatings)
	app.Get(webpath.ApiGames, server.handleListGames)
	app.Post(webpath.ApiGames, server.handleSubmitGame)
	app.Post(webpath.ApiVerifyGame, server.handleVerifyGame)
	app.Get(webpath.ApiOdds, server.handleOdds)

	cron := app.Group(webpath.ApiCron, server.requireCronSecret)
	cron.Get(strings.TrimPrefix(webpath.ApiCronBackfill, webpath.ApiCron), server.handleBackfill)
	cron.Get(strings.TrimPrefix(webpath.ApiCronExport, webpath.ApiCron), server.handleExport)
	cron.Post(strings.TrimPrefix(webpath.ApiCronImport, webpath.ApiCron), server.handleImport)

	server.app = app
	return &server, nil
}

func (s *Server) Serve() error {
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	s.log.WithFields(logrus.Fields{
		"port": s.cfg.Port,
		"tls":  s.cfg.TLS(),
	}).Info("http server started")
	if s.cfg.TLS() {
		return s.app.ListenTLS(addr, s.cfg.CertFile, s.cfg.KeyFile)
	}
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleError(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"
	var ferr *fiber.Error
	switch {
	case errors.As(err, &ferr):
		code, msg = ferr.Code, ferr.Message
	case errors.Is(err, storage.ErrNotFound):
		code, msg = fiber.StatusNotFound, "not found"
	case errors.Is(err, storage.ErrAlreadyExists):
		code, msg = fiber.StatusConflict, "already exists"
	case errors.Is(err, service.ErrForbidden):
		code, msg = fiber.StatusForbidden, "you are not the opponent"
	case errors.Is(err, service.ErrUnauthorized):
		code, msg = fiber.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrMissingFields):
		code, msg = fiber.StatusBadRequest, ErrMissingFields.Error()
	case errors.Is(err, service.ErrInvalidAction):
		code, msg = fiber.StatusBadRequest, "invalid action"
	case errors.Is(err, service.ErrInvalidGame):
		code, msg = fiber.StatusBadRequest, "invalid game"
	case errors.Is(err, service.ErrInvalidStatus):
		code, msg = fiber.StatusBadRequest, "invalid status"
	case errors.Is(err, service.ErrInvalidProfile):
		code, msg = fiber.StatusBadRequest, "invalid profile"
	case errors.Is(err, service.ErrInvalidExport):
		code, msg = fiber.StatusBadRequest, "invalid export"
	case errors.Is(err, errBadRequest):
		code, msg = fiber.StatusBadRequest, "bad request"
	}
	log := s.log.WithFields(logrus.Fields{
		"method": ctx.Method(),
		"path":   ctx.Path(),
		"status": code,
	})
	if code >= fiber.StatusInternalServerError {
		log.WithError(err).Error("request failed")
		return ctx.Status(code).JSON(errorResponse{Error: msg})
	}
	log.WithError(err).Debug("request rejected")
	return ctx.Status(code).JSON(newErrorResponse(msg, err))
}

func (s *Server) requireCronSecret(ctx *fiber.Ctx) error {
	if s.cronSecret == "" || ctx.Get(fiber.HeaderAuthorization) != "Bearer "+s.cronSecret {
		return service.ErrUnauthorized
	}
	return ctx.Next()
}

func (s *Server) handleMain(ctx *fiber.Ctx) error {
	d := newData("Leaderboard")
	entries, err := s.ratingService.Leaderboard(ctx.UserContext())
	if err != nil {
		return ctx.Render("index", d.WithErrors(err), "layouts/main")
	}
	streaks, err := s.ratingService.StreakLeaders(ctx.UserContext(), 0)
	if err != nil {
		return ctx.Render("index", d.WithErrors(err), "layouts/main")
	}
	return ctx.Render("index", d.
		With("Players", entries).
		With("Streaks", streaks), "layouts/main")
}

func (s *Server) handleLeaderboard(ctx *fiber.Ctx) error {
	entries, err := s.ratingService.Leaderboard(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(entries)
}

func (s *Server) handleStreaks(ctx *fiber.Ctx) error {
	min := ctx.QueryInt("min", 0)
	leaders, err := s.ratingService.StreakLeaders(ctx.UserContext(), min)
	if err != nil {
		return err
	}
	return ctx.JSON(leaders)
}

func (s *Server) handleCreateProfile(ctx *fiber.Ctx) error {
	var req createProfileRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.Join(errBadRequest, err)
	}
	if strings.TrimSpace(req.Username) == "" {
		return ErrMissingFields
	}
	p, err := s.ratingService.CreateProfile(ctx.UserContext(), req.Username, req.Email)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       p.ID,
		"username": p.Username,
	})
}

func (s *Server) handlePlayerHistory(ctx *fiber.Ctx) error {
	name, err := decodeParam(ctx.Params("name"))
	if err != nil {
		return err
	}
	points, err := s.ratingService.PlayerHistory(ctx.UserContext(), name)
	if err != nil {
		return err
	}
	return ctx.JSON(newHistory(points))
}

func (s *Server) handleGameRatings(ctx *fiber.Ctx) error {
	history, err := s.ratingService.GameRatings(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(history)
}

func (s *Server) handleListGames(ctx *fiber.Ctx) error {
	games, err := s.ratingService.ListGames(
		ctx.UserContext(),
		domain.Status(ctx.Query("status")),
		ctx.Query("player"),
	)
	if err != nil {
		return err
	}
	res := make([]gameResponse, 0, len(games))
	for _, g := range games {
		res = append(res, newGameResponse(g))
	}
	return ctx.JSON(res)
}

func (s *Server) handleSubmitGame(ctx *fiber.Ctx) error {
	var req submitGameRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.Join(errBadRequest, err)
	}
	g, err := req.toService()
	if err != nil {
		return err
	}
	game, err := s.ratingService.SubmitGame(ctx.UserContext(), g)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(newGameResponse(game))
}

func (s *Server) handleVerifyGame(ctx *fiber.Ctx) error {
	var req verifyRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.Join(errBadRequest, err)
	}
	if err := req.Validate(); err != nil {
		return err
	}
	err := s.ratingService.VerifyGame(ctx.UserContext(), req.GameID, service.Action(req.Action), uuid.MustParse(req.UserID))
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"success": true})
}

func (s *Server) handleOdds(ctx *fiber.Ctx) error {
	odds, err := s.ratingService.Odds(
		ctx.UserContext(),
		ctx.Query("a"),
		ctx.Query("b"),
		domain.Format(ctx.Query("format")),
	)
	if err != nil {
		return err
	}
	return ctx.JSON(odds)
}

func (s *Server) handleBackfill(ctx *fiber.Ctx) error {
	result, err := s.ratingService.Backfill(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"message": result.String(),
		"result":  result,
	})
}

func (s *Server) handleExport(ctx *fiber.Ctx) error {
	data, err := s.ratingService.Export(ctx.UserContext())
	if err != nil {
		return err
	}
	ctx.Attachment("export.json")
	return ctx.Send(data)
}

func (s *Server) handleImport(ctx *fiber.Ctx) error {
	result, err := s.ratingService.Import(ctx.UserContext(), ctx.Body())
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"message": result.String(),
		"result":  result,
	})
}

func decodeParam(p string) (string, error) {
	name, err := url.PathUnescape(p)
	if err != nil {
		return "", errors.Join(errBadRequest, err)
	}
	return name, nil
}

func signed(v int) string {
	if v > 0 {
		return "+" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}
