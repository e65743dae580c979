package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/heimrichhannot/contao-ldap-bundle/internal/config"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/db/store"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/ldap"
	fiberlogger "github.com/heimrichhannot/contao-ldap-bundle/internal/logger/adapter/fiber"
)

// checkAliveURI is excluded from access logging when configured so.
const checkAliveURI = "/checkalive"

// LoginService is the authentication bridge surface the web layer uses.
type LoginService interface {
	Login(mode ldap.Mode, username, password string, live store.Record) (bool, *ldap.Result, error)
}

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	login        LoginService
}

// loginRequest is the JSON body of a login call.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, login LoginService) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if login == nil {
		panic("login service cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        "contao-ldap-bundle",
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: checkAliveURI,
	}))

	// only the configured public URL may call the API cross-origin
	allowOrigins := cfg.Webserver.URL
	if cfg.DevMode {
		allowOrigins = "*"

		log.Warn().Msg("dev mode enabled: allowing cross-origin requests from any origin")
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
	}))

	service := &Service{
		cfg:   cfg,
		App:   app,
		login: login,
	}
	service.alive.Store(true)

	app.Get(checkAliveURI, service.handleCheckAlive)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Post("/api/:mode/login", service.handleLogin)

	return service
}

func (s *Service) handleCheckAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("OK")
}

// handleLogin authenticates one person against the directory of the mode
// named in the path. A rejection is always the same anonymous 401, no
// matter whether the username, the password or the directory itself was
// the problem.
func (s *Service) handleLogin(c *fiber.Ctx) error {
	mode, err := ldap.ParseMode(c.Params("mode"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown mode",
		})
	}

	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	live := store.Record{}

	ok, res, err := s.login.Login(mode, req.Username, req.Password, live)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"authenticated": false,
		})
	}

	if err != nil {
		log.Error().Err(err).Str("mode", string(mode)).Msg("post-login synchronization failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"authenticated": true,
			"synchronized":  false,
		})
	}

	return c.JSON(fiber.Map{
		"authenticated": true,
		"synchronized":  true,
		"inserted":      res.Inserted,
		"updated":       res.Updated,
		"person":        live,
	})
}
