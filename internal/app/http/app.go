package httpapp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	jwtlib "school_gallery/internal/lib/jwt"
	"school_gallery/internal/lib/logger/sl"
	appmiddleware "school_gallery/internal/middleware"
	httprouters "school_gallery/internal/transport/http"
	"school_gallery/internal/transport/http/dto/response"

	_ "school_gallery/docs"

	"github.com/arl/statsviz"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo-contrib/echoprometheus"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

type Server struct {
	m        *http.ServeMux
	log      *slog.Logger
	e        *echo.Echo
	routers  *httprouters.Routers
	host     string
	port     string
	token    string
	filesDir string
}

// New собирает echo сервер. filesDir раздается по /files, пустая строка отключает раздачу.
func New(log *slog.Logger, token string, host, port, filesDir string, routers *httprouters.Routers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(appmiddleware.PrometheusMetrics)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogMethod:   true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("URI", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote ip", v.RemoteIP),
			)

			return nil
		},
	}))

	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		log.Info("Statsviz start with error", slog.Any("error:", err.Error()))
	}

	return &Server{
		m:        mux,
		log:      log,
		e:        e,
		routers:  routers,
		host:     host,
		port:     port,
		token:    token,
		filesDir: filesDir,
	}
}

func (s *Server) MustRun() {
	const op = "http.Server.MustRun"

	s.log.Info(op, slog.String("Start", "server"), slog.String("port", s.port))

	if err := s.Start(); err != nil {
		panic(err)
	}
}

func (s *Server) Start() error {
	const op = "http.Server.Start"

	if err := s.e.Start(fmt.Sprintf("%s:%s", s.host, s.port)); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("%s server stopped: %w", op, err)
	}

	return nil
}

func (s *Server) Stop() error {
	const op = "http.Server.Stop"

	optCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	s.log.Info("stopping", slog.String("op", op))

	if err := s.e.Shutdown(optCtx); err != nil {
		return fmt.Errorf("%s could not shutdown server gracefuly: %w", op, err)
	}

	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

func (s *Server) jwtConfig() echojwt.Config {
	return echojwt.Config{
		SigningKey:    []byte(s.token),
		SigningMethod: jwt.SigningMethodHS256.Alg(),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(jwtlib.AdminClaims)
		},
	}
}

// adminJWT отвечает 401 и на отсутствующий, и на неверный токен
func (s *Server) adminJWT() echo.MiddlewareFunc {
	cfg := s.jwtConfig()
	cfg.ErrorHandler = func(c echo.Context, err error) error {
		s.log.Debug("admin token rejected", slog.String("path", c.Path()), sl.Err(err))
		return c.JSON(http.StatusUnauthorized, response.ErrorResponseWithDetails(
			response.ErrAuthenticationFailed.Error, "missing or invalid admin token"))
	}
	return echojwt.WithConfig(cfg)
}

// optionalJWT кладет токен в контекст, если он есть и валиден, иначе пропускает запрос как анонимный
func (s *Server) optionalJWT() echo.MiddlewareFunc {
	cfg := s.jwtConfig()
	cfg.ContinueOnIgnoredError = true
	cfg.ErrorHandler = func(c echo.Context, err error) error {
		return nil
	}
	return echojwt.WithConfig(cfg)
}

func (s *Server) BuildRouters() {
	s.e.GET("/health", s.routers.Health)
	s.e.GET("/metrics", echoprometheus.NewHandler())

	if s.filesDir != "" {
		s.e.Static("/files", s.filesDir)
	}

	debug := s.e.Group("/debug")
	{
		debug.GET("/statsviz/", echo.WrapHandler(s.m))
		debug.GET("/statsviz/*", echo.WrapHandler(s.m))
	}

	swagger := s.e.Group("/swag")
	{
		swagger.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	api := s.e.Group("/api/v1")
	{
		// адрес слота сам по себе пропуск, токен администратора не нужен
		api.POST("/storage/upload/:token", s.routers.AcceptUpload)

		api.GET("/events", s.routers.ListEvents, s.optionalJWT())
		api.GET("/events/:id", s.routers.GetEvent, s.optionalJWT())
		api.GET("/events/:id/images", s.routers.ListEventImages)

		admin := api.Group("", s.adminJWT())
		{
			admin.POST("/storage/upload-url", s.routers.IssueUploadURL)
			admin.POST("/storage/files", s.routers.RecordFile)

			admin.POST("/events", s.routers.CreateEvent)
			admin.PUT("/events/:id", s.routers.UpdateEvent)
			admin.PATCH("/events/:id/publish", s.routers.PublishEvent)
			admin.PATCH("/events/:id/cover", s.routers.SetEventCover)
			admin.POST("/events/:id/cover/if-empty", s.routers.SetEventCoverIfEmpty)
			admin.DELETE("/events/:id", s.routers.DeleteEvent)

			admin.POST("/images", s.routers.InsertImage)
			admin.DELETE("/images/:id", s.routers.DeleteImage)
		}
	}
}
