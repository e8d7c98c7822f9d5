package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tlsProvider "github.com/ElectronicCats/uvc-fingerprint-server/provider/tls"
	"github.com/gin-gonic/gin"
)

type ServerConfig struct {
	Host         string            `json:"host"`
	Port         int               `json:"port"`
	ReadTimeout  int               `json:"readTimeout"`
	WriteTimeout int               `json:"writeTimeout"`
	Debug        bool              `json:"debug"`
	Options      map[string]string `json:"options"`
	tlsProvider.ServerConfig
}

type Server struct {
	Config *ServerConfig
	Router *gin.Engine
	Server *http.Server
}

func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:         "",
		Port:         ServerDefaultPort,
		ReadTimeout:  ServerDefaultReadTimeout,
		WriteTimeout: ServerDefaultWriteTimeout,
		Debug:        false,
		Options:      make(map[string]string),
	}
}

// GetOption retrieves the value associated with the specified key from the Options map of the ServerConfig.
// If the key exists, the corresponding value is returned. Otherwise, the defaultValue is returned.
// Example usage:
//
//	serverConfig := ServerConfig{Options: map[string]string{"serverName": "kiosk-01"}}
//	option := serverConfig.GetOption("serverName", "default")
//	// option is "kiosk-01"
func (c *ServerConfig) GetOption(key string, defaultValue string) string {
	if v, ok := c.Options[key]; ok {
		return v
	}
	return defaultValue
}

func (c *ServerConfig) Validate() error {
	return nil
}

// NewRouter creates a gin router in release mode unless debug is set.
// Request logging and security headers are wired separately by NewServer
// so callers assembling a router by hand can opt out of either.
func NewRouter(debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	return router
}

func (c *ServerConfig) NewServer() (*Server, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return NewServer(c)
}

// NewServer creates a new http server, with the gin router wired with the
// standard request-logging and security-header middleware.
//
// Example usage:
//
//	cfg := NewServerConfig()
//	server, err := NewServer(cfg)
//	if err != nil {
//	  log.Fatal(err)
//	}
//	server.Start()
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tlsConfig, err := cfg.TLSConfig()
	if err != nil {
		return nil, err
	}
	router := NewRouter(cfg.Debug)
	result := &Server{
		Config: cfg,
		Router: router,
		Server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
			TLSConfig:    tlsConfig,
		},
	}
	result.UseRequestLogging()
	result.UseDefaultSecurityHeaders()
	return result, nil
}

// AddMiddleware adds the specified middleware function to the server's router.
func (s *Server) AddMiddleware(middlewareFunc gin.HandlerFunc) {
	s.Router.Use(middlewareFunc)
}

// Group creates a new RouterGroup with the specified relativePath.
func (s *Server) Group(relativePath string) *gin.RouterGroup {
	return s.Router.Group(relativePath)
}

// Route returns the gin.Engine instance associated with the Server.
func (s *Server) Route() *gin.Engine {
	return s.Router
}

// Start starts the HTTP server of the Server instance.
// If the Server's TLSConfig is nil, it starts the server using ListenAndServe.
// Otherwise, it starts the server using ListenAndServeTLS.
//
// Example usage:
//
//	checador.RegisterDestructor(func() error {
//	    return server.Shutdown(container.GetContext())
//	})
//	container.Run(func(app interface{}) error {
//	    go container.AbortFatal(server.Start())
//	    return nil
//	})
func (s *Server) Start() error {
	var err error
	if s.Server.TLSConfig == nil {
		err = s.Server.ListenAndServe()
	} else {
		err = s.Server.ListenAndServeTLS("", "")
	}
	// when Shutdown() is called, the return error is http.ErrServerClosed
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}
