package server

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/Reeceeboii/calligraphy-site/pkg/config"
	"github.com/Reeceeboii/calligraphy-site/pkg/logging"
	"github.com/Reeceeboii/calligraphy-site/pkg/middleware"

	// Mux
	"github.com/gorilla/mux"
)

// how long in-flight requests get to finish once shutdown starts
const shutdownTimeout = 5 * time.Second

// Holds various pieces of non-changing data about the current release
type StaticInformation struct {
	// current Go runtime version
	GoRuntime string
	// the time that the server was created
	ServerBootTime time.Time
}

// Server struct
type Server struct {
	// instance of StaticInformation
	StaticInformation StaticInformation
	// configuration the server was built from
	Config *config.Config
	// metadata the homepage was rendered with
	Site SiteInfo
	// Registers routes and manages dispatching handlers
	Router *mux.Router
	// Router wrapped in the middleware that applies to every response
	Handler http.Handler
	// Handle logging to stdout
	Logger *logging.Logger

	// homepage document, rendered once
	homepage   []byte
	httpServer *http.Server
}

// Create a new Server. Fails if the homepage can't be rendered,
// so a broken deploy never starts listening
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	site, err := loadSiteInfo(cfg.SiteInfoPath)
	if err != nil {
		return nil, err
	}

	homepage, err := renderHomepage(cfg.TemplatePath, site)
	if err != nil {
		return nil, err
	}

	s := &Server{
		StaticInformation: StaticInformation{
			GoRuntime:      runtime.Version(),
			ServerBootTime: time.Now(),
		},
		Config:   cfg,
		Site:     site,
		Logger:   logger,
		homepage: homepage,
	}

	s.Router = s.newRouter()
	// logging goes outermost so 404 and 405 responses are logged too
	s.Handler = middleware.LoggingMiddleware(middleware.HeadersMiddleware(s.Router))
	s.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.Handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s, nil
}

// create new Mux router with the route table registered on it
func (s *Server) newRouter() *mux.Router {
	router := mux.NewRouter()
	cache := middleware.CacheMiddleware(s.Config.StaticMaxAge)

	for _, route := range s.routes() {
		var handler http.Handler = route.Handler
		if route.Cacheable {
			handler = cache(handler)
		}
		router.Handle(route.Path, handler).
			Methods(http.MethodGet, http.MethodHead).
			Name(route.Name)
	}
	router.PathPrefix(staticPrefix).
		Handler(cache(http.HandlerFunc(s.Static))).
		Methods(http.MethodGet, http.MethodHead).
		Name("static")

	// for any non matching routes, send a 404 response back
	router.NotFoundHandler = http.HandlerFunc(FourOhFour)
	router.MethodNotAllowedHandler = http.HandlerFunc(MethodNotAllowed)
	return router
}

// parse and execute the homepage template once
func renderHomepage(path string, site SiteInfo) ([]byte, error) {
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("parsing homepage template: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, site); err != nil {
		return nil, fmt.Errorf("executing homepage template: %w", err)
	}
	return body.Bytes(), nil
}

// carry out operations at the start of the server's lifetime
func (s *Server) logStartup() {
	log.Printf("Go runtime %s, booted %s", s.StaticInformation.GoRuntime,
		s.StaticInformation.ServerBootTime.Format(time.RFC822))
	s.Router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tmpl, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		log.Printf("Route %s -> %s", route.GetName(), tmpl)
		return nil
	})
}

// Start listens on the configured address until ctx is cancelled or the
// process receives SIGINT/SIGTERM, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.logStartup()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", s.Config.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening on %s: %w", s.Config.Address(), err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
		log.Println("Context cancelled")
	case sig := <-sigCh:
		log.Printf("Received %v", sig)
	case err := <-errCh:
		return err
	}
	return s.Shutdown()
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown() error {
	log.Println("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
