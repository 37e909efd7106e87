package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/linkindex/config"
	"github.com/meghashyamc/linkindex/db/kvdb"
	"github.com/meghashyamc/linkindex/db/searchdb"
	"github.com/meghashyamc/linkindex/logger"
	"github.com/meghashyamc/linkindex/metrics"
	"github.com/meghashyamc/linkindex/services/enrich"
	"github.com/meghashyamc/linkindex/services/index"
	"github.com/meghashyamc/linkindex/services/persistence"
	"github.com/meghashyamc/linkindex/services/scoring"
	"github.com/meghashyamc/linkindex/services/search"
	"github.com/meghashyamc/linkindex/services/tokenize"
	"github.com/meghashyamc/linkindex/validation"
)

type server struct {
	cfg           *config.Config
	router        *gin.Engine
	httpServer    *http.Server
	kvdb          kvdb.DB
	searchdb      *searchdb.Index
	persistence   *persistence.Manager
	indexService  *index.Service
	searchService *search.Service
	validator     *validation.Validator
	metrics       *metrics.Metrics
	logger        logger.Logger
}

// Run serves until ctx is cancelled or the process receives SIGINT or SIGTERM,
// then stops accepting requests and saves the index before returning.
func Run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	defer cancel()

	s := &server{
		cfg:    cfg,
		logger: logger.New(cfg.GetLogLevel()),
	}
	if err := s.setupDependencies(); err != nil {
		return err
	}
	s.loadSnapshot()
	s.setupRouter()
	go s.persistence.Run(ctx, cfg.GetAutosaveInterval())
	serveErrC := s.setupHTTPServer()

	return s.setupGracefulShutdown(ctx, serveErrC)
}

func (s *server) setupDependencies() error {
	var err error
	s.kvdb, err = kvdb.New(logger.WithComponent(s.logger, "kvdb"), s.cfg)
	if err != nil {
		s.logger.Error("error creating kvDB", "err", err.Error())
		return err
	}
	s.searchdb = searchdb.New(logger.WithComponent(s.logger, "searchdb"))

	tokenizer, err := tokenize.New(logger.WithComponent(s.logger, "tokenizer"), s.cfg)
	if err != nil {
		s.logger.Error("error creating tokenizer", "err", err.Error())
		s.kvdb.Close()
		return err
	}

	defaultAlgorithm, err := scoring.Parse(s.cfg.GetDefaultAlgorithm())
	if err != nil {
		s.logger.Error("invalid default algorithm in config", "algorithm", s.cfg.GetDefaultAlgorithm(), "err", err.Error())
		s.kvdb.Close()
		return err
	}

	s.validator, err = validation.New(s.logger)
	if err != nil {
		s.logger.Error("error creating validator", "err", err.Error())
		s.kvdb.Close()
		return err
	}

	s.metrics = metrics.New()
	s.persistence = persistence.New(logger.WithComponent(s.logger, "persistence"), s.searchdb, s.kvdb, s.metrics)
	s.indexService = index.New(logger.WithComponent(s.logger, "ingest"), s.searchdb, tokenizer,
		enrich.New(logger.WithComponent(s.logger, "enrich"), s.cfg),
		index.Options{
			MaxTitleLength:       s.cfg.GetMaxTitleLength(),
			MaxDescriptionLength: s.cfg.GetMaxDescriptionLength(),
		})
	s.searchService = search.New(logger.WithComponent(s.logger, "search"), s.searchdb, tokenizer, search.Options{
		DefaultAlgorithm: defaultAlgorithm,
		DefaultPageSize:  s.cfg.GetDefaultPageSize(),
		MaxPageWidth:     s.cfg.GetMaxPageWidth(),
	})

	return nil

}

// loadSnapshot never fails startup: an unusable snapshot leaves the index empty.
func (s *server) loadSnapshot() {
	if err := s.persistence.Load(); err != nil {
		s.logger.Warn("could not restore index, continuing with an empty index", "err", err.Error())
	}
}

func (s *server) setupRouter() {
	router := newRouter(s.logger, s.metrics)

	setupRoutes(router, s)

	s.router = router
}

func (s *server) setupHTTPServer() <-chan error {

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", s.cfg.GetPort()),
		Handler: s.router.Handler(),
	}
	s.httpServer = httpServer

	errC := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
		close(errC)
	}()
	return errC
}

func (s *server) setupGracefulShutdown(ctx context.Context, serveErrC <-chan error) error {

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-serveErrC:
		if serveErr != nil {
			s.logger.Error("http server stopped unexpectedly", "err", serveErr.Error())
		}
	}

	s.logger.Info("starting to shut down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error shutting down http server", "err", err.Error())
	} else {
		s.logger.Info("shut down http server successfully")
	}

	saveErr := s.persistence.Save()
	if saveErr != nil {
		s.logger.Error("could not save index on shutdown", "err", saveErr.Error())
	}
	if err := s.kvdb.Close(); err != nil {
		s.logger.Error("error closing kvDB", "err", err.Error())
	}

	return errors.Join(serveErr, saveErr)
}
