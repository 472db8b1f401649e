// Package pprof serves the runtime profiling endpoints on an operator-chosen
// address. Off by default; meant for localhost debugging of a running daemon.
package pprof

import (
	"context"
	"errors"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"strings"
	"time"

	logx "mimicbot/pkg/logx"
)

// Config controls the optional pprof HTTP server.
//
// Binding anywhere other than loopback requires a token; profiles leak enough
// about a process that an open endpoint is not acceptable.
type Config struct {
	Enabled bool
	Addr    string // default "127.0.0.1:6060"
	Token   string
}

type Service struct {
	cfg Config
	log logx.Logger
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6060"
	}
	return &Service{cfg: cfg, log: log}
}

func (s *Service) Enabled() bool { return s.cfg.Enabled }

// Run serves until ctx is canceled. Returns the serve error otherwise, so a
// supervisor restart loop can bring the endpoint back.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Token == "" && !isLoopback(s.cfg.Addr) {
		s.log.Error("pprof refused to start: non-loopback addr requires a token",
			logx.String("addr", s.cfg.Addr))
		return errors.New("pprof: insecure bind")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: s.handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(sctx)
		cancel()
	}()

	s.log.Info("pprof started",
		logx.String("addr", ln.Addr().String()),
		logx.Bool("token_set", s.cfg.Token != ""))

	err = srv.Serve(ln)
	if ctx.Err() != nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Service) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/debug/pprof/", s.withAuth(hpprof.Index))
	mux.HandleFunc("/debug/pprof/cmdline", s.withAuth(hpprof.Cmdline))
	mux.HandleFunc("/debug/pprof/profile", s.withAuth(hpprof.Profile))
	mux.HandleFunc("/debug/pprof/symbol", s.withAuth(hpprof.Symbol))
	mux.HandleFunc("/debug/pprof/trace", s.withAuth(hpprof.Trace))
	return mux
}

func (s *Service) withAuth(h http.HandlerFunc) http.HandlerFunc {
	tok := strings.TrimSpace(s.cfg.Token)
	if tok == "" {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") == tok {
			h(w, r)
			return
		}
		const bearer = "Bearer "
		if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, bearer) &&
			strings.TrimSpace(strings.TrimPrefix(ah, bearer)) == tok {
			h(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", "Bearer")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

func isLoopback(addr string) bool {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
