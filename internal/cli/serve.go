package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/linksim/linksim/internal/logger"
	"github.com/linksim/linksim/internal/web"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		selfTLS bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /processar over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ln, err := net.Listen("tcp", a.cfg.Server.Addr)
			if err != nil {
				return err
			}
			return a.serve(ctx, ln, selfTLS)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&selfTLS, "tls-self-signed", false, "serve HTTPS with a throwaway self-signed certificate")
	return cmd
}

// serve runs the HTTP server on ln until ctx is done, then shuts it down.
func (a *app) serve(ctx context.Context, ln net.Listener, selfTLS bool) error {
	p, err := a.pipeline()
	if err != nil {
		_ = ln.Close()
		return err
	}
	handler := web.NewServer(p, a.textCodec(), web.Options{
		MaxChars:    a.cfg.Text.MaxChars,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		Seed:        a.cfg.Channel.Seed,
		Logger:      logger.L(),
		Metrics:     a.metrics,
	})
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if selfTLS {
		host, _, _ := net.SplitHostPort(ln.Addr().String())
		tc, err := web.SelfSignedTLS(host, "localhost")
		if err != nil {
			_ = ln.Close()
			return err
		}
		srv.TLSConfig = tc
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("server.listening", "addr", ln.Addr().String(), "k", p.K(), "tls", selfTLS)
		if selfTLS {
			errCh <- srv.ServeTLS(ln, "", "")
			return
		}
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L().Info("server.shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
