package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire/pkg/adapters/httpapi"
	"github.com/aretw0/quire/pkg/adapters/remote"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the vault over HTTP",
	Long: `Serve loads the vault into an editing workspace and exposes it as a JSON
API. The raw repository is also served at /rpc for remote adapters and stored
images under /images/. Pending edits are saved on shutdown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ws, err := openWorkspace(ctx)
		if err != nil {
			return err
		}

		deps := httpapi.Deps{
			Workspace: ws,
			Logger:    logger,
			RPC:       remote.NewHandler(ws.Service().Repository(), remote.WithHandlerLogger(logger)),
		}
		if dir := cfg.Images(); dir != "" {
			deps.Images = http.FileServer(http.Dir(dir))
		}

		if err := ws.Start(ctx); err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           httpapi.NewRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errc := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", srv.Addr, "vault", cfg.Vault)
			errc <- srv.ListenAndServe()
		}()

		select {
		case err = <-errc:
			stop()
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = srv.Shutdown(shutdownCtx)
			cancel()
		}

		ws.Wait()
		logger.Info("stopped", "saved", ws.Syncer().Stats().Saved)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Address to listen on")
	cobra.CheckErr(v.BindPFlag("addr", serveCmd.Flags().Lookup("addr")))
}
