package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/emkeyen/postman-to-jmx/internal/httpapi"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP conversion service",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "127.0.0.1:25600", "HTTP 监听地址")
	cmd.Flags().Duration("read-header-timeout", 5*time.Second, "HTTP ReadHeaderTimeout（请求头读取超时）")
	cmd.Flags().Duration("convert-timeout", 60*time.Second, "单次转换的总超时（包含远程拉取）")
	cmd.Flags().Duration("fetch-timeout", 15*time.Second, "单次远程拉取的超时（每个 URL 一次请求）")
	cmd.Flags().Duration("shutdown-timeout", 10*time.Second, "收到退出信号后的优雅退出等待时间")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	listen, _ := cmd.Flags().GetString("listen")
	readHeaderTimeout, _ := cmd.Flags().GetDuration("read-header-timeout")
	convertTimeout, _ := cmd.Flags().GetDuration("convert-timeout")
	fetchTimeout, _ := cmd.Flags().GetDuration("fetch-timeout")
	shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")

	srv := &http.Server{
		Addr: listen,
		Handler: httpapi.NewHandlerWithOptions(httpapi.Options{
			ConvertTimeout: convertTimeout,
			FetchTimeout:   fetchTimeout,
		}),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	log.Printf("listening on http://%s", listen)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutdown signal received")

		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
			_ = srv.Close()
		}

		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}
	return nil
}
