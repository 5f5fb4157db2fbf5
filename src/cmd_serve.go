package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"HappinessInsights/src/dashboard"
	"HappinessInsights/src/datasource/file"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		addr    string
		rebuild string
		clean   bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the filtering dashboard over the export file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if addr != "" {
				a.cfg.Dashboard.Addr = addr
			}
			if rebuild != "" {
				a.cfg.Dashboard.Rebuild = rebuild
			}
			if clean {
				if _, err := a.clean(); err != nil {
					return err
				}
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default dashboard.addr from config)")
	cmd.Flags().StringVar(&rebuild, "rebuild", "", `cron spec for re-running clean, e.g. "@every 1h"`)
	cmd.Flags().BoolVar(&clean, "clean", false, "run clean before serving")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	schema, err := a.schema()
	if err != nil {
		return err
	}

	metrics := dashboard.NewMetrics()
	store := dashboard.NewStore(a.cfg.Output, schema.OutputTypes())
	if err := store.Load(); err != nil {
		// 导出文件出现后由Watch加载
		a.logger.Warning("export not loaded yet", "path", a.cfg.Output, "error", err)
	} else {
		df, _ := store.Frame()
		metrics.ObserveReload(df.Nrow(), nil)
	}

	srv, err := dashboard.NewServer(store, a.logger, metrics, dashboard.Options{TopN: a.cfg.TopN})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := file.EnsureParent(a.cfg.Output); err != nil {
		return err
	}
	go func() {
		err := store.Watch(ctx, a.logger, func(err error) {
			df, _ := store.Frame()
			metrics.ObserveReload(df.Nrow(), err)
		})
		if err != nil {
			a.logger.Error("export watcher stopped", "error", err)
		}
	}()

	c := cron.New()
	if a.cfg.Dashboard.Rebuild != "" {
		spec := a.cfg.Dashboard.Rebuild
		err := c.AddFunc(spec, func() {
			a.logger.Info("scheduled rebuild", "spec", spec)
			t1 := time.Now()
			if _, err := a.clean(); err != nil {
				a.logger.Error("scheduled rebuild failed", "error", err)
				return
			}
			a.logger.Info("scheduled rebuild done", "elapsed", time.Since(t1).String())
		})
		if err != nil {
			return fmt.Errorf("invalid rebuild spec %q: %w", spec, err)
		}
	}
	if a.cfg.LogName != "" && a.cfg.LogMaxSize != "" {
		_ = c.AddFunc("@every 1m", func() {
			if rotated, err := a.logger.CheckRotate(a.cfg.LogMaxSize); err != nil {
				a.logger.Error("log rotate failed", "error", err)
			} else if rotated {
				a.logger.Info("log rotated", "file", a.cfg.LogName)
			}
		})
	}
	c.Start()
	defer c.Stop()

	// SIGHUP: 日志文件被外部轮转后重新打开
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-hup:
				if a.cfg.LogName == "" {
					continue
				}
				if err := a.logger.Reopen(a.cfg.LogName); err != nil {
					fmt.Fprintln(os.Stderr, "reopen log:", err)
					continue
				}
				a.logger.Info("log file reopened", "file", a.cfg.LogName)
			case <-ctx.Done():
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr:              a.cfg.Dashboard.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("dashboard listening", "addr", a.cfg.Dashboard.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down dashboard")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Dashboard.ShutdownTimeout.Std())
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
