package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NethermindEth/wei/internal/app"
	"github.com/NethermindEth/wei/internal/logging"
	"github.com/NethermindEth/wei/pkg/config"
	"github.com/NethermindEth/wei/pkg/observability"
)

// Version 构建时通过 -ldflags 注入
var Version = "0.1.0"

// 全局参数
var (
	flagConfig      string
	flagMetricsAddr string
	flagTimeout     time.Duration
)

// rt 当前命令的运行时，由 PersistentPreRunE 创建，main 负责关闭
var rt *runtime

var rootCmd = &cobra.Command{
	Use:           "wei",
	Short:         "wei governance proposal client",
	Long:          "Fetches governance proposals and spaces from the GraphQL hub and drives the wei analysis backend.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		rt = r
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file (default: built-in defaults and WEI_* env)")
	rootCmd.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while the command runs")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "overall command timeout (0 means none)")

	rootCmd.AddCommand(proposalsCmd)
	rootCmd.AddCommand(spacesCmd)
	rootCmd.AddCommand(proposalCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(communityCmd)
	rootCmd.AddCommand(relatedCmd)
	rootCmd.AddCommand(roadmapCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(healthCmd)
}

// runtime 进程级资源
type runtime struct {
	app    *app.App
	zap    *zap.Logger
	loader *config.Loader

	cleanup         func()
	shutdownTracing func(context.Context) error
	metrics         *http.Server
}

func newRuntime(ctx context.Context) (*runtime, error) {
	loader := config.NewLoader(config.LoaderOptions{ConfigPath: flagConfig}, logging.Stderr())
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	zl, err := logging.NewZap(cfg.Log, map[string]interface{}{
		"service": config.DefaultAppName,
		"version": Version,
	})
	if err != nil {
		_ = loader.Close()
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.NewLogger(zl)

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		_ = loader.Close()
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	a, cleanup, err := app.New(cfg, logger)
	if err != nil {
		_ = shutdownTracing(ctx)
		_ = loader.Close()
		return nil, fmt.Errorf("init app: %w", err)
	}

	r := &runtime{
		app:             a,
		zap:             zl,
		loader:          loader,
		cleanup:         cleanup,
		shutdownTracing: shutdownTracing,
	}

	if flagMetricsAddr != "" {
		r.metrics = &http.Server{
			Addr:              flagMetricsAddr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			zl.Info("Metrics server starting", zap.String("addr", flagMetricsAddr))
			if err := r.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	return r, nil
}

// Close 按创建的逆序释放资源
func (r *runtime) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if r.metrics != nil {
		errs = append(errs, r.metrics.Shutdown(ctx))
	}
	r.cleanup()
	errs = append(errs, r.shutdownTracing(ctx))
	errs = append(errs, r.loader.Close())
	// stderr 不支持 fsync，忽略 Sync 的错误
	_ = r.zap.Sync()

	return errors.Join(errs...)
}

// commandContext 叠加 --timeout
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if flagTimeout > 0 {
		return context.WithTimeout(ctx, flagTimeout)
	}
	return context.WithCancel(ctx)
}
