package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/eeshag/ihs-imposter/internal/httpapi"
	"github.com/eeshag/ihs-imposter/internal/hub"
)

type config struct {
	bind       string
	port       int
	baseURL    string
	codeLength int
	verbose    bool
}

func (c *config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.codeLength < 4 || c.codeLength > 12 {
		return fmt.Errorf("invalid code length (must be between 4-12 inclusive): %d", c.codeLength)
	}
	return nil
}

func newCmd(cfg *config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("IMPOSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "imposter-server",
		Short:         "Coordination server for the imposter party word game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: IMPOSTER_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: IMPOSTER_PORT)")
	fs.StringVar(&cfg.baseURL, "base-url", "http://localhost:3000", "public URL used in QR join links (env: IMPOSTER_BASE_URL)")
	fs.IntVar(&cfg.codeLength, "code-length", httpapi.DefaultCodeLength, "length of generated game codes (env: IMPOSTER_CODE_LENGTH)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "enable debug logging (env: IMPOSTER_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	return cmd
}

func run(ctx context.Context, cfg *config) error {
	log, err := newLogger(cfg.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	h := hub.NewHub(ctx, log)
	defer func() { h.Inbox() <- hub.ShutdownHub{} }()

	api := &httpapi.API{
		Hub:        h,
		Log:        log,
		BaseURL:    strings.TrimRight(cfg.baseURL, "/"),
		CodeLength: cfg.codeLength,
	}

	addr := fmt.Sprintf("%s:%d", cfg.bind, cfg.port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-quit:
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	// .env is optional; flags and IMPOSTER_* env vars win regardless.
	_ = godotenv.Load()

	cfg := &config{}
	cobra.CheckErr(newCmd(cfg).ExecuteContext(context.Background()))
}
