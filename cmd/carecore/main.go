// Command carecore is the operator CLI for a caregiver's data: it lists
// recipients, previews and runs cascading deletes and exports the local
// store, against the backends selected by configuration.
package main

import (
	"carecore/internal/auth"
	"carecore/internal/config"
	"carecore/internal/core"
	"carecore/internal/logging"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout}
	root := newRootCmd(a, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if err := errors.Join(err, a.teardown()); err != nil {
		if _, writeErr := fmt.Fprintf(stderr, "carecore: %v\n", err); writeErr != nil {
			return 1
		}
		return 1
	}
	return 0
}

// app carries the state shared by every subcommand.
type app struct {
	configPath  string
	logLevel    string
	caregiver   string
	email       string
	password    string
	metricsAddr string

	stdout io.Writer
	logger *zap.Logger
	svc    *core.Service
	closer core.Backends
	server *http.Server
}

func newRootCmd(a *app, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "carecore",
		Short:         "Manage a caregiver's recipients, content and assets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(stderr)
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "", "override the configured log level")
	flags.StringVar(&a.caregiver, "caregiver", "", "caregiver id whose data is loaded")
	flags.StringVar(&a.email, "email", "", "sign in as this configured user instead of passing --caregiver")
	flags.StringVar(&a.password, "password", "", "password for --email (default $CARECORE_PASSWORD)")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")

	root.AddCommand(
		newRecipientsCmd(a),
		newCollectionsCmd(a),
		newPlanCmd(a),
		newExportCmd(a),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	if a.caregiver == "" && a.email == "" {
		return errors.New("--caregiver or --email is required")
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := a.signIn(ctx, cfg.Auth); err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.metricsAddr != "" {
		cfg.Metrics.Addr = a.metricsAddr
	}
	zc, err := logging.Config(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	zc.OutputPaths = []string{"stderr"}
	a.logger, err = logging.Build(zc, "")
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := core.NewMetrics(reg)
	if err != nil {
		return err
	}
	if cfg.Metrics.Addr != "" {
		if err := a.serveMetrics(cfg.Metrics.Addr, reg); err != nil {
			return err
		}
	}

	a.svc, a.closer, err = core.Open(ctx, cfg, core.WithLogger(a.logger), core.WithMetrics(metrics))
	if err != nil {
		return err
	}
	if _, err := a.svc.Load(ctx, a.caregiver); err != nil {
		return fmt.Errorf("load caregiver %s: %w", a.caregiver, err)
	}
	return nil
}

// signIn resolves --email to a caregiver id through the configured users.
func (a *app) signIn(ctx context.Context, cfg auth.Config) error {
	if a.email == "" {
		return nil
	}
	password := a.password
	if password == "" {
		password = os.Getenv("CARECORE_PASSWORD")
	}
	provider, err := auth.NewMemoryProviderFromConfig(cfg)
	if err != nil {
		return err
	}
	session, err := provider.SignInWithEmail(ctx, a.email, password)
	if err != nil {
		return fmt.Errorf("sign in %s: %s", a.email, auth.CodeOf(err).Message())
	}
	if a.caregiver != "" && a.caregiver != session.UserID {
		return fmt.Errorf("--caregiver %s does not match the signed-in user", a.caregiver)
	}
	a.caregiver = session.UserID
	return nil
}

func (a *app) serveMetrics(addr string, reg *prometheus.Registry) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return nil
}

// teardown releases whatever setup managed to open.
func (a *app) teardown() error {
	var errs []error
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		errs = append(errs, a.server.Shutdown(ctx))
	}
	errs = append(errs, a.closer.Close())
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}
