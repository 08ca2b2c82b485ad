// dos1102 talks to a Hanmatek DOS1102 oscilloscope over USB.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/neilo40/dos1102_remote/internal/config"
	"github.com/neilo40/dos1102_remote/internal/logger"
	"github.com/neilo40/dos1102_remote/internal/scope"
	"github.com/neilo40/dos1102_remote/internal/transport"
)

var (
	configPath   string
	logLevel     string
	visaResource string
)

var rootCmd = &cobra.Command{
	Use:   "dos1102",
	Short: "Query a Hanmatek DOS1102 oscilloscope over USB",
	Long: `dos1102 sends SCPI-like commands to a Hanmatek DOS1102 (OWON SDS1102
family) oscilloscope and decodes the waveforms it returns.

The scope is opened directly over USB by default. If the kernel usbtmc driver
holds the device, it is detached automatically; otherwise try
"modprobe -r usbtmc" or a udev rule granting access to the device.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	rootCmd.PersistentFlags().StringVar(&visaResource, "visa", "", "VISA resource string instead of direct USB")
}

// openTransport connects to the scope named by cfg: a VISA session when a
// resource string is configured, direct USB otherwise.
var openTransport = func(cfg *config.Config, log logrus.FieldLogger) (transport.Transport, error) {
	if cfg.VISAResource != "" {
		log.WithField("resource", cfg.VISAResource).Debug("opening VISA session")
		return transport.OpenVISA(cfg.VISAResource, log)
	}
	u, err := transport.Open(cfg.Transport(), log)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// openScope loads the configuration and opens a session with the scope. The
// caller closes the returned Scope.
func openScope() (*scope.Scope, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if visaResource != "" {
		cfg.VISAResource = visaResource
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	t, err := openTransport(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	s := scope.New(t,
		scope.WithLogger(log),
		scope.WithReadSize(cfg.ReadSize),
		scope.WithSettle(cfg.Settle.Duration),
	)
	return s, log, nil
}

// withScope runs fn with an open session and closes it afterwards.
func withScope(fn func(s *scope.Scope, log *logrus.Logger) error) error {
	s, log, err := openScope()
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.WithError(err).Warn("closing device")
		}
	}()
	return fn(s, log)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
