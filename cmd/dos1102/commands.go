package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/neilo40/dos1102_remote/internal/export"
	"github.com/neilo40/dos1102_remote/internal/scope"
)

var (
	channelArg string
	rawSamples bool
	outPath    string
	stopFirst  bool
)

var idnCmd = &cobra.Command{
	Use:   "idn",
	Short: "Print the instrument identification string",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScope(func(s *scope.Scope, log *logrus.Logger) error {
			idn, err := s.Identify()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), idn)
			return nil
		})
	},
}

var queryCmd = &cobra.Command{
	Use:   "query COMMAND...",
	Short: "Send a raw command and show whatever comes back",
	Long: `query sends its arguments, joined by spaces, as a single command and
prints the reply. Text replies are printed as-is, binary replies as decimal
byte values. Useful for exploring the command set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScope(func(s *scope.Scope, log *logrus.Logger) error {
			_, err := s.QueryAndShowResponse(cmd.OutOrStdout(), strings.Join(args, " "))
			return err
		})
	},
}

var waveCmd = &cobra.Command{
	Use:   "wave",
	Short: "Fetch the on-screen waveform of one channel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := scope.ParseChannel(channelArg)
		if err != nil {
			return err
		}
		return withScope(func(s *scope.Scope, log *logrus.Logger) error {
			out := cmd.OutOrStdout()
			if rawSamples {
				samples, err := s.FetchWaveform(ch)
				if err != nil {
					return err
				}
				for _, v := range samples {
					fmt.Fprintln(out, v)
				}
				return nil
			}
			volts, err := s.FetchVolts(ch)
			if err != nil {
				return err
			}
			for _, v := range volts {
				fmt.Fprintf(out, "%g\n", v)
			}
			return nil
		})
	},
}

var metaCmd = &cobra.Command{
	Use:   "meta",
	Short: "Print the settings of the current capture",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScope(func(s *scope.Scope, log *logrus.Logger) error {
			md, err := s.Metadata()
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(md, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		})
	},
}

var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Print the automatic measurements of one channel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := scope.ParseChannel(channelArg)
		if err != nil {
			return err
		}
		return withScope(func(s *scope.Scope, log *logrus.Logger) error {
			m, err := s.Measurements(ch)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", k, m[k])
			}
			return nil
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start acquisition",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScope(func(s *scope.Scope, log *logrus.Logger) error {
			return s.Run()
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop acquisition",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScope(func(s *scope.Scope, log *logrus.Logger) error {
			return s.Stop()
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write both channels of the current capture to a CSV file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScope(func(s *scope.Scope, log *logrus.Logger) error {
			if stopFirst {
				log.Info("Stopping acquisition...")
				if err := s.Stop(); err != nil {
					return err
				}
			}

			log.Info("Fetching capture settings...")
			md, err := s.Metadata()
			if err != nil {
				return err
			}
			times, err := md.TimeBase()
			if err != nil {
				return err
			}

			cols := make([]export.Column, 0, len(scope.Channels))
			for _, ch := range scope.Channels {
				log.Infof("Fetching %s waveform data...", ch)
				samples, err := s.FetchWaveform(ch)
				if err != nil {
					return err
				}
				volts, err := md.Volts(ch, samples)
				if err != nil {
					return err
				}
				cols = append(cols, export.Column{Name: ch.String(), Values: volts})
			}

			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := export.WriteCSV(f, times, cols...); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"file": outPath, "points": len(times)}).Info("capture written")
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{waveCmd, measureCmd} {
		c.Flags().StringVarP(&channelArg, "channel", "n", "1", "channel (1 or 2)")
	}
	waveCmd.Flags().BoolVar(&rawSamples, "raw", false, "print raw ADC samples instead of volts")
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "OsciData.csv", "output CSV file")
	exportCmd.Flags().BoolVar(&stopFirst, "stop", false, "stop acquisition before reading so both channels match")

	rootCmd.AddCommand(idnCmd, queryCmd, waveCmd, metaCmd, measureCmd, runCmd, stopCmd, exportCmd)
}
