// Package cli implements farectl, an operator tool for quoting fares and
// managing bookings against the configured storage.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Domenick1991/fareledger/config"
	"github.com/Domenick1991/fareledger/internal/bootstrap"
	"github.com/Domenick1991/fareledger/internal/service/booking"
	"github.com/Domenick1991/fareledger/internal/service/flights"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Services is what a command needs; release frees connections.
type Services struct {
	Flights  flights.FlightUseCase
	Bookings booking.BookingUseCase
	release  func()
}

// ServiceFactory opens services for one command run.
type ServiceFactory func(ctx context.Context, opts *RootOptions) (*Services, error)

type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	Verbose    bool
}

var validFormats = []string{"text", "json"}

func NewRootCommand(factory ServiceFactory) *cobra.Command {
	opts := &RootOptions{}
	if factory == nil {
		factory = openServices
	}

	cmd := &cobra.Command{
		Use:   "farectl",
		Short: "Inspect fares and manage bookings",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "config.yaml"
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfig, "path to config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log to stderr")

	cmd.AddCommand(
		newFlightsCommand(opts, factory),
		newSearchCommand(opts, factory),
		newQuoteCommand(opts, factory),
		newProjectCommand(opts, factory),
		newTrendsCommand(opts, factory),
		newSeatMapCommand(opts, factory),
		newBookCommand(opts, factory),
		newCancelCommand(opts, factory),
		newBookingCommand(opts, factory),
	)
	return cmd
}

// openServices builds the app from the config file. Events are not
// published from the command line.
func openServices(ctx context.Context, opts *RootOptions) (*Services, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Kafka.Brokers = nil

	logger := zap.NewNop()
	if opts.Verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}

	app, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Services{Flights: app.Flights, Bookings: app.Bookings, release: app.Close}, nil
}

// run opens services, calls fn and releases them.
func run(cmd *cobra.Command, opts *RootOptions, factory ServiceFactory, fn func(ctx context.Context, s *Services, out *printer) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := factory(ctx, opts)
	if err != nil {
		return err
	}
	if s.release != nil {
		defer s.release()
	}
	return fn(ctx, s, newPrinter(cmd.OutOrStdout(), opts.Format))
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{w: w, json: format == "json"}
}
