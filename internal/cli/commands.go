package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/Domenick1991/fareledger/internal/service/booking"
	"github.com/Domenick1991/fareledger/internal/service/flights"
	"github.com/spf13/cobra"
)

func parseFlightID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid flight id %q", arg)
	}
	return id, nil
}

func newFlightsCommand(opts *RootOptions, factory ServiceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "flights",
		Short: "List scheduled flights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, factory, func(ctx context.Context, s *Services, out *printer) error {
				list, err := s.Flights.List(ctx)
				if err != nil {
					return err
				}
				return out.flights(list)
			})
		},
	}
}

func newSearchCommand(opts *RootOptions, factory ServiceFactory) *cobra.Command {
	var (
		maxPrice int64
		sortBy   string
	)
	cmd := &cobra.Command{
		Use:   "search <origin> <destination> <YYYY-MM-DD>",
		Short: "Find bookable flights on a route and day with current fares",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.Parse(time.DateOnly, args[2])
			if err != nil {
				return fmt.Errorf("invalid date %q: want YYYY-MM-DD", args[2])
			}
			return run(cmd, opts, factory, func(ctx context.Context, s *Services, out *printer) error {
				offers, err := s.Flights.Search(ctx, flights.SearchQuery{
					Origin:        args[0],
					Destination:   args[1],
					Date:          date,
					MaxPriceCents: maxPrice,
					SortBy:        sortBy,
				})
				if err != nil {
					return err
				}
				return out.offers(offers)
			})
		},
	}
	cmd.Flags().Int64Var(&maxPrice, "max-price", 0, "fare ceiling in cents, 0 for none")
	cmd.Flags().StringVar(&sortBy, "sort", flights.SortByDeparture, "order by departure, fare or duration")
	return cmd
}

func newQuoteCommand(opts *RootOptions, factory ServiceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <flight-id>",
		Short: "Price a flight now and record the quote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFlightID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, opts, factory, func(ctx context.Context, s *Services, out *printer) error {
				q, err := s.Flights.QuoteFare(ctx, id)
				if err != nil {
					return err
				}
				return out.quote(q)
			})
		},
	}
}

func newProjectCommand(opts *RootOptions, factory ServiceFactory) *cobra.Command {
	var hours int
	cmd := &cobra.Command{
		Use:   "project <flight-id>",
		Short: "Simulate how the fare moves over the coming hours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFlightID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, opts, factory, func(ctx context.Context, s *Services, out *printer) error {
				points, err := s.Flights.ProjectFares(ctx, id, hours)
				if err != nil {
					return err
				}
				return out.projections(points)
			})
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 24, "hours ahead to project")
	return cmd
}

func newTrendsCommand(opts *RootOptions, factory ServiceFactory) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "trends <flight-id>",
		Short: "Show recorded fares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFlightID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, opts, factory, func(ctx context.Context, s *Services, out *printer) error {
				records, err := s.Flights.FareTrends(ctx, id, days)
				if err != nil {
					return err
				}
				return out.trends(records)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "days of history")
	return cmd
}

func newSeatMapCommand(opts *RootOptions, factory ServiceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "seatmap <flight-id>",
		Short: "Show seat availability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFlightID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, opts, factory, func(ctx context.Context, s *Services, out *printer) error {
				m, err := s.Bookings.GenerateSeatMap(ctx, id)
				if err != nil {
					return err
				}
				return out.seatMap(m)
			})
		},
	}
}

func newBookCommand(opts *RootOptions, factory ServiceFactory) *cobra.Command {
	var input booking.CreateBookingInput
	cmd := &cobra.Command{
		Use:   "book <flight-id> <seat>",
		Short: "Book and pay for a seat",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFlightID(args[0])
			if err != nil {
				return err
			}
			input.FlightID = id
			input.SeatNumber = args[1]
			return run(cmd, opts, factory, func(ctx context.Context, s *Services, out *printer) error {
				b, err := s.Bookings.CreateBooking(ctx, input)
				if err != nil {
					return err
				}
				return out.booking(b)
			})
		},
	}
	cmd.Flags().StringVar(&input.Passenger.Name, "name", "", "passenger name")
	cmd.Flags().IntVar(&input.Passenger.Age, "age", 0, "passenger age")
	cmd.Flags().StringVar(&input.Passenger.Phone, "phone", "", "passenger phone")
	cmd.Flags().StringVar(&input.Passenger.Email, "email", "", "passenger email")
	cmd.Flags().StringVar(&input.PaymentMethod, "payment", string(domain.PaymentCreditCard), "payment method")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("age")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func newCancelCommand(opts *RootOptions, factory ServiceFactory) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel <pnr>",
		Short: "Cancel a confirmed booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, factory, func(ctx context.Context, s *Services, out *printer) error {
				b, err := s.Bookings.CancelBooking(ctx, args[0], reason)
				if err != nil {
					return err
				}
				return out.booking(b)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason")
	return cmd
}

func newBookingCommand(opts *RootOptions, factory ServiceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "booking <pnr>",
		Short: "Show a booking with its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, factory, func(ctx context.Context, s *Services, out *printer) error {
				d, err := s.Bookings.GetBookingDetails(ctx, args[0])
				if err != nil {
					return err
				}
				return out.details(d)
			})
		},
	}
}
