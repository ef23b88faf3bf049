package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/Domenick1991/fareledger/internal/service/booking"
)

type printer struct {
	w    io.Writer
	json bool
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) table(header string, rows func(tw *tabwriter.Writer)) error {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

func money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func (p *printer) flights(list []domain.Flight) error {
	if p.json {
		return p.encode(list)
	}
	return p.table("ID\tFLIGHT\tROUTE\tDEPARTS\tSEATS\tBASE\tSTATUS", func(tw *tabwriter.Writer) {
		for _, f := range list {
			fmt.Fprintf(tw, "%d\t%s\t%s-%s\t%s\t%d/%d\t%s\t%s\n",
				f.ID, f.FlightNo, f.Origin, f.Destination, f.DepartureTime.Format(time.RFC3339),
				f.SeatsAvailable, f.TotalSeats, money(f.BaseFareCents), f.Status)
		}
	})
}

func (p *printer) offers(list []domain.FlightOffer) error {
	if p.json {
		return p.encode(list)
	}
	return p.table("ID\tFLIGHT\tROUTE\tDEPARTS\tSEATS\tFARE\tDEMAND", func(tw *tabwriter.Writer) {
		for _, o := range list {
			f := o.Flight
			fmt.Fprintf(tw, "%d\t%s\t%s-%s\t%s\t%d/%d\t%s\t%s\n",
				f.ID, f.FlightNo, f.Origin, f.Destination, f.DepartureTime.Format(time.RFC3339),
				f.SeatsAvailable, f.TotalSeats, money(o.Fare.FareCents), o.Fare.DemandLevel)
		}
	})
}

func (p *printer) quote(q *domain.FareQuote) error {
	if p.json {
		return p.encode(q)
	}
	_, err := fmt.Fprintf(p.w, "flight %d: %s (base %s, %+.1f%%)\nseat x%.2f  time x%.2f  demand x%.2f (%s)\n%d seats left, departs in %dh\n",
		q.FlightID, money(q.FareCents), money(q.BaseFareCents), q.IncreasePercent,
		q.SeatFactor, q.TimeFactor, q.DemandFactor, q.DemandLevel,
		q.SeatsRemaining, q.HoursToDeparture)
	return err
}

func (p *printer) projections(points []domain.FareProjection) error {
	if p.json {
		return p.encode(points)
	}
	return p.table("HOURS\tFARE\tSEATS\tDEMAND", func(tw *tabwriter.Writer) {
		for _, pt := range points {
			fmt.Fprintf(tw, "+%d\t%s\t%d\t%s\n", pt.HoursFromNow, money(pt.FareCents), pt.SeatsRemaining, pt.DemandLevel)
		}
	})
}

func (p *printer) trends(records []domain.FareHistoryRecord) error {
	if p.json {
		return p.encode(records)
	}
	return p.table("RECORDED\tFARE\tSEATS\tDEMAND", func(tw *tabwriter.Writer) {
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.RecordedAt.Format(time.RFC3339), money(r.FareCents), r.SeatsRemaining, r.DemandLevel)
		}
	})
}

func (p *printer) seatMap(m *domain.SeatMap) error {
	if p.json {
		return p.encode(m)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "flight %d: %d seats available\n", m.FlightID, m.Available)
	writeCabin(&b, "business", m.Business)
	writeCabin(&b, "economy", m.Economy)
	_, err := io.WriteString(p.w, b.String())
	return err
}

// writeCabin prints seats row by row, taken seats as "--".
func writeCabin(b *strings.Builder, name string, seats []domain.Seat) {
	fmt.Fprintf(b, "%s:\n", name)
	row := ""
	for _, s := range seats {
		r := strings.TrimRight(s.Number, "ABCDEF")
		if r != row {
			if row != "" {
				b.WriteByte('\n')
			}
			row = r
			fmt.Fprintf(b, "%3s ", r)
		}
		if s.Available {
			fmt.Fprintf(b, " %s", s.Number[len(r):])
		} else {
			b.WriteString(" -")
		}
	}
	b.WriteByte('\n')
}

func (p *printer) booking(bk *domain.Booking) error {
	if p.json {
		return p.encode(bk)
	}
	_, err := fmt.Fprintf(p.w, "%s  %s  flight %d seat %s  %s  %s/%s\n",
		bk.PNR, bk.Passenger.Name, bk.FlightID, bk.SeatNumber, money(bk.FinalFareCents), bk.Status, bk.PaymentStatus)
	return err
}

func (p *printer) details(d *booking.Details) error {
	if p.json {
		return p.encode(d)
	}
	if err := p.booking(&d.Booking); err != nil {
		return err
	}
	fmt.Fprintf(p.w, "current fare %s (difference %s), cancellable: %t\n",
		money(d.CurrentFare.FareCents), money(d.PriceDifferenceCents), d.CanCancel)
	return p.table("AT\tACTION\tBY\tDESCRIPTION", func(tw *tabwriter.Writer) {
		for _, h := range d.History {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", h.PerformedAt.Format(time.RFC3339), h.Action, h.PerformedBy, h.Description)
		}
	})
}
