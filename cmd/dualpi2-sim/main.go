// Command dualpi2-sim drives a synthetic saturating flow through a DualPi2
// engine with a virtual clock and logs controller convergence.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"dualpi2"

	"github.com/urfave/cli/v2"
)

var app = &cli.App{
	Name:  "dualpi2-sim",
	Usage: "Run a saturating-flow scenario against the DualPi2 AQM engine.",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "duration",
			Usage: "virtual time to simulate",
			Value: 10 * time.Second,
		},
		&cli.Float64Flag{
			Name:  "rate",
			Usage: "bottleneck link rate in Mbps",
			Value: 50,
		},
		&cli.Float64Flag{
			Name:  "load",
			Usage: "offered load as a fraction of the link rate",
			Value: 1.2,
		},
		&cli.Uint64Flag{
			Name:  "size",
			Usage: "packet size in bytes",
			Value: 1500,
		},
		&cli.BoolFlag{
			Name:  "classic",
			Usage: "send classic (non-ECN) traffic instead of ECT(1)",
		},
		&cli.DurationFlag{
			Name:  "target",
			Usage: "queue delay target",
			Value: 15 * time.Millisecond,
		},
	},
	Action: run,
}

func run(c *cli.Context) error {
	cfg := dualpi2.DefaultConfig()
	cfg.Target = c.Duration("target")
	q, err := dualpi2.New(cfg)
	if err != nil {
		return err
	}

	rate := c.Float64("rate") * 1e6 // bits/s
	size := c.Uint64("size")
	ecn := dualpi2.ECT1
	if c.Bool("classic") {
		ecn = dualpi2.NotECT
	}
	txMicros := uint64(float64(size*8) / rate * 1e6)
	arrMicros := uint64(float64(size*8) / (rate * c.Float64("load")) * 1e6)
	updMicros := uint64(cfg.UpdatePeriod.Microseconds())
	endMicros := uint64(c.Duration("duration").Microseconds())

	var marks, drops, sent uint64
	var sojournSum, sojournN uint64
	q.Telemetry().On(dualpi2.EvtSojourn, func(cls dualpi2.Class, s uint64) {
		sojournSum += s
		sojournN++
	})

	// virtual clock starts at 1 so enqueue stamps are never zero
	now := uint64(1)
	nextArrival, nextDeparture, nextUpdate := now, now+txMicros, now+updMicros
	nextReport := uint64(time.Second.Microseconds())
	for now < endMicros {
		now = min(nextArrival, min(nextDeparture, nextUpdate))
		if now >= nextArrival {
			q.Enqueue(&dualpi2.Packet{Size: size, ECN: ecn}, now)
			nextArrival = now + arrMicros
		}
		if now >= nextUpdate {
			q.Update(now)
			nextUpdate = now + updMicros
		}
		if now >= nextDeparture {
			if pkt := q.Dequeue(now); pkt != nil {
				sent++
				if pkt.Marked {
					marks++
				}
			}
			nextDeparture = now + txMicros
		}
		if now >= nextReport {
			pCL, pC, _ := q.Probabilities()
			var sojournMs float64
			if sojournN > 0 {
				sojournMs = float64(sojournSum) / float64(sojournN) / 1e3
			}
			st := q.Stats()
			drops = st.ClassicDrops + st.LowLatencyDrops + st.ForcedDrops
			slog.Info("report",
				slog.Float64("t", float64(now)/1e6),
				slog.Float64("pCL", pCL),
				slog.Float64("pC", pC),
				slog.Float64("sojournMs", sojournMs),
				slog.Uint64("sent", sent),
				slog.Uint64("marks", marks),
				slog.Uint64("drops", drops))
			sojournSum, sojournN = 0, 0
			nextReport += uint64(time.Second.Microseconds())
		}
	}
	st := q.Stats()
	fmt.Printf("sent %d, marked %d, dropped %d (forced %d), final queue %d bytes\n",
		sent, st.Marks, st.ClassicDrops+st.LowLatencyDrops, st.ForcedDrops,
		q.QueueBytes())
	return nil
}

func main() {
	if err := app.Run(os.Args); err != nil {
		slog.Error("app exit", slog.Any("err", err))
		os.Exit(1)
	}
}
