package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"load_profile/internal/config"
	"load_profile/internal/ingest"
	"load_profile/internal/mqtt"
	"load_profile/internal/numeric"
	"load_profile/internal/pipeline"
	"load_profile/internal/store"
	"load_profile/internal/validate"
)

func main() {
	configPath := flag.String("config", "", "profile config file (default $LOADPROFILE_CONFIG)")
	profileOut := flag.String("profile-out", "", "override output profile CSV path")
	reportOut := flag.String("report-out", "", "override output report JSON path")
	verbose := flag.Bool("verbose", false, "debug logging")
	quiet := flag.Bool("quiet", false, "no progress lines")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}
	if *profileOut != "" {
		cfg.Output.Profile = *profileOut
	}
	if *reportOut != "" {
		cfg.Output.Report = *reportOut
	}
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataStore := store.New()
	if err := ingest.Load(ctx, cfg, dataStore); err != nil {
		log.Fatalf("Failed to load inputs: %v", err)
	}

	var sinks pipeline.Callbacks
	if !*quiet {
		sinks = append(sinks, pipeline.CallbackFunc(func(p pipeline.Progress) {
			fmt.Fprintln(os.Stderr, formatProgress(p))
		}))
	}

	var publisher *mqtt.Publisher
	var pubWG sync.WaitGroup
	pubCtx, stopPub := context.WithCancel(context.Background())
	if cfg.MQTT.Broker != "" {
		client, err := mqtt.NewClient(mqtt.ClientConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		})
		if err != nil {
			log.Printf("MQTT disabled: %v", err)
		} else {
			defer client.Close()
			publisher = mqtt.NewPublisher(client.Native(), mqtt.PublisherConfig{Topic: cfg.MQTT.Topic})
			sinks = append(sinks, publisher)
			pubWG.Add(1)
			go func() {
				defer pubWG.Done()
				publisher.Start(pubCtx)
			}()
		}
	}

	engine := pipeline.New(numeric.DefaultToolkit(), logger)
	engine.SetCallback(sinks)

	res, runErr := engine.Run(ctx, opts, pipeline.InputsFromStore(dataStore, cfg.ForecastModel))
	if publisher != nil {
		publisher.OnResult(res)
	}
	stopPub()
	pubWG.Wait()
	if runErr != nil {
		log.Fatalf("Generation failed: %v", runErr)
	}

	if err := ingest.SaveProfile(cfg.Output.Profile, res.Profile); err != nil {
		log.Fatalf("Writing profile: %v", err)
	}
	if err := ingest.SaveJSON(cfg.Output.Report, res); err != nil {
		log.Fatalf("Writing report: %v", err)
	}

	printSummary(os.Stdout, res)
	fmt.Printf("\nProfile: %s\nReport:  %s\n", cfg.Output.Profile, cfg.Output.Report)
	if !res.Report.TargetsMet {
		os.Exit(2)
	}
}

func formatProgress(p pipeline.Progress) string {
	return fmt.Sprintf("[%3.0f%%] %-17s %s", p.Percent, p.Stage, p.Message)
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	badColor  = color.New(color.FgRed)
	dimColor  = color.New(color.FgHiBlack)
)

// errorColor bands the annual energy error against the acceptance tolerance.
func errorColor(a validate.YearAccuracy) *color.Color {
	e := math.Abs(a.ErrorPct)
	switch {
	case !a.HasTarget:
		return dimColor
	case e <= validate.TargetTolerance*100:
		return okColor
	case e <= 1:
		return warnColor
	}
	return badColor
}

func preserved(c validate.Comparison) string {
	if c.Preserved {
		return okColor.Sprint("preserved")
	}
	return badColor.Sprint("not preserved")
}

func printSummary(w io.Writer, res *pipeline.Result) {
	r := res.Report
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Load Profile %s (run %s)\n", res.ProfileID, res.RunID)
	fmt.Fprintf(w, "  Method: %s   Base year: FY%d   Capabilities: %s\n",
		res.Method, res.BaseYear, strings.Join(res.Capabilities, ", "))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %-7s %6s %14s %14s %8s %9s %7s\n", "Year", "Hours", "Generated MWh", "Target MWh", "Error", "Peak MW", "LF")
	for _, a := range r.Accuracy {
		target := "-"
		if a.HasTarget {
			target = fmt.Sprintf("%.0f", a.TargetMWh)
		}
		fmt.Fprintf(w, "  FY%-5d %6d %14.0f %14s %s %9.1f %7.3f\n",
			a.FiscalYear, a.Hours, a.GeneratedMWh, target,
			errorColor(a).Sprintf("%7.4f%%", a.ErrorPct), a.PeakMW, a.LoadFactor)
	}
	fmt.Fprintln(w)

	s := r.Smoothness
	fmt.Fprintf(w, "  Month boundaries: %d   max %.2f%%   mean %.2f%%", s.MonthBoundaries, s.MaxTransitionPct, s.MeanTransitionPct)
	if s.WorstBoundary != "" {
		fmt.Fprintf(w, "   worst %s", s.WorstBoundary)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Hourly change: mean %.2f%%   p95 %.2f%%   p99 %.2f%%\n", s.HourlyChangeMean, s.HourlyChangeP95, s.HourlyChangeP99)
	fmt.Fprintf(w, "  Daily CV:  %.4f vs %.4f historical (%s)\n", r.Realism.DailyCV.Generated, r.Realism.DailyCV.Historical, preserved(r.Realism.DailyCV))
	fmt.Fprintf(w, "  Weekly CV: %.4f vs %.4f historical (%s)\n", r.Realism.WeeklyCV.Generated, r.Realism.WeeklyCV.Historical, preserved(r.Realism.WeeklyCV))
	if res.Floored > 0 {
		fmt.Fprintf(w, "  Floored hours: %d\n", res.Floored)
	}

	if len(res.Warnings) > 0 {
		fmt.Fprintln(w)
		warnColor.Fprintf(w, "  Warnings (%d):\n", len(res.Warnings))
		for _, msg := range res.Warnings {
			fmt.Fprintf(w, "    - %s\n", msg)
		}
	}

	fmt.Fprintln(w)
	if r.TargetsMet {
		okColor.Fprintln(w, "  All annual targets met")
	} else {
		badColor.Fprintln(w, "  Annual targets NOT met")
	}
}
