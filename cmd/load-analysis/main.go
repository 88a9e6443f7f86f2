package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"load_profile/internal/config"
	"load_profile/internal/ingest"
	"load_profile/internal/model"
	"load_profile/internal/numeric"
	"load_profile/internal/pattern"
	"load_profile/internal/store"
)

func main() {
	configPath := flag.String("config", "", "profile config file (default $LOADPROFILE_CONFIG)")
	method := flag.String("method", "", "override generation method")
	jsonOut := flag.String("json", "", "also write the pattern set as JSON to this path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}
	if *method != "" {
		cfg.Method = *method
	}
	m, err := pattern.ParseMethod(cfg.Method)
	if err != nil {
		log.Fatal(err)
	}
	seasons, err := cfg.SeasonTable()
	if err != nil {
		log.Fatal(err)
	}

	dataStore := store.New()
	if err := ingest.Load(context.Background(), cfg, dataStore); err != nil {
		log.Fatalf("Failed to load inputs: %v", err)
	}

	opts := pattern.DefaultOptions()
	opts.HolidaySigma = cfg.Tuning.HolidaySigma
	opts.ShapeSmoothingWindow = cfg.Tuning.ShapeSmoothingWindow
	opts.ShapeSmoothingOrder = cfg.Tuning.ShapeSmoothingOrder
	opts.DefaultGrowthRate = cfg.Tuning.DefaultGrowthRate
	opts.GrowthClamp = cfg.Tuning.GrowthClamp
	opts.ClusterCount = cfg.Tuning.ClusterCount

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	extractor := pattern.NewExtractor(opts, seasons, numeric.DefaultToolkit(), logger)

	var external *model.Calendar
	if h := dataStore.Holidays(); h != nil {
		external = model.NewCalendar(h, seasons)
	}
	history, err := extractor.Clean(dataStore.History(), external)
	if err != nil {
		log.Fatal(err)
	}
	ps, err := extractor.Extract(history, m)
	if err != nil {
		log.Fatal(err)
	}

	printReport(os.Stdout, history, ps, seasons)

	if *jsonOut != "" {
		if err := ingest.SaveJSON(*jsonOut, ps); err != nil {
			log.Fatalf("Writing %s: %v", *jsonOut, err)
		}
		fmt.Printf("\nPattern set written to %s\n", *jsonOut)
	}
}

func printReport(w io.Writer, h *pattern.History, ps *pattern.PatternSet, seasons model.SeasonTable) {
	first, last := h.Records[0].Timestamp, h.Records[len(h.Records)-1].Timestamp
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Historical Load Analysis")
	fmt.Fprintf(w, "  Data: %s to %s (%d hours)\n", first.Format("2006-01-02"), last.Format("2006-01-02"), len(h.Records))
	fmt.Fprintf(w, "  Dropped: %d   Duplicates merged: %d   Holidays: %d (%d detected)\n",
		h.Dropped, h.Duplicates, h.Calendar.HolidayCount(), h.DetectedHolidays)
	fmt.Fprintf(w, "  Method: %s   Growth rate: %.2f%%/yr\n", ps.Method, ps.GrowthRate*100)
	fmt.Fprintln(w)

	printShapeTable(w, ps.HourlyShapes)
	fmt.Fprintln(w)
	printMonthTable(w, ps, seasons)
	fmt.Fprintln(w)

	f := ps.DayTypeFactors
	fmt.Fprintln(w, "  Day Types (relative to weekday):")
	fmt.Fprintf(w, "    Weekend %.3f   Holiday %.3f   Friday evening %.3f   Sunday evening %.3f\n",
		f.Weekend, f.Holiday, f.FridayEvening, f.SundayEvening)
	fmt.Fprintln(w)

	b := ps.BaseLoad
	fmt.Fprintf(w, "  Base Load: p5 %.1f MW   p10 %.1f MW   min %.1f MW   night avg %.1f MW\n", b.P5, b.P10, b.Min, b.NightAvg)

	v := ps.Variability
	fmt.Fprintf(w, "  Variability: daily CV %.4f   weekly CV %.4f   within-day std %.1f MW\n", v.DailyCV, v.WeeklyCV, v.MeanDailyHourlyStd)
	fmt.Fprintf(w, "  Hourly change: mean %.2f%%   p99 %.2f%%\n", v.HourlyChangeMean*100, v.HourlyChangeP99*100)

	if d := ps.Decomposition; d != nil {
		fmt.Fprintf(w, "  Decomposition (period %dh): trend %.3f   seasonal %.3f   residual %.3f\n",
			d.Period, d.TrendStrength, d.SeasonalStrength, d.ResidualStrength)
	}

	if len(ps.Archetypes) > 0 {
		fmt.Fprintln(w)
		printArchetypes(w, ps.Archetypes)
	}

	if len(ps.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Warnings (%d):\n", len(ps.Warnings))
		for _, msg := range ps.Warnings {
			fmt.Fprintf(w, "    - %s\n", msg)
		}
	}
}

var dayTypes = []model.DayType{model.DayWeekday, model.DayWeekend, model.DayHoliday}

func printShapeTable(w io.Writer, shapes map[model.DayType][24]float64) {
	fmt.Fprintln(w, "  Hourly Shapes:")
	fmt.Fprintf(w, "   %4s │ %7s │ %7s │ %7s\n", "Hour", "Weekday", "Weekend", "Holiday")
	fmt.Fprintf(w, "  ──────┼─────────┼─────────┼────────\n")
	for h := 0; h < 24; h++ {
		cols := make([]string, 0, len(dayTypes))
		for _, dt := range dayTypes {
			if s, ok := shapes[dt]; ok {
				cols = append(cols, fmt.Sprintf("%7.3f", s[h]))
			} else {
				cols = append(cols, fmt.Sprintf("%7s", "-"))
			}
		}
		fmt.Fprintf(w, "     %02d │ %s\n", h, strings.Join(cols, " │ "))
	}
}

func printMonthTable(w io.Writer, ps *pattern.PatternSet, seasons model.SeasonTable) {
	fmt.Fprintln(w, "  Monthly Factors:")
	fmt.Fprintf(w, "   %-9s │ %-12s │ %6s\n", "Month", "Season", "Factor")
	fmt.Fprintf(w, "  ───────────┼──────────────┼───────\n")
	for i := 0; i < 12; i++ {
		m := model.FiscalMonth(i)
		factor := fmt.Sprintf("%6.3f", ps.MonthlyFactors[i])
		if !ps.MonthObserved[i] {
			factor = fmt.Sprintf("%6s", "-")
		}
		fmt.Fprintf(w, "   %-9s │ %-12s │ %s\n", m, seasons.SeasonOf(m), factor)
	}
}

func printArchetypes(w io.Writer, archetypes []pattern.Archetype) {
	fmt.Fprintln(w, "  Daily Archetypes:")
	for i, a := range archetypes {
		peakHour, peak := 0, 0.0
		for h, v := range a.Profile {
			if v > peak {
				peakHour, peak = h, v
			}
		}
		fmt.Fprintf(w, "    #%d  %4d days  mostly %-7s  peak %.2fx at %02d:00\n",
			i+1, a.Days, a.DominantDayType, peak, peakHour)
	}
}
