// Command syllabai-ics turns a stored analysis document into an iCalendar file
// without touching the network or a database.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/syllabai/syllabai/internal/analyze"
	"github.com/syllabai/syllabai/internal/config"
	"github.com/syllabai/syllabai/internal/logging"
	"github.com/syllabai/syllabai/pkg/ical"
)

var errNoCalendar = errors.New("no events could be expanded")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("syllabai-ics", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		in       string
		out      string
		tz       string
		horizon  int
		logLevel string
	)
	fs.StringVar(&in, "in", "-", "Analysis JSON file (- for stdin)")
	fs.StringVar(&out, "out", "-", "Output .ics file (- for stdout)")
	fs.StringVar(&tz, "tz", ical.DefaultTimezone, "IANA timezone the event times are in")
	fs.IntVar(&horizon, "horizon", ical.DefaultHorizonMonths, "Months of weekly occurrences to generate")
	fs.StringVar(&logLevel, "log-level", "warn", "Log level for skipped events")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := logging.NewWithWriter(stderr, logLevel)

	loc, err := time.LoadLocation(tz)
	if err != nil {
		fmt.Fprintf(stderr, "timezone %q: %v\n", tz, err)
		return 2
	}

	raw, err := readInput(in, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "read %s: %v\n", in, err)
		return 1
	}
	a, err := analyze.ParseAnalysis(raw)
	if err != nil {
		fmt.Fprintf(stderr, "parse analysis: %v\n", err)
		return 1
	}

	report := ical.NewExpander(horizon, logger).ExpandAll(a.ICSEvents)
	fmt.Fprintf(stderr, "expanded %d of %d events\n", report.Expanded, report.Total)

	ics := config.ICSConfig{CompanyName: "SyllabAI", ProductName: "Calendar"}
	doc, err := ical.NewBuilder(loc, ics.BuildProdID()).Build(report.Occurrences)
	if err != nil {
		fmt.Fprintf(stderr, "build calendar: %v\n", err)
		return 1
	}
	if doc == nil {
		fmt.Fprintln(stderr, errNoCalendar)
		return 1
	}

	if err := writeOutput(out, stdout, *doc); err != nil {
		fmt.Fprintf(stderr, "write %s: %v\n", out, err)
		return 1
	}
	return 0
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, stdout io.Writer, doc string) error {
	if path == "-" {
		_, err := io.WriteString(stdout, doc)
		return err
	}
	return os.WriteFile(path, []byte(doc), 0o644)
}
