package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Jasperb3/TransitReader/internal/agent"
	"github.com/Jasperb3/TransitReader/internal/chart"
	"github.com/Jasperb3/TransitReader/internal/config"
	"github.com/Jasperb3/TransitReader/internal/embedding"
	"github.com/Jasperb3/TransitReader/internal/ephemeris"
	"github.com/Jasperb3/TransitReader/internal/geo"
	"github.com/Jasperb3/TransitReader/internal/gmail"
	"github.com/Jasperb3/TransitReader/internal/knowledge"
	"github.com/Jasperb3/TransitReader/internal/logging"
	"github.com/Jasperb3/TransitReader/internal/pipeline"
	"github.com/Jasperb3/TransitReader/internal/render"
	"github.com/Jasperb3/TransitReader/internal/subject"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	// Run flags
	subjectName     string
	transitDateTime string
	transitPlace    string
	transitCountry  string
	skipAppendices  bool
	skipEmail       bool
	watchDocs       bool
	chartKind       string

	// subjects add flags
	addName           string
	addEmail          string
	addDOB            string
	addBirthPlace     string
	addBirthCountry   string
	addCurrentPlace   string
	addCurrentCountry string
	addAppendices     bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "transit-reader",
	Short: "Personalised astrological transit reports",
	Long: `transit-reader computes natal, transit and transit-to-natal charts,
runs them through a sequence of LLM analysis and review crews grounded in a
local knowledge index, and produces a rendered report with a chart wheel,
a PDF, and an optional Gmail delivery draft.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a full transit report for a subject",
	Long: `Runs the whole pipeline: knowledge ingestion, the three charts, three
analyses with reviews, appendices, report writing and interrogation, chart
wheel rendering, markdown and PDF output, and the Gmail draft.

The transit moment defaults to now at the subject's current location.
Override it with --transit-datetime and, optionally, --transit-place.`,
	RunE: runReport,
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Print the run's step graph as a Mermaid flowchart",
	RunE:  runPlot,
}

func main() {
	runCmd.Flags().StringVarP(&subjectName, "subject", "s", "", "subject name (required)")
	runCmd.Flags().StringVar(&transitDateTime, "transit-datetime", "", `custom transit moment, "2006-01-02 15:04"`)
	runCmd.Flags().StringVar(&transitPlace, "transit-place", "", "custom transit place (geocoded)")
	runCmd.Flags().StringVar(&transitCountry, "transit-country", "", "country for --transit-place")
	runCmd.Flags().BoolVar(&skipAppendices, "skip-appendices", false, "skip the reference appendices")
	runCmd.Flags().BoolVar(&skipEmail, "skip-email", false, "skip the Gmail delivery draft")
	_ = runCmd.MarkFlagRequired("subject")

	plotCmd.Flags().StringVarP(&subjectName, "subject", "s", "", "subject name (required)")
	_ = plotCmd.MarkFlagRequired("subject")

	ingestCmd.Flags().BoolVar(&watchDocs, "watch", false, "keep watching the docs directory")

	chartCmd.Flags().StringVarP(&subjectName, "subject", "s", "", "subject name (required)")
	chartCmd.Flags().StringVar(&chartKind, "kind", "transits", "chart kind: natal, transits, or cross")
	chartCmd.Flags().StringVar(&transitDateTime, "transit-datetime", "", `custom transit moment, "2006-01-02 15:04"`)
	_ = chartCmd.MarkFlagRequired("subject")

	subjectsAddCmd.Flags().StringVar(&addName, "name", "", "subject name (required)")
	subjectsAddCmd.Flags().StringVar(&addEmail, "email", "", "delivery email address")
	subjectsAddCmd.Flags().StringVar(&addDOB, "dob", "", `date of birth, local wall clock at the birthplace, "2006-01-02 15:04:05" (required)`)
	subjectsAddCmd.Flags().StringVar(&addBirthPlace, "birth-place", "", "birthplace town or city (required)")
	subjectsAddCmd.Flags().StringVar(&addBirthCountry, "birth-country", "", "birthplace country (required)")
	subjectsAddCmd.Flags().StringVar(&addCurrentPlace, "current-place", "", "current town or city (defaults to the birthplace)")
	subjectsAddCmd.Flags().StringVar(&addCurrentCountry, "current-country", "", "current country (defaults to --birth-country)")
	subjectsAddCmd.Flags().BoolVar(&addAppendices, "appendices", true, "include the reference appendices in reports")
	_ = subjectsAddCmd.MarkFlagRequired("name")
	_ = subjectsAddCmd.MarkFlagRequired("dob")
	_ = subjectsAddCmd.MarkFlagRequired("birth-place")
	_ = subjectsAddCmd.MarkFlagRequired("birth-country")
	subjectsCmd.AddCommand(subjectsAddCmd)

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "transit-reader.yaml", "configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd, plotCmd, ingestCmd, searchCmd, chartCmd, previewCmd, subjectsCmd, authCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func loadProfile(name string) (*subject.Profile, error) {
	path := filepath.Join(cfg.Paths.SubjectsDir, subject.FileName(name))
	profile, err := subject.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load subject %q: %w", name, err)
	}
	return profile, nil
}

func runOptions(ctx context.Context) (pipeline.Options, error) {
	opts := pipeline.Options{
		SkipAppendices: skipAppendices,
		SkipEmail:      skipEmail,
	}

	if transitDateTime != "" {
		at, err := time.ParseInLocation("2006-01-02 15:04", transitDateTime, time.Local)
		if err != nil {
			return opts, fmt.Errorf("bad --transit-datetime %q: %w", transitDateTime, err)
		}
		opts.TransitTime = at
	}

	if transitPlace != "" {
		if transitCountry == "" {
			return opts, fmt.Errorf("--transit-place needs --transit-country")
		}
		resolver, err := geo.NewResolver(cfg.Geo.APIKey)
		if err != nil {
			return opts, err
		}
		at := opts.TransitTime
		if at.IsZero() {
			at = time.Now()
		}
		loc, err := resolver.Resolve(ctx, transitPlace, transitCountry, at)
		if err != nil {
			return opts, err
		}
		opts.TransitLocation = &loc
	}
	return opts, nil
}

// buildPipeline wires the full dependency set for run and plot.
func buildPipeline(ctx context.Context) (*pipeline.Pipeline, func(), error) {
	eph, err := ephemeris.Open(cfg.Ephemeris.VSOP87Dir)
	if err != nil {
		return nil, nil, err
	}
	builder := chart.NewBuilder(eph)

	store, ingestor, err := openKnowledge()
	if err != nil {
		return nil, nil, err
	}

	client, err := agent.NewGeminiClient(ctx, cfg.LLM.APIKey, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	retriever := pipeline.NewRetriever(ingestor, cfg.Knowledge.SearchLimit)
	runner, err := agent.NewRunner(client, cfg.LLM, retriever, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	browser := render.NewBrowser(cfg.Browser, logger)

	var drafts pipeline.DraftCreator
	if !skipEmail {
		auth := gmail.NewAuthenticator(cfg.Gmail)
		svc, err := auth.Service(ctx)
		if err != nil {
			logger.Warn("gmail unavailable, email step will be skipped on demand", zap.Error(err))
		} else {
			drafts = gmail.NewDrafter(svc, logger)
		}
	}

	catalog, err := subject.LoadCatalog(nil)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	p := pipeline.New(cfg, builder, runner, ingestor, browser, drafts, catalog, logger)
	cleanup := func() {
		_ = browser.Close()
		_ = store.Close()
	}
	return p, cleanup, nil
}

func openKnowledge() (*knowledge.Store, *knowledge.Ingestor, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Paths.StatePath), 0o755); err != nil {
		return nil, nil, err
	}
	store, err := knowledge.Open(cfg.Paths.StatePath)
	if err != nil {
		return nil, nil, err
	}
	engine, err := embedding.New(cfg.Embedding)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	ingestor := knowledge.NewIngestor(store, engine, cfg.Knowledge, cfg.Embedding.RequestsPerMinute, logger)
	return store, ingestor, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	profile, err := loadProfile(subjectName)
	if err != nil {
		return err
	}
	opts, err := runOptions(ctx)
	if err != nil {
		return err
	}

	p, cleanup, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	start := time.Now()
	if err := p.Run(ctx, profile, opts); err != nil {
		return err
	}
	fmt.Printf("Report complete for %s in %s\n", profile.Name, time.Since(start).Round(time.Second))
	return nil
}

func runPlot(cmd *cobra.Command, args []string) error {
	profile, err := loadProfile(subjectName)
	if err != nil {
		return err
	}

	// The graph is static; no live dependencies are needed to draw it.
	p := pipeline.New(cfg, nil, nil, nil, nil, nil, nil, logger)
	plot, err := p.Plot(profile, pipeline.Options{})
	if err != nil {
		return err
	}
	fmt.Println(plot)
	return nil
}
