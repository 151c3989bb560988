package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Jasperb3/TransitReader/internal/chart"
	"github.com/Jasperb3/TransitReader/internal/ephemeris"
	"github.com/Jasperb3/TransitReader/internal/geo"
	"github.com/Jasperb3/TransitReader/internal/gmail"
	"github.com/Jasperb3/TransitReader/internal/subject"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index new knowledge documents into the vector store",
	Long: `Scans the docs directory for markdown files not yet in the index,
chunks and embeds them, and stores them for retrieval. With --watch the
command keeps running and indexes files as they appear or change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		store, ingestor, err := openKnowledge()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := ingestor.ProcessNewDocuments(ctx, cfg.Paths.DocsDir)
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d new document(s)\n", n)

		if !watchDocs {
			return nil
		}
		err = ingestor.Watch(ctx, cfg.Paths.DocsDir)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Query the knowledge index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		store, ingestor, err := openKnowledge()
		if err != nil {
			return err
		}
		defer store.Close()

		results, err := ingestor.Search(ctx, args[0], cfg.Knowledge.SearchLimit)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, r := range results {
			fmt.Printf("[%.3f] %s\n%s\n\n", r.Score, r.Source, r.Content)
		}
		return nil
	},
}

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Print a chart for a subject without running any crews",
	Long: `Computes and prints one of the three charts as the analysis crews see
it. --kind selects natal, transits, or cross (transit-to-natal).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := loadProfile(subjectName)
		if err != nil {
			return err
		}
		birth, err := profile.BirthTime()
		if err != nil {
			return err
		}

		at := time.Now()
		if transitDateTime != "" {
			at, err = time.ParseInLocation("2006-01-02 15:04", transitDateTime, time.Local)
			if err != nil {
				return fmt.Errorf("bad --transit-datetime %q: %w", transitDateTime, err)
			}
		}

		eph, err := ephemeris.Open(cfg.Ephemeris.VSOP87Dir)
		if err != nil {
			return err
		}
		builder := chart.NewBuilder(eph)
		loc := profile.CurrentLocation

		switch chartKind {
		case "natal":
			c, err := builder.Natal(birth, profile.Birthplace.Latitude, profile.Birthplace.Longitude)
			if err != nil {
				return err
			}
			fmt.Println(chart.FormatNatal(c, profile.Name, profile.Birthplace.String()))
		case "transits":
			c, err := builder.Transits(at, loc.Latitude, loc.Longitude)
			if err != nil {
				return err
			}
			fmt.Println(chart.FormatTransits(c, loc.String()))
		case "cross":
			natal, err := builder.Natal(birth, profile.Birthplace.Latitude, profile.Birthplace.Longitude)
			if err != nil {
				return err
			}
			c, err := builder.TransitsToNatal(at, loc.Latitude, loc.Longitude, natal)
			if err != nil {
				return err
			}
			fmt.Println(chart.FormatTransitsToNatal(c, profile.Name, profile.Birthplace.String(), loc.String()))
		default:
			return fmt.Errorf("unknown chart kind %q (want natal, transits, or cross)", chartKind)
		}
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview [report.md]",
	Short: "Render a saved report in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return err
		}
		out, err := renderer.Render(string(data))
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List and create subject profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := subject.List(cfg.Paths.SubjectsDir)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Printf("No profiles in %s\n", cfg.Paths.SubjectsDir)
			return nil
		}
		for _, f := range files {
			fmt.Println(subject.DisplayName(f))
		}
		return nil
	},
}

var subjectsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a subject profile from flags",
	Long: `Geocodes the birthplace and current location, resolves their IANA
timezones, and saves the profile into the subjects directory. The date of
birth is the local wall-clock time at the birthplace.

The current location defaults to the birthplace when not given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		resolver, err := geo.NewResolver(cfg.Geo.APIKey)
		if err != nil {
			return err
		}
		path, profile, err := addSubject(ctx, resolver, cfg.Paths.SubjectsDir)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s (%s, born %s %s)\n",
			path, profile.Name, profile.DateOfBirth, profile.Birthplace.Timezone)
		return nil
	},
}

// placeResolver is the slice of geo.Resolver the add command needs.
type placeResolver interface {
	Resolve(ctx context.Context, place, country string, at time.Time) (subject.Location, error)
}

// addSubject builds and saves a profile from the subjects add flags.
func addSubject(ctx context.Context, resolver placeResolver, dir string) (string, *subject.Profile, error) {
	birth, err := time.Parse(subject.DOBLayout, addDOB)
	if err != nil {
		return "", nil, fmt.Errorf("bad --dob %q, want %q: %w", addDOB, subject.DOBLayout, err)
	}

	birthplace, err := resolver.Resolve(ctx, addBirthPlace, addBirthCountry, birth)
	if err != nil {
		return "", nil, err
	}

	current := birthplace
	if addCurrentPlace != "" {
		country := addCurrentCountry
		if country == "" {
			country = addBirthCountry
		}
		current, err = resolver.Resolve(ctx, addCurrentPlace, country, time.Now())
		if err != nil {
			return "", nil, err
		}
	}

	profile := &subject.Profile{
		Name:              addName,
		Email:             addEmail,
		DateOfBirth:       addDOB,
		Birthplace:        birthplace,
		CurrentLocation:   current,
		IncludeAppendices: addAppendices,
	}
	path, err := subject.Save(dir, profile)
	if err != nil {
		return "", nil, err
	}
	return path, profile, nil
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize Gmail access for draft creation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		auth := gmail.NewAuthenticator(cfg.Gmail)
		if err := auth.Authorize(ctx, os.Stdin, os.Stdout); err != nil {
			return err
		}
		logger.Info("gmail authorized", zap.String("token", cfg.Gmail.TokenPath))
		return nil
	},
}
