// Package pipeline wires the full report run: knowledge ingestion, the three
// chart computations, the analysis and review crews, chart rendering, report
// assembly, and the delivery draft.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Jasperb3/TransitReader/internal/agent"
	"github.com/Jasperb3/TransitReader/internal/chart"
	"github.com/Jasperb3/TransitReader/internal/config"
	"github.com/Jasperb3/TransitReader/internal/flow"
	"github.com/Jasperb3/TransitReader/internal/gmail"
	"github.com/Jasperb3/TransitReader/internal/knowledge"
	"github.com/Jasperb3/TransitReader/internal/render"
	"github.com/Jasperb3/TransitReader/internal/report"
	"github.com/Jasperb3/TransitReader/internal/subject"
)

// longDate is the human date used in prompts and report headers.
const longDate = "Monday, 02 January 2006"

// Crews runs a named crew to completion. Satisfied by *agent.Runner.
type Crews interface {
	Execute(ctx context.Context, crew string, inputs map[string]string) (string, error)
}

// Charts computes the three chart kinds. Satisfied by *chart.Builder.
type Charts interface {
	Natal(birth time.Time, lat, lon float64) (*chart.Chart, error)
	Transits(at time.Time, lat, lon float64) (*chart.Chart, error)
	TransitsToNatal(at time.Time, lat, lon float64, natal *chart.Chart) (*chart.Chart, error)
}

// Ingestor indexes new knowledge documents before the run.
type Ingestor interface {
	ProcessNewDocuments(ctx context.Context, dir string) (int, error)
}

// Renderer covers the two headless-browser operations the run needs.
type Renderer interface {
	Screenshot(ctx context.Context, svgPath, pngPath string) error
	PrintPDF(ctx context.Context, htmlPath, pdfPath string) error
}

// DraftCreator saves the delivery email as a Gmail draft.
type DraftCreator interface {
	CreateDraft(ctx context.Context, email gmail.Email) (string, error)
}

// Options tune a single run.
type Options struct {
	// TransitTime overrides "now" as the moment the transits are cast for.
	TransitTime time.Time
	// TransitLocation overrides the profile's current location.
	TransitLocation *subject.Location
	// SkipAppendices drops the appendix stage regardless of the profile.
	SkipAppendices bool
	// SkipEmail leaves the run without a delivery draft.
	SkipEmail bool
}

// Pipeline holds the wired dependencies for report runs.
type Pipeline struct {
	cfg      *config.Config
	builder  Charts
	crews    Crews
	ingestor Ingestor
	renderer Renderer
	drafts   DraftCreator
	catalog  *subject.Catalog
	logger   *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New wires a pipeline. drafts may be nil when email delivery is not
// configured; the email step then reports a clear error unless skipped.
func New(cfg *config.Config, builder Charts, crews Crews, ingestor Ingestor,
	renderer Renderer, drafts DraftCreator, catalog *subject.Catalog, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg: cfg, builder: builder, crews: crews, ingestor: ingestor,
		renderer: renderer, drafts: drafts, catalog: catalog, logger: logger,
		now: time.Now,
	}
}

// state carries intermediate artifacts between steps. Steps only touch the
// fields their dependency edges guarantee are settled, so no locking.
type state struct {
	transitChart *chart.Chart
	natalChart   *chart.Chart
	crossChart   *chart.Chart

	currentTransits     string
	natalChartText      string
	crossChartText      string
	transitAnalysis     string
	natalAnalysis       string
	crossAnalysis       string
	appendices          string
	reportMarkdown      string
	chartImageRelative  string
	reportMarkdownPath  string
	reportPDFPath       string
}

type run struct {
	p       *Pipeline
	profile *subject.Profile
	opts    Options

	runTime     time.Time
	transitTime time.Time
	transitLoc  subject.Location
	birthTime   time.Time
	layout      report.Layout
	bio         string

	st state
}

// Run executes the whole flow for one subject.
func (p *Pipeline) Run(ctx context.Context, profile *subject.Profile, opts Options) error {
	r, err := p.newRun(profile, opts)
	if err != nil {
		return err
	}
	return r.flow().Run(ctx)
}

// Plot renders the run graph as Mermaid without executing anything.
func (p *Pipeline) Plot(profile *subject.Profile, opts Options) (string, error) {
	r, err := p.newRun(profile, opts)
	if err != nil {
		return "", err
	}
	return r.flow().Plot(), nil
}

func (p *Pipeline) newRun(profile *subject.Profile, opts Options) (*run, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	birth, err := profile.BirthTime()
	if err != nil {
		return nil, err
	}

	runTime := p.now()
	transitTime := opts.TransitTime
	if transitTime.IsZero() {
		transitTime = runTime
	}
	transitLoc := profile.CurrentLocation
	if opts.TransitLocation != nil {
		transitLoc = *opts.TransitLocation
	}

	bio := ""
	if p.catalog != nil {
		bio = p.catalog.ContextBlock(profile)
	}
	if bio == "" {
		bio = "No biographical context was provided."
	}

	return &run{
		p: p, profile: profile, opts: opts,
		runTime: runTime, transitTime: transitTime, transitLoc: transitLoc,
		birthTime: birth,
		layout:    report.NewLayout(p.cfg.Paths.OutputsDir, runTime),
		bio:       bio,
	}, nil
}

func (r *run) includeAppendices() bool {
	return r.profile.IncludeAppendices && !r.opts.SkipAppendices
}

func (r *run) flow() *flow.Flow {
	f := flow.New("transit report", r.p.logger)

	f.Add(flow.Step{Name: "ingest knowledge", Run: r.ingestKnowledge})

	f.Add(flow.Step{Name: "transit chart", After: []string{"ingest knowledge"}, Run: r.buildTransitChart})
	f.Add(flow.Step{Name: "natal chart", After: []string{"ingest knowledge"}, Run: r.buildNatalChart})
	f.Add(flow.Step{Name: "transit to natal chart", After: []string{"ingest knowledge"}, Run: r.buildCrossChart})

	charts := []string{"transit chart", "natal chart", "transit to natal chart"}
	f.Add(flow.Step{Name: "transit analysis", After: charts, Run: r.transitAnalysis})
	f.Add(flow.Step{Name: "natal analysis", After: charts, Run: r.natalAnalysis})
	f.Add(flow.Step{Name: "transit to natal analysis", After: charts, Run: r.crossAnalysis})

	f.Add(flow.Step{Name: "review transit analysis", After: []string{"transit analysis"}, Run: r.reviewTransitAnalysis})
	f.Add(flow.Step{Name: "review natal analysis", After: []string{"natal analysis"}, Run: r.reviewNatalAnalysis})
	f.Add(flow.Step{Name: "review transit to natal analysis", After: []string{"transit to natal analysis"}, Run: r.reviewCrossAnalysis})

	reviews := []string{"review transit analysis", "review natal analysis", "review transit to natal analysis"}
	f.Add(flow.Step{Name: "chart appendices", After: reviews, Run: r.chartAppendices})
	f.Add(flow.Step{Name: "report draft", After: []string{"chart appendices"}, Run: r.reportDraft})
	f.Add(flow.Step{Name: "interrogate report", After: []string{"report draft"}, Run: r.interrogateReport})
	f.Add(flow.Step{Name: "render chart wheel", After: []string{"interrogate report"}, Run: r.renderWheel})
	f.Add(flow.Step{Name: "save report", After: []string{"render chart wheel"}, Run: r.saveReport})
	f.Add(flow.Step{Name: "draft email", After: []string{"save report"}, Run: r.draftEmail})

	return f
}

func (r *run) ingestKnowledge(ctx context.Context) error {
	n, err := r.p.ingestor.ProcessNewDocuments(ctx, r.p.cfg.Paths.DocsDir)
	if err != nil {
		return err
	}
	r.p.logger.Info("knowledge ready", zap.Int("new_documents", n))
	return nil
}

func (r *run) buildTransitChart(ctx context.Context) error {
	c, err := r.p.builder.Transits(r.transitTime, r.transitLoc.Latitude, r.transitLoc.Longitude)
	if err != nil {
		return err
	}
	r.st.transitChart = c
	r.st.currentTransits = chart.FormatTransits(c, r.transitLoc.String())
	return nil
}

func (r *run) buildNatalChart(ctx context.Context) error {
	c, err := r.p.builder.Natal(r.birthTime, r.profile.Birthplace.Latitude, r.profile.Birthplace.Longitude)
	if err != nil {
		return err
	}
	r.st.natalChart = c
	r.st.natalChartText = chart.FormatNatal(c, r.profile.Name, r.profile.Birthplace.String())
	return nil
}

// buildCrossChart computes its own natal reference so the three chart steps
// stay independent and run in parallel.
func (r *run) buildCrossChart(ctx context.Context) error {
	natal, err := r.p.builder.Natal(r.birthTime, r.profile.Birthplace.Latitude, r.profile.Birthplace.Longitude)
	if err != nil {
		return err
	}
	c, err := r.p.builder.TransitsToNatal(r.transitTime, r.transitLoc.Latitude, r.transitLoc.Longitude, natal)
	if err != nil {
		return err
	}
	r.st.crossChart = c
	r.st.crossChartText = chart.FormatTransitsToNatal(c, r.profile.Name, r.profile.Birthplace.String(), r.transitLoc.String())
	return nil
}

func (r *run) transitAnalysis(ctx context.Context) error {
	out, err := r.p.crews.Execute(ctx, "transit_analysis", map[string]string{
		"current_transits":     r.st.currentTransits,
		"name":                 r.profile.Name,
		"transit_date":         r.transitTime.Format(longDate),
		"location":             r.transitLoc.String(),
		"biographical_context": r.bio,
	})
	if err != nil {
		return err
	}
	r.st.transitAnalysis = out
	return nil
}

func (r *run) natalAnalysis(ctx context.Context) error {
	out, err := r.p.crews.Execute(ctx, "natal_analysis", map[string]string{
		"natal_chart":          r.st.natalChartText,
		"name":                 r.profile.Name,
		"date_of_birth":        r.profile.DateOfBirth,
		"birthplace":           r.profile.Birthplace.String(),
		"analysis_date":        r.runTime.Format(longDate),
		"biographical_context": r.bio,
	})
	if err != nil {
		return err
	}
	r.st.natalAnalysis = out
	return nil
}

func (r *run) crossAnalysis(ctx context.Context) error {
	out, err := r.p.crews.Execute(ctx, "transit_to_natal_analysis", map[string]string{
		"transit_to_natal_chart": r.st.crossChartText,
		"name":                   r.profile.Name,
		"transit_date":           r.transitTime.Format(longDate),
		"date_of_birth":          r.profile.DateOfBirth,
		"birthplace":             r.profile.Birthplace.String(),
		"transit_location":       r.transitLoc.String(),
		"biographical_context":   r.bio,
	})
	if err != nil {
		return err
	}
	r.st.crossAnalysis = out
	return nil
}

func (r *run) reviewTransitAnalysis(ctx context.Context) error {
	out, err := r.p.crews.Execute(ctx, "transit_review", map[string]string{
		"transit_analysis": r.st.transitAnalysis,
		"current_transits": r.st.currentTransits,
		"transit_date":     r.transitTime.Format(longDate),
		"name":             r.profile.Name,
		"location":         r.transitLoc.String(),
	})
	if err != nil {
		return err
	}
	r.st.transitAnalysis = out
	return nil
}

func (r *run) reviewNatalAnalysis(ctx context.Context) error {
	out, err := r.p.crews.Execute(ctx, "natal_review", map[string]string{
		"natal_analysis": r.st.natalAnalysis,
		"natal_chart":    r.st.natalChartText,
		"name":           r.profile.Name,
		"analysis_date":  r.runTime.Format(longDate),
		"date_of_birth":  r.profile.DateOfBirth,
		"birthplace":     r.profile.Birthplace.String(),
	})
	if err != nil {
		return err
	}
	r.st.natalAnalysis = out
	return nil
}

func (r *run) reviewCrossAnalysis(ctx context.Context) error {
	out, err := r.p.crews.Execute(ctx, "transit_to_natal_review", map[string]string{
		"transit_to_natal_analysis": r.st.crossAnalysis,
		"transit_to_natal_chart":    r.st.crossChartText,
		"name":                      r.profile.Name,
		"transit_date":              r.transitTime.Format(longDate),
		"date_of_birth":             r.profile.DateOfBirth,
		"birthplace":                r.profile.Birthplace.String(),
		"transit_location":          r.transitLoc.String(),
	})
	if err != nil {
		return err
	}
	r.st.crossAnalysis = out
	return nil
}

func (r *run) chartAppendices(ctx context.Context) error {
	if !r.includeAppendices() {
		r.p.logger.Info("skipping chart appendices")
		r.st.appendices = ""
		return nil
	}
	out, err := r.p.crews.Execute(ctx, "chart_appendices", map[string]string{
		"transit_analysis":          r.st.transitAnalysis,
		"current_transits":          r.st.currentTransits,
		"natal_analysis":            r.st.natalAnalysis,
		"natal_chart":               r.st.natalChartText,
		"transit_to_natal_analysis": r.st.crossAnalysis,
		"transit_to_natal_chart":    r.st.crossChartText,
		"name":                      r.profile.Name,
		"transit_date":              r.transitTime.Format(longDate),
		"date_of_birth":             r.profile.DateOfBirth,
		"birthplace":                r.profile.Birthplace.String(),
		"location":                  r.transitLoc.String(),
		"transit_location":          r.transitLoc.String(),
	})
	if err != nil {
		return err
	}
	r.st.appendices = out
	return nil
}

func (r *run) reportDraft(ctx context.Context) error {
	out, err := r.p.crews.Execute(ctx, "report_writing", map[string]string{
		"transit_analysis":          r.st.transitAnalysis,
		"natal_analysis":            r.st.natalAnalysis,
		"transit_to_natal_analysis": r.st.crossAnalysis,
		"name":                      r.profile.Name,
		"report_date":               r.runTime.Format(longDate),
		"transit_date":              r.transitTime.Format(longDate),
		"transit_location":          r.transitLoc.String(),
		"date_of_birth":             r.profile.DateOfBirth,
		"birthplace":                r.profile.Birthplace.String(),
		"biographical_context":      r.bio,
	})
	if err != nil {
		return err
	}
	r.st.reportMarkdown = out
	return nil
}

func (r *run) interrogateReport(ctx context.Context) error {
	out, err := r.p.crews.Execute(ctx, "report_review", map[string]string{
		"report":                    r.st.reportMarkdown,
		"transit_analysis":          r.st.transitAnalysis,
		"natal_analysis":            r.st.natalAnalysis,
		"transit_to_natal_analysis": r.st.crossAnalysis,
		"transit_chart":             r.st.currentTransits,
		"natal_chart":               r.st.natalChartText,
		"transit_to_natal_chart":    r.st.crossChartText,
		"report_date":               r.runTime.Format(longDate),
		"transit_date":              r.transitTime.Format(longDate),
		"name":                      r.profile.Name,
		"transit_location":          r.transitLoc.String(),
		"date_of_birth":             r.profile.DateOfBirth,
		"birthplace":                r.profile.Birthplace.String(),
	})
	if err != nil {
		return err
	}
	r.st.reportMarkdown = out
	return nil
}

func (r *run) renderWheel(ctx context.Context) error {
	if err := r.layout.Ensure(); err != nil {
		return err
	}

	base := strings.ReplaceAll(r.profile.Name, " ", "_") + "_-_Transit_Chart"
	svgPath := filepath.Join(r.layout.ChartsDir(), base+".svg")
	pngPath := filepath.Join(r.layout.ChartsDir(), base+".png")

	title := fmt.Sprintf("Transits for %s · %s", r.profile.Name, r.transitTime.Format(longDate))
	if err := render.WriteWheel(svgPath, r.st.crossChart, title); err != nil {
		return err
	}
	if err := r.p.renderer.Screenshot(ctx, svgPath, pngPath); err != nil {
		return err
	}

	// The markdown references the image relative to the report file.
	r.st.chartImageRelative = filepath.Join("charts", base+".png")
	return nil
}

func (r *run) saveReport(ctx context.Context) error {
	final := report.Assemble(r.st.reportMarkdown, r.st.chartImageRelative, r.st.appendices)

	mdPath := r.layout.ReportPath(r.profile.Name, r.runTime)
	if err := report.SaveMarkdown(mdPath, final); err != nil {
		return err
	}
	r.st.reportMarkdownPath = mdPath

	pdfPath, err := report.ToPDF(ctx, r.p.renderer, mdPath)
	if err != nil {
		return err
	}
	r.st.reportPDFPath = pdfPath
	r.p.logger.Info("report saved",
		zap.String("markdown", mdPath), zap.String("pdf", pdfPath))
	return nil
}

func (r *run) draftEmail(ctx context.Context) error {
	if r.opts.SkipEmail {
		r.p.logger.Info("skipping email draft")
		return nil
	}
	if r.profile.Email == "" {
		r.p.logger.Info("profile has no email address, skipping draft")
		return nil
	}
	if r.p.drafts == nil {
		return fmt.Errorf("email delivery requested but gmail is not configured")
	}

	sender := r.p.cfg.Gmail.Sender
	if sender == "" {
		return fmt.Errorf("gmail sender is not configured")
	}

	out, err := r.p.crews.Execute(ctx, "email_drafting", map[string]string{
		"report_text":   r.st.reportMarkdown,
		"report_pdf":    r.st.reportPDFPath,
		"client":        r.profile.Name,
		"sender":        sender,
		"email_address": r.profile.Email,
		"report_date":   r.runTime.Format(longDate),
		"transit_date":  r.transitTime.Format(longDate),
	})
	if err != nil {
		return err
	}

	fallback := fmt.Sprintf("Your astrological report, %s", r.runTime.Format(longDate))
	subjectLine, body := gmail.ParseDraft(out, fallback)

	id, err := r.p.drafts.CreateDraft(ctx, gmail.Email{
		From:           sender,
		To:             r.profile.Email,
		Subject:        subjectLine,
		MarkdownBody:   body,
		AttachmentPath: r.st.reportPDFPath,
	})
	if err != nil {
		return err
	}
	r.p.logger.Info("email draft ready", zap.String("draft_id", id))
	return nil
}

// Retriever adapts the knowledge index to the crew grounding interface.
type Retriever struct {
	ing   *knowledge.Ingestor
	limit int
}

// NewRetriever wraps the knowledge ingestor's search side.
func NewRetriever(ing *knowledge.Ingestor, limit int) *Retriever {
	if limit <= 0 {
		limit = 5
	}
	return &Retriever{ing: ing, limit: limit}
}

// Retrieve implements agent.Retriever, rendering hits as quoted passages.
func (r *Retriever) Retrieve(ctx context.Context, query string) (string, error) {
	hits, err := r.ing.Search(ctx, query, r.limit)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, hit := range hits {
		fmt.Fprintf(&sb, "From %s:\n\n%s\n\n", hit.Source, strings.TrimSpace(hit.Content))
	}
	return strings.TrimSpace(sb.String()), nil
}

var _ agent.Retriever = (*Retriever)(nil)
