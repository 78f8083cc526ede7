// services/pipeline.go
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ibis-project/ibis-examples/config"
	"github.com/ibis-project/ibis-examples/models"
	"github.com/ibis-project/ibis-examples/scraper"
	"github.com/ibis-project/ibis-examples/utils"
)

const (
	PipelineCampaign = "campaign"
	PipelineTutorial = "tutorial"

	StageFetch     = "fetch"
	StageExtract   = "extract"
	StageTransform = "transform"
)

// Fetcher downloads a URL to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string) error
}

// Transformer converts the extracted text file into the columnar artifact.
type Transformer interface {
	Convert(ctx context.Context, srcPath, destPath string) error
}

// ArtifactRecorder keeps a history of produced artifacts.
type ArtifactRecorder interface {
	RecordArtifact(ctx context.Context, a models.Artifact) error
}

// ExtractFunc pulls one member out of an archive into destDir and returns its path.
type ExtractFunc func(archivePath, memberName, destDir string) (string, error)

// Pipeline runs the guarded fetch, extract and transform stages. Stages run
// one after another in the calling goroutine; concurrent runs over the same
// data directory are not coordinated.
type Pipeline struct {
	Config     *config.Config
	Fetcher    Fetcher
	Converter  Transformer
	Extract    ExtractFunc
	Recorder   ArtifactRecorder // optional
	HTTPClient *http.Client     // used to resolve the listing page
}

// NewPipeline wires a pipeline with the archive extractor from the scraper package.
func NewPipeline(cfg *config.Config, fetcher Fetcher, conv Transformer, recorder ArtifactRecorder) *Pipeline {
	return &Pipeline{
		Config:     cfg,
		Fetcher:    fetcher,
		Converter:  conv,
		Extract:    scraper.ExtractMember,
		Recorder:   recorder,
		HTTPClient: &http.Client{Timeout: cfg.HTTP.Timeout},
	}
}

// Ensure is the stage guard: if path exists the stage is skipped, otherwise
// produce runs and must leave path populated. Errors from produce are
// returned as they are.
func Ensure(stage, path string, produce func() error) (models.StageResult, error) {
	res := models.StageResult{Stage: stage, Path: path}

	exists, err := utils.Exists(path)
	if err != nil {
		return res, err
	}
	if exists {
		log.Printf("Service: %s already exists, skipping %s\n", filepath.Base(path), stage)
		res.Skipped = true
		return res, nil
	}

	log.Printf("Service: Running %s to produce %s...\n", stage, filepath.Base(path))
	start := time.Now()
	if err := produce(); err != nil {
		return res, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

// PrepareCampaignFinance downloads the contributions archive, extracts the
// contributions file and converts it to Parquet, skipping any stage whose
// output already exists. The first failing stage stops the run.
func (p *Pipeline) PrepareCampaignFinance(ctx context.Context) (models.Report, error) {
	cfg := p.Config
	report := models.Report{Pipeline: PipelineCampaign}

	archivePath := cfg.ArchivePath()
	sourceURL := cfg.Campaign.SourceURL
	res, err := Ensure(StageFetch, archivePath, func() error {
		if cfg.Campaign.ListingURL != "" {
			resolved, err := scraper.ResolveArchiveURL(ctx, p.HTTPClient, cfg.Campaign.ListingURL, cfg.Campaign.ArchiveName)
			if err != nil {
				return err
			}
			sourceURL = resolved
		}
		return p.Fetcher.Fetch(ctx, sourceURL, archivePath)
	})
	report.Stages = append(report.Stages, res)
	if err != nil {
		return report, err
	}
	p.record(ctx, PipelineCampaign, res, sourceURL)

	extractedPath := cfg.ExtractedPath()
	res, err = Ensure(StageExtract, extractedPath, func() error {
		_, err := p.Extract(archivePath, cfg.Campaign.MemberName, cfg.DataDir)
		return err
	})
	report.Stages = append(report.Stages, res)
	if err != nil {
		return report, err
	}
	p.record(ctx, PipelineCampaign, res, "")

	outputPath := cfg.OutputPath()
	res, err = Ensure(StageTransform, outputPath, func() error {
		return p.Converter.Convert(ctx, extractedPath, outputPath)
	})
	report.Stages = append(report.Stages, res)
	if err != nil {
		return report, err
	}
	p.record(ctx, PipelineCampaign, res, "")

	return report, nil
}

// SetupTutorial downloads the tutorial database if it is not already present.
func (p *Pipeline) SetupTutorial(ctx context.Context) (models.Report, error) {
	cfg := p.Config
	report := models.Report{Pipeline: PipelineTutorial}

	res, err := Ensure(StageFetch, cfg.TutorialPath(), func() error {
		return p.Fetcher.Fetch(ctx, cfg.Tutorial.SourceURL, cfg.TutorialPath())
	})
	report.Stages = append(report.Stages, res)
	if err != nil {
		return report, err
	}
	p.record(ctx, PipelineTutorial, res, cfg.Tutorial.SourceURL)
	return report, nil
}

// Run executes the named pipeline: "campaign", "tutorial" or "all".
func (p *Pipeline) Run(ctx context.Context, name string) ([]models.Report, error) {
	switch name {
	case PipelineCampaign:
		r, err := p.PrepareCampaignFinance(ctx)
		return []models.Report{r}, err
	case PipelineTutorial:
		r, err := p.SetupTutorial(ctx)
		return []models.Report{r}, err
	case "all":
		r, err := p.PrepareCampaignFinance(ctx)
		reports := []models.Report{r}
		if err != nil {
			return reports, err
		}
		r, err = p.SetupTutorial(ctx)
		return append(reports, r), err
	}
	return nil, fmt.Errorf("unknown pipeline %q", name)
}

// Status reports which artifacts of both pipelines are on disk.
func (p *Pipeline) Status() ([]models.ArtifactStatus, error) {
	cfg := p.Config
	expected := []models.ArtifactStatus{
		{Pipeline: PipelineCampaign, Stage: StageFetch, Path: cfg.ArchivePath()},
		{Pipeline: PipelineCampaign, Stage: StageExtract, Path: cfg.ExtractedPath()},
		{Pipeline: PipelineCampaign, Stage: StageTransform, Path: cfg.OutputPath()},
		{Pipeline: PipelineTutorial, Stage: StageFetch, Path: cfg.TutorialPath()},
	}
	for i := range expected {
		info, err := os.Stat(expected[i].Path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("%w: failed to stat %s: %w", models.ErrFilesystem, expected[i].Path, err)
		}
		mod := info.ModTime()
		expected[i].Exists = true
		expected[i].SizeBytes = info.Size()
		expected[i].ModTime = &mod
	}
	return expected, nil
}

// record stores a produced artifact in the ledger. Ledger failures are logged
// and never fail the pipeline.
func (p *Pipeline) record(ctx context.Context, pipeline string, res models.StageResult, sourceURL string) {
	if p.Recorder == nil || res.Skipped {
		return
	}

	size, sum, err := fileDigest(res.Path)
	if err != nil {
		log.Printf("ERROR Service: Failed to hash %s for the artifact ledger: %v\n", res.Path, err)
		return
	}
	a := models.Artifact{
		Pipeline:   pipeline,
		Stage:      res.Stage,
		SourceURL:  sourceURL,
		Path:       res.Path,
		SizeBytes:  size,
		SHA256:     sum,
		ProducedAt: time.Now().UTC(),
	}
	if err := p.Recorder.RecordArtifact(ctx, a); err != nil {
		log.Printf("ERROR Service: Failed to record %s/%s in the artifact ledger: %v\n", pipeline, res.Stage, err)
	}
}

func fileDigest(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}
