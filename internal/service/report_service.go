package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harmonia-studio/harmonia-api/internal/models"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
	"github.com/harmonia-studio/harmonia-api/pkg/export"
	"github.com/harmonia-studio/harmonia-api/pkg/storage"
)

type reportLeadReader interface {
	ListAll(ctx context.Context) ([]models.MarketingLead, error)
}

type reportProjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error)
}

type reportVersionReader interface {
	ListByProject(ctx context.Context, projectID string) ([]models.ProjectVersion, error)
}

type reportHistoryReader interface {
	ListByProject(ctx context.Context, projectID string) ([]models.HistoryEntry, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	RenderDocument(doc export.Document) ([]byte, error)
}

// ReportConfig tunes report generation.
type ReportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ReportResult captures successful generation metadata.
type ReportResult struct {
	RelativePath string    `json:"relative_path"`
	Token        string    `json:"token"`
	URL          string    `json:"url"`
	Format       string    `json:"format"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ReportService renders back-office exports (lead CSVs, project tables and
// per-project summary PDFs) and stores them behind signed download links.
type ReportService struct {
	leads    reportLeadReader
	projects reportProjectReader
	versions reportVersionReader
	history  reportHistoryReader
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ReportConfig
	now      func() time.Time
}

// NewReportService constructs a ReportService.
func NewReportService(leads reportLeadReader, projects reportProjectReader, versions reportVersionReader, history reportHistoryReader, store fileStorage, signer *storage.SignedURLSigner, cfg ReportConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportService{
		leads:    leads,
		projects: projects,
		versions: versions,
		history:  history,
		storage:  store,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ExportLeadsCSV renders every captured lead as CSV.
func (s *ReportService) ExportLeadsCSV(ctx context.Context) (*ReportResult, error) {
	leads, err := s.leads.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leads")
	}

	dataset := export.Dataset{
		Headers: []string{"name", "email", "phone", "source", "message", "created_at"},
		Rows:    make([]map[string]string, 0, len(leads)),
	}
	for _, lead := range leads {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"name":       lead.Name,
			"email":      lead.Email,
			"phone":      derefOr(lead.Phone, ""),
			"source":     lead.Source,
			"message":    derefOr(lead.Message, ""),
			"created_at": lead.CreatedAt.Format(time.RFC3339),
		})
	}

	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render leads csv")
	}
	return s.store("leads", "csv", payload)
}

// ExportProjectsCSV renders the filtered project table as CSV.
func (s *ReportService) ExportProjectsCSV(ctx context.Context, filter models.ProjectFilter) (*ReportResult, error) {
	filter.Page = 1
	filter.PageSize = 100
	projects, _, err := s.projects.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load projects")
	}

	dataset := export.Dataset{
		Headers: []string{"title", "client_name", "client_email", "package_tier", "status", "expires_at", "created_at"},
		Rows:    make([]map[string]string, 0, len(projects)),
	}
	now := s.now()
	for _, p := range projects {
		status := string(p.Status)
		if p.Expired(now) {
			status = status + " (expired)"
		}
		expires := ""
		if p.ExpiresAt != nil {
			expires = p.ExpiresAt.Format(time.RFC3339)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"title":        p.Title,
			"client_name":  p.ClientName,
			"client_email": p.ClientEmail,
			"package_tier": string(p.PackageTier),
			"status":       status,
			"expires_at":   expires,
			"created_at":   p.CreatedAt.Format(time.RFC3339),
		})
	}

	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render projects csv")
	}
	return s.store("projects", "csv", payload)
}

// ProjectSummaryPDF renders a one-project dossier: metadata, versions and the
// full history trail.
func (s *ReportService) ProjectSummaryPDF(ctx context.Context, projectID string) (*ReportResult, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
	}

	versions, err := s.versions.ListByProject(ctx, projectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load versions")
	}
	history, err := s.history.ListByProject(ctx, projectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}

	doc := export.Document{
		Title: fmt.Sprintf("Project summary: %s", project.Title),
		Fields: [][2]string{
			{"Client", project.ClientName},
			{"Email", project.ClientEmail},
			{"Package", string(project.PackageTier)},
			{"Status", string(project.Status)},
			{"Created", project.CreatedAt.Format("2006-01-02")},
		},
	}
	if project.ExpiresAt != nil {
		doc.Fields = append(doc.Fields, [2]string{"Preview expires", project.ExpiresAt.Format("2006-01-02")})
	}

	versionTable := export.Dataset{
		Headers: []string{"name", "recommended", "final", "created_at"},
		Rows:    make([]map[string]string, 0, len(versions)),
	}
	for _, v := range versions {
		versionTable.Rows = append(versionTable.Rows, map[string]string{
			"name":        v.Name,
			"recommended": fmt.Sprintf("%t", v.Recommended),
			"final":       fmt.Sprintf("%t", v.Final),
			"created_at":  v.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	historyTable := export.Dataset{
		Headers: []string{"action", "created_at"},
		Rows:    make([]map[string]string, 0, len(history)),
	}
	for _, h := range history {
		historyTable.Rows = append(historyTable.Rows, map[string]string{
			"action":     h.Action,
			"created_at": h.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	doc.Tables = []export.TitledTable{
		{Title: "Versions", Data: versionTable},
		{Title: "History", Data: historyTable},
	}

	payload, err := s.pdf.RenderDocument(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render project pdf")
	}
	return s.store("project-"+project.ID, "pdf", payload)
}

// OpenExport returns a file handle after validating the signed token.
func (s *ReportService) OpenExport(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return file, relPath, nil
}

// Cleanup removes exports older than the configured TTL.
func (s *ReportService) Cleanup() {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("export cleanup finished", zap.Int("deleted", len(deleted)))
	}
}

func (s *ReportService) store(name, ext string, payload []byte) (*ReportResult, error) {
	filename := fmt.Sprintf("exports/%s-%s.%s", name, s.now().Format("20060102-150405"), ext)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(name, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	return &ReportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/admin/reports/download/%s", prefix, token),
		Format:       ext,
		ExpiresAt:    expiresAt,
	}, nil
}

func derefOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}
