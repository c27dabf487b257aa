package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/harmonia-studio/harmonia-api/internal/models"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
)

type clientRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Client, error)
	List(ctx context.Context, search string, page, pageSize int) ([]models.Client, int, error)
}

type clientProjectReader interface {
	List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error)
}

// ClientService is the read side of the customer registry. Writes happen
// implicitly when projects are created.
type ClientService struct {
	clients  clientRepository
	projects clientProjectReader
	logger   *zap.Logger
}

// NewClientService constructs a ClientService.
func NewClientService(clients clientRepository, projects clientProjectReader, logger *zap.Logger) *ClientService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{clients: clients, projects: projects, logger: logger}
}

// List returns clients for the back office.
func (s *ClientService) List(ctx context.Context, search string, page, pageSize int) ([]models.Client, int, error) {
	clients, total, err := s.clients.List(ctx, search, page, pageSize)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clients")
	}
	return clients, total, nil
}

// GetByEmail returns a client and the projects commissioned under that email.
func (s *ClientService) GetByEmail(ctx context.Context, email string) (*models.Client, []models.Project, error) {
	client, err := s.clients.FindByEmail(ctx, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
	}

	projects, _, err := s.projects.List(ctx, models.ProjectFilter{Search: client.Email, PageSize: 100})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client projects")
	}
	return client, projects, nil
}
