package source

import (
	"context"
	"sync"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/features/audit"

	"go.uber.org/zap"
)

type SourceService interface {
	CreateSource(ctx context.Context, src *ObjectSource) error
	GetSource(ctx context.Context, id string) (*ObjectSource, error)
	ListSources(ctx context.Context) ([]ObjectSource, error)
	UpdateSource(ctx context.Context, id string, updates map[string]interface{}) error
	DeleteSource(ctx context.Context, id string) error
	TestSource(ctx context.Context, id string) error

	// FetchObject satisfies the flow engine's ObjectFetcher interface.
	// An unregistered source or missing row returns nil, nil: the engine
	// never hard-depends on the ERP being reachable.
	FetchObject(ctx context.Context, sourceName, objectType, objectID string) (map[string]interface{}, error)
}

type SourceServiceImpl struct {
	Repo         SourceRepository
	AuditService audit.AuditService
	Logger       *zap.Logger

	mu         sync.Mutex
	connectors map[string]*Connector // keyed by source name
}

func NewSourceService(repo SourceRepository, auditService audit.AuditService, logger *zap.Logger) SourceService {
	return &SourceServiceImpl{
		Repo:         repo,
		AuditService: auditService,
		Logger:       logger,
		connectors:   make(map[string]*Connector),
	}
}

func (s *SourceServiceImpl) CreateSource(ctx context.Context, src *ObjectSource) error {
	err := s.Repo.Create(ctx, src)
	if err == nil {
		s.AuditService.LogChange(ctx, common_models.AuditActionSource, "object_sources", src.ID.Hex(), map[string]common_models.Change{
			"source": {New: src.Name},
		})
	}
	return err
}

func (s *SourceServiceImpl) GetSource(ctx context.Context, id string) (*ObjectSource, error) {
	return s.Repo.Get(ctx, id)
}

func (s *SourceServiceImpl) ListSources(ctx context.Context) ([]ObjectSource, error) {
	return s.Repo.List(ctx)
}

func (s *SourceServiceImpl) UpdateSource(ctx context.Context, id string, updates map[string]interface{}) error {
	old, _ := s.Repo.Get(ctx, id)

	err := s.Repo.Update(ctx, id, updates)
	if err == nil {
		if old != nil {
			s.dropConnector(old.Name)
		}
		s.AuditService.LogChange(ctx, common_models.AuditActionSource, "object_sources", id, map[string]common_models.Change{
			"source": {Old: old, New: updates},
		})
	}
	return err
}

func (s *SourceServiceImpl) DeleteSource(ctx context.Context, id string) error {
	old, _ := s.Repo.Get(ctx, id)

	err := s.Repo.Delete(ctx, id)
	if err == nil {
		name := id
		if old != nil {
			name = old.Name
			s.dropConnector(old.Name)
		}
		s.AuditService.LogChange(ctx, common_models.AuditActionSource, "object_sources", name, map[string]common_models.Change{
			"source": {Old: old, New: "DELETED"},
		})
	}
	return err
}

// TestSource opens a fresh connection and pings it
func (s *SourceServiceImpl) TestSource(ctx context.Context, id string) error {
	src, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if src == nil {
		return nil
	}

	conn, err := NewConnector(ctx, src)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (s *SourceServiceImpl) FetchObject(ctx context.Context, sourceName, objectType, objectID string) (map[string]interface{}, error) {
	src, err := s.Repo.GetByName(ctx, sourceName)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, nil
	}

	mapping := src.MappingFor(objectType)
	if mapping == nil {
		return nil, nil
	}

	conn, err := s.connector(ctx, src)
	if err != nil {
		s.Logger.Warn("object source unreachable",
			zap.String("source", sourceName), zap.Error(err))
		return nil, nil
	}

	row, err := conn.FetchRow(ctx, mapping, objectID)
	if err != nil {
		// A broken pooled connection gets dropped so the next fetch redials
		s.dropConnector(sourceName)
		return nil, err
	}
	return row, nil
}

func (s *SourceServiceImpl) connector(ctx context.Context, src *ObjectSource) (*Connector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conn, ok := s.connectors[src.Name]; ok {
		return conn, nil
	}

	conn, err := NewConnector(ctx, src)
	if err != nil {
		return nil, err
	}
	s.connectors[src.Name] = conn
	return conn, nil
}

func (s *SourceServiceImpl) dropConnector(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conn, ok := s.connectors[name]; ok {
		conn.Close()
		delete(s.connectors, name)
	}
}
