package server

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/voice-orders/internal/common"
	"github.com/joseph-ayodele/voice-orders/internal/entity"
	"github.com/joseph-ayodele/voice-orders/internal/pipeline"
)

type HistoryServer struct {
	proc   *pipeline.Processor
	logger *slog.Logger
}

var _ HistoryServiceServer = (*HistoryServer)(nil)

func NewHistoryServer(proc *pipeline.Processor, logger *slog.Logger) *HistoryServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryServer{proc: proc, logger: logger}
}

func (s *HistoryServer) ListHistory(ctx context.Context, _ *ListHistoryRequest) (*HistoryResponse, error) {
	articles, err := s.proc.ListHistory(ctx, common.UserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return &HistoryResponse{Articles: nonNilArticles(articles)}, nil
}

func (s *HistoryServer) SearchHistory(ctx context.Context, req *SearchHistoryRequest) (*HistoryResponse, error) {
	articles, err := s.proc.SearchHistory(ctx, common.UserIDFromContext(ctx), req.Query)
	if err != nil {
		return nil, err
	}
	return &HistoryResponse{Articles: nonNilArticles(articles)}, nil
}

func (s *HistoryServer) AddHistory(ctx context.Context, req *AddHistoryRequest) (*ArticleResponse, error) {
	a, err := s.proc.AddHistory(ctx, common.UserIDFromContext(ctx), pipeline.NewArticle{
		ArticleID:   req.ArticleID,
		ArticleName: req.ArticleName,
		Supplier:    req.Supplier,
		EAN:         req.EAN,
		Unit:        req.Unit,
		Price:       req.Price,
	})
	if err != nil {
		return nil, err
	}
	return &ArticleResponse{Article: a}, nil
}

func nonNilArticles(a []*entity.ArticleHistoryEntry) []*entity.ArticleHistoryEntry {
	if a == nil {
		return []*entity.ArticleHistoryEntry{}
	}
	return a
}
