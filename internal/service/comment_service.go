package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
)

// CommentService 客户留言
type CommentService interface {
	Create(ctx context.Context, userID, message string) (*model.Comment, error)
	List(ctx context.Context) ([]*model.Comment, error)
	Reply(ctx context.Context, id, reply string) (*model.Comment, error)
	Delete(ctx context.Context, id string) error
}

type commentService struct {
	repo repository.CommentRepository
}

func NewCommentService(repo repository.CommentRepository) CommentService {
	return &commentService{repo: repo}
}

func (s *commentService) Create(ctx context.Context, userID, message string) (*model.Comment, error) {
	msg := sanitizeText(message)
	if msg == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	c := &model.Comment{ID: uuid.NewString(), UserID: userID, Message: msg}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *commentService) List(ctx context.Context) ([]*model.Comment, error) {
	return s.repo.List(ctx)
}

func (s *commentService) Reply(ctx context.Context, id, reply string) (*model.Comment, error) {
	reply = sanitizeText(reply)
	if reply == "" {
		return nil, fmt.Errorf("%w: reply is required", ErrInvalidInput)
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, notFound(err, ErrCommentNotFound)
	}
	if err := s.repo.SetReply(ctx, id, reply); err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrCommentNotFound)
	}
	return c, nil
}

func (s *commentService) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCommentNotFound
	}
	return nil
}
