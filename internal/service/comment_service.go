package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"Lee_Moments/internal/errs"
	"Lee_Moments/internal/model"
)

const (
	MaxCommentLen       = 2000
	defaultCommentLimit = 20
	maxCommentLimit     = 100
)

type CommentService struct {
	d Deps
}

type CommentPage struct {
	Comments   []model.Comment `json:"comments"`
	NextCursor uint64          `json:"next_cursor"`
}

func NewCommentService(d Deps) *CommentService {
	return &CommentService{d: d}
}

// AddComment 任何登录用户都可以评论，内容先 trim 再校验
func (s *CommentService) AddComment(ctx context.Context, momentID, userID uint64, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.ErrCommentContentEmpty
	}
	if utf8.RuneCountInString(content) > MaxCommentLen {
		return nil, errs.ErrCommentContentTooLong
	}
	m, err := s.d.findMoment(ctx, momentID)
	if err != nil {
		return nil, err
	}

	c := &model.Comment{
		MomentID:  m.ID,
		UserID:    userID,
		Content:   content,
		CreatedAt: s.d.now(),
	}
	// 评论和给 HOST 的 outbox 通知同一事务提交
	err = s.d.inTx(ctx, func(ctx context.Context) error {
		if err := s.d.Comments.Create(ctx, c); err != nil {
			return err
		}
		s.d.notifyHosts(ctx, NotifyHostNewComment, m, userID, func(n *Notification) {
			n.CommentID = c.ID
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteComment 作者本人或该 moment 所属 circle 的 HOST 可删除
func (s *CommentService) DeleteComment(ctx context.Context, commentID, userID uint64) error {
	c, err := s.d.Comments.FindByID(ctx, commentID)
	if err != nil {
		return err
	}
	if c == nil {
		return errs.ErrCommentNotFound
	}
	if c.UserID != userID {
		m, err := s.d.Moments.FindByID(ctx, c.MomentID)
		if err != nil {
			return err
		}
		if m == nil {
			return errs.ErrUnauthorizedCommentDeletion
		}
		if err := s.d.requireHost(ctx, m.CircleID, userID, errs.ErrUnauthorizedCommentDeletion); err != nil {
			return err
		}
	}
	if err := s.d.Comments.Delete(ctx, c.ID); err != nil {
		return err
	}
	s.d.Logger.Info("comment deleted", "comment", c.ID, "moment", c.MomentID, "by", userID)
	return nil
}

// ListComments 按 id 游标分页，cursor=0 从头开始
func (s *CommentService) ListComments(ctx context.Context, momentID, cursor uint64, limit int) (*CommentPage, error) {
	if _, err := s.d.findMoment(ctx, momentID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultCommentLimit
	}
	if limit > maxCommentLimit {
		limit = maxCommentLimit
	}
	list, next, err := s.d.Comments.ListByMoment(ctx, momentID, cursor, limit)
	if err != nil {
		return nil, err
	}
	return &CommentPage{Comments: list, NextCursor: next}, nil
}
