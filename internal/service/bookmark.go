package service

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/LinkLocker-Labs/linklocker-back/internal/db"
)

type BookmarkPatch struct {
	Title       *string
	Link        *string
	Description *string
}

// Bookmarks is the ownership-scoped bookmark CRUD service. Every
// operation takes the authenticated caller's user ID; a bookmark owned
// by someone else is indistinguishable from a missing one.
type Bookmarks struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewBookmarks(database *gorm.DB, l *zap.SugaredLogger) *Bookmarks {
	return &Bookmarks{
		db:     database,
		logger: l,
	}
}

func (s *Bookmarks) Create(ctx context.Context, ownerID uint64, title, link string, description *string) (*db.Bookmark, error) {
	model := db.Bookmark{
		Title:       &title,
		Link:        &link,
		Description: description,
		UserID:      ownerID, // owner comes from the caller's identity, never from the payload
	}

	res := s.db.WithContext(ctx).Create(&model)
	if res.Error != nil {
		return nil, res.Error
	}

	return &model, nil
}

func (s *Bookmarks) List(ctx context.Context, ownerID uint64) ([]db.Bookmark, error) {
	sql, args, err := squirrel.
		Select("id", "title", "link", "description", "user_id", "created_at", "updated_at").
		From("bookmarks").
		Where(squirrel.Eq{"user_id": ownerID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	bookmarks := make([]db.Bookmark, 0)
	res := s.db.WithContext(ctx).Raw(sql, args...).Scan(&bookmarks)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan")
	}

	return bookmarks, nil
}

func (s *Bookmarks) Get(ctx context.Context, ownerID, bookmarkID uint64) (*db.Bookmark, error) {
	return s.findOwned(ctx, ownerID, bookmarkID)
}

func (s *Bookmarks) Edit(ctx context.Context, ownerID, bookmarkID uint64, patch BookmarkPatch) (*db.Bookmark, error) {
	model, err := s.findOwned(ctx, ownerID, bookmarkID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Link != nil {
		updates["link"] = *patch.Link
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if len(updates) == 0 {
		return model, nil
	}

	res := s.db.WithContext(ctx).Model(model).Updates(updates)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "update bookmark")
	}

	return model, nil
}

func (s *Bookmarks) Delete(ctx context.Context, ownerID, bookmarkID uint64) error {
	model, err := s.findOwned(ctx, ownerID, bookmarkID)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Delete(model)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete bookmark")
	}
	return nil
}

// findOwned looks the bookmark up by id alone and then checks ownership,
// collapsing "absent" and "not yours" into the same ErrNotFound.
func (s *Bookmarks) findOwned(ctx context.Context, ownerID, bookmarkID uint64) (*db.Bookmark, error) {
	model := db.Bookmark{}
	res := s.db.WithContext(ctx).First(&model, bookmarkID)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, res.Error
	}

	if model.UserID != ownerID {
		return nil, ErrNotFound
	}

	return &model, nil
}
