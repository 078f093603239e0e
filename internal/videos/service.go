package videos

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"itops-backend/internal/activity"
	"itops-backend/internal/platform/apierr"
	"itops-backend/internal/platform/auth"
	"itops-backend/internal/platform/blob"
	"itops-backend/internal/platform/idgen"
)

type Repository interface {
	List(ctx context.Context, category string, limit, offset int) ([]Video, int64, error)
	Create(ctx context.Context, v *Video, act activity.Entry) error
	Delete(ctx context.Context, id string, act func(*Video) activity.Entry) (*Video, error)
}

type Service struct {
	repo   Repository
	blobs  blob.Store
	images blob.Compressor
	clock  idgen.Clock
	ids    idgen.IDGen
}

func NewService(repo Repository, blobs blob.Store, images blob.Compressor) *Service {
	return &Service{repo: repo, blobs: blobs, images: images, clock: idgen.SystemClock{}, ids: idgen.NewULID()}
}

func (s *Service) List(ctx context.Context, category string, limit, offset int) (ListResult, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	items, total, err := s.repo.List(ctx, strings.TrimSpace(category), limit, offset)
	if err != nil {
		return ListResult{}, err
	}
	next := offset + limit
	if next >= int(total) {
		next = 0
	}
	return ListResult{Items: items, Total: total, NextOffset: next}, nil
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*Video, error) {
	title, link := strings.TrimSpace(in.Title), strings.TrimSpace(in.VideoURL)
	if title == "" {
		return nil, apierr.Invalid("title is required")
	}
	if link == "" {
		return nil, apierr.Invalid("video url is required")
	}
	if u, err := url.Parse(link); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apierr.Invalid("invalid request").WithDetail("videoUrl must be an http(s) URL")
	}

	now := s.clock.Now()
	v := &Video{
		ID:          s.ids.NewULID(now),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		VideoURL:    link,
		Category:    strings.TrimSpace(in.Category),
		CreatedBy:   actor.Name,
		CreatedAt:   now,
	}
	if in.Thumbnail != nil {
		data, err := s.images.Compress(in.Thumbnail.Body)
		if err != nil {
			return nil, apierr.Invalid("unsupported image").WithDetail("%s: %v", in.Thumbnail.Filename, err)
		}
		v.ThumbnailKey = blob.VideoThumbnailKey(now, in.Thumbnail.Filename)
		if v.ThumbnailURL, err = s.blobs.Put(ctx, v.ThumbnailKey, blob.ContentTypeJPEG, data); err != nil {
			return nil, fmt.Errorf("upload thumbnail: %w", err)
		}
	}

	act := activity.Entry{
		ID:          s.ids.NewULID(now),
		Action:      activity.ActionCreate,
		ProductName: v.Title,
		UserName:    actor.Name,
		Details:     "video added to gallery",
		ImageURL:    v.ThumbnailURL,
		Timestamp:   now,
	}
	if err := s.repo.Create(ctx, v, act); err != nil {
		if v.ThumbnailKey != "" {
			blob.DeleteQuietly(ctx, s.blobs, v.ThumbnailKey)
		}
		return nil, err
	}
	return v, nil
}

// Delete removes a gallery entry. The thumbnail is deleted after the row is
// gone; a failure there only leaves an orphaned object.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	now := s.clock.Now()
	v, err := s.repo.Delete(ctx, id, func(v *Video) activity.Entry {
		return activity.Entry{
			ID:          s.ids.NewULID(now),
			Action:      activity.ActionDelete,
			ProductName: v.Title,
			UserName:    actor.Name,
			Details:     "video removed from gallery",
			Timestamp:   now,
		}
	})
	if err != nil {
		return err
	}
	if v.ThumbnailKey != "" {
		blob.DeleteQuietly(ctx, s.blobs, v.ThumbnailKey)
	}
	log.Printf("[INFO] video %s deleted by=%s", id, actor.ID)
	return nil
}
