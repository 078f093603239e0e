package photography

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"itops-backend/internal/activity"
	"itops-backend/internal/platform/apierr"
	"itops-backend/internal/platform/auth"
	"itops-backend/internal/platform/blob"
	"itops-backend/internal/platform/db"
	"itops-backend/internal/platform/guard"
	"itops-backend/internal/platform/idgen"
)

const (
	submitLockTTL = 2 * time.Minute
	publicLimit   = 6
	defaultLimit  = 50
	maxLimit      = 200
)

type Repository interface {
	Get(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context, f Filter, p Page) ([]Job, int64, error)
	Completed(ctx context.Context, limit int) ([]Job, error)
	Create(ctx context.Context, j *Job, act activity.Entry) error
	Update(ctx context.Context, id string, now time.Time, mutate func(*Job) (activity.Entry, error)) (*Job, error)
}

// Directory resolves account ids to display names.
type Directory interface {
	DisplayNames(ctx context.Context, ids []string) ([]string, error)
}

type Service struct {
	repo   Repository
	people Directory
	blobs  blob.Store
	images blob.Compressor
	guard  guard.Guard
	clock  idgen.Clock
	ids    idgen.IDGen
}

func NewService(repo Repository, people Directory, blobs blob.Store, images blob.Compressor, g guard.Guard) *Service {
	return &Service{
		repo:   repo,
		people: people,
		blobs:  blobs,
		images: images,
		guard:  g,
		clock:  idgen.SystemClock{},
		ids:    idgen.NewULID(),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, p Page) (ListResult, error) {
	switch f.Status {
	case "", StatusAssigned, StatusCompleted, StatusCancelled:
	default:
		return ListResult{}, apierr.Invalid("invalid request").WithDetail("unknown status %q", f.Status)
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	items, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return ListResult{}, err
	}
	next := p.Offset + p.Limit
	if next >= int(total) {
		next = 0
	}
	return ListResult{Items: items, Total: total, NextOffset: next}, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (s *Service) CreateJob(ctx context.Context, actor auth.Actor, in CreateJobRequest) (*Job, error) {
	return s.create(ctx, actor, in, "")
}

// CreateFromBooking imports a room booking. A booking can be imported once.
func (s *Service) CreateFromBooking(ctx context.Context, actor auth.Actor, b BookingRequest) (*Job, error) {
	bookingID := strings.TrimSpace(b.BookingID)
	if bookingID == "" {
		return nil, apierr.Invalid("invalid request").WithDetail("bookingId is required")
	}
	desc := ""
	if r := strings.TrimSpace(b.Requester); r != "" {
		desc = "Booked by " + r
	}
	in := CreateJobRequest{
		Title:       b.Title,
		Description: desc,
		Location:    b.Room,
		StartTime:   b.Start,
		EndTime:     b.End,
		Assignees:   b.Assignees,
	}
	return s.create(ctx, actor, in, bookingID)
}

func (s *Service) create(ctx context.Context, actor auth.Actor, in CreateJobRequest, bookingID string) (*Job, error) {
	title, location := strings.TrimSpace(in.Title), strings.TrimSpace(in.Location)
	assignees := dedupe(in.Assignees)
	switch {
	case title == "":
		return nil, apierr.Invalid("title is required")
	case location == "":
		return nil, apierr.Invalid("location is required")
	case in.StartTime.IsZero() || in.EndTime.IsZero() || !in.StartTime.Before(in.EndTime):
		return nil, apierr.Invalid("start time must be before end time")
	case len(assignees) == 0:
		return nil, apierr.Invalid("at least one assignee is required")
	}
	names, err := s.people.DisplayNames(ctx, assignees)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	j := &Job{
		ID:            s.ids.NewULID(now),
		Title:         title,
		Description:   strings.TrimSpace(in.Description),
		Location:      location,
		StartTime:     in.StartTime.UTC(),
		EndTime:       in.EndTime.UTC(),
		Assignees:     assignees,
		AssigneeNames: names,
		BookingID:     bookingID,
		Status:        StatusAssigned,
		CreatedBy:     actor.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	act := activity.Entry{
		ID:          s.ids.NewULID(now),
		Action:      activity.ActionCreate,
		ProductName: j.Title,
		UserName:    actor.Name,
		Details:     fmt.Sprintf("photography job at %s for %s", j.Location, strings.Join(names, ", ")),
		Status:      string(StatusAssigned),
		Timestamp:   now,
	}
	if err := s.repo.Create(ctx, j, act); err != nil {
		if bookingID != "" && db.IsDuplicateKey(err) {
			return nil, apierr.Conflict("booking already imported").WithDetail("%s", bookingID)
		}
		return nil, apierr.FromDB(err, "job not found")
	}
	log.Printf("[INFO] photography job created id=%s booking=%q assignees=%v", j.ID, bookingID, assignees)
	return j, nil
}

func validLink(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}

// SubmitJob closes an assigned job with its deliverables. Concurrent submits
// for the same job are refused while one is in flight, and the status is
// re-checked under the row lock before anything is written.
func (s *Service) SubmitJob(ctx context.Context, actor auth.Actor, id string, in SubmitInput) (*Job, error) {
	in.DriveLink = strings.TrimSpace(in.DriveLink)
	in.FacebookPermalink = strings.TrimSpace(in.FacebookPermalink)
	if in.DriveLink == "" {
		return nil, apierr.Invalid("drive link is required")
	}
	if !validLink(in.DriveLink) {
		return nil, apierr.Invalid("invalid request").WithDetail("driveLink must be an http(s) URL")
	}
	if in.FacebookPermalink != "" && !validLink(in.FacebookPermalink) {
		return nil, apierr.Invalid("invalid request").WithDetail("facebookPermalink must be an http(s) URL")
	}

	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !j.IsAssignee(actor.ID) {
		return nil, apierr.Forbidden("job is not assigned to you")
	}
	if j.Status != StatusAssigned {
		return nil, apierr.Conflict("job is no longer open").WithDetail("status %s", j.Status)
	}

	unlock, ok, err := s.guard.TryLock(ctx, "job:"+id, submitLockTTL)
	if err != nil {
		return nil, fmt.Errorf("submit guard: %w", err)
	}
	if !ok {
		return nil, apierr.Conflict("job is already being submitted")
	}
	defer unlock()

	now := s.clock.Now()
	var coverKey, coverURL string
	if in.Cover != nil {
		data, err := s.images.Compress(in.Cover.Body)
		if err != nil {
			return nil, apierr.Invalid("unsupported image").WithDetail("%s: %v", in.Cover.Filename, err)
		}
		coverKey = blob.CoverKey(id, now)
		if coverURL, err = s.blobs.Put(ctx, coverKey, blob.ContentTypeJPEG, data); err != nil {
			return nil, fmt.Errorf("upload cover: %w", err)
		}
	}

	out, err := s.repo.Update(ctx, id, now, func(j *Job) (activity.Entry, error) {
		if j.Status != StatusAssigned {
			return activity.Entry{}, apierr.Conflict("job is no longer open").WithDetail("status %s", j.Status)
		}
		j.Status = StatusCompleted
		j.DriveLink = in.DriveLink
		if coverURL != "" {
			j.CoverImage = coverURL
		}
		j.FacebookPostID = strings.TrimSpace(in.FacebookPostID)
		j.FacebookPermalink = in.FacebookPermalink
		j.CompletedBy = actor.Name
		at := now
		j.CompletedAt = &at
		return activity.Entry{
			ID:          s.ids.NewULID(now),
			Action:      activity.ActionUpdate,
			ProductName: j.Title,
			UserName:    actor.Name,
			Details:     "photography job submitted",
			ImageURL:    j.CoverImage,
			Status:      string(StatusCompleted),
			Timestamp:   now,
		}, nil
	})
	if err != nil {
		blob.DeleteQuietly(ctx, s.blobs, coverKey)
		return nil, err
	}
	log.Printf("[INFO] photography job %s submitted by=%s", id, actor.ID)
	return out, nil
}

func (s *Service) CancelJob(ctx context.Context, actor auth.Actor, id string) (*Job, error) {
	now := s.clock.Now()
	out, err := s.repo.Update(ctx, id, now, func(j *Job) (activity.Entry, error) {
		if j.Status != StatusAssigned {
			return activity.Entry{}, apierr.Conflict("job is no longer open").WithDetail("status %s", j.Status)
		}
		j.Status = StatusCancelled
		return activity.Entry{
			ID:          s.ids.NewULID(now),
			Action:      activity.ActionUpdate,
			ProductName: j.Title,
			UserName:    actor.Name,
			Details:     "photography job cancelled",
			Status:      string(StatusCancelled),
			Timestamp:   now,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] photography job %s cancelled by=%s", id, actor.ID)
	return out, nil
}

// PublicActivities lists recent completed jobs that were posted to Facebook.
func (s *Service) PublicActivities(ctx context.Context) ([]PublicActivity, error) {
	jobs, err := s.repo.Completed(ctx, publicLimit)
	if err != nil {
		return nil, err
	}
	out := make([]PublicActivity, 0, len(jobs))
	for _, j := range jobs {
		date := j.StartTime
		if j.CompletedAt != nil {
			date = *j.CompletedAt
		}
		out = append(out, PublicActivity{
			ID:           j.ID,
			Title:        j.Title,
			CoverImage:   j.CoverImage,
			FacebookLink: j.FacebookPermalink,
			Date:         date.UTC().Format(time.RFC3339),
			Location:     j.Location,
			Description:  j.Description,
		})
	}
	return out, nil
}
