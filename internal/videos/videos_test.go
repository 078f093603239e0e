package videos

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"itops-backend/internal/activity"
	"itops-backend/internal/platform/apierr"
	"itops-backend/internal/platform/auth"
	"itops-backend/internal/platform/blob"
	"itops-backend/internal/platform/idgen"
)

type fakeRepo struct {
	videos     map[string]*Video
	acts       []activity.Entry
	failCreate error
}

func newFakeRepo() *fakeRepo { return &fakeRepo{videos: map[string]*Video{}} }

func (f *fakeRepo) List(_ context.Context, category string, limit, offset int) ([]Video, int64, error) {
	var out []Video
	for _, v := range f.videos {
		if category == "" || v.Category == category {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	total := int64(len(out))
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (f *fakeRepo) Create(_ context.Context, v *Video, act activity.Entry) error {
	if f.failCreate != nil {
		return f.failCreate
	}
	cp := *v
	f.videos[v.ID] = &cp
	f.acts = append(f.acts, act)
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string, act func(*Video) activity.Entry) (*Video, error) {
	v, ok := f.videos[id]
	if !ok {
		return nil, apierr.NotFound("video not found")
	}
	delete(f.videos, id)
	f.acts = append(f.acts, act(v))
	return v, nil
}

var (
	t0      = time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	admin   = auth.Actor{ID: "admin", Name: "Admin", Role: auth.RoleAdmin}
	shooter = auth.Actor{ID: "nok", Name: "Nok", Role: auth.RolePhotographer}
)

func newTestService(repo *fakeRepo) (*Service, *blob.MemoryStore, *idgen.FixedClock) {
	blobs := blob.NewMemory("https://cdn.test")
	clock := &idgen.FixedClock{T: t0}
	svc := NewService(repo, blobs, blob.Compressor{MaxDimension: 32, Quality: 80})
	svc.clock = clock
	return svc, blobs, clock
}

func thumbPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	for x := 0; x < 64; x++ {
		img.Set(x, x%36, color.RGBA{G: 180, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCreateAndDelete(t *testing.T) {
	repo := newFakeRepo()
	svc, blobs, _ := newTestService(repo)
	ctx := context.Background()

	v, err := svc.Create(ctx, shooter, CreateInput{
		Title:     "Open house 2025",
		VideoURL:  "https://youtu.be/abc",
		Category:  "events",
		Thumbnail: &Upload{Filename: "thumb one.png", Body: bytes.NewReader(thumbPNG(t))},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(v.ThumbnailKey, "video_thumbnails/") || v.ThumbnailURL == "" || v.CreatedBy != "Nok" {
		t.Errorf("video = %+v", v)
	}
	if _, ok := blobs.Get(v.ThumbnailKey); !ok {
		t.Fatal("thumbnail not stored")
	}
	if repo.acts[0].Action != activity.ActionCreate {
		t.Errorf("activity = %+v", repo.acts[0])
	}

	if err := svc.Delete(ctx, admin, v.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := blobs.Get(v.ThumbnailKey); ok {
		t.Error("thumbnail still stored after delete")
	}
	if last := repo.acts[len(repo.acts)-1]; last.Action != activity.ActionDelete || last.ProductName != "Open house 2025" {
		t.Errorf("activity = %+v", last)
	}
	if err := svc.Delete(ctx, admin, v.ID); !apierr.Is(err, apierr.CodeNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	repo := newFakeRepo()
	svc, blobs, _ := newTestService(repo)
	ctx := context.Background()

	cases := []CreateInput{
		{VideoURL: "https://youtu.be/abc"},
		{Title: "x"},
		{Title: "x", VideoURL: "youtu.be/abc"},
		{Title: "x", VideoURL: "https://youtu.be/abc", Thumbnail: &Upload{Filename: "a.png", Body: strings.NewReader("nope")}},
	}
	for i, in := range cases {
		if _, err := svc.Create(ctx, admin, in); !apierr.Is(err, apierr.CodeInvalidArgument) {
			t.Errorf("case %d err = %v", i, err)
		}
	}

	repo.failCreate = context.DeadlineExceeded
	_, err := svc.Create(ctx, admin, CreateInput{
		Title:     "x",
		VideoURL:  "https://youtu.be/abc",
		Thumbnail: &Upload{Filename: "a.png", Body: bytes.NewReader(thumbPNG(t))},
	})
	if err == nil {
		t.Fatal("expected write failure")
	}
	if keys := blobs.Keys("video_thumbnails/"); len(keys) != 0 {
		t.Errorf("orphaned thumbnails: %v", keys)
	}
}

func TestListNewestFirst(t *testing.T) {
	repo := newFakeRepo()
	svc, _, clock := newTestService(repo)
	ctx := context.Background()
	for i, cat := range []string{"events", "sports", "events"} {
		_, err := svc.Create(ctx, admin, CreateInput{Title: "v" + string(rune('a'+i)), VideoURL: "https://youtu.be/x", Category: cat})
		if err != nil {
			t.Fatal(err)
		}
		clock.Advance(time.Minute)
	}

	res, err := svc.List(ctx, "events", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 || res.Items[0].Title != "vc" || res.Items[1].Title != "va" {
		t.Errorf("list = %+v", res)
	}
	res, _ = svc.List(ctx, "", 2, 0)
	if res.Total != 3 || len(res.Items) != 2 || res.NextOffset != 2 {
		t.Errorf("page = %+v", res)
	}
}

func withActor(a auth.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.CtxUserIDKey, a.ID)
		c.Set(auth.CtxUserNameKey, a.Name)
		c.Set(auth.CtxRoleKey, a.Role)
		c.Next()
	}
}

func TestRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newFakeRepo()
	svc, _, _ := newTestService(repo)

	newRouter := func(a auth.Actor) *gin.Engine {
		r := gin.New()
		RegisterRoutes(r.Group("/api/v1", withActor(a)), svc)
		return r
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("title", "Sports day")
	_ = mw.WriteField("videoUrl", "https://youtu.be/sd")
	_ = mw.Close()

	staff := auth.Actor{ID: "t1", Name: "Teacher", Role: auth.RoleStaff}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	newRouter(staff).ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("staff create = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/videos", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	newRouter(shooter).ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}

	var id string
	for k := range repo.videos {
		id = k
	}
	w = httptest.NewRecorder()
	newRouter(shooter).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/videos/"+id, nil))
	if w.Code != http.StatusForbidden {
		t.Errorf("photographer delete = %d", w.Code)
	}
	w = httptest.NewRecorder()
	newRouter(admin).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/videos/"+id, nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("admin delete = %d", w.Code)
	}
}
