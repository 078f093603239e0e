package blob

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"itops-backend/internal/platform/config"
)

var ts = time.UnixMilli(1714550400123).UTC()

func TestKeys(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{SignatureKey(SignatureBorrow, ts, "u-1"), "signatures/borrow_1714550400123_u-1.png"},
		{SignatureKey(SignatureRequisition, ts, "u 2"), "signatures/req_1714550400123_u_2.png"},
		{RepairImageKey(ts, "broken screen.png"), "repair_images/1714550400123_broken_screen.jpg"},
		{RepairCompletionKey(ts, "after.JPG"), "repair_completion/1714550400123_after.jpg"},
		{CoverKey("01HXJOB", ts), "covers/01HXJOB_1714550400123.jpg"},
		{VideoThumbnailKey(ts, "../../etc/ภาพปก.jpeg"), "video_thumbnails/1714550400123_image.jpg"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"hello world.png": "hello_world.png",
		"a/b/c.txt":       "c.txt",
		`C:\x\y.png`:      "y.png",
		"":                "file",
		"ไฟล์":            "file",
		"ok-name_1.jpg":   "ok-name_1.jpg",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeSignature(t *testing.T) {
	raw := pngBytes(t, 4, 4)
	enc := base64.StdEncoding.EncodeToString(raw)

	got, err := DecodeSignature("data:image/png;base64," + enc)
	if err != nil {
		t.Fatalf("data url: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Error("data url bytes differ")
	}
	if _, err := DecodeSignature(enc); err != nil {
		t.Errorf("bare base64: %v", err)
	}
	if _, err := DecodeSignature("   "); !errors.Is(err, ErrEmptySignature) {
		t.Errorf("blank: %v", err)
	}
	if _, err := DecodeSignature("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("GIF89a"))); !errors.Is(err, ErrNotPNG) {
		t.Errorf("non png: %v", err)
	}
	if _, err := DecodeSignature("data:image/png;base64,@@@"); err == nil {
		t.Error("bad base64 should fail")
	}
}

func TestCompressDownscales(t *testing.T) {
	c := Compressor{MaxDimension: 100, Quality: 70}
	out, err := c.Compress(bytes.NewReader(pngBytes(t, 400, 200)))
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %s", format)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("bounds = %v", b)
	}
}

func TestCompressRejectsGarbage(t *testing.T) {
	if _, err := (Compressor{}).Compress(strings.NewReader("not an image")); err == nil {
		t.Fatal("expected error")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("https://cdn.example")
	url, err := s.Put(ctx, "covers/x.jpg", ContentTypeJPEG, []byte{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://cdn.example/covers/x.jpg" {
		t.Errorf("url = %s", url)
	}
	if o, ok := s.Get("covers/x.jpg"); !ok || o.ContentType != ContentTypeJPEG {
		t.Errorf("get = %+v %v", o, ok)
	}
	DeleteQuietly(ctx, s, "covers/x.jpg", "")
	if len(s.Keys("covers/")) != 0 {
		t.Error("object should be deleted")
	}
}

func TestNewSelectsDriver(t *testing.T) {
	if _, err := New(config.BlobConfig{Driver: "memory"}); err != nil {
		t.Errorf("memory: %v", err)
	}
	if _, err := New(config.BlobConfig{Driver: "oss"}); err == nil {
		t.Error("oss without credentials should fail")
	}
	if _, err := New(config.BlobConfig{Driver: "s3"}); err == nil {
		t.Error("unknown driver should fail")
	}
}
