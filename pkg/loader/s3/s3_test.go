package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeGetter struct {
	objects map[string]string
	gets    int
}

func (f *fakeGetter) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gets++
	body, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestLoadTextCaches(t *testing.T) {
	g := &fakeGetter{objects: map[string]string{"docs/imports/a.txt": "Acme"}}
	l := NewS3TextLoader("docs", g)

	for range 2 {
		text, err := l.LoadText(context.Background(), "imports/a.txt")
		if err != nil || text != "Acme" {
			t.Fatalf("LoadText = %q, %v", text, err)
		}
	}
	if g.gets != 1 {
		t.Fatalf("expected one download, got %d", g.gets)
	}

	l.Forget("imports/a.txt")
	if _, err := l.LoadText(context.Background(), "imports/a.txt"); err != nil {
		t.Fatalf("LoadText: %v", err)
	}
	if g.gets != 2 {
		t.Fatalf("expected download after Forget, got %d", g.gets)
	}
}

func TestLoadTextMissing(t *testing.T) {
	l := NewS3TextLoader("docs", &fakeGetter{objects: map[string]string{}})
	if _, err := l.LoadText(context.Background(), "nope"); err == nil {
		t.Fatalf("expected error")
	}
}
