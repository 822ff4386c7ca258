package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/desertthunder/kplor/internal/shared"
	tu "github.com/desertthunder/kplor/internal/testing"
)

// fakeS3 records puts in memory and answers listings from them.
type fakeS3 struct {
	mu         sync.Mutex
	objects    map[string]string
	mediaTypes map[string]string
	listErr    error
	putErr     error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]string{}, mediaTypes: map[string]string{}}
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := &s3.ListObjectsV2Output{}
	prefix := aws.ToString(in.Prefix)
	for key := range f.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
			break
		}
	}
	return out, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = string(body)
	f.mediaTypes[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Storage(t *testing.T) {
	t.Run("NewS3Storage requires bucket", func(t *testing.T) {
		_, err := NewS3Storage(newFakeS3(), "")
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Authenticate without chain", func(t *testing.T) {
		st, _ := NewS3Storage(newFakeS3(), "bucket")
		if err := st.Authenticate(context.Background()); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("Find then Create", func(t *testing.T) {
		fake := newFakeS3()
		st, _ := NewS3Storage(fake, "bucket")
		ctx := context.Background()

		_, found, err := st.FindContainer(ctx, "r1_Calculus", "materials")
		if err != nil || found {
			t.Fatalf("expected empty bucket, got found=%v err=%v", found, err)
		}

		id, err := st.CreateContainer(ctx, "r1_Calculus", "materials")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "materials/r1_Calculus/" {
			t.Errorf("unexpected prefix %s", id)
		}
		if _, ok := fake.objects["materials/r1_Calculus/.keep"]; !ok {
			t.Error("expected marker object")
		}

		again, found, err := st.FindContainer(ctx, "r1_Calculus", "materials")
		if err != nil || !found || again != id {
			t.Errorf("expected to find %s, got %s found=%v err=%v", id, again, found, err)
		}
	})

	t.Run("Upload", func(t *testing.T) {
		fake := newFakeS3()
		st, _ := NewS3Storage(fake, "bucket")

		key, err := st.Upload(context.Background(), tu.NewUploadFile("notes.txt", "hello"), "materials/r1_Calculus/")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if key != "materials/r1_Calculus/notes.txt" {
			t.Errorf("unexpected key %s", key)
		}
		if fake.objects[key] != "hello" || fake.mediaTypes[key] != "text/plain" {
			t.Errorf("unexpected object %q type %q", fake.objects[key], fake.mediaTypes[key])
		}
	})

	t.Run("Errors are storage request errors", func(t *testing.T) {
		fake := newFakeS3()
		fake.listErr = errors.New("access denied")
		fake.putErr = errors.New("slow down")
		st, _ := NewS3Storage(fake, "bucket")

		if _, _, err := st.FindContainer(context.Background(), "a", "b"); !errors.Is(err, shared.ErrStorageRequest) {
			t.Errorf("expected ErrStorageRequest, got %v", err)
		}
		_, err := st.Upload(context.Background(), tu.NewUploadFile("x.txt", "x"), "b/a/")
		var serr *StorageRequestError
		if !errors.As(err, &serr) || serr.FileName != "x.txt" {
			t.Errorf("expected StorageRequestError for x.txt, got %v", err)
		}
	})
}
