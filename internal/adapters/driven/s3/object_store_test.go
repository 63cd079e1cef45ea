package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
)

type fakeS3 struct {
	pages   []*awss3.ListObjectsV2Output
	pageIdx int
	objects map[string][]byte
	listErr error
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := f.pages[f.pageIdx]
	f.pageIdx++
	return out, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, params *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, errors.New("NotFound")
	}
	return &awss3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/pdf"),
		LastModified:  aws.Time(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
	}, nil
}

func TestListInfoPaginatesAndSkipsFolders(t *testing.T) {
	modified := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	fake := &fakeS3{
		pages: []*awss3.ListObjectsV2Output{
			{
				Contents: []types.Object{
					{Key: aws.String("docs/"), Size: aws.Int64(0), LastModified: aws.Time(modified)},
					{Key: aws.String("docs/a.pdf"), Size: aws.Int64(100), LastModified: aws.Time(modified)},
				},
				IsTruncated:           aws.Bool(true),
				NextContinuationToken: aws.String("next"),
			},
			{
				Contents: []types.Object{
					{Key: aws.String("docs/b.csv"), Size: aws.Int64(50), LastModified: aws.Time(modified)},
				},
				IsTruncated: aws.Bool(false),
			},
		},
	}
	store := &ObjectStore{client: fake, bucket: "test-bucket"}

	infos, err := store.ListInfo(context.Background(), "docs/")
	if err != nil {
		t.Fatalf("ListInfo failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(infos))
	}
	if infos[0].Key != "docs/a.pdf" || infos[0].FileName != "a.pdf" {
		t.Errorf("unexpected first object: %+v", infos[0])
	}
	if infos[1].Key != "docs/b.csv" {
		t.Errorf("unexpected second object: %+v", infos[1])
	}
	if infos[0].Bucket != "test-bucket" {
		t.Errorf("expected bucket test-bucket, got %q", infos[0].Bucket)
	}
}

func TestListWrapsError(t *testing.T) {
	fake := &fakeS3{listErr: errors.New("access denied")}
	store := &ObjectStore{client: fake, bucket: "test-bucket"}

	_, err := store.List(context.Background(), "docs/")
	var storageErr *domain.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if storageErr.Op != "list" {
		t.Errorf("expected op list, got %q", storageErr.Op)
	}
}

func TestGet(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"docs/a.pdf": []byte("pdf bytes")}}
	store := &ObjectStore{client: fake, bucket: "test-bucket"}

	data, err := store.Get(context.Background(), "docs/a.pdf")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "pdf bytes" {
		t.Errorf("unexpected body: %q", data)
	}

	if _, err := store.Get(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestInfo(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"docs/a.pdf": []byte("pdf bytes")}}
	store := &ObjectStore{client: fake, bucket: "test-bucket"}

	info, err := store.Info(context.Background(), "docs/a.pdf")
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Size != 9 {
		t.Errorf("expected size 9, got %d", info.Size)
	}
	if info.ContentType != "application/pdf" {
		t.Errorf("unexpected content type %q", info.ContentType)
	}
	if info.FileName != "a.pdf" {
		t.Errorf("unexpected file name %q", info.FileName)
	}
}
