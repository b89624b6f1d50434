package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	metaCreated    = "created"
	metaType       = "type"
	metaRecipeName = "recipe-name"
	metaSourceURL  = "source-url"
)

// s3API is the subset of the S3 client used by S3Store.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store keeps each recipe as a text/markdown object under
// recipes/<owner>/<name> with its title and creation time in object metadata.
type S3Store struct {
	client s3API
	bucket string
}

func NewS3Store(ctx context.Context, bucket, region string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("s3 store: load aws config: %w", err)
	}
	return &S3Store{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (s *S3Store) Save(ctx context.Context, r Recipe) error {
	if err := validate(r.Owner, r.Name); err != nil {
		return err
	}

	key := Key(r.Owner, r.Name)
	created := r.Created
	if created.IsZero() {
		created = time.Now().UTC()
		if existing, err := s.head(ctx, key); err == nil {
			created = existing.Created
		}
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader([]byte(r.Content)),
		ContentType: aws.String("text/markdown"),
		Metadata: map[string]string{
			metaCreated:    created.UTC().Format(time.RFC3339),
			metaType:       "recipe",
			metaRecipeName: headerSafe(r.Title),
			metaSourceURL:  headerSafe(r.SourceURL),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 store: put %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, owner, name string) (*Recipe, error) {
	if err := validate(owner, name); err != nil {
		return nil, err
	}

	key := Key(owner, name)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 store: get %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 store: read %s: %w", key, err)
	}

	meta := metaFromObject(owner, name, out.Metadata, out.LastModified)
	if meta.Title == "" {
		meta.Title = titleFromContent(string(body))
	}
	return &Recipe{RecipeMeta: meta, Content: string(body)}, nil
}

func (s *S3Store) List(ctx context.Context, owner string) ([]RecipeMeta, error) {
	return s.list(ctx, "recipes/"+owner+"/recipe_")
}

func (s *S3Store) ListAll(ctx context.Context) ([]RecipeMeta, error) {
	return s.list(ctx, "recipes/")
}

func (s *S3Store) list(ctx context.Context, prefix string) ([]RecipeMeta, error) {
	metas := []RecipeMeta{}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 store: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			owner, name, ok := splitKey(key)
			if !ok || ValidateName(name) != nil {
				continue
			}
			meta, err := s.head(ctx, key)
			if err != nil {
				meta = RecipeMeta{Owner: owner, Name: name, Created: aws.ToTime(obj.LastModified)}
			}
			metas = append(metas, meta)
		}
	}

	sortNewestFirst(metas)
	return metas, nil
}

func (s *S3Store) head(ctx context.Context, key string) (RecipeMeta, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return RecipeMeta{}, ErrNotFound
		}
		return RecipeMeta{}, err
	}
	owner, name, _ := splitKey(key)
	return metaFromObject(owner, name, out.Metadata, out.LastModified), nil
}

func (s *S3Store) Delete(ctx context.Context, owner, name string) error {
	if err := validate(owner, name); err != nil {
		return err
	}

	key := Key(owner, name)
	// DeleteObject succeeds for missing keys, so check first.
	if _, err := s.head(ctx, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("s3 store: head %s: %w", key, err)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 store: delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Close() error { return nil }

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}

func splitKey(key string) (owner, name string, ok bool) {
	rest, found := strings.CutPrefix(key, "recipes/")
	if !found {
		return "", "", false
	}
	owner, name, ok = strings.Cut(rest, "/")
	if !ok || owner == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return owner, name, true
}

func metaFromObject(owner, name string, md map[string]string, lastModified *time.Time) RecipeMeta {
	meta := RecipeMeta{
		Owner:     owner,
		Name:      name,
		Title:     md[metaRecipeName],
		SourceURL: md[metaSourceURL],
		Created:   aws.ToTime(lastModified),
	}
	if created, err := time.Parse(time.RFC3339, md[metaCreated]); err == nil {
		meta.Created = created
	}
	return meta
}

func titleFromContent(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if title, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(title)
		}
	}
	return ""
}

// headerSafe drops characters S3 rejects in user metadata headers.
func headerSafe(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		}
	}
	return b.String()
}
