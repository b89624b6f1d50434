package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialchef/recipebox/internal/db"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"recipe_example.com_20240101_120000.md", true},
		{"recipe_photo_20240101_120000.md", true},
		{"recipe_.md", false},
		{"notes.md", false},
		{"recipe_x.txt", false},
		{"recipe_../../etc.md", false},
		{"recipe_a/b.md", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if tt.valid && err != nil {
				t.Errorf("ValidateName(%q) = %v, want nil", tt.name, err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidName) {
				t.Errorf("ValidateName(%q) = %v, want ErrInvalidName", tt.name, err)
			}
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "recipes/u1/recipe_a.md", Key("u1", "recipe_a.md"))
}

// exerciseStore runs the shared Store contract against any backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	older := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	require.NoError(t, store.Save(ctx, Recipe{
		RecipeMeta: RecipeMeta{Owner: "alice", Name: "recipe_a.md", Title: "Soup", SourceURL: "https://example.com/soup", Created: older},
		Content:    "# Soup\n\nbody",
	}))
	require.NoError(t, store.Save(ctx, Recipe{
		RecipeMeta: RecipeMeta{Owner: "alice", Name: "recipe_b.md", Title: "Stew", Created: newer},
		Content:    "# Stew",
	}))
	require.NoError(t, store.Save(ctx, Recipe{
		RecipeMeta: RecipeMeta{Owner: "bob", Name: "recipe_c.md", Title: "Cake", Created: older},
		Content:    "# Cake",
	}))

	got, err := store.Get(ctx, "alice", "recipe_a.md")
	require.NoError(t, err)
	assert.Equal(t, "# Soup\n\nbody", got.Content)
	assert.Equal(t, "Soup", got.Title)
	assert.Equal(t, "https://example.com/soup", got.SourceURL)
	assert.True(t, older.Equal(got.Created), "created = %v", got.Created)

	list, err := store.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "recipe_b.md", list[0].Name, "newest first")
	assert.Equal(t, "recipe_a.md", list[1].Name)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	empty, err := store.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)

	// Overwrite keeps the creation time.
	require.NoError(t, store.Save(ctx, Recipe{
		RecipeMeta: RecipeMeta{Owner: "alice", Name: "recipe_a.md", Title: "Better Soup"},
		Content:    "# Better Soup",
	}))
	got, err = store.Get(ctx, "alice", "recipe_a.md")
	require.NoError(t, err)
	assert.Equal(t, "Better Soup", got.Title)
	assert.True(t, older.Equal(got.Created), "created = %v", got.Created)

	// Other owners cannot see the recipe.
	_, err = store.Get(ctx, "bob", "recipe_a.md")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "alice", "recipe_a.md"))
	_, err = store.Get(ctx, "alice", "recipe_a.md")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "alice", "recipe_a.md"), ErrNotFound)

	assert.ErrorIs(t, store.Save(ctx, Recipe{RecipeMeta: RecipeMeta{Owner: "alice", Name: "bad.md"}}), ErrInvalidName)
	_, err = store.Get(ctx, "alice", "../recipe_x.md")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "recipes.db"))
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, Recipe{
		RecipeMeta: RecipeMeta{Owner: "local", Name: "recipe_a.md", Title: "Soup"},
		Content:    "# Soup",
	}))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, "local", "recipe_a.md")
	require.NoError(t, err)
	assert.Equal(t, "Soup", got.Title)
	assert.False(t, got.Created.IsZero())
}

func TestPostgresStore(t *testing.T) {
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, databaseURL)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, "DROP TABLE IF EXISTS recipes")
	require.NoError(t, err)

	store, err := NewPostgresStore(ctx, pool)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

type fakeObject struct {
	body     []byte
	metadata map[string]string
	modified time.Time
}

// fakeS3 is an in-memory s3API.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	puts    []*s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]fakeObject{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, in)
	f.objects[aws.ToString(in.Key)] = fakeObject{body: body, metadata: in.Metadata, modified: time.Now().UTC()}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:         io.NopCloser(bytes.NewReader(obj.body)),
		Metadata:     obj.metadata,
		LastModified: aws.Time(obj.modified),
	}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{Metadata: obj.metadata, LastModified: aws.Time(obj.modified)}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), LastModified: aws.Time(f.objects[k].modified)})
	}
	return out, nil
}

func TestS3Store(t *testing.T) {
	fake := newFakeS3()
	store := &S3Store{client: fake, bucket: "recipes-bucket"}

	exerciseStore(t, store)

	require.NotEmpty(t, fake.puts)
	put := fake.puts[0]
	assert.Equal(t, "recipes-bucket", aws.ToString(put.Bucket))
	assert.Equal(t, "recipes/alice/recipe_a.md", aws.ToString(put.Key))
	assert.Equal(t, "text/markdown", aws.ToString(put.ContentType))
	assert.Equal(t, "recipe", put.Metadata["type"])
	assert.Equal(t, "Soup", put.Metadata["recipe-name"])
	assert.Equal(t, "2024-01-01T12:00:00Z", put.Metadata["created"])
}

func TestS3Store_ListSkipsForeignKeys(t *testing.T) {
	fake := newFakeS3()
	fake.objects["recipes/alice/notes.txt"] = fakeObject{body: []byte("x")}
	fake.objects["recipes/alice/recipe_a.md"] = fakeObject{body: []byte("# From Body"), modified: time.Now()}
	fake.objects["other/recipe_b.md"] = fakeObject{body: []byte("x")}
	store := &S3Store{client: fake, bucket: "b"}

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "alice", all[0].Owner)

	// Without metadata the title comes from the first heading.
	got, err := store.Get(context.Background(), "alice", "recipe_a.md")
	require.NoError(t, err)
	assert.Equal(t, "From Body", got.Title)
}

func TestHeaderSafe(t *testing.T) {
	assert.Equal(t, "Creme Brulee", headerSafe("Creme Brulee"))
	assert.Equal(t, "Crme", headerSafe("Crème"))
	assert.Equal(t, "ab", headerSafe("a\nb"))
}

func TestCountByOwner(t *testing.T) {
	counts := CountByOwner([]RecipeMeta{{Owner: "a"}, {Owner: "b"}, {Owner: "a"}})
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, counts)
	assert.Empty(t, CountByOwner(nil))
}
