package photo

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anoixa/photo-relay/cache"
	"github.com/anoixa/photo-relay/cache/memory"
	"github.com/anoixa/photo-relay/database"
	"github.com/anoixa/photo-relay/database/models"
	"github.com/anoixa/photo-relay/database/repo/photos"
	"github.com/anoixa/photo-relay/storage"
	"github.com/anoixa/photo-relay/utils/generator"
)

type fixture struct {
	service *Service
	storage *storage.LocalStorage
	repo    *photos.Repository
	cache   *cache.Factory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewSQLiteProvider(filepath.Join(t.TempDir(), "photo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	mem, err := memory.NewMemory(memory.Config{NumCounters: 100, MaxCost: 1 << 20, BufferItems: 64})
	require.NoError(t, err)
	cacheFactory := cache.NewFactoryWithProvider(mem)
	t.Cleanup(func() { _ = cacheFactory.Close() })

	repo := photos.NewRepository(db)
	svc := NewService(repo, storage.NewFactoryWithProvider("local", local), cacheFactory, generator.NewNameGenerator("photos"), time.Minute)

	return &fixture{service: svc, storage: local, repo: repo, cache: cacheFactory}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestService_GetCurrentEmpty(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetCurrent(context.Background())
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestService_ReplaceWith(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	data := pngBytes(t)

	photo, err := f.service.ReplaceWith(ctx, bytes.NewReader(data), "cat.png")
	require.NoError(t, err)
	assert.NotZero(t, photo.ID)
	assert.Equal(t, "photos/cat.png", photo.Image)
	assert.Equal(t, "cat.png", photo.OriginalFileName)
	assert.False(t, photo.UploadedAt.IsZero())

	size, err := f.storage.Size(ctx, photo.Image)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)

	current, err := f.service.GetCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, photo.ID, current.ID)
}

func TestService_ReplaceKeepsSingleRecordAndRemovesOldFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.ReplaceWith(ctx, bytes.NewReader(pngBytes(t)), "a.png")
	require.NoError(t, err)
	second, err := f.service.ReplaceWith(ctx, bytes.NewReader(pngBytes(t)), "b.png")
	require.NoError(t, err)

	count, err := f.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	current, err := f.service.GetCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
	assert.Equal(t, "b.png", current.OriginalFileName)

	exists, err := f.storage.Exists(ctx, first.Image)
	require.NoError(t, err)
	assert.False(t, exists, "previous file should be deleted")
}

func TestService_ReplaceWithSameNameAvoidsCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 先放一个同名的遗留文件
	require.NoError(t, f.storage.SaveWithContext(ctx, "photos/cat.png", bytes.NewReader([]byte("stale"))))

	photo, err := f.service.ReplaceWith(ctx, bytes.NewReader(pngBytes(t)), "cat.png")
	require.NoError(t, err)
	assert.Regexp(t, `^photos/cat_[A-Za-z0-9]{7}\.png$`, photo.Image)
}

func TestService_ReplaceWithUnusableNameUsesSniffedExtension(t *testing.T) {
	f := newFixture(t)

	photo, err := f.service.ReplaceWith(context.Background(), bytes.NewReader(pngBytes(t)), "照片")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(photo.Image, "photos/"))
	assert.True(t, strings.HasSuffix(photo.Image, ".png"))
	assert.Equal(t, "照片", photo.OriginalFileName)
}

func TestService_ReplaceWithLongFilename(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ReplaceWith(context.Background(), bytes.NewReader(pngBytes(t)), strings.Repeat("a", 252)+".png")
	ve, ok := IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{MsgFileNameTooLong}, ve.Fields["original_file_name"])

	_, err = f.service.GetCurrent(context.Background())
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestService_GetCurrentUsesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	photo, err := f.service.ReplaceWith(ctx, bytes.NewReader(pngBytes(t)), "cat.png")
	require.NoError(t, err)

	var cached models.Photo
	require.NoError(t, f.cache.Get(ctx, cache.CurrentPhotoKey(), &cached))
	assert.Equal(t, photo.ID, cached.ID)
	assert.Equal(t, photo.Image, cached.Image)
}

func TestService_ConcurrentReplaceLeavesOneRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	data := pngBytes(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.ReplaceWith(ctx, bytes.NewReader(data), "same.png")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := f.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	orphans, err := f.service.Orphans(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestService_RemoveOrphans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	photo, err := f.service.ReplaceWith(ctx, bytes.NewReader(pngBytes(t)), "keep.png")
	require.NoError(t, err)
	require.NoError(t, f.storage.SaveWithContext(ctx, "photos/leftover.png", bytes.NewReader([]byte("x"))))

	orphans, err := f.service.Orphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/leftover.png"}, orphans)

	removed, err := f.service.RemoveOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/leftover.png"}, removed)

	exists, err := f.storage.Exists(ctx, photo.Image)
	require.NoError(t, err)
	assert.True(t, exists)
}

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) First(ctx context.Context) (*models.Photo, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(*models.Photo)
	return p, args.Error(1)
}

func (m *mockRepository) List(ctx context.Context) ([]models.Photo, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]models.Photo)
	return p, args.Error(1)
}

func (m *mockRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepository) ReplaceAll(ctx context.Context, photo *models.Photo) ([]models.Photo, error) {
	args := m.Called(ctx, photo)
	p, _ := args.Get(0).([]models.Photo)
	return p, args.Error(1)
}

func TestService_ReplaceWithDatabaseFailureRemovesFile(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	repo := new(mockRepository)
	repo.On("ReplaceAll", mock.Anything, mock.AnythingOfType("*models.Photo")).Return(nil, errors.New("disk full"))

	svc := NewService(repo, storage.NewFactoryWithProvider("local", local), nil, generator.NewNameGenerator("photos"), time.Minute)

	_, err = svc.ReplaceWith(context.Background(), bytes.NewReader(pngBytes(t)), "cat.png")
	require.Error(t, err)

	exists, err := local.Exists(context.Background(), "photos/cat.png")
	require.NoError(t, err)
	assert.False(t, exists, "file written before the failed commit should be removed")
	repo.AssertExpectations(t)
}

func TestService_GetCurrentDatabaseError(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	repo := new(mockRepository)
	repo.On("First", mock.Anything).Return(nil, errors.New("connection refused"))

	svc := NewService(repo, storage.NewFactoryWithProvider("local", local), nil, generator.NewNameGenerator("photos"), time.Minute)

	_, err = svc.GetCurrent(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPhotoNotFound)
}

// gatedCache 写入指定文件名的照片时阻塞，直到 release 被关闭
type gatedCache struct {
	*memory.Memory
	name    string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if p, ok := value.(*models.Photo); ok && p.OriginalFileName == g.name {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	return g.Memory.Set(ctx, key, value, expiration)
}

func TestService_StaleLoadDoesNotOverwriteReplacedCache(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	mem, err := memory.NewMemory(memory.Config{NumCounters: 100, MaxCost: 1 << 20, BufferItems: 64})
	require.NoError(t, err)

	gate := &gatedCache{Memory: mem, name: "old.png", entered: make(chan struct{}), release: make(chan struct{})}
	cacheFactory := cache.NewFactoryWithProvider(gate)

	old := &models.Photo{ID: 1, Image: "photos/old.png", OriginalFileName: "old.png", UploadedAt: time.Now()}
	replaced := make(chan struct{})
	repo := new(mockRepository)
	repo.On("First", mock.Anything).Return(old, nil)
	repo.On("ReplaceAll", mock.Anything, mock.AnythingOfType("*models.Photo")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Photo).ID = 2
			close(replaced)
		}).
		Return([]models.Photo{*old}, nil)

	svc := NewService(repo, storage.NewFactoryWithProvider("local", local), cacheFactory, generator.NewNameGenerator("photos"), time.Minute)
	ctx := context.Background()

	// 回源读到旧记录，写缓存时被挂起
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = svc.GetCurrent(ctx)
	}()
	<-gate.entered

	// 替换在旧值写入期间提交
	go func() {
		defer wg.Done()
		_, err := svc.ReplaceWith(ctx, bytes.NewReader(pngBytes(t)), "new.png")
		assert.NoError(t, err)
	}()
	<-replaced
	time.Sleep(50 * time.Millisecond)
	close(gate.release)
	wg.Wait()

	var cached models.Photo
	require.NoError(t, cacheFactory.Get(ctx, cache.CurrentPhotoKey(), &cached))
	assert.Equal(t, uint(2), cached.ID)
	assert.Equal(t, "new.png", cached.OriginalFileName)
}

func TestService_GetCurrentIgnoresCallerCancellation(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	photo := &models.Photo{ID: 3, Image: "photos/a.png", OriginalFileName: "a.png", UploadedAt: time.Now()}
	repo := new(mockRepository)
	repo.On("First", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })).Return(photo, nil)

	svc := NewService(repo, storage.NewFactoryWithProvider("local", local), nil, generator.NewNameGenerator("photos"), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := svc.GetCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(3), got.ID)
	repo.AssertExpectations(t)
}

func TestService_UploadedAtMicrosecondPrecision(t *testing.T) {
	f := newFixture(t)
	f.service.now = func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	}

	photo, err := f.service.ReplaceWith(context.Background(), bytes.NewReader(pngBytes(t)), "cat.png")
	require.NoError(t, err)
	assert.Equal(t, 123456000, photo.UploadedAt.Nanosecond())

	stored, err := f.repo.First(context.Background())
	require.NoError(t, err)
	assert.True(t, photo.UploadedAt.Equal(stored.UploadedAt))
}
