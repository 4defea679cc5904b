package photo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/anoixa/photo-relay/cache"
	"github.com/anoixa/photo-relay/database/models"
	"github.com/anoixa/photo-relay/database/repo/photos"
	"github.com/anoixa/photo-relay/internal/metrics"
	"github.com/anoixa/photo-relay/storage"
	"github.com/anoixa/photo-relay/utils"
	"github.com/anoixa/photo-relay/utils/generator"
)

const currentFlightKey = "current"

// Service 单张照片的存取服务，保证任意时刻至多一条照片记录
type Service struct {
	repo           photos.RepositoryInterface
	storageFactory *storage.Factory
	cache          *cache.Factory
	names          *generator.NameGenerator
	cacheTTL       time.Duration

	// 串行化进程内的替换操作
	mu    sync.Mutex
	group singleflight.Group
	// 每次替换提交后递增，回源期间发生替换时不回写缓存
	generation atomic.Uint64
	// 回源写缓存持读锁，替换提交后的递增与写缓存持写锁
	cacheMu sync.RWMutex
	now        func() time.Time
}

// NewService 创建照片服务，cacheFactory 可为 nil
func NewService(
	repo photos.RepositoryInterface,
	storageFactory *storage.Factory,
	cacheFactory *cache.Factory,
	names *generator.NameGenerator,
	cacheTTL time.Duration,
) *Service {
	return &Service{
		repo:           repo,
		storageFactory: storageFactory,
		cache:          cacheFactory,
		names:          names,
		cacheTTL:       cacheTTL,
		now:            time.Now,
	}
}

// GetCurrent 返回当前照片，没有照片时返回 ErrPhotoNotFound
func (s *Service) GetCurrent(ctx context.Context) (*models.Photo, error) {
	if s.cache != nil {
		var cached models.Photo
		if err := s.cache.Get(ctx, cache.CurrentPhotoKey(), &cached); err == nil {
			return &cached, nil
		} else if !cache.IsCacheMiss(err) {
			log.Warn().Err(err).Msg("Failed to read current photo from cache")
		}
	}

	v, err, _ := s.group.Do(currentFlightKey, func() (interface{}, error) {
		// 结果由所有等待者共享，不随首个请求取消
		loadCtx := context.WithoutCancel(ctx)
		gen := s.generation.Load()
		photo, err := s.repo.First(loadCtx)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPhotoNotFound
			}
			return nil, fmt.Errorf("failed to load current photo: %w", err)
		}

		s.cacheMu.RLock()
		if s.generation.Load() == gen {
			s.cachePhoto(loadCtx, photo)
		}
		s.cacheMu.RUnlock()
		return photo, nil
	})
	if err != nil {
		return nil, err
	}

	photo := *v.(*models.Photo)
	return &photo, nil
}

// ReplaceWith 用新内容替换当前照片
// 新文件写入存储后，在同一事务中删除全部旧记录并插入新记录；提交后删除旧文件
func (s *Service) ReplaceWith(ctx context.Context, content io.Reader, filename string) (*models.Photo, error) {
	if utf8.RuneCountInString(filename) > MaxOriginalNameSize {
		return nil, NewFieldError("original_file_name", MsgFileNameTooLong)
	}

	provider := s.storageFactory.GetDefault()
	if provider == nil {
		return nil, fmt.Errorf("no storage provider configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	storagePath, err := s.names.AvailableName(ctx, s.names.StoragePath(filename, fallbackExtension(content)), provider.Exists)
	if err != nil {
		s.recordResult("error")
		return nil, err
	}

	if err := provider.SaveWithContext(ctx, storagePath, content); err != nil {
		s.recordResult("error")
		return nil, fmt.Errorf("failed to save photo to %s: %w", provider.Name(), err)
	}

	photo := &models.Photo{
		Image:            storagePath,
		OriginalFileName: filename,
		UploadedAt:       s.now().UTC().Truncate(time.Microsecond),
	}

	previous, err := s.repo.ReplaceAll(ctx, photo)
	if err != nil {
		// 记录写入失败，移除刚写入的文件
		if delErr := provider.DeleteWithContext(context.WithoutCancel(ctx), storagePath); delErr != nil {
			log.Error().Err(delErr).Str("path", storagePath).Msg("Failed to remove orphaned upload")
		}
		s.recordResult("error")
		return nil, fmt.Errorf("failed to replace photo record: %w", err)
	}
	s.cacheMu.Lock()
	s.generation.Add(1)
	s.cachePhoto(context.WithoutCancel(ctx), photo)
	s.cacheMu.Unlock()

	s.removeFiles(context.WithoutCancel(ctx), provider, previous, storagePath)
	s.recordResult("ok")

	utils.LogIfDevf("Photo replaced: %s (%s)", storagePath, utils.SanitizeLogFilename(filename))
	return photo, nil
}

// removeFiles 删除旧记录对应的文件，失败只记录日志
func (s *Service) removeFiles(ctx context.Context, provider storage.Provider, previous []models.Photo, keep string) {
	for _, old := range previous {
		if old.Image == "" || old.Image == keep {
			continue
		}
		if err := provider.DeleteWithContext(ctx, old.Image); err != nil && !storage.IsNotFound(err) {
			log.Warn().Err(err).Str("path", old.Image).Msg("Failed to delete previous photo file")
		}
	}
}

// cachePhoto 写入当前照片缓存，失败只记录日志
func (s *Service) cachePhoto(ctx context.Context, photo *models.Photo) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cache.CurrentPhotoKey(), photo, s.cacheTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to cache current photo")
	}
}

func (s *Service) recordResult(result string) {
	metrics.PhotoReplacements.WithLabelValues(result).Inc()
}

// ReferencedPaths 返回当前记录引用的存储路径
func (s *Service) ReferencedPaths(ctx context.Context) (map[string]struct{}, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}

	paths := make(map[string]struct{}, len(list))
	for _, p := range list {
		paths[p.Image] = struct{}{}
	}
	return paths, nil
}

// Orphans 列出上传目录中未被任何记录引用的文件
func (s *Service) Orphans(ctx context.Context) ([]string, error) {
	provider := s.storageFactory.GetDefault()
	if provider == nil {
		return nil, fmt.Errorf("no storage provider configured")
	}

	referenced, err := s.ReferencedPaths(ctx)
	if err != nil {
		return nil, err
	}

	files, err := provider.List(ctx, s.names.UploadDir())
	if err != nil {
		return nil, fmt.Errorf("failed to list upload directory: %w", err)
	}

	var orphans []string
	for _, f := range files {
		if _, ok := referenced[f]; !ok {
			orphans = append(orphans, f)
		}
	}
	return orphans, nil
}

// RemoveOrphans 删除未被引用的文件，返回已删除的路径
func (s *Service) RemoveOrphans(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orphans, err := s.Orphans(ctx)
	if err != nil {
		return nil, err
	}

	provider := s.storageFactory.GetDefault()
	removed := make([]string, 0, len(orphans))
	for _, p := range orphans {
		if err := provider.DeleteWithContext(ctx, p); err != nil && !storage.IsNotFound(err) {
			return removed, fmt.Errorf("failed to delete orphan %s: %w", p, err)
		}
		removed = append(removed, p)
	}
	return removed, nil
}

// fallbackExtension 文件名无法使用时，根据内容嗅探扩展名
func fallbackExtension(content io.Reader) string {
	rs, ok := content.(io.ReadSeeker)
	if !ok {
		return ""
	}
	mimeType, err := utils.SniffContentType(rs)
	if err != nil {
		return ""
	}
	return utils.GetSafeExtension(mimeType)
}
