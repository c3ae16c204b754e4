package store

import (
	"context"
	"errors"
	"time"

	"shortlink-service/internal/model"

	"gorm.io/gorm"
)

// FindActiveBySlug 查找启用状态的链接；不存在与已停用都返回 ErrNotFound
func (s *Store) FindActiveBySlug(ctx context.Context, slug string) (*Snapshot, error) {
	if snap := s.cachedSnapshot(ctx, slug); snap != nil {
		return snap, nil
	}
	// 代数必须在读库之前取得
	gen, cacheable := s.generation(ctx, slug)

	var link model.Link
	err := s.db.WithContext(ctx).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&link).Error
	if err != nil {
		return nil, classify(err)
	}

	snap := snapshotOf(&link)
	if cacheable {
		s.cacheSnapshot(ctx, snap, gen)
	}
	return snap, nil
}

// FindBySlug 按短码读取完整记录，不区分启用状态
func (s *Store) FindBySlug(ctx context.Context, slug string) (*model.Link, error) {
	var link model.Link
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&link).Error; err != nil {
		return nil, classify(err)
	}
	return &link, nil
}

// FindOwnedBySlug 读取属于 ownerID 的链接，不属于时同样返回 ErrNotFound
func (s *Store) FindOwnedBySlug(ctx context.Context, ownerID, slug string) (*model.Link, error) {
	var link model.Link
	err := s.db.WithContext(ctx).
		Where("slug = ? AND owner_id = ?", slug, ownerID).
		First(&link).Error
	if err != nil {
		return nil, classify(err)
	}
	return &link, nil
}

// LinkIDBySlug 短码到链接 ID 的映射
func (s *Store) LinkIDBySlug(ctx context.Context, slug string) (string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&model.Link{}).
		Where("slug = ?", slug).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return "", classify(err)
	}
	if len(ids) == 0 {
		return "", ErrNotFound
	}
	return ids[0], nil
}

// SlugExists 检查短码是否已被占用
func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Link{}).Where("slug = ?", slug).Count(&count).Error
	if err != nil {
		return false, classify(err)
	}
	return count > 0, nil
}

// CreateLink 写入新链接，短码冲突返回 ErrSlugTaken
func (s *Store) CreateLink(ctx context.Context, link *model.Link) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		return classify(err)
	}
	return nil
}

// LinkUpdate 所有者可修改的字段，nil 表示不修改
type LinkUpdate struct {
	OriginalURL *string
	Tags        []string
	IsActive    *bool
	// Password 为空字符串时取消密码
	Password *string
	// ExpiresAt 为零值时取消过期时间
	ExpiresAt *time.Time
}

// UpdateLink 修改所有者的链接并清除解析缓存
func (s *Store) UpdateLink(ctx context.Context, ownerID, slug string, upd LinkUpdate) (*model.Link, error) {
	link, err := s.FindOwnedBySlug(ctx, ownerID, slug)
	if err != nil {
		return nil, err
	}

	var patch model.Link
	var columns []string
	if upd.OriginalURL != nil {
		patch.OriginalURL = *upd.OriginalURL
		columns = append(columns, "original_url")
	}
	if upd.Tags != nil {
		patch.Tags = upd.Tags
		columns = append(columns, "tags")
	}
	if upd.IsActive != nil {
		patch.IsActive = *upd.IsActive
		columns = append(columns, "is_active")
	}
	if upd.Password != nil {
		if err := patch.SetPassword(*upd.Password); err != nil {
			return nil, err
		}
		columns = append(columns, "password_hash")
	}
	if upd.ExpiresAt != nil {
		if !upd.ExpiresAt.IsZero() {
			expiresAt := upd.ExpiresAt.UTC()
			patch.ExpiresAt = &expiresAt
		}
		columns = append(columns, "expires_at")
	}

	if len(columns) > 0 {
		// Select 保证 false、nil 等零值也会被写入
		if err := s.db.WithContext(ctx).Model(link).Select(columns).Updates(&patch).Error; err != nil {
			return nil, classify(err)
		}
		s.invalidate(ctx, slug)
	}

	return s.FindOwnedBySlug(ctx, ownerID, slug)
}

// DeleteLink 删除所有者的链接，同一事务内级联删除点击事件与每日汇总
func (s *Store) DeleteLink(ctx context.Context, ownerID, slug string) error {
	link, err := s.FindOwnedBySlug(ctx, ownerID, slug)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("link_id = ?", link.ID).Delete(&model.ClickEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("link_id = ?", link.ID).Delete(&model.DailyLinkStat{}).Error; err != nil {
			return err
		}
		return tx.Delete(link).Error
	})
	if err != nil {
		return classify(err)
	}
	s.invalidate(ctx, slug)
	return nil
}

// UserIDByAPIKey 通过 API 密钥查找用户，并记录最近使用时间
func (s *Store) UserIDByAPIKey(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidAPIKey
	}
	var apiKey model.ApiKey
	if err := s.db.WithContext(ctx).Where(&model.ApiKey{Key: key}).First(&apiKey).Error; err != nil {
		err = classify(err)
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidAPIKey
		}
		return "", err
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&apiKey).Update("last_used_at", now).Error; err != nil {
		s.logger.Warnw("更新 API 密钥使用时间失败", "key_id", apiKey.ID, "error", err)
	}
	return apiKey.UserID, nil
}
