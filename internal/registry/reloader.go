package registry

import (
	"context"
	"time"

	"resume-match-go/internal/logger"
)

// Locker 多实例部署时保证同一时刻只有一个实例从数据源执行定时重载
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// VersionBoard 多实例共享的注册表版本号。Locker 同时实现它时，
// 抢到锁的实例重载后递增版本号，其他实例发现版本号变化后跟随重载。
type VersionBoard interface {
	PublishRegistryVersion(ctx context.Context) (int64, error)
	RegistryVersion(ctx context.Context) (int64, error)
}

const reloadLockKey = "reload"

// StartAutoReload 按间隔定时重载，直到 ctx 取消。locker 可以为 nil。
func (r *Registry) StartAutoReload(ctx context.Context, interval time.Duration, locker Locker) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.reloadOnce(ctx, interval, locker)
			}
		}
	}()
	return done
}

func (r *Registry) reloadOnce(ctx context.Context, interval time.Duration, locker Locker) {
	if locker != nil {
		release, ok, err := locker.TryLock(ctx, reloadLockKey, interval)
		if err != nil {
			logger.Warn().Err(err).Msg("获取注册表重载锁失败")
			return
		}
		if !ok {
			r.followShared(ctx, locker)
			return
		}
		defer release()
	}
	if _, err := r.Reload(ctx); err != nil {
		logger.Error().Err(err).Msg("定时重载岗位注册表失败，继续使用旧快照")
		return
	}
	r.PublishReload(ctx, locker)
}

// PublishReload 通知其他实例注册表已更新；locker 未实现 VersionBoard 时什么也不做
func (r *Registry) PublishReload(ctx context.Context, locker Locker) {
	board, ok := locker.(VersionBoard)
	if !ok {
		return
	}
	v, err := board.PublishRegistryVersion(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("发布注册表版本号失败")
		return
	}
	r.sharedVersion.Store(v)
}

// followShared 共享版本号比本实例看到的新时重载
func (r *Registry) followShared(ctx context.Context, locker Locker) {
	board, ok := locker.(VersionBoard)
	if !ok {
		logger.Debug().Msg("其他实例正在重载注册表，跳过本次")
		return
	}
	v, err := board.RegistryVersion(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("读取注册表版本号失败")
		return
	}
	if v <= r.sharedVersion.Load() {
		return
	}
	if _, err := r.Reload(ctx); err != nil {
		logger.Error().Err(err).Int64("shared_version", v).Msg("跟随重载岗位注册表失败，继续使用旧快照")
		return
	}
	r.sharedVersion.Store(v)
}
