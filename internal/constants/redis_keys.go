package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "resume_match"

	// SegmentModulePrefix 分段模块
	SegmentModulePrefix = "segment"
	// AnalysisModulePrefix 分析结果模块
	AnalysisModulePrefix = "analysis"
	// RegistryModulePrefix 岗位注册表模块
	RegistryModulePrefix = "registry"

	// EntityCache 缓存实体
	EntityCache = "cache"
	// EntityLock 分布式锁实体
	EntityLock = "lock"
	// EntityVersion 版本实体
	EntityVersion = "version"
	// EntityResult 结果实体
	EntityResult = "result"

	// KeySegmentCache 分段结果缓存 (STRING, JSON)
	// 格式: resume_match:segment:cache:{sha256}:{snapshotVersion}
	KeySegmentCache = AppPrefix + ":" + SegmentModulePrefix + ":" + EntityCache + ":%s"

	// KeyAnalysisResult 最近的分析结果 (STRING, JSON)
	// 格式: resume_match:analysis:result:{analysisID}
	KeyAnalysisResult = AppPrefix + ":" + AnalysisModulePrefix + ":" + EntityResult + ":%s"

	// KeyRegistryVersion 已发布的注册表版本号 (STRING, INCR)
	KeyRegistryVersion = AppPrefix + ":" + RegistryModulePrefix + ":" + EntityVersion

	// KeyRegistryLockPrefix 注册表重载锁前缀，后接锁名 (STRING, SET NX)
	KeyRegistryLockPrefix = AppPrefix + ":" + RegistryModulePrefix + ":" + EntityLock + ":"
)
