package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// MatchModulePrefix 匹配模块
	MatchModulePrefix = "match"
	// JobModulePrefix 岗位模块
	JobModulePrefix = "job"

	// EntityLock 分布式锁实体
	EntityLock = "lock"
	// EntityRequirements 归一化要求实体
	EntityRequirements = "requirements"

	// KeyMatchLock 岗位匹配运行的分布式锁 (STRING)
	// 格式: app:match:lock:{jobID}
	KeyMatchLock = AppPrefix + ":" + MatchModulePrefix + ":" + EntityLock + ":%s"

	// KeyJobRequirements 岗位归一化要求缓存 (STRING, JSON数组)
	// 格式: app:job:requirements:{jobID}
	KeyJobRequirements = AppPrefix + ":" + JobModulePrefix + ":" + EntityRequirements + ":%s"
)
