package jobs

import (
	"github.com/hibiken/asynq"

	"github.com/phrazzld/taskboard-api/internal/config"
)

// NewInspector creates a queue inspection client against the shared Redis
// queue. The archive pruner uses it to list and delete archived jobs.
func NewInspector(redisCfg config.RedisConfig) *asynq.Inspector {
	return asynq.NewInspector(asynq.RedisClientOpt{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
}
