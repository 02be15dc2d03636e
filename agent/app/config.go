package app

import (
	"os"
	"strings"

	"github.com/tanpawarit/hr-leave-assistant/agent/api"
	"github.com/tanpawarit/hr-leave-assistant/agent/llm"
	"github.com/tanpawarit/hr-leave-assistant/agent/retrieval"
	"github.com/tanpawarit/hr-leave-assistant/agent/router"
	statex "github.com/tanpawarit/hr-leave-assistant/agent/state"
	"github.com/tanpawarit/hr-leave-assistant/agent/store"
	configx "github.com/tanpawarit/hr-leave-assistant/pkg/config"
	logx "github.com/tanpawarit/hr-leave-assistant/pkg/logger"
	"github.com/tanpawarit/hr-leave-assistant/pkg/telemetry"
)

const ServiceName = "hr-leave-assistant"

type Config struct {
	Log       logx.Config
	LLM       llm.Config
	Store     store.Config
	Policy    retrieval.Config
	Router    router.Config
	Telemetry telemetry.Config
	HTTP      api.ServerConfig
	// Upstash is nil when UPSTASH_REDIS_URL is unset.
	Upstash *statex.UpstashRedisConfig
}

// LoadConfig reads every section from the environment (and .env). The
// Upstash section is optional.
func LoadConfig() (*Config, error) {
	logCfg, err := configx.New[logx.Config]("LOG")
	if err != nil {
		return nil, err
	}
	llmCfg, err := configx.New[llm.Config]("LLM")
	if err != nil {
		return nil, err
	}
	storeCfg, err := configx.New[store.Config]("LEAVE_DB")
	if err != nil {
		return nil, err
	}
	policyCfg, err := configx.New[retrieval.Config]("POLICY")
	if err != nil {
		return nil, err
	}
	routerCfg, err := configx.New[router.Config]("ROUTER")
	if err != nil {
		return nil, err
	}
	telemetryCfg, err := configx.New[telemetry.Config]("TELEMETRY")
	if err != nil {
		return nil, err
	}
	httpCfg, err := configx.New[api.ServerConfig]("HTTP")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Log:       *logCfg,
		LLM:       *llmCfg,
		Store:     *storeCfg,
		Policy:    *policyCfg,
		Router:    *routerCfg,
		Telemetry: *telemetryCfg,
		HTTP:      *httpCfg,
	}

	if strings.TrimSpace(os.Getenv("UPSTASH_REDIS_URL")) != "" {
		upstash, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		if err != nil {
			return nil, err
		}
		cfg.Upstash = upstash
	}
	return cfg, nil
}
