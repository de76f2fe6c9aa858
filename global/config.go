package global

import (
	"context"
	"os"
	"time"

	"AProject/data/database/mgo/mongoutil"
	"AProject/data/database/pg"
	redisc "AProject/service/storage/redis"
	"AProject/tools/errs"
	"AProject/tools/ids"

	"gopkg.in/yaml.v3"
)

// AppConfig is the single YAML file read at boot.
type AppConfig struct {
	Server struct {
		Addr    string `yaml:"addr"`     // e.g. :8080
		WSPath  string `yaml:"ws_path"`  // default /ws
		GinMode string `yaml:"gin_mode"` // debug/release
	} `yaml:"server"`

	Gateway struct {
		NodeID        int64 `yaml:"node_id"`
		SendQueueSize int   `yaml:"send_queue_size"`
		FanoutWorkers int   `yaml:"fanout_workers"`
		RecentWindow  int64 `yaml:"recent_window"`
	} `yaml:"gateway"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Mongo struct {
		Uri         string `yaml:"uri"`
		Database    string `yaml:"database"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		MaxPoolSize int    `yaml:"max_pool_size"`
	} `yaml:"mongo"`

	Postgres struct {
		URL      string `yaml:"url"`
		MaxConns int32  `yaml:"max_conns"`
	} `yaml:"postgres"`

	Nats struct {
		Enable bool   `yaml:"enable"`
		URL    string `yaml:"url"`
	} `yaml:"nats"`

	JWTSecret string `yaml:"jwt_secret"`
}

// Load reads and decodes the config file.
func Load(path string) (*AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrapf(err, "read config %s", path)
	}
	cfg := &AppConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errs.Wrap(err, "decode config yaml")
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *AppConfig) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = "/ws"
	}
	if c.Gateway.NodeID <= 0 {
		c.Gateway.NodeID = 1
	}
}

// GetJwtSecret returns the internal-API signing secret.
func (c *AppConfig) GetJwtSecret() []byte {
	return []byte(c.JWTSecret)
}

// ConfigAll initializes the shared infrastructure in dependency order and
// hands back the mongo handle (everything else is reachable via its own
// package singleton).
func ConfigAll(ctx context.Context, cfg *AppConfig) (*mongoutil.Client, error) {
	ids.SetNodeID(cfg.Gateway.NodeID)

	if err := redisc.InitRedis(redisc.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}); err != nil {
		return nil, errs.Wrap(err, "init redis")
	}

	if err := pg.InitPool(ctx, pg.Config{
		URL:         cfg.Postgres.URL,
		MaxConns:    cfg.Postgres.MaxConns,
		PingTimeout: 3 * time.Second,
	}); err != nil {
		return nil, errs.Wrap(err, "init postgres")
	}

	mgo, err := mongoutil.NewMongoDB(ctx, &mongoutil.Config{
		Uri:         cfg.Mongo.Uri,
		Database:    cfg.Mongo.Database,
		Username:    cfg.Mongo.Username,
		Password:    cfg.Mongo.Password,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		return nil, errs.Wrap(err, "init mongo")
	}
	return mgo, nil
}
