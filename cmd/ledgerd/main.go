package main

import (
	"context"
	"flag"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/precolabs/preco-ledger/schema"
	"github.com/precolabs/preco-ledger/src/common"
	"github.com/precolabs/preco-ledger/src/engine"
	"github.com/precolabs/preco-ledger/src/postgres"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v2"
)

type config struct {
	PostgresConfig  string `yaml:"postgres"`
	RedisAddress    string `yaml:"redis_address"`
	PromPort        string `yaml:"prom_port"`
	HealthCheckPort string `yaml:"health_check_port"`
	LogLevel        string `yaml:"log_level"`
}

func main() {
	pwd, _ := os.Getwd()
	fullPath := path.Join(pwd, "config.yaml")
	log.Printf("loading config @ `%s`", fullPath)
	rawCfg, err := ioutil.ReadFile(fullPath)
	if err != nil {
		log.Printf("config file not found: %s", err)
		os.Exit(1)
	}
	cfg := config{}
	if err := yaml.Unmarshal(rawCfg, &cfg); err != nil {
		log.Printf("failed parsing config file: %s", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.PostgresConfig, "pg", cfg.PostgresConfig, `config string for the postgres connection`)
	flag.StringVar(&cfg.RedisAddress, "redis", cfg.RedisAddress, `address of redis, default "localhost:6379"`)
	flag.StringVar(&cfg.PromPort, "prom", cfg.PromPort, "address to serve prom stats, default `:2112`")
	flag.StringVar(&cfg.HealthCheckPort, "hcp", cfg.HealthCheckPort, `(rarely used) if defined will expose a health check on /readyz, default ""`)
	flag.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, `log level, default "info"`)
	flag.Parse()

	log.Println("----------------------------------")
	log.Printf("initializing ledgerd")
	log.Printf("\tpostgres:      %s", cfg.PostgresConfig)
	log.Printf("\tredis:         %s", cfg.RedisAddress)
	log.Printf("\tprom:          %s", cfg.PromPort)
	log.Printf("\thealth check:  %s", cfg.HealthCheckPort)
	log.Println("----------------------------------")

	postgres.ConfigurePostgres(cfg.PostgresConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := postgres.Migrate(ctx, schema.Files); err != nil {
		log.Printf("failed applying migrations: %s", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("failed to connect to redis at %s: %s", cfg.RedisAddress, err)
		os.Exit(1)
	}
	defer rdb.Close()

	logger := common.ConfigureZap(common.ZapLevelFromString(cfg.LogLevel))
	core := engine.New(logger, rdb)
	go core.StartAuditor(ctx, 5*time.Minute)

	if cfg.HealthCheckPort != "" {
		go beginReadyzHandler(cfg)
	}
	http.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics on " + cfg.PromPort)
	if err := http.ListenAndServe(cfg.PromPort, nil); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func beginReadyzHandler(cfg config) {
	http.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		pg, err := postgres.GetConnection(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(errors.Wrap(err, "failed pinging postgres").Error()))
			return
		}
		defer pg.Close(r.Context())
		if err := pg.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(errors.Wrap(err, "failed pinging postgres").Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	go http.ListenAndServe(cfg.HealthCheckPort, nil)
}
