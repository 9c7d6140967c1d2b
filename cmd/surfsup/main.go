package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	_ "modernc.org/sqlite"

	"github.com/lox/surfsup/internal/api"
	"github.com/lox/surfsup/internal/dataset"
	"github.com/lox/surfsup/internal/logger"
	"github.com/lox/surfsup/internal/query"
	"github.com/lox/surfsup/internal/store"
)

type Globals struct {
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info" env:"LOG_LEVEL"`
	LogFormat string `help:"Log format (text, json)." default:"text" enum:"text,json" env:"LOG_FORMAT"`
	DB        string `help:"Path to the SQLite dataset." default:"Resources/hawaii.sqlite" env:"SURFSUP_DB" type:"path"`
}

type CLI struct {
	Globals

	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to a .env file.'"`

	Serve ServeCmd `cmd:"" default:"1" help:"Serve the climate API (default)."`
	Load  LoadCmd  `cmd:"" help:"Build the SQLite dataset from the measurement and station CSVs."`
}

type ServeCmd struct {
	Port            string        `help:"HTTP server port." default:"8080" env:"PORT"`
	RateLimit       float64       `help:"Requests per second across all clients; 0 disables." default:"0" env:"RATE_LIMIT"`
	RateBurst       int           `help:"Rate limiter burst size." default:"20" env:"RATE_BURST"`
	BreakerFailures uint32        `help:"Consecutive data source failures before the breaker opens." default:"5" env:"BREAKER_FAILURES"`
	BreakerTimeout  time.Duration `help:"How long the breaker stays open." default:"30s" env:"BREAKER_TIMEOUT"`
	ConnectTimeout  time.Duration `help:"How long to retry opening the dataset at startup." default:"10s" env:"CONNECT_TIMEOUT"`
}

func (c *ServeCmd) Run(g *Globals, log *logrus.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(ctx, g.DB, true, c.ConnectTimeout)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Infof("opened %s read-only", g.DB)

	st := store.New(db, store.Config{
		BreakerFailures: c.BreakerFailures,
		BreakerTimeout:  c.BreakerTimeout,
	}, log)
	engine := query.New(st, log)
	server := api.NewServer(engine, st, api.Config{
		Port:      c.Port,
		RateLimit: c.RateLimit,
		RateBurst: c.RateBurst,
	}, log)

	return server.Run(ctx)
}

type LoadCmd struct {
	Measurements string `help:"Measurements CSV (path or ftp:// URL)." default:"Resources/hawaii_measurements.csv" env:"SURFSUP_MEASUREMENTS"`
	Stations     string `help:"Stations CSV (path or ftp:// URL)." default:"Resources/hawaii_stations.csv" env:"SURFSUP_STATIONS"`
}

func (c *LoadCmd) Run(g *Globals, log *logrus.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(ctx, g.DB, false, 5*time.Second)
	if err != nil {
		return err
	}
	defer db.Close()

	st := store.New(db, store.DefaultConfig, log)
	loader := dataset.NewLoader(log, query.FirstKnownDate, query.LastKnownDate)
	_, err = loader.Load(ctx, st, c.Measurements, c.Stations)
	return err
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("surfsup"),
		kong.Description("Read-only climate API over the Honolulu station dataset."),
		kong.UsageOnError(),
	)

	log := logger.New(cli.LogLevel, cli.LogFormat)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals, log))
}
