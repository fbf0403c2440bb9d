// Package terminal parses terminal command flags and composes the
// websocket service entrypoint.
package terminal

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/sablegrid/syndnet/internal/platform/config"
	"github.com/sablegrid/syndnet/internal/terminal/app"
	"github.com/sablegrid/syndnet/internal/terminal/cache"
	"github.com/sablegrid/syndnet/internal/terminal/eventlog"
	"github.com/sablegrid/syndnet/internal/terminal/keyring"
	"github.com/sablegrid/syndnet/internal/terminal/session"
	"github.com/sablegrid/syndnet/internal/terminal/storage"
	"github.com/sablegrid/syndnet/internal/terminal/storage/memory"
	sqlitestore "github.com/sablegrid/syndnet/internal/terminal/storage/sqlite"
	"github.com/sablegrid/syndnet/internal/terminal/token"
)

// Config holds terminal command configuration.
type Config struct {
	HTTPAddr       string        `env:"SYNDNET_HTTP_ADDR"        envDefault:":8080"`
	StorePath      string        `env:"SYNDNET_STORE_PATH"       envDefault:"syndnet.db"`
	AccessKeysJSON string        `env:"SYNDNET_ACCESS_KEYS_JSON"`
	SessionSecret  string        `env:"SYNDNET_SESSION_SECRET"`
	ResumeTTL      time.Duration `env:"SYNDNET_RESUME_TTL"       envDefault:"168h"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "terminal HTTP listen address")
	fs.StringVar(&cfg.StorePath, "store-path", cfg.StorePath, "sqlite record store path (empty for in-memory)")
	fs.StringVar(&cfg.SessionSecret, "session-secret", cfg.SessionSecret, "resume token signing secret (empty disables resume)")
	fs.DurationVar(&cfg.ResumeTTL, "resume-ttl", cfg.ResumeTTL, "resume token lifetime")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run composes the terminal service and serves it until the context ends.
func Run(ctx context.Context, cfg Config) error {
	keys, err := keyring.Load(cfg.AccessKeysJSON)
	if err != nil {
		return fmt.Errorf("load access keys: %w", err)
	}

	var store storage.RecordStore
	if cfg.StorePath == "" {
		log.Print("no store path configured, records are in-memory only")
		store = memory.New()
	} else {
		sqlStore, err := sqlitestore.Open(cfg.StorePath)
		if err != nil {
			return fmt.Errorf("open record store: %w", err)
		}
		defer func() {
			if err := sqlStore.Close(); err != nil {
				log.Printf("close record store: %v", err)
			}
		}()
		store = sqlStore
	}

	var tokens *token.Issuer
	if cfg.SessionSecret != "" {
		tokens, err = token.NewIssuer(cfg.SessionSecret, cfg.ResumeTTL)
		if err != nil {
			return fmt.Errorf("init resume tokens: %w", err)
		}
	} else {
		log.Print("no session secret configured, session resume is disabled")
	}

	recordCache := cache.New(store)
	if err := recordCache.Refresh(ctx); err != nil {
		log.Printf("initial record load failed, starting empty: %v", err)
	}

	return app.Run(ctx, app.Config{HTTPAddr: cfg.HTTPAddr}, app.Deps{
		Store:    store,
		Cache:    recordCache,
		Sessions: session.NewStore(),
		Keys:     keys,
		Events:   eventlog.NewStoreSink(store),
		Tokens:   tokens,
	})
}
