package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	evbus "github.com/vardius/message-bus"

	"github.com/h44z/vote-portal/internal"
	"github.com/h44z/vote-portal/internal/adapters"
	"github.com/h44z/vote-portal/internal/app"
	"github.com/h44z/vote-portal/internal/app/audit"
	"github.com/h44z/vote-portal/internal/app/monitor"
	"github.com/h44z/vote-portal/internal/app/session"
	"github.com/h44z/vote-portal/internal/config"
	"github.com/h44z/vote-portal/internal/lowlevel"
	"github.com/h44z/vote-portal/internal/ports/console"
)

const (
	configFlag   = "config"
	logLevelFlag = "log-level"
	passwordFlag = "password"
	yesFlag      = "yes"
)

// auditFlushDelay gives the asynchronous bus handlers time to persist the last events before the process exits.
const auditFlushDelay = 200 * time.Millisecond

var topics = []string{
	app.TopicSessionLogin,
	app.TopicSessionLogout,
	app.TopicAuthFailed,
	app.TopicUserRegistered,
	app.TopicBackendStatus,
	app.TopicVoteCast,
	app.TopicCandidateChanged,
}

var portal *client

var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    configFlag,
		Aliases: []string{"c"},
		Usage:   "Path to the YAML configuration file.",
		EnvVars: []string{"VOTE_PORTAL_CONFIG"},
	},
	&cli.StringFlag{
		Name:  logLevelFlag,
		Usage: "Overrides the configured log level (trace, debug, info, warn, error).",
	},
}

// client holds the wired components shared by all commands.
type client struct {
	cfg      *config.Config
	bus      evbus.MessageBus
	gateway  *adapters.VotingGateway
	sessions *session.Manager
	monitor  *monitor.Monitor
	metrics  *adapters.MetricsServer
	audit    *audit.Manager
	renderer *console.Renderer
	closers  []io.Closer
}

func setup(c *cli.Context) error {
	var cfg *config.Config
	var err error
	if c.IsSet(configFlag) {
		cfg, err = config.GetConfigFromFile(c.String(configFlag))
	} else {
		cfg, err = config.GetConfig()
	}
	if err != nil {
		return errors.WithMessage(err, "failed to load configuration")
	}
	if c.IsSet(logLevelFlag) {
		cfg.Advanced.LogLevel = c.String(logLevelFlag)
	}

	internal.SetupLogging(cfg.Advanced.LogLevel, cfg.Advanced.LogPretty, cfg.Advanced.LogJson)

	p := &client{
		cfg:      cfg,
		bus:      evbus.New(100),
		renderer: console.NewRenderer(os.Stdout),
	}

	var store session.KeyValueStore
	switch cfg.Session.Storage {
	case config.SessionStorageFile:
		fileStore, err := adapters.NewFileSystemRepository(cfg.Session.Path)
		if err != nil {
			return errors.WithMessage(err, "failed to initialize session storage")
		}
		store = fileStore
	default:
		boltStore, err := adapters.NewBoltStorage(cfg.Session.Path)
		if err != nil {
			return errors.WithMessage(err, "failed to initialize session storage")
		}
		p.closers = append(p.closers, boltStore)
		store = boltStore
	}

	var observer lowlevel.RequestObserver
	if cfg.Metrics.ListeningAddress != "" {
		p.metrics = adapters.NewMetricsServer(cfg)
		if err := p.metrics.ConnectToMessageBus(p.bus); err != nil {
			return errors.WithMessage(err, "failed to connect metrics to message bus")
		}
		observer = p.metrics
	}

	p.gateway, err = adapters.NewVotingGateway(cfg, observer)
	if err != nil {
		return errors.WithMessage(err, "failed to initialize backend gateway")
	}

	if cfg.Audit.Enabled {
		rawDb, err := adapters.NewDatabase(cfg.Audit)
		if err != nil {
			return errors.WithMessage(err, "failed to initialize audit database")
		}
		repo, err := adapters.NewSqlRepository(rawDb)
		if err != nil {
			return errors.WithMessage(err, "failed to initialize audit repository")
		}
		p.closers = append(p.closers, repo)

		if _, err := audit.NewAuditRecorder(cfg, p.bus, repo); err != nil {
			return errors.WithMessage(err, "failed to set up audit recorder")
		}
		p.audit = audit.NewManager(repo)
	}

	p.sessions = session.NewManager(cfg, store, p.bus)
	p.sessions.Restore(c.Context)

	p.monitor = monitor.NewMonitor(cfg, p.gateway, p.bus)

	portal = p
	return nil
}

func teardown(_ *cli.Context) error {
	if portal == nil {
		return nil
	}

	portal.monitor.Stop()

	for _, topic := range topics {
		portal.bus.Close(topic)
	}
	if portal.audit != nil {
		time.Sleep(auditFlushDelay)
	}

	for _, c := range portal.closers {
		internal.LogClose(c)
	}

	slog.Debug("vote portal client stopped")
	return nil
}

func main() {
	ctx := internal.SignalAwareContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	cliApp := cli.NewApp()
	cliApp.Name = "vote-portal"
	cliApp.Version = "0.0.1"
	cliApp.Usage = "Terminal client for the voting platform"
	cliApp.EnableBashCompletion = true
	cliApp.Commands = commands
	cliApp.Flags = globalFlags
	cliApp.Before = setup
	cliApp.After = teardown
	cliApp.Action = runShell

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
