package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homehub/config"
	"homehub/internal/db"
	"homehub/internal/devices"
	"homehub/internal/health"
	"homehub/internal/logs"
	"homehub/internal/middleware"
	"homehub/internal/notify"
	"homehub/internal/repo"
	"homehub/internal/wifi"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

var ErrNotInitialized = errors.New("server not initialized (call Initialize(cfg) first)")

const shutdownTimeout = 5 * time.Second

// Deps — всё, из чего собирается роутер. Нужен отдельно от App, чтобы тестировать без внешних сервисов.
type Deps struct {
	Store    repo.Store
	Notifier devices.Notifier
	WiFi     wifi.Store
	Checkers []health.Checker
}

// NewRouter: middleware, health, устройства, wifi.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.LoggerMW)

	checkers := d.Checkers
	if d.Store != nil {
		checkers = append([]health.Checker{health.CheckerFunc("store", d.Store.Ping)}, checkers...)
	}
	health.RegisterRoutesWithCheckers(r, checkers...)

	devices.NewHTTP(devices.NewService(d.Store, d.Notifier)).RegisterRoutes(r)
	if d.WiFi != nil {
		wifi.NewHTTP(d.WiFi).RegisterRoutes(r)
	}
	return r
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

type App struct {
	cfg        *config.Config
	Router     *mux.Router
	httpServer *http.Server

	store   repo.Store
	closers []closer
	ctx     context.Context
	cancel  context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) error {
	a.cfg = cfg

	// 1) Логи
	if err := logs.Init(logs.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}); err != nil {
		logs.Logger.Warnf("log file %s: %v", cfg.Logging.File, err)
	}

	ctx := context.Background()

	// 2) Хранилище
	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return err
	}

	// 3) Кэш поверх хранилища (опционально)
	var checkers []health.Checker
	if cfg.Cache.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		a.addCloser("redis", func(context.Context) error { return rdb.Close() })
		checkers = append(checkers, health.CheckerFunc("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
		store = repo.NewCachedDeviceStore(store, rdb, cfg.Cache.TTL)
		logs.Component("cache").Infof("redis cache at %s, ttl %s", cfg.Cache.Addr, cfg.Cache.TTL)
	}
	a.store = store

	// 4) Уведомления
	hub := notify.NewHub(a.openSinks()...)
	logs.Component("notify").Infof("%d notification sink(s) enabled", hub.Len())

	// 5) Роутер
	a.Router = NewRouter(Deps{
		Store:    store,
		Notifier: hub,
		WiFi:     wifi.NewFileStore(cfg.WiFi.CredentialsFile),
		Checkers: checkers,
	})

	_ = a.Router.Walk(func(rt *mux.Route, r *mux.Router, ancestors []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		logs.Logger.Debugf("route: %-6v %s", methods, path)
		return nil
	})
	return nil
}

func (a *App) openStore(ctx context.Context) (repo.Store, error) {
	dbc := a.cfg.Database
	log := logs.Component("store").WithField("driver", dbc.Driver)

	var store repo.Store
	switch dbc.Driver {
	case "mongodb":
		client, err := db.OpenMongo(ctx, dbc.DSN, dbc.Timeout)
		if err != nil {
			return nil, err
		}
		a.addCloser("mongodb", client.Disconnect)
		store = repo.NewMongoDeviceStore(client.Database(dbc.Name).Collection(dbc.Collection))
	default:
		gdb, err := db.Open(dbc.Driver, dbc.DSN)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		if sqlDB, err := gdb.DB(); err == nil {
			a.addCloser(dbc.Driver, func(context.Context) error { return sqlDB.Close() })
		}
		if err := db.Migrate(gdb); err != nil {
			return nil, fmt.Errorf("db migrate: %w", err)
		}
		store = repo.NewDeviceStore(gdb)
	}

	timeout := dbc.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ictx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := store.EnsureIndexes(ictx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	log.Info("device store ready")
	return store, nil
}

// openSinks поднимает включённые в конфиге синки. Недоступный брокер не мешает старту.
func (a *App) openSinks() []notify.Sink {
	var sinks []notify.Sink

	if c := a.cfg.MQTT; c.Enabled {
		client, err := notify.ConnectMQTT(c)
		if err != nil {
			logs.Component("mqtt").Errorf("disabled: %v", err)
		} else {
			a.addCloser("mqtt", func(context.Context) error { client.Disconnect(250); return nil })
			sinks = append(sinks, notify.NewMQTTSink(client, c.TopicPrefix, byte(c.QoS)))
		}
	}

	if c := a.cfg.AMQP; c.Enabled {
		conn, ch, err := notify.DialAMQP(c.URL, c.Exchange)
		if err != nil {
			logs.Component("amqp").Errorf("disabled: %v", err)
		} else {
			a.addCloser("amqp", func(context.Context) error {
				_ = ch.Close()
				return conn.Close()
			})
			sinks = append(sinks, notify.NewAMQPSink(ch, c.Exchange))
		}
	}

	if c := a.cfg.InfluxDB; c.Enabled {
		client, sink := notify.ConnectInflux(c)
		a.addCloser("influxdb", func(context.Context) error { client.Close(); return nil })
		sinks = append(sinks, sink)
	}
	return sinks
}

func (a *App) addCloser(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Close освобождает соединения в обратном порядке открытия.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			logs.Logger.WithField("resource", c.name).Warnf("close: %v", err)
		}
	}
	a.closers = nil
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return ErrNotInitialized
	}
	defer a.Close()

	sc := a.cfg.Server
	bind := net.JoinHostPort(sc.Address, sc.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	defer a.cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case s := <-sigs:
			logs.Logger.WithField("signal", s.String()).Info("shutting down")
			a.cancel()
		case <-a.ctx.Done():
		}
	}()

	a.httpServer = &http.Server{
		Addr:         bind,
		Handler:      a.Router,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logs.Logger.WithFields(logrus.Fields{"addr": bind}).Info("HTTP listening")
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-a.ctx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.httpServer.Shutdown(ctx)
}
