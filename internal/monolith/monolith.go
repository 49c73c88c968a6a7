// Package monolith wires the pricer's bounded contexts into one process.
package monolith

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/internal/config"
	"github.com/fd1az/xchain-pricer/internal/di"
	"github.com/fd1az/xchain-pricer/internal/logger"
)

// Tokens for the services every module can resolve.
var (
	ConfigToken = di.NewToken[*config.Config]("monolith:config")
	LoggerToken = di.NewToken[logger.LoggerInterface]("monolith:logger")
	MapperToken = di.NewToken[*asset.Mapper]("monolith:assetMapper")
)

// Monolith is what a module sees of the running application.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	AssetMapper() *asset.Mapper
	Services() di.ServiceRegistry
	// OnClose registers a resource released by Close, in reverse order.
	OnClose(io.Closer)
}

// Module is a bounded context. RegisterServices only declares factories;
// Startup resolves them and starts background work.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// App is the Monolith implementation used by main.
type App struct {
	cfg       *config.Config
	log       logger.LoggerInterface
	mapper    *asset.Mapper
	container di.Container
	closers   []io.Closer
}

// New builds the asset mapper from cfg and registers the shared services.
func New(cfg *config.Config, log logger.LoggerInterface) (*App, error) {
	overrides, err := cfg.AssetOverrides()
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		log:       log,
		mapper:    asset.NewMapper(cfg.Pricer.AddressZeroHex(), overrides),
		container: di.NewContainer(),
	}
	di.ProvideToken(a.container, ConfigToken, cfg)
	di.ProvideToken(a.container, LoggerToken, log)
	di.ProvideToken(a.container, MapperToken, a.mapper)
	return a, nil
}

func (a *App) Config() *config.Config         { return a.cfg }
func (a *App) Logger() logger.LoggerInterface { return a.log }
func (a *App) AssetMapper() *asset.Mapper     { return a.mapper }
func (a *App) Services() di.ServiceRegistry   { return a.container }

func (a *App) OnClose(c io.Closer) {
	a.closers = append(a.closers, c)
}

// RegisterModules calls RegisterServices on each module in order.
func (a *App) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return fmt.Errorf("register %T: %w", m, err)
		}
	}
	return nil
}

// StartModules starts modules in order and stops at the first failure.
// Resources registered before the failure are still released by Close.
func (a *App) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return fmt.Errorf("start %T: %w", m, err)
		}
	}
	return nil
}

// Close releases registered resources, last registered first, and joins
// their errors. It is safe to call more than once.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
