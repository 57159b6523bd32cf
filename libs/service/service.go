package service

import (
	"context"
	"errors"
	"sync"

	"github.com/tendermint/lightnode/libs/log"
)

var (
	// ErrAlreadyStarted is returned when somebody tries to start an already
	// running service.
	ErrAlreadyStarted = errors.New("already started")
	// ErrAlreadyStopped is returned when somebody tries to stop an already
	// stopped service, or to start it again.
	ErrAlreadyStopped = errors.New("already stopped")
	// ErrNotStarted is returned when somebody tries to stop a not running
	// service.
	ErrNotStarted = errors.New("not started")
)

// Service defines a service that can be started and stopped once.
type Service interface {
	// Start is called to start the service, which should run until
	// the context terminates. If the service is already running, Start
	// must report an error.
	Start(context.Context) error

	// Stop stops the service.
	Stop() error

	// Return true if the service is running
	IsRunning() bool

	// String representation of the service
	String() string

	// Wait blocks until the service is stopped.
	Wait()
}

// Implementation describes the implementation that the
// BaseService implementation wraps.
type Implementation interface {
	// Called by the Services Start Method
	OnStart(context.Context) error

	// Called once, by Stop or when the start context is canceled.
	OnStop()
}

type lifecycle int

const (
	lifecycleNew lifecycle = iota
	lifecycleStarting
	lifecycleRunning
	lifecycleStopped
)

// state is shared by the copies of a BaseService.
type state struct {
	mtx  sync.Mutex
	life lifecycle
	quit chan struct{}
}

// BaseService is embedded by long-running components such as the light
// client. OnStart and OnStop of the wrapped Implementation are called at most
// once each. If OnStart returns an error the service is not marked as started
// and Start may be called again. A stopped service cannot be restarted.
//
// Typical usage:
//
//	type Node struct {
//		service.BaseService
//		// private fields
//	}
//
//	func NewNode(logger log.Logger) *Node {
//		n := &Node{}
//		n.BaseService = *service.NewBaseService(logger, "Node", n)
//		return n
//	}
type BaseService struct {
	logger log.Logger
	name   string
	state  *state

	// The "subclass" of BaseService
	impl Implementation
}

// NewBaseService creates a new BaseService.
func NewBaseService(logger log.Logger, name string, impl Implementation) *BaseService {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &BaseService{
		logger: logger,
		name:   name,
		state:  &state{quit: make(chan struct{})},
		impl:   impl,
	}
}

// Start calls OnStart and, once it succeeds, stops the service when ctx is
// done. It returns ErrAlreadyStarted while the service runs and
// ErrAlreadyStopped after it stopped.
func (bs *BaseService) Start(ctx context.Context) error {
	s := bs.state
	s.mtx.Lock()
	switch s.life {
	case lifecycleStarting, lifecycleRunning:
		s.mtx.Unlock()
		return ErrAlreadyStarted
	case lifecycleStopped:
		s.mtx.Unlock()
		bs.logger.Error("not starting service; already stopped", "service", bs.name)
		return ErrAlreadyStopped
	}
	s.life = lifecycleStarting
	s.mtx.Unlock()

	bs.logger.Info("starting service", "service", bs.name)
	if err := bs.impl.OnStart(ctx); err != nil {
		s.mtx.Lock()
		s.life = lifecycleNew
		s.mtx.Unlock()
		return err
	}

	s.mtx.Lock()
	s.life = lifecycleRunning
	s.mtx.Unlock()

	go func() {
		select {
		case <-s.quit:
		case <-ctx.Done():
			if err := bs.Stop(); err != nil && !errors.Is(err, ErrAlreadyStopped) {
				bs.logger.Error("failed to stop service", "service", bs.name, "err", err)
				return
			}
			bs.logger.Info("stopped service", "service", bs.name)
		}
	}()
	return nil
}

// Stop calls OnStop and closes the quit channel. It returns ErrNotStarted if
// the service never started and ErrAlreadyStopped on every call after the
// first.
func (bs *BaseService) Stop() error {
	s := bs.state
	s.mtx.Lock()
	switch s.life {
	case lifecycleNew, lifecycleStarting:
		s.mtx.Unlock()
		bs.logger.Error("not stopping service; not started yet", "service", bs.name)
		return ErrNotStarted
	case lifecycleStopped:
		s.mtx.Unlock()
		return ErrAlreadyStopped
	}
	s.life = lifecycleStopped
	s.mtx.Unlock()

	bs.logger.Debug("stopping service", "service", bs.name)
	bs.impl.OnStop()
	close(s.quit)
	return nil
}

// IsRunning returns true between a successful Start and Stop.
func (bs *BaseService) IsRunning() bool {
	bs.state.mtx.Lock()
	defer bs.state.mtx.Unlock()
	return bs.state.life == lifecycleRunning
}

// Wait blocks until the service is stopped.
func (bs *BaseService) Wait() { <-bs.state.quit }

// Quit returns a channel which is closed once the service is stopped.
func (bs *BaseService) Quit() <-chan struct{} { return bs.state.quit }

// String implements Service by returning a string representation of the service.
func (bs *BaseService) String() string { return bs.name }
