package graph

import (
	"errors"
	"fmt"
	"sync"

	"graph-store/core/queue"
	"graph-store/core/store"

	"go.uber.org/zap"
)

const defaultQueueBuffer = 64

// Option configures a Stack.
type Option func(*Stack)

// WithLogger sets the logger used by every context of the stack.
func WithLogger(l *zap.Logger) Option {
	return func(s *Stack) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithValidator sets the validator run on every save.
func WithValidator(v Validator) Option {
	return func(s *Stack) {
		s.validator = v
	}
}

// WithQueueBuffer sets the number of tasks that may wait on each context queue.
func WithQueueBuffer(n int) Option {
	return func(s *Stack) {
		if n >= 0 {
			s.buffer = n
		}
	}
}

// Stack owns the root context, the main context and the main queue.
type Stack struct {
	backend   store.Backend
	logger    *zap.Logger
	validator Validator
	buffer    int

	mainQueue *queue.Queue
	root      *Context
	main      *Context

	mu       sync.Mutex
	children []*Context
	closed   bool
}

// NewStack creates a stack over backend. The backend is not closed by Close.
func NewStack(backend store.Backend, opts ...Option) *Stack {
	s := &Stack{
		backend: backend,
		logger:  zap.NewNop(),
		buffer:  defaultQueueBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mainQueue = queue.New("main", s.buffer)

	s.root = newContext(s, nil, queue.New("root", s.buffer), true, PrivateQueue, "root")
	s.root.backend = backend

	s.main = newContext(s, s.root, s.mainQueue, false, MainQueue, "main")
	return s
}

// Root returns the context that commits to the backend.
func (s *Stack) Root() *Context { return s.root }

// Main returns the context bound to the main queue.
func (s *Stack) Main() *Context { return s.main }

// Backend returns the backing store.
func (s *Stack) Backend() store.Backend { return s.backend }

// NewContext creates a child of parent. A MainQueue context whose ancestors
// leave the main queue and later return to it is rejected with ErrQueueCycle.
func (s *Stack) NewContext(parent *Context, concurrency Concurrency, name string) (*Context, error) {
	if parent == nil {
		return nil, errors.New("parent context is required")
	}
	if parent.stack != s {
		return nil, errors.New("parent context belongs to another stack")
	}
	if parent.disposed.Load() {
		return nil, fmt.Errorf("parent %s: %w", parent.name, ErrContextDisposed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrContextDisposed
	}

	var c *Context
	if concurrency == MainQueue {
		if reentersMainQueue(parent, s.mainQueue) {
			return nil, ErrQueueCycle
		}
		c = newContext(s, parent, s.mainQueue, false, MainQueue, name)
	} else {
		c = newContext(s, parent, queue.New(name, s.buffer), true, PrivateQueue, name)
	}

	s.children = append(s.children, c)
	s.logger.Debug("Context created",
		zap.String("context", name),
		zap.String("parent", parent.name),
		zap.Stringer("concurrency", concurrency))
	return c, nil
}

// NewBackgroundContext creates a private-queue child of the main context.
func (s *Stack) NewBackgroundContext() (*Context, error) {
	return s.NewContext(s.main, PrivateQueue, "background")
}

// Close disposes every context, children first, and stops the main queue.
func (s *Stack) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	children := s.children
	s.children = nil
	s.mu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}
	s.main.Dispose()
	s.root.Dispose()
	s.mainQueue.Close()
}

func (s *Stack) forget(c *Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, child := range s.children {
		if child == c {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// reentersMainQueue reports whether the ancestor chain starting at parent
// leaves the main queue and comes back to it.
func reentersMainQueue(parent *Context, main *queue.Queue) bool {
	left := false
	for p := parent; p != nil; p = p.parent {
		if p.queue != main {
			left = true
			continue
		}
		if left {
			return true
		}
	}
	return false
}
