package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type SupervisorPolicy struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	// MaxRestarts caps restarts per task; 0 means unlimited.
	MaxRestarts int
}

type SupervisorRestartPolicy string

const (
	// SupervisorRestartPermanent restarts the task whenever it returns.
	SupervisorRestartPermanent SupervisorRestartPolicy = "permanent"
	// SupervisorRestartTransient restarts only on error.
	SupervisorRestartTransient SupervisorRestartPolicy = "transient"
)

type SupervisorHooks struct {
	OnTaskRestart          func(name string, err error, restartCount int)
	OnTaskPermanentFailure func(name string, err error, restartCount int)
}

func defaultSupervisorPolicy() SupervisorPolicy {
	return SupervisorPolicy{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
	}
}

func normalizeSupervisorPolicy(policy SupervisorPolicy) SupervisorPolicy {
	def := defaultSupervisorPolicy()
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = def.InitialBackoff
	}
	if policy.MaxBackoff <= 0 {
		policy.MaxBackoff = def.MaxBackoff
	}
	if policy.MaxBackoff < policy.InitialBackoff {
		policy.MaxBackoff = policy.InitialBackoff
	}
	if policy.BackoffFactor < 1 {
		policy.BackoffFactor = def.BackoffFactor
	}
	return policy
}

// Supervisor keeps collector loops running with exponential backoff. One
// failing collector never takes down its siblings or the daemon.
type Supervisor struct {
	policy SupervisorPolicy
	hooks  SupervisorHooks

	mu    sync.Mutex
	tasks map[string]*supervisorTask
}

type supervisorTask struct {
	cancel  context.CancelFunc
	done    chan struct{}
	restart SupervisorRestartPolicy

	restartCount int
	lastErr      error
}

func NewSupervisor(policy SupervisorPolicy) *Supervisor {
	return NewSupervisorWithHooks(policy, SupervisorHooks{})
}

func NewSupervisorWithHooks(policy SupervisorPolicy, hooks SupervisorHooks) *Supervisor {
	return &Supervisor{
		policy: normalizeSupervisorPolicy(policy),
		hooks:  hooks,
		tasks:  make(map[string]*supervisorTask),
	}
}

func (s *Supervisor) Start(name string, run func(ctx context.Context) error) error {
	return s.StartWithPolicy(name, SupervisorRestartPermanent, run)
}

func (s *Supervisor) StartWithPolicy(name string, restart SupervisorRestartPolicy, run func(ctx context.Context) error) error {
	if name == "" {
		return errors.New("task name is required")
	}
	if run == nil {
		return errors.New("task runner is required")
	}
	switch restart {
	case SupervisorRestartPermanent, SupervisorRestartTransient:
	default:
		restart = SupervisorRestartPermanent
	}

	s.mu.Lock()
	if _, exists := s.tasks[name]; exists {
		s.mu.Unlock()
		return fmt.Errorf("task already running: %s", name)
	}
	ctx, cancel := context.WithCancel(context.Background())
	task := &supervisorTask{
		cancel:  cancel,
		done:    make(chan struct{}),
		restart: restart,
	}
	s.tasks[name] = task
	s.mu.Unlock()

	go s.runTask(ctx, name, task, run)
	return nil
}

func (s *Supervisor) runTask(ctx context.Context, name string, task *supervisorTask, run func(ctx context.Context) error) {
	defer func() {
		s.mu.Lock()
		if current, ok := s.tasks[name]; ok && current == task {
			delete(s.tasks, name)
		}
		s.mu.Unlock()
		close(task.done)
	}()

	backoff := s.policy.InitialBackoff
	for {
		err := run(ctx)
		if ctx.Err() != nil {
			return
		}
		if task.restart == SupervisorRestartTransient && err == nil {
			return
		}

		s.mu.Lock()
		task.lastErr = err
		task.restartCount++
		restarts := task.restartCount
		s.mu.Unlock()

		if s.policy.MaxRestarts > 0 && restarts > s.policy.MaxRestarts {
			if s.hooks.OnTaskPermanentFailure != nil {
				s.hooks.OnTaskPermanentFailure(name, err, restarts-1)
			}
			return
		}
		if s.hooks.OnTaskRestart != nil {
			s.hooks.OnTaskRestart(name, err, restarts)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		backoff = time.Duration(float64(backoff) * s.policy.BackoffFactor)
		if backoff > s.policy.MaxBackoff {
			backoff = s.policy.MaxBackoff
		}
	}
}

// Stop cancels every task and waits for them to finish.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	tasks := make([]*supervisorTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		task.cancel()
		tasks = append(tasks, task)
	}
	s.mu.Unlock()

	for _, task := range tasks {
		<-task.done
	}
}

// Running reports whether a named task is still supervised.
func (s *Supervisor) Running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[name]
	return ok
}
