package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Report maps each dependency name to "ok" or its error text.
type Report struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

type Service struct {
	deps    map[string]Pinger
	timeout time.Duration
}

func New(timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Service{deps: map[string]Pinger{}, timeout: timeout}
}

// Register adds a dependency under name. A nil pinger is ignored.
func (s *Service) Register(name string, p Pinger) {
	if p == nil {
		return
	}
	s.deps[name] = p
}

// Check pings every registered dependency concurrently.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	names := make([]string, 0, len(s.deps))
	for name := range s.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		i, name := i, name
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.deps[name].Ping(ctx)
		}()
	}
	wg.Wait()

	rep := Report{Ready: true, Checks: make(map[string]string, len(names))}
	for i, name := range names {
		if results[i] != nil {
			rep.Ready = false
			rep.Checks[name] = results[i].Error()
			continue
		}
		rep.Checks[name] = "ok"
	}

	return rep
}
