package process

import "sync"

// Parallel runs its children concurrently. If any child fails, the
// remaining children are cancelled (cooperatively — they unwind at
// their own suspension points) and every child that did succeed is
// rolled back once all children have finished.
type Parallel struct {
	lifecycle
	name     string
	children []Component

	once sync.Once
	done chan struct{}
}

// NewParallel returns a Parallel composite over children.
func NewParallel(name string, children ...Component) *Parallel {
	return &Parallel{
		name:     name,
		children: children,
		done:     make(chan struct{}),
	}
}

func (p *Parallel) Name() string {
	return p.name
}

func (p *Parallel) Start() error {
	if err := p.transition(Running); err != nil {
		return err
	}
	go p.run()
	return nil
}

type childResult struct {
	index int
	err   error
}

func (p *Parallel) run() {
	defer close(p.done)

	results := make(chan childResult, len(p.children))
	var wg sync.WaitGroup
	for i, child := range p.children {
		wg.Add(1)
		go func(i int, c Component) {
			defer wg.Done()
			results <- childResult{i, c.ExecuteBlocking()}
		}(i, child)
	}

	var firstErr error
	succeeded := make(map[int]bool, len(p.children))
	cancelled := false
	for range p.children {
		r := <-results
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			if !cancelled {
				cancelled = true
				for j, c := range p.children {
					if j != r.index {
						c.Cancel()
					}
				}
			}
		} else {
			succeeded[r.index] = true
		}
	}
	wg.Wait()

	if firstErr == nil {
		p.finish(Succeeded, nil)
		return
	}

	p.mu.Lock()
	p.state = Rollbacking
	p.mu.Unlock()

	for i := len(p.children) - 1; i >= 0; i-- {
		if succeeded[i] {
			p.children[i].Rollback(firstErr)
		}
	}

	p.finish(RolledBack, firstErr)
}

// ExecuteBlocking starts the composite if Ready, then waits for its
// terminal state.
func (p *Parallel) ExecuteBlocking() error {
	if p.State() == Ready {
		if err := p.Start(); err != nil {
			return err
		}
	}
	<-p.done
	state := p.State()
	if state == Failed || state == RolledBack {
		return p.failureReason()
	}
	return nil
}

func (p *Parallel) failureReason() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reason
}

// Rollback rolls back every child. It is idempotent.
func (p *Parallel) Rollback(reason error) error {
	var rollbackErr error
	p.once.Do(func() {
		p.mu.Lock()
		p.state = Rollbacking
		p.mu.Unlock()

		var wg sync.WaitGroup
		errs := make([]error, len(p.children))
		for i, c := range p.children {
			wg.Add(1)
			go func(i int, c Component) {
				defer wg.Done()
				errs[i] = c.Rollback(reason)
			}(i, c)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil && rollbackErr == nil {
				rollbackErr = err
			}
		}

		p.mu.Lock()
		p.state = RolledBack
		p.mu.Unlock()
	})
	return rollbackErr
}
