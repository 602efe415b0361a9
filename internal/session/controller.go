// Package session coordinates the login lifecycle and every task read or
// write against the sync client.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pkt.systems/pslog"

	"privatetasks/internal/masq"
	"privatetasks/internal/models"
)

var (
	// ErrNotLoggedIn is returned by operations that need a paired session.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrNotAwaitingPairing is returned by Connect outside the pairing phase
	// or when no link is available.
	ErrNotAwaitingPairing = errors.New("not awaiting pairing")
	// ErrPairingInProgress is returned by Connect while another Connect waits.
	ErrPairingInProgress = errors.New("pairing already in progress")
	// ErrUnknownTask is returned when a label is not in the task mapping.
	ErrUnknownTask = errors.New("unknown task")
)

// DefaultWriteTimeout bounds background writes when Options leaves it unset.
const DefaultWriteTimeout = 30 * time.Second

// Options configures a Controller.
type Options struct {
	// WriteTimeout bounds each background toggle or delete write.
	WriteTimeout time.Duration
}

// State is an immutable snapshot of the session. Callers may read it freely;
// Tasks is a private copy.
type State struct {
	Phase      models.Phase
	Tasks      models.TaskMap
	Input      string
	Err        string
	Connecting bool
}

// LoggedIn reports whether the snapshot is in the logged in phase.
func (s State) LoggedIn() bool {
	return models.IsLoggedIn(s.Phase)
}

// Link returns the pairing link, or "" outside the pairing phase.
func (s State) Link() string {
	link, _ := models.PairingLink(s.Phase)
	return link
}

// Username returns the paired user's name, or "" when not logged in.
func (s State) Username() string {
	if p, ok := s.Phase.(models.LoggedIn); ok {
		return p.Username
	}
	return ""
}

// Controller owns the session state and mediates all sync client calls.
// State is mutated only under mu and never while a client call is running.
type Controller struct {
	client masq.Client
	opts   Options

	mu    sync.Mutex
	state State

	writes sync.WaitGroup
}

// New creates a controller in the initializing phase.
func New(client masq.Client, opts Options) *Controller {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return &Controller{
		client: client,
		opts:   opts,
		state: State{
			Phase: models.Initializing{},
			Tasks: models.TaskMap{},
		},
	}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	st := c.state
	st.Tasks = c.state.Tasks.Clone()
	return st
}

// update applies fn to the state under the lock.
func (c *Controller) update(fn func(st *State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}

func (c *Controller) fail(msg string, err error) {
	c.update(func(st *State) {
		st.Err = fmt.Sprintf("%s: %v", msg, err)
	})
}

// Initialize resumes a previous session if the client has one, otherwise it
// requests a pairing link. A session that cannot be resumed is signed out and
// the controller falls back to pairing.
func (c *Controller) Initialize(ctx context.Context) error {
	log := pslog.Ctx(ctx)

	logged, err := c.client.IsLoggedIn(ctx)
	if err != nil {
		log.Warn("session lookup failed", "err", err)
		c.fail("Could not look up your session", err)
		logged = false
	}

	if logged {
		err := c.client.ConnectToMasq(ctx)
		if err == nil {
			c.update(func(st *State) {
				st.Phase = models.LoggedIn{Username: c.client.Username()}
			})
			log.Info("session resumed", "user", c.client.Username())
			return c.Fetch(ctx)
		}

		log.Warn("session resume failed", "err", err)
		c.fail("Could not resume your session", err)
		if err := c.client.SignOut(ctx); err != nil {
			log.Warn("sign out of stale session failed", "err", err)
		}
	}

	return c.RequestLink(ctx)
}

// RequestLink asks the client for a fresh pairing link and enters the
// pairing phase. It is a no-op while logged in.
func (c *Controller) RequestLink(ctx context.Context) error {
	if c.State().LoggedIn() {
		return nil
	}

	link, err := c.client.LoginLink(ctx)
	if err != nil {
		pslog.Ctx(ctx).Error("pairing link request failed", "err", err)
		c.update(func(st *State) {
			st.Phase = models.AwaitingPairing{}
			st.Err = fmt.Sprintf("Could not get a pairing link: %v", err)
		})
		return err
	}

	c.update(func(st *State) {
		st.Phase = models.AwaitingPairing{Link: link}
	})
	return nil
}

// Connect completes the pairing started by the current link. On success the
// task list is fetched; on failure the controller stays in the pairing phase,
// with a fresh link if the current one can no longer be answered.
func (c *Controller) Connect(ctx context.Context, stayConnected bool) error {
	log := pslog.Ctx(ctx)

	c.mu.Lock()
	if _, ok := models.PairingLink(c.state.Phase); !ok {
		c.mu.Unlock()
		return ErrNotAwaitingPairing
	}
	if c.state.Connecting {
		c.mu.Unlock()
		return ErrPairingInProgress
	}
	c.state.Connecting = true
	c.mu.Unlock()

	err := c.client.LogIntoMasq(ctx, stayConnected)
	if err != nil {
		log.Warn("the user refused", "err", err)
		c.update(func(st *State) {
			st.Connecting = false
			st.Err = fmt.Sprintf("Pairing did not complete: %v", err)
		})
		if errors.Is(err, masq.ErrUnknownChannel) {
			// The link can no longer be answered.
			_ = c.RequestLink(ctx)
		}
		return err
	}

	username := c.client.Username()
	c.update(func(st *State) {
		st.Connecting = false
		st.Phase = models.LoggedIn{Username: username}
		st.Err = ""
	})
	log.Info("connected", "user", username, "stay_connected", stayConnected)
	return c.Fetch(ctx)
}

// Fetch replaces the task mapping wholesale with the client's snapshot.
func (c *Controller) Fetch(ctx context.Context) error {
	tasks, err := c.client.List(ctx)
	if err != nil {
		pslog.Ctx(ctx).Error("task fetch failed", "err", err)
		c.fail("Could not load your tasks", err)
		return err
	}

	c.update(func(st *State) {
		// A logout may have raced the fetch.
		if !models.IsLoggedIn(st.Phase) {
			return
		}
		st.Tasks = models.TaskMap(tasks).Clone()
	})
	return nil
}

// SetInput stores the in-progress new task text.
func (c *Controller) SetInput(text string) {
	c.update(func(st *State) {
		st.Input = text
	})
}

// Add persists the input buffer as a new task, then shows it and clears the
// buffer. An empty buffer, or a label already present, is a no-op.
func (c *Controller) Add(ctx context.Context) error {
	c.mu.Lock()
	if !models.IsLoggedIn(c.state.Phase) {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	label := c.state.Input
	if label == "" || c.state.Tasks.Has(label) {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := c.client.Put(ctx, models.KeyFor(label), false); err != nil {
		pslog.Ctx(ctx).Error("task add failed", "label", label, "err", err)
		c.fail(fmt.Sprintf("Could not add %q", label), err)
		return err
	}

	c.update(func(st *State) {
		if !models.IsLoggedIn(st.Phase) {
			return
		}
		tasks := st.Tasks.Clone()
		tasks[label] = false
		st.Tasks = tasks
		if st.Input == label {
			st.Input = ""
		}
	})
	return nil
}

// Toggle flips the done flag of label immediately and persists it in the
// background.
func (c *Controller) Toggle(ctx context.Context, label string) error {
	c.mu.Lock()
	if !models.IsLoggedIn(c.state.Phase) {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	if !c.state.Tasks.Has(label) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownTask, label)
	}
	done := !c.state.Tasks[label]
	tasks := c.state.Tasks.Clone()
	tasks[label] = done
	c.state.Tasks = tasks
	c.mu.Unlock()

	c.background(ctx, "toggle", label, func(ctx context.Context) error {
		task := models.Task{Label: label, Done: done}
		return c.client.Put(ctx, task.Key(), task.Done)
	})
	return nil
}

// Delete removes label immediately and deletes it in the background.
func (c *Controller) Delete(ctx context.Context, label string) error {
	c.mu.Lock()
	if !models.IsLoggedIn(c.state.Phase) {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	if !c.state.Tasks.Has(label) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownTask, label)
	}
	tasks := c.state.Tasks.Clone()
	delete(tasks, label)
	c.state.Tasks = tasks
	c.mu.Unlock()

	c.background(ctx, "delete", label, func(ctx context.Context) error {
		return c.client.Del(ctx, models.KeyFor(label))
	})
	return nil
}

// background runs a write detached from the request. On failure the error is
// surfaced and the mapping is re-fetched so local state matches the store.
func (c *Controller) background(ctx context.Context, op, label string, write func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.WriteTimeout)
	c.writes.Add(1)
	go func() {
		defer c.writes.Done()
		defer cancel()

		err := write(ctx)
		if err == nil {
			return
		}
		log := pslog.Ctx(ctx).With("op", op, "label", label)
		if !c.State().LoggedIn() {
			// Logout already reset the state.
			log.Debug("background write dropped after logout", "err", err)
			return
		}
		log.Error("background write failed", "err", err)
		_ = c.Fetch(ctx)
		c.update(func(st *State) {
			if models.IsLoggedIn(st.Phase) {
				st.Err = fmt.Sprintf("Could not %s %q: %v", op, label, err)
			}
		})
	}()
}

// Logout signs out, requests a fresh pairing link and clears all task state.
func (c *Controller) Logout(ctx context.Context) error {
	if !c.State().LoggedIn() {
		return ErrNotLoggedIn
	}

	if err := c.client.SignOut(ctx); err != nil {
		pslog.Ctx(ctx).Error("sign out failed", "err", err)
		c.fail("Could not sign out", err)
		return err
	}
	c.update(func(st *State) {
		st.Phase = models.AwaitingPairing{}
		st.Tasks = models.TaskMap{}
		st.Input = ""
		st.Err = ""
	})
	pslog.Ctx(ctx).Info("logged out")

	return c.RequestLink(ctx)
}

// DismissError clears the visible error.
func (c *Controller) DismissError() {
	c.update(func(st *State) {
		st.Err = ""
	})
}

// Wait blocks until every background write has finished.
func (c *Controller) Wait() {
	c.writes.Wait()
}
