package masq

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"privatetasks/internal/config"
	"privatetasks/internal/models"
	"privatetasks/internal/store"
)

// Options configures a LocalClient.
type Options struct {
	App            config.AppInfo
	HubURLs        []string
	MasqAppBaseURL string
	RelayServers   []config.RelayServer
	PairingTimeout time.Duration
}

// OptionsFromConfig maps the startup configuration onto client options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		App:            cfg.App,
		HubURLs:        cfg.HubURLs,
		MasqAppBaseURL: cfg.MasqAppBaseURL,
		RelayServers:   cfg.RelayServers,
		PairingTimeout: cfg.PairingTimeout,
	}
}

// LocalClient implements Client with a SQLite replica and a pairing broker.
type LocalClient struct {
	store  store.Store
	broker *Broker
	opts   Options

	mu      sync.Mutex
	active  *models.Profile
	channel string
}

var _ Client = (*LocalClient)(nil)

// NewLocalClient creates a client over s that receives pairing replies
// through b.
func NewLocalClient(s store.Store, b *Broker, opts Options) *LocalClient {
	return &LocalClient{store: s, broker: b, opts: opts}
}

// IsLoggedIn implements Client.
func (c *LocalClient) IsLoggedIn(ctx context.Context) (bool, error) {
	c.mu.Lock()
	active := c.active != nil
	c.mu.Unlock()
	if active {
		return true, nil
	}

	_, err := c.store.RememberedSession(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LoginLink implements Client. Any previously issued link stops working.
func (c *LocalClient) LoginLink(ctx context.Context) (string, error) {
	key, err := newLinkKey()
	if err != nil {
		return "", err
	}
	channel := uuid.NewString()

	link, err := EncodeLink(c.opts.MasqAppBaseURL, Invite{
		Name:        c.opts.App.Name,
		Description: c.opts.App.Description,
		ImageURL:    c.opts.App.ImageURL,
		Channel:     channel,
		Key:         base64.RawURLEncoding.EncodeToString(key),
		HubURLs:     c.opts.HubURLs,
		ICEServers:  c.opts.RelayServers,
	})
	if err != nil {
		return "", err
	}

	c.broker.Open(channel, key)
	c.mu.Lock()
	previous := c.channel
	c.channel = channel
	c.mu.Unlock()
	if previous != "" {
		c.broker.Close(previous)
	}

	pslog.Ctx(ctx).Debug("pairing link issued", "channel", channel)
	return link, nil
}

// ConnectToMasq implements Client.
func (c *LocalClient) ConnectToMasq(ctx context.Context) error {
	c.mu.Lock()
	active := c.active != nil
	c.mu.Unlock()
	if active {
		return nil
	}

	profile, err := c.store.RememberedSession(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no session to resume: %w", ErrNotConnected)
	}
	if err != nil {
		return fmt.Errorf("failed to resume session: %w", err)
	}

	c.mu.Lock()
	c.active = profile
	c.mu.Unlock()
	pslog.Ctx(ctx).Info("session resumed", "profile", profile.ID, "user", profile.Username)
	return nil
}

// LogIntoMasq implements Client. It waits at most the configured pairing
// timeout, less if ctx ends first.
func (c *LocalClient) LogIntoMasq(ctx context.Context, stayConnected bool) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == "" {
		return ErrNoPairingLink
	}

	if c.opts.PairingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.PairingTimeout)
		defer cancel()
	}

	reply, err := c.broker.Wait(ctx, channel)
	if err != nil {
		return err
	}
	if !reply.Accepted {
		return ErrPairingRejected
	}

	profile := &models.Profile{ID: reply.ProfileID, Username: reply.Username}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if err := c.store.UpsertProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to register profile: %w", err)
	}
	if stayConnected {
		if err := c.store.RememberSession(ctx, profile.ID); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.active = profile
	if c.channel == channel {
		c.channel = ""
	}
	c.mu.Unlock()

	pslog.Ctx(ctx).Info("device paired", "profile", profile.ID, "user", profile.Username, "stay_connected", stayConnected)
	return nil
}

// SignOut implements Client.
func (c *LocalClient) SignOut(ctx context.Context) error {
	c.mu.Lock()
	c.active = nil
	c.mu.Unlock()
	return c.store.ForgetSession(ctx)
}

// Username implements Client.
func (c *LocalClient) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ""
	}
	return c.active.Username
}

func (c *LocalClient) profileID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return "", ErrNotConnected
	}
	return c.active.ID, nil
}

// List implements Client. Records whose key is not a task key are skipped.
func (c *LocalClient) List(ctx context.Context) (map[string]bool, error) {
	id, err := c.profileID()
	if err != nil {
		return nil, err
	}
	records, err := c.store.ListRecords(ctx, id)
	if err != nil {
		return nil, err
	}

	tasks := make(map[string]bool, len(records))
	for key, value := range records {
		label, ok := models.LabelFromKey(key)
		if !ok {
			continue
		}
		tasks[label] = value
	}
	return tasks, nil
}

// Put implements Client.
func (c *LocalClient) Put(ctx context.Context, key string, value bool) error {
	id, err := c.profileID()
	if err != nil {
		return err
	}
	if err := checkKey(key); err != nil {
		return err
	}
	return c.store.PutRecord(ctx, id, key, value)
}

// Del implements Client.
func (c *LocalClient) Del(ctx context.Context, key string) error {
	id, err := c.profileID()
	if err != nil {
		return err
	}
	if err := checkKey(key); err != nil {
		return err
	}
	return c.store.DeleteRecord(ctx, id, key)
}

func checkKey(key string) error {
	if _, ok := models.LabelFromKey(key); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
