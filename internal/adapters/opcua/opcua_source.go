// Package opcua streams live equipment telemetry from an OPC UA server.
package opcua

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/ports"
)

// Config holds the session settings and the node-to-channel mapping.
type Config struct {
	Endpoint         string        `yaml:"endpoint"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	SecurityMode     string        `yaml:"security_mode"`
	SecurityPolicy   string        `yaml:"security_policy"`
	ApplicationName  string        `yaml:"application_name"`
	PublishInterval  time.Duration `yaml:"publish_interval"`
	SamplingInterval time.Duration `yaml:"sampling_interval"`
	Nodes            []NodeConfig  `yaml:"nodes"`
}

// NodeConfig binds one monitored node to a channel.
type NodeConfig struct {
	NodeID  string `yaml:"node_id"`
	Channel string `yaml:"channel"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "AegisMaint Agent"
	}
	if c.PublishInterval <= 0 {
		c.PublishInterval = time.Second
	}
	if c.SamplingInterval < 0 {
		c.SamplingInterval = 0
	}
}

// Validate requires exactly one node per channel.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("opcua endpoint is required")
	}
	var seen [domain.ChannelCount]bool
	for _, n := range c.Nodes {
		if n.NodeID == "" {
			return errors.New("opcua node_id is required")
		}
		ch, err := domain.ParseChannel(n.Channel)
		if err != nil {
			return fmt.Errorf("opcua node %q: %w", n.NodeID, err)
		}
		if seen[ch] {
			return fmt.Errorf("opcua channel %s mapped twice", ch)
		}
		seen[ch] = true
	}
	for _, ch := range domain.Channels() {
		if !seen[ch] {
			return fmt.Errorf("opcua channel %s has no node", ch)
		}
	}
	return nil
}

// Source emits a Reading on every publish once each channel has reported.
// Channels that did not change keep their latest value.
type Source struct {
	cfg Config
	log *slog.Logger

	mu        sync.Mutex
	client    *opcua.Client
	sub       *opcua.Subscription
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	handleMap map[uint32]domain.Channel
	latest    assembler
	started   bool
}

func NewSource(cfg Config, logger *slog.Logger) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{cfg: cfg, log: logger.With("component", "opcua")}, nil
}

func (s *Source) Start(out chan<- domain.Reading) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("opcua source already started")
	}
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	client, err := opcua.NewClient(s.cfg.Endpoint, s.clientOptions()...)
	if err != nil {
		cancel()
		return fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		cancel()
		return fmt.Errorf("opcua connect: %w", err)
	}

	notifyCh := make(chan *opcua.PublishNotificationData, len(s.cfg.Nodes)*4)
	sub, err := client.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval: s.cfg.PublishInterval,
	}, notifyCh)
	if err != nil {
		cancel()
		_ = client.Close(ctx)
		return fmt.Errorf("opcua subscribe: %w", err)
	}

	handleMap := make(map[uint32]domain.Channel, len(s.cfg.Nodes))
	reqs := make([]*ua.MonitoredItemCreateRequest, 0, len(s.cfg.Nodes))
	for i, node := range s.cfg.Nodes {
		nodeID, err := ua.ParseNodeID(node.NodeID)
		if err != nil {
			s.abort(ctx, cancel, sub, client)
			return fmt.Errorf("parse node id %q: %w", node.NodeID, err)
		}
		ch, _ := domain.ParseChannel(node.Channel)
		handle := uint32(i + 1)
		req := opcua.NewMonitoredItemCreateRequestWithDefaults(nodeID, ua.AttributeIDValue, handle)
		if s.cfg.SamplingInterval > 0 {
			req.RequestedParameters.SamplingInterval = float64(s.cfg.SamplingInterval / time.Millisecond)
		}
		reqs = append(reqs, req)
		handleMap[handle] = ch
	}

	res, err := sub.Monitor(ctx, ua.TimestampsToReturnBoth, reqs...)
	if err != nil {
		s.abort(ctx, cancel, sub, client)
		return fmt.Errorf("opcua monitor: %w", err)
	}
	if len(res.Results) != len(reqs) {
		s.abort(ctx, cancel, sub, client)
		return fmt.Errorf("opcua monitor: %d results for %d nodes", len(res.Results), len(reqs))
	}
	for i, r := range res.Results {
		if r.StatusCode != ua.StatusOK {
			s.abort(ctx, cancel, sub, client)
			return fmt.Errorf("monitor node %q failed: %s", s.cfg.Nodes[i].NodeID, r.StatusCode)
		}
	}

	s.mu.Lock()
	s.client = client
	s.sub = sub
	s.cancel = cancel
	s.handleMap = handleMap
	s.latest = assembler{}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.consume(ctx, notifyCh, out)
	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel, sub, client := s.cancel, s.sub, s.client
	s.started = false
	s.cancel, s.sub, s.client = nil, nil, nil
	s.mu.Unlock()

	cancel()

	ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ctxCancel()

	var err error
	if e := sub.Cancel(ctx); e != nil && !errors.Is(e, context.Canceled) {
		err = errors.Join(err, e)
	}
	if e := client.Close(ctx); e != nil && !errors.Is(e, context.Canceled) {
		err = errors.Join(err, e)
	}

	s.wg.Wait()
	return err
}

func (s *Source) consume(ctx context.Context, ch <-chan *opcua.PublishNotificationData, out chan<- domain.Reading) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case notif := <-ch:
			if notif == nil {
				continue
			}
			if notif.Error != nil {
				s.log.Error("notification error", "error", notif.Error)
				continue
			}
			r, ok := s.apply(notif.Value)
			if !ok {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- r:
			}
		}
	}
}

// apply folds one data change notification into the latest values.
func (s *Source) apply(val any) (domain.Reading, bool) {
	data, ok := val.(*ua.DataChangeNotification)
	if !ok {
		return domain.Reading{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, item := range data.MonitoredItems {
		ch, ok := s.handleMap[item.ClientHandle]
		if !ok || item.Value == nil {
			continue
		}
		fv, ok := variantToFloat(item.Value.Value)
		if !ok {
			s.log.Warn("unsupported value type", "channel", ch.String(), "type", fmt.Sprintf("%T", item.Value.Value))
			continue
		}
		ts := item.Value.ServerTimestamp
		if ts.IsZero() {
			ts = item.Value.SourceTimestamp
		}
		s.latest.set(ch, fv, ts)
		changed = true
	}
	if !changed {
		return domain.Reading{}, false
	}
	return s.latest.reading(time.Now)
}

// assembler keeps the latest value per channel.
type assembler struct {
	values domain.Reading
	seen   [domain.ChannelCount]bool
}

func (a *assembler) set(ch domain.Channel, v float64, ts time.Time) {
	a.values.Values[ch] = v
	a.seen[ch] = true
	if ts.After(a.values.Timestamp) {
		a.values.Timestamp = ts
	}
}

// reading returns the assembled reading once every channel has a value.
func (a *assembler) reading(now func() time.Time) (domain.Reading, bool) {
	for _, ok := range a.seen {
		if !ok {
			return domain.Reading{}, false
		}
	}
	r := a.values
	if r.Timestamp.IsZero() {
		r.Timestamp = now()
	}
	return r, true
}

func (s *Source) clientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(s.cfg.SecurityMode)),
		opcua.SecurityPolicy(s.cfg.SecurityPolicy),
		opcua.ApplicationName(s.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if s.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(s.cfg.Username, s.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func (s *Source) abort(ctx context.Context, cancel context.CancelFunc, sub *opcua.Subscription, client *opcua.Client) {
	cancel()
	if sub != nil {
		_ = sub.Cancel(ctx)
	}
	if client != nil {
		_ = client.Close(ctx)
	}
}

func variantToFloat(v *ua.Variant) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.Value().(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

var _ ports.ReadingSource = (*Source)(nil)
