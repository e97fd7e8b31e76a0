package board

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Server pings every 54s; allow one missed ping before reconnecting.
	streamReadWait = 70 * time.Second

	maxSnapshotSize = 16 << 20
)

// SyncerConfig configures the dashboard's two feeds.
type SyncerConfig struct {
	BaseURL      string
	Token        string
	PullInterval time.Duration
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
	HTTPClient   *http.Client
	Dialer       *websocket.Dialer
}

// Syncer feeds a Reconciler from a periodic pull of GET /orders and the
// websocket change stream. Every successful stream connect triggers an
// immediate pull so events missed while disconnected are recovered.
type Syncer struct {
	cfg     SyncerConfig
	rec     *Reconciler
	pullNow chan struct{}
	logger  *slog.Logger
}

func NewSyncer(cfg SyncerConfig, rec *Reconciler, logger *slog.Logger) *Syncer {
	if cfg.PullInterval <= 0 {
		cfg.PullInterval = 30 * time.Second
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Syncer{
		cfg:     cfg,
		rec:     rec,
		pullNow: make(chan struct{}, 1),
		logger:  logger.With("component", "syncer"),
	}
}

// Run pulls and streams until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.pullLoop(ctx)
	}()
	s.streamLoop(ctx)
	<-done
}

func (s *Syncer) requestPull() {
	select {
	case s.pullNow <- struct{}{}:
	default:
	}
}

func (s *Syncer) pullLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PullInterval)
	defer ticker.Stop()

	s.pullOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.pullNow:
		}
		s.pullOnce(ctx)
	}
}

func (s *Syncer) pullOnce(ctx context.Context) {
	if err := s.Pull(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn("pull failed, keeping board", "error", err)
	}
}

// Pull fetches the full order list and applies it. On any failure the
// board is left as it was.
func (s *Syncer) Pull(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/orders", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pull orders: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return err
	}
	return s.rec.ApplySnapshot(body)
}

func (s *Syncer) streamURL() (string, error) {
	u, err := url.Parse(s.cfg.BaseURL + "/ws/orders")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", s.cfg.Token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Syncer) streamLoop(ctx context.Context) {
	backoff := s.cfg.MinBackoff
	for ctx.Err() == nil {
		connected, err := s.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = s.cfg.MinBackoff
		}
		s.logger.Info("stream disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}

// stream holds one websocket connection until it fails. connected reports
// whether the dial succeeded.
func (s *Syncer) stream(ctx context.Context) (connected bool, err error) {
	target, err := s.streamURL()
	if err != nil {
		return false, err
	}
	conn, _, err := s.cfg.Dialer.DialContext(ctx, target, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s.logger.Info("stream connected")
	s.requestPull()

	conn.SetReadDeadline(time.Now().Add(streamReadWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(streamReadWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		conn.SetReadDeadline(time.Now().Add(streamReadWait))
		if err := s.rec.ApplyEvent(data); err != nil {
			s.logger.Debug("ignoring event", "error", err)
		}
	}
}
