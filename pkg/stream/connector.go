package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Adirelle/docker-graph/pkg/buildinfo"
	"github.com/Adirelle/docker-graph/pkg/errors"
	"github.com/Adirelle/docker-graph/pkg/events"
	"github.com/Adirelle/docker-graph/pkg/observability"
	"github.com/Adirelle/docker-graph/pkg/retry"
)

// DefaultMinInterval is the reconnect floor used when none is configured.
const DefaultMinInterval = time.Second

// maxMessageSize bounds a single SSE line.
const maxMessageSize = 4 << 20

// Status is the connection state reported by a [Connector].
type Status int

const (
	StatusClosed Status = iota
	StatusOpen
)

func (s Status) String() string {
	if s == StatusOpen {
		return "open"
	}
	return "closed"
}

// Handler receives decoded events.
type Handler func(events.Event)

// Connector maintains an SSE connection to an event server.
type Connector struct {
	// URL of the event stream endpoint.
	URL string

	// Client performs the requests. Its timeout must be zero since the
	// response body stays open for the lifetime of the connection.
	Client *http.Client

	// MinInterval is the minimum delay between two connection attempts.
	MinInterval time.Duration

	// OnStatus is called on every open/closed transition.
	OnStatus func(Status)

	Logger *log.Logger

	status Status
	lastID string
}

// NewConnector returns a Connector for url with default settings.
func NewConnector(url string, logger *log.Logger) *Connector {
	return &Connector{
		URL:         url,
		Client:      &http.Client{},
		MinInterval: DefaultMinInterval,
		Logger:      logger,
	}
}

// Run connects and delivers events to handle until ctx is done. It always
// returns ctx.Err(); connection failures only trigger a reconnect.
func (c *Connector) Run(ctx context.Context, handle Handler) error {
	logger := c.logger()
	floor := c.MinInterval
	if floor <= 0 {
		floor = DefaultMinInterval
	}

	for {
		opened := time.Now()
		session := uuid.NewString()
		err := c.session(ctx, session, handle)
		c.setStatus(StatusClosed)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		observability.Stream().OnDisconnect(ctx, c.URL, err)
		if err != nil {
			logger.Warn("event stream failed", "session", session, "err", err)
		} else {
			logger.Info("event stream closed by server", "session", session)
		}

		if err := retry.WaitFloor(ctx, opened, floor); err != nil {
			return err
		}
	}
}

// session runs one connection until it ends. A nil error means the server
// closed the stream cleanly.
func (c *Connector) session(ctx context.Context, id string, handle Handler) error {
	logger := c.logger().With("session", id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidURL, err, "build request")
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	req.Header.Set("Cache-Control", "no-cache")
	if c.lastID != "" {
		req.Header.Set("Last-Event-ID", c.lastID)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "connect to %s", c.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &errors.StatusError{StatusCode: resp.StatusCode, URL: c.URL}
	}

	logger.Info("event stream open", "url", c.URL)
	observability.Stream().OnConnect(ctx, c.URL)
	c.setStatus(StatusOpen)

	return c.read(ctx, resp.Body, logger, handle)
}

// read parses the SSE body. Messages are dispatched on blank lines; multiple
// data lines of one message are joined with a newline.
func (c *Connector) read(ctx context.Context, body io.Reader, logger *log.Logger, handle Handler) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)

	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			if data.Len() > 0 {
				c.dispatch(ctx, data.Bytes(), logger, handle)
				data.Reset()
			}
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		value = bytes.TrimPrefix(value, []byte(" "))
		switch string(field) {
		case "data":
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.Write(value)
		case "id":
			c.lastID = string(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}

func (c *Connector) dispatch(ctx context.Context, data []byte, logger *log.Logger, handle Handler) {
	e, err := events.Decode(data)
	if err != nil {
		logger.Warn("skipping malformed message", "err", err)
		observability.Stream().OnMessage(ctx, false)
		return
	}
	observability.Stream().OnMessage(ctx, true)
	handle(e)
}

func (c *Connector) setStatus(s Status) {
	if c.status == s {
		return
	}
	c.status = s
	if c.OnStatus != nil {
		c.OnStatus(s)
	}
}

func (c *Connector) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}
