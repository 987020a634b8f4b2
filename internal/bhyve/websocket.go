package bhyve

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sebr/bhyve-bridge/internal/icons"
	"github.com/sebr/bhyve-bridge/internal/models"
	"github.com/sebr/bhyve-bridge/internal/style"
	"github.com/spf13/viper"
)

var (
	connectionTimeout = time.Second * 5

	readLimit = int64(1024000) // 1024kb
)

// Listen connects to the events websocket and keeps the connection alive
// until the context is canceled. Incoming events are fanned out to the
// events channel passed to New.
func (c *Client) Listen(ctx context.Context) error {
	if c.token == "" {
		return models.ErrNotLoggedIn
	}

	c.setup(ctx)

	return nil
}

// setup establishes the websocket connection, retrying with a fixed delay
// until it succeeds. Also used to reconnect after a connection is lost.
func (c *Client) setup(ctx context.Context) {
	initialSetup := true

	// shutdown current connection
	if c.getConn() != nil {
		initialSetup = false

		c.pr.Infof("%s reconnect - closing existing connection...", icons.Stopwatch)

		c.shutdown()
	}

	reconnectDelay := viper.GetDuration("bhyve.defaults.reconnect_delay")

	for {
		if ctx.Err() != nil {
			return
		}

		if !initialSetup {
			c.pr.Printf("%s trying again in %.0fs...", icons.ReconnectCircle, reconnectDelay.Seconds())
			time.Sleep(reconnectDelay)
		}

		if err := c.setupConnection(ctx); err != nil {
			c.pr.With("err", err).Error("failed to setup connection")

			initialSetup = false

			continue
		}

		epoch := c.connEpoch.Add(1)

		// start message handler
		go c.runReader(ctx, epoch)

		// start app level heartbeat
		go c.heartbeat(ctx, epoch)

		// start watchdog for last event received
		go c.lastEventReceivedWatchdog(ctx, epoch, viper.GetDuration("bhyve.defaults.watchdog_max_age"), viper.GetDuration("bhyve.defaults.watchdog_check_every"))

		break
	}

	if !initialSetup {
		c.pr.Printf("%s reconnected", icons.ReconnectCircle)
	}
}

func (c *Client) setupConnection(ctx context.Context) error {
	c.pr.Printf("%s connecting to %s", icons.ConnectionChain, c.wsURL.String())

	dialCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, c.wsURL.String(), &websocket.DialOptions{})
	if err != nil {
		return err
	}

	c.setConn(conn)

	// increase max size of a message for the connection (in bytes)
	conn.SetReadLimit(readLimit)

	// authenticate with the session token
	if err := wsjson.Write(ctx, conn, newAppConnectionMsg(c.token)); err != nil {
		c.pr.Error("websocket authentication failed: ", err)

		return err
	}

	c.pr.Printf("%s connected to %s", icons.GreenTick, c.wsURL.String())

	return nil
}

func (c *Client) shutdown() {
	// try graceful close of the existing connection
	if conn := c.getConn(); conn != nil {
		c.pr.Debugf("%s closing existing connection...", icons.RedCross.Render())

		if err := conn.Close(websocket.StatusNormalClosure, "reconnect"); err != nil {
			c.pr.Debugf("%s failed to gracefully close connection: %+v", icons.RedCross.Render(), err)

			// force close
			_ = conn.CloseNow()
		}
	}

	c.setConn(nil)
}

func (c *Client) getConn() *websocket.Conn {
	c.wsMutex.Lock()
	defer c.wsMutex.Unlock()

	return c.conn
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.wsMutex.Lock()
	defer c.wsMutex.Unlock()

	c.conn = conn
}

// Send sends a command message on the events websocket.
func (c *Client) Send(ctx context.Context, msg Message) error {
	conn := c.getConn()
	if conn == nil {
		return models.ErrNoConnectionToWriteTo
	}

	c.pr.Infof("%s %s", icons.Call, msg)

	return wsjson.Write(ctx, conn, msg)
}

func (c *Client) runReader(ctx context.Context, epoch int64) {
	c.pr.Debugf("%s starting websocket reader", icons.WeightLift)

	if err := c.wsReader(ctx, epoch); err != nil {
		if ctx.Err() != nil || epoch != c.connEpoch.Load() {
			return
		}

		c.pr.Errorf("%s reader error: %+v", icons.Glasses, err)

		// shutdown & reconnect
		go c.setup(ctx)
	}
}

func (c *Client) wsReader(ctx context.Context, epoch int64) error {
	for {
		conn := c.getConn()
		if conn == nil {
			return models.ErrNoConnectionToReadFrom
		}

		var msg map[string]interface{}

		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return models.ErrConnectionClosed
			}

			return err
		}

		c.markEventReceived()

		if msg == nil {
			c.pr.Error("received nil message")

			continue
		}

		event, err := DecodeEvent(msg)
		if err != nil {
			c.pr.Errorf("decoding incoming event failed: %+v | msg: %+v", err, msg)

			continue
		}

		if event.Type == "" {
			c.pr.Warnf("%s received message without event type: %+v", icons.Hae, msg)

			continue
		}

		c.pr.Debugf("%s received %s for %s", icons.Sub, style.Bold(string(event.Type)), event.TargetDeviceID())

		c.receivedEvents <- event
	}
}

// heartbeat sends an app level ping when the connection was silent for too
// long - the cloud drops connections without traffic.
func (c *Client) heartbeat(ctx context.Context, epoch int64) {
	heartbeatInterval := viper.GetDuration("bhyve.defaults.heartbeat_interval")
	if heartbeatInterval <= 0 {
		return
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if epoch != c.connEpoch.Load() {
				return
			}

			if c.sinceLastEvent() < heartbeatInterval {
				continue
			}

			if err := c.Send(ctx, newPingMsg()); err != nil {
				c.pr.Debugf("failed to send heartbeat: %+v", err)
			}
		}
	}
}

// lastEventReceivedWatchdog checks if the last event received is older than the given max age.
func (c *Client) lastEventReceivedWatchdog(ctx context.Context, epoch int64, maxAge, checkEvery time.Duration) {
	if maxAge <= 0 || checkEvery <= 0 {
		return
	}

	c.pr.Infof("%s starting last event received watchdog | max age: %s | check every: %s", icons.Watchdog, style.Bold(maxAge.String()), style.Bold(checkEvery.String()))

	ticker := time.NewTicker(checkEvery)
	defer ticker.Stop()

	for range ticker.C {
		if ctx.Err() != nil || epoch != c.connEpoch.Load() {
			return
		}

		since := c.sinceLastEvent()
		if since > maxAge {
			c.pr.Warnf("%s no events received for %s - reconnecting", icons.RedCross.Render(), style.Bold(since.Round(time.Second).String()))

			// reconnect
			go c.setup(ctx)

			return
		}

		c.pr.Debugf("%s %s last event received %s ago", icons.Watchdog, icons.GreenTick.Render(), style.Bold(since.Round(time.Millisecond).String()))
	}
}

// Stop closes the websocket connection.
func (c *Client) Stop() {
	c.pr.Infof("closing websocket connection")

	c.connEpoch.Add(1)

	c.shutdown()
}
