package bhyve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/sebr/bhyve-bridge/internal/icons"
	"github.com/sebr/bhyve-bridge/internal/models"
	"github.com/sebr/bhyve-bridge/internal/models/devicetype"
	"github.com/sebr/bhyve-bridge/internal/style"
	"github.com/spf13/viper"
)

const (
	loginPath                 = "/v1/session"
	devicesPath               = "/v1/devices"
	timerProgramsPath         = "/v1/sprinkler_timer_programs"
	deviceHistoryPath         = "/v1/watering_events"
	landscapeDescriptionsPath = "/v1/landscape_descriptions"
)

// the cloud gets grumpy without a browser user agent
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/72.0.3626.81 Safari/537.36"

var (
	requestTimeout = time.Second * 30

	// minimum time between two refreshes of the same collection
	pollThrottle = time.Minute * 5
)

// Client talks to the Orbit cloud - REST for collections and commands that
// are plain resources, the events websocket for push updates and the
// command events that only exist there.
type Client struct {
	apiURL *url.URL
	wsURL  *url.URL

	username string
	password string

	token  string
	userID string

	httpClient *http.Client

	// cached collections and their last refresh times
	mu         sync.RWMutex
	devices    []Device
	programs   []TimerProgram
	histories  map[string][]HistoryEntry
	landscapes map[string][]Landscape
	lastPoll   map[string]time.Time

	// events received from the websocket connection
	receivedEvents chan *Event
	// unix nanos of the most recent received event, read by the heartbeat
	// and watchdog goroutines
	lastEventReceived atomic.Int64

	// websocket connection
	conn *websocket.Conn
	// lock for the websocket
	wsMutex sync.Mutex
	// connection epoch, bumped on every (re)connect so goroutines of a
	// previous connection stop themselves
	connEpoch atomic.Int64

	// printer
	pr *log.Logger

	// time of start
	startTime time.Time
}

// New creates a new Orbit cloud client.
func New(username, password string, eventsChannel chan *Event) (*Client, error) {
	// validity check
	if username == "" {
		return nil, models.ErrEmptyUsername
	} else if password == "" {
		return nil, models.ErrEmptyPassword
	}

	apiURL, err := url.Parse(viper.GetString("bhyve.api_url"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse api url: %w", err)
	}

	wsURL, err := url.Parse(viper.GetString("bhyve.ws_url"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ws url: %w", err)
	}

	client := &Client{
		apiURL: apiURL,
		wsURL:  wsURL,

		username: username,
		password: password,

		httpClient: &http.Client{Timeout: requestTimeout},

		histories:  make(map[string][]HistoryEntry),
		landscapes: make(map[string][]Landscape),
		lastPoll:   make(map[string]time.Time),

		receivedEvents: eventsChannel,

		pr: models.Printer.WithPrefix(lipgloss.NewStyle().Foreground(style.OrbitBlue).Render("Orbit")),

		startTime: time.Now(),
	}

	client.markEventReceived()

	return client, nil
}

// Login authenticates against the cloud and stores the session token used
// by all following REST and websocket traffic.
func (c *Client) Login(ctx context.Context) error {
	body := map[string]interface{}{
		"session": map[string]string{
			"email":    c.username,
			"password": c.password,
		},
	}

	var response struct {
		OrbitSessionToken string `json:"orbit_session_token"`
		UserID            string `json:"user_id"`
	}

	if err := c.request(ctx, http.MethodPost, loginPath, nil, body, &response); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if response.OrbitSessionToken == "" {
		return models.ErrNoSessionToken
	}

	c.token = response.OrbitSessionToken
	c.userID = response.UserID

	c.pr.Printf("%s logged in as %s", icons.Key, style.Bold(c.username))

	return nil
}

// UserID returns the user id of the logged in account.
func (c *Client) UserID() string { return c.userID }

// markEventReceived records the arrival of a websocket event.
func (c *Client) markEventReceived() {
	c.lastEventReceived.Store(time.Now().UnixNano())
}

// sinceLastEvent returns the time passed since the last websocket event.
func (c *Client) sinceLastEvent() time.Duration {
	return time.Since(time.Unix(0, c.lastEventReceived.Load()))
}

// request makes a REST request against the cloud API.
func (c *Client) request(ctx context.Context, method, path string, params url.Values, body, result interface{}) error {
	requestURL := c.apiURL.JoinPath(path)

	if params == nil {
		params = url.Values{}
	}

	// cache busting, the vendor app does the same
	params.Set("t", strconv.FormatInt(time.Now().Unix(), 10))
	requestURL.RawQuery = params.Encode()

	var requestBody io.Reader

	if body != nil {
		rawBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}

		requestBody = bytes.NewReader(rawBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL.String(), requestBody)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Content-Type", "application/json; charset=utf-8;")
	req.Header.Set("Referer", c.apiURL.String())
	req.Header.Set("User-Agent", userAgent)

	if c.token != "" {
		req.Header.Set("Orbit-Session-Token", c.token)
	}

	c.pr.Debugf("%s %s %s", icons.Call, method, path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", models.ErrRequestFailed, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s %s: %s", models.ErrRequestFailed, method, path, resp.Status)
	}

	if result == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response of %s: %w", path, err)
	}

	return nil
}

// throttled reports whether the given collection was refreshed recently.
// forced refreshes always pass.
func (c *Client) throttled(collection string, force bool) bool {
	if force {
		c.pr.Debugf("forcing refresh of %s", collection)

		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return time.Since(c.lastPoll[collection]) < pollThrottle
}

func (c *Client) refreshDevices(ctx context.Context, force bool) error {
	if c.throttled(devicesPath, force) {
		return nil
	}

	var devices []Device
	if err := c.request(ctx, http.MethodGet, devicesPath, nil, nil, &devices); err != nil {
		return err
	}

	c.mu.Lock()
	c.devices = devices
	c.lastPoll[devicesPath] = time.Now()
	c.mu.Unlock()

	for _, device := range devices {
		c.pr.Debugf("%s device: %s [%s]", icons.Home, device.Name, device.Type)
	}

	return nil
}

func (c *Client) refreshTimerPrograms(ctx context.Context, force bool) error {
	if c.throttled(timerProgramsPath, force) {
		return nil
	}

	var programs []TimerProgram
	if err := c.request(ctx, http.MethodGet, timerProgramsPath, nil, nil, &programs); err != nil {
		return err
	}

	c.mu.Lock()
	c.programs = programs
	c.lastPoll[timerProgramsPath] = time.Now()
	c.mu.Unlock()

	return nil
}

func (c *Client) refreshDeviceHistory(ctx context.Context, deviceID string, force bool) error {
	collection := deviceHistoryPath + "/" + deviceID
	if c.throttled(collection, force) {
		return nil
	}

	params := url.Values{}
	params.Set("page", "1")
	params.Set("per-page", "10")

	var history []HistoryEntry
	if err := c.request(ctx, http.MethodGet, collection, params, nil, &history); err != nil {
		return err
	}

	c.mu.Lock()
	c.histories[deviceID] = history
	c.lastPoll[collection] = time.Now()
	c.mu.Unlock()

	return nil
}

func (c *Client) refreshLandscapes(ctx context.Context, deviceID string, force bool) error {
	collection := landscapeDescriptionsPath + "/" + deviceID
	if c.throttled(collection, force) {
		return nil
	}

	var landscapes []Landscape
	if err := c.request(ctx, http.MethodGet, collection, nil, nil, &landscapes); err != nil {
		return err
	}

	c.mu.Lock()
	c.landscapes[deviceID] = landscapes
	c.lastPoll[collection] = time.Now()
	c.mu.Unlock()

	return nil
}

// Devices returns all devices of the account.
func (c *Client) Devices(ctx context.Context, force bool) ([]Device, error) {
	if err := c.refreshDevices(ctx, force); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.devices, nil
}

// Device returns the device with the given id.
func (c *Client) Device(ctx context.Context, deviceID string, force bool) (*Device, error) {
	devices, err := c.Devices(ctx, force)
	if err != nil {
		return nil, err
	}

	for i := range devices {
		if devices[i].ID == deviceID {
			return &devices[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", models.ErrDeviceNotFound, deviceID)
}

// TimerPrograms returns all timer programs of the account.
func (c *Client) TimerPrograms(ctx context.Context, force bool) ([]TimerProgram, error) {
	if err := c.refreshTimerPrograms(ctx, force); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.programs, nil
}

// DeviceHistory returns the watering history of a device.
func (c *Client) DeviceHistory(ctx context.Context, deviceID string, force bool) ([]HistoryEntry, error) {
	if err := c.refreshDeviceHistory(ctx, deviceID, force); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.histories[deviceID], nil
}

// Landscape returns the landscape description of a zone.
func (c *Client) Landscape(ctx context.Context, deviceID string, station Station, force bool) (*Landscape, error) {
	if err := c.refreshLandscapes(ctx, deviceID, force); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for i, landscape := range c.landscapes[deviceID] {
		if landscape.Station == station {
			return &c.landscapes[deviceID][i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s station %d", models.ErrZoneNotFound, deviceID, station)
}

// RawDevices returns the devices as raw payloads, used for debug dumps.
func (c *Client) RawDevices(ctx context.Context) ([]map[string]interface{}, error) {
	var devices []map[string]interface{}
	if err := c.request(ctx, http.MethodGet, devicesPath, nil, nil, &devices); err != nil {
		return nil, err
	}

	return devices, nil
}

// UpdateProgram updates a timer program, eg. to flip its enabled flag.
func (c *Client) UpdateProgram(ctx context.Context, programID string, program TimerProgram) error {
	body := map[string]interface{}{"sprinkler_timer_program": program}

	return c.request(ctx, http.MethodPut, timerProgramsPath+"/"+programID, nil, body, nil)
}

// UpdateLandscape writes a modified landscape description back, used to
// adjust the soil moisture level of a smart watering zone.
func (c *Client) UpdateLandscape(ctx context.Context, landscape Landscape) error {
	body := map[string]interface{}{"landscape_description": landscape}

	return c.request(ctx, http.MethodPut, landscapeDescriptionsPath+"/"+landscape.ID, nil, body, nil)
}

// Data fetches devices, programs and per-device histories and returns them
// as one snapshot.
func (c *Client) Data(ctx context.Context, force bool) (*Data, error) {
	devices, err := c.Devices(ctx, force)
	if err != nil {
		return nil, err
	}

	if len(devices) == 0 {
		return nil, models.ErrNoDevicesReceived
	}

	programs, err := c.TimerPrograms(ctx, force)
	if err != nil {
		return nil, err
	}

	histories := make(map[string][]HistoryEntry, len(devices))

	for _, device := range devices {
		if device.Type != devicetype.SprinklerTimer {
			continue
		}

		history, err := c.DeviceHistory(ctx, device.ID, force)
		if err != nil {
			c.pr.Warnf("failed to fetch history for %s: %s", device.Name, err)

			continue
		}

		histories[device.ID] = history
	}

	return &Data{Devices: devices, Programs: programs, Histories: histories}, nil
}
