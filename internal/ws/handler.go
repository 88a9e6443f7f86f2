package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/websocket"

	"load_profile/internal/pattern"
	"load_profile/internal/pipeline"
	"load_profile/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var errRunning = errors.New("a generation is already running")

// Handler manages WebSocket connections and turns generate requests into
// pipeline runs over the loaded inputs. One run is active at a time.
type Handler struct {
	hub           *Hub
	bridge        *Bridge
	engine        *pipeline.Engine
	store         *store.Store
	defaults      pipeline.Options
	forecastModel string
	onResult      func(*pipeline.Result)

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHandler(hub *Hub, bridge *Bridge, engine *pipeline.Engine, s *store.Store, defaults pipeline.Options, forecastModel string) *Handler {
	return &Handler{
		hub:           hub,
		bridge:        bridge,
		engine:        engine,
		store:         s,
		defaults:      defaults,
		forecastModel: forecastModel,
	}
}

// OnResult registers a hook called after every run, successful or not.
// A failed run passes a nil result.
func (h *Handler) OnResult(fn func(*pipeline.Result)) {
	h.onResult = fn
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	go client.writePump()

	// Send initial data:loaded message
	h.sendDataLoaded(client)

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		h.handleMessage(msg)
	}
}

func (h *Handler) handleMessage(msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		log.Printf("Invalid message: %v", err)
		return
	}

	switch env.Type {
	case TypeProfileGenerate:
		var p GeneratePayload
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				log.Printf("Invalid generate payload: %v", err)
				h.bridge.OnError("", fmt.Errorf("invalid generate payload: %w", err))
				return
			}
		}
		if err := h.Generate(p); err != nil {
			log.Printf("Generate rejected: %v", err)
			h.bridge.OnError(p.ProfileID, err)
		}

	case TypeProfileCancel:
		h.Cancel()

	default:
		log.Printf("Unknown message type: %s", env.Type)
	}
}

// Generate validates the request and starts a run in the background.
func (h *Handler) Generate(p GeneratePayload) error {
	opts, err := h.requestOptions(p)
	if err != nil {
		return err
	}
	name := p.ForecastModel
	if name == "" {
		name = h.forecastModel
	}
	in := pipeline.InputsFromStore(h.store, name)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		return errRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.wg.Add(1)

	go func() {
		defer h.wg.Done()
		res, err := h.engine.Run(ctx, opts, in)

		h.mu.Lock()
		h.cancel = nil
		h.mu.Unlock()
		cancel()

		if err != nil {
			log.Printf("Generation %s failed: %v", opts.ProfileID, err)
			h.bridge.OnError(opts.ProfileID, err)
		} else {
			h.bridge.OnResult(res)
		}
		if h.onResult != nil {
			h.onResult(res)
		}
	}()
	return nil
}

// Cancel stops the active run, if any.
func (h *Handler) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
	}
}

// Running reports whether a generation is in progress.
func (h *Handler) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancel != nil
}

// Wait blocks until the active run has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) requestOptions(p GeneratePayload) (pipeline.Options, error) {
	opts := h.defaults
	if p.ProfileID != "" {
		opts.ProfileID = p.ProfileID
	}
	if p.StartYear != 0 {
		opts.StartYear = p.StartYear
	}
	if p.EndYear != 0 {
		opts.EndYear = p.EndYear
	}
	if opts.EndYear < opts.StartYear {
		return opts, fmt.Errorf("end_year %d before start_year %d", opts.EndYear, opts.StartYear)
	}
	if p.Method != "" {
		m, err := pattern.ParseMethod(p.Method)
		if err != nil {
			return opts, err
		}
		opts.Method = m
	}
	if p.BaseYear != 0 {
		opts.BaseYear = p.BaseYear
	}
	switch pipeline.DemandSource(p.DemandSource) {
	case "":
	case pipeline.SourceTable, pipeline.SourceForecast:
		opts.DemandSource = pipeline.DemandSource(p.DemandSource)
	default:
		return opts, fmt.Errorf("unknown demand_source %q", p.DemandSource)
	}
	if p.MonthlyConstraint != nil {
		opts.MonthlyConstraint = *p.MonthlyConstraint
	}
	return opts, nil
}

func (h *Handler) dataLoadedMessage() ([]byte, error) {
	sources := h.store.Sources()
	infos := make([]SourceInfo, 0, len(sources))
	for _, s := range sources {
		infos = append(infos, SourceFromStore(s))
	}
	tr, _ := h.store.GlobalTimeRange()

	targets := h.store.Targets()
	years := make([]int, 0, len(targets))
	for fy := range targets {
		years = append(years, fy)
	}
	sort.Ints(years)

	payload := DataLoadedPayload{
		Sources:        infos,
		TimeRange:      TimeRangeFromModel(tr),
		TargetYears:    years,
		ForecastModels: h.store.ForecastModels(),
		Caps:           len(h.store.Caps()),
		Holidays:       len(h.store.Holidays()),
		Running:        h.Running(),
	}

	return NewEnvelope(TypeDataLoaded, payload)
}

func (h *Handler) sendDataLoaded(c *Client) {
	msg, err := h.dataLoadedMessage()
	if err != nil {
		log.Printf("Error creating data:loaded message: %v", err)
		return
	}

	h.hub.Send(c, TypeDataLoaded, msg)
}
