// Command pwmsim serves the simulated SAMD21 timers over a websocket so the
// allocation engine can be driven and observed without a board.
//
// Each text message is a JSON command:
//
//	{"type":"begin","frequency":60}
//	{"type":"setDutyCycle","slot":0,"percent":40}
//	{"type":"end"}
//	{"type":"tick","ticks":780}
//	{"type":"state"}
//
// and is answered with the board and slot state.
package main

import (
	"errors"
	"flag"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"github.com/BlaineKTMO/tagtronics/config"
	"github.com/BlaineKTMO/tagtronics/core"
	"github.com/BlaineKTMO/tagtronics/targets/sim"
)

var json jsoniter.API = jsoniter.ConfigCompatibleWithStandardLibrary

const CONNECTION_TIMEOUT = 30 * time.Second

var (
	configPath = flag.String("config", "", "JSON configuration file")
	listen     = flag.String("listen", "", "Listen address (overrides the config file)")
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin:     checkOrigin,
}

var errUnknownType = errors.New("unknown command type")

// Command is one client request
type Command struct {
	Type      string  `json:"type"`
	Frequency uint32  `json:"frequency,omitempty"`
	Slot      int     `json:"slot"`
	Percent   float64 `json:"percent"`
	Ticks     uint32  `json:"ticks,omitempty"`
}

// SlotState is the controller's view of one slot
type SlotState struct {
	Slot    int     `json:"slot"`
	Pin     uint8   `json:"pin"`
	Bound   bool    `json:"bound"`
	Engine  string  `json:"engine,omitempty"`
	Channel uint8   `json:"channel"`
	Period  uint32  `json:"period"`
	Compare uint32  `json:"compare"`
	Duty    float64 `json:"duty"`
	Output  bool    `json:"output"`
}

// Reply answers every command
type Reply struct {
	Error     string       `json:"error,omitempty"`
	Running   bool         `json:"running"`
	Frequency uint32       `json:"frequency"`
	Effective uint32       `json:"effective_frequency"`
	Slots     []SlotState  `json:"slots"`
	Board     sim.Snapshot `json:"board"`
}

// Simulator owns one board and the controller allocating from it
type Simulator struct {
	mu         sync.Mutex
	board      *sim.Board
	controller *core.Controller
	frequency  uint32
}

// NewSimulator builds a board and controller from the configuration
func NewSimulator(cfg *config.Config) (*Simulator, error) {
	board := sim.NewBoard(cfg.Sim.Latency)
	c, err := cfg.NewController(core.WithPlatform(board.Platform()))
	if err != nil {
		return nil, err
	}
	return &Simulator{board: board, controller: c, frequency: cfg.PWM.FrequencyHz}, nil
}

// Handle applies one JSON command and returns the encoded reply
func (s *Simulator) Handle(message []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reply Reply
	cmd := Command{}
	if err := json.Unmarshal(message, &cmd); err != nil {
		reply.Error = err.Error()
	} else if err := s.apply(&cmd); err != nil {
		reply.Error = err.Error()
	}
	s.fill(&reply)
	out, _ := json.Marshal(&reply)
	return out
}

func (s *Simulator) apply(cmd *Command) error {
	switch cmd.Type {
	case "begin":
		freq := cmd.Frequency
		if freq == 0 {
			freq = s.frequency
		}
		return s.controller.Begin(freq)
	case "setDutyCycle":
		return s.controller.SetDutyCycle(cmd.Slot, cmd.Percent)
	case "end":
		return s.controller.End()
	case "tick":
		s.board.Tick(cmd.Ticks)
		return nil
	case "state":
		return nil
	}
	return errUnknownType
}

func (s *Simulator) fill(reply *Reply) {
	c := s.controller
	reply.Running = c.Running()
	reply.Frequency = c.Frequency()
	reply.Effective = c.EffectiveFrequency()
	reply.Board = s.board.Snapshot()
	reply.Slots = make([]SlotState, c.Slots())
	for i := range reply.Slots {
		st := SlotState{
			Slot:    i,
			Pin:     uint8(c.Pin(i)),
			Period:  c.Period(i),
			Compare: c.Compare(i),
			Duty:    c.Duty(i),
		}
		if r, ok := c.Binding(i); ok {
			st.Bound = true
			st.Engine = r.Engine.String()
			st.Channel = r.Channel
			st.Output = s.board.Engine(r.Engine).Output(r.Channel)
		}
		reply.Slots[i] = st
	}
}

// Reset ends any running configuration
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.controller.End(); err != nil {
		log.Print("Simulator reset error: ", err)
	}
}

func checkOrigin(r *http.Request) bool {
	return true
}

var wsMutex sync.Mutex

func serveSimulatorWSRequest(s *Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !wsMutex.TryLock() {
			log.Print("Websocket multiple connections are not allowed with ", r.Host)
			http.Error(w, "simulator busy", http.StatusConflict)
			return
		}
		defer wsMutex.Unlock()
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Print("Websocket upgrade error: ", err)
			return
		}
		log.Print("Websocket connection established with ", r.Host)
		defer conn.Close()
		for {
			conn.SetReadDeadline(time.Now().Add(CONNECTION_TIMEOUT))
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Print("Websocket read error: ", err)
				break
			}
			if err := conn.WriteMessage(websocket.TextMessage, s.Handle(message)); err != nil {
				log.Print("Websocket write error: ", err)
				break
			}
		}
		s.Reset()
		log.Print("Websocket connection terminated with ", r.Host)
	}
}

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			log.Fatal("Unable to load config: ", err)
		}
	}
	if *listen != "" {
		cfg.Sim.Listen = *listen
	}
	if cfg.Debug {
		core.SetDebugWriter(func(s string) { log.Print(s) })
		core.SetDebugEnabled(true)
	}

	s, err := NewSimulator(cfg)
	if err != nil {
		log.Fatal("Unable to create simulator: ", err)
	}

	http.HandleFunc("/ws", serveSimulatorWSRequest(s))
	log.Print("Simulator listening on ", cfg.Sim.Listen)
	if err := http.ListenAndServe(cfg.Sim.Listen, nil); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Unable to start HTTP server: ", err)
	}
}
