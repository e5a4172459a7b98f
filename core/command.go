package core

import (
	"errors"
	"sync"

	"github.com/BlaineKTMO/tagtronics/protocol"
)

// ErrUnknownCommand is returned by Dispatch for an unregistered id
var ErrUnknownCommand = errors.New("unknown command")

// CommandHandler handles one command. It decodes its own arguments from
// data and writes a response (id followed by arguments) into reply. A
// handler that writes nothing gets a RespAck with the status of its error.
type CommandHandler func(data *[]byte, reply protocol.OutputBuffer) error

// Command is one registered command or response
type Command struct {
	ID      uint16
	Name    string
	Format  string // Format string for the dictionary (e.g., "slot=%c")
	Handler CommandHandler
}

// CommandRegistry holds all registered commands
type CommandRegistry struct {
	mu         sync.RWMutex
	commands   map[uint16]*Command
	order      []uint16
	dictionary string
}

var globalRegistry = NewCommandRegistry()

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{commands: make(map[uint16]*Command)}
}

// RegisterCommand registers a command handler in the global registry
func RegisterCommand(id uint16, name, format string, handler CommandHandler) {
	globalRegistry.Register(id, name, format, handler)
}

// RegisterResponse registers a response message (MCU -> Host)
func RegisterResponse(id uint16, name, format string) {
	globalRegistry.Register(id, name, format, nil)
}

// Register adds a command to the registry, replacing any with the same id
func (r *CommandRegistry) Register(id uint16, name, format string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[id]; !exists {
		r.order = append(r.order, id)
	}
	r.commands[id] = &Command{ID: id, Name: name, Format: format, Handler: handler}
	r.rebuildDictionary()
}

// GetCommand retrieves a command by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// GetCommandByName retrieves a command by name
func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cmd := range r.commands {
		if cmd.Name == name {
			return cmd, true
		}
	}
	return nil, false
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch calls the handler registered for cmdID
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte, reply protocol.OutputBuffer) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok || cmd.Handler == nil {
		return ErrUnknownCommand
	}
	return cmd.Handler(data, reply)
}

// GetDictionary returns one "name format" line per registered message
func (r *CommandRegistry) GetDictionary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dictionary
}

// rebuildDictionary must be called with lock held
func (r *CommandRegistry) rebuildDictionary() {
	dict := ""
	for _, id := range r.order {
		cmd := r.commands[id]
		dict += utoa(uint32(id)) + " " + cmd.Name
		if cmd.Format != "" {
			dict += " " + cmd.Format
		}
		dict += "\n"
	}
	r.dictionary = dict
}

// HandleFrame decodes one frame payload, dispatches it and encodes the
// response frame with the same sequence byte into out
func (r *CommandRegistry) HandleFrame(seq uint8, payload []byte, out protocol.OutputBuffer) error {
	data := payload
	id, err := protocol.DecodeVLQUint(&data)
	if err != nil {
		return writeAck(out, seq, protocol.StatusBadArguments)
	}
	reply := protocol.NewScratchOutput()
	err = r.Dispatch(uint16(id), &data, reply)
	if err != nil || reply.CurPosition() == 0 {
		return writeAck(out, seq, statusFor(err))
	}
	return protocol.EncodeFrame(out, seq, func(o protocol.OutputBuffer) {
		o.Output(reply.Result())
	})
}

// GetGlobalRegistry returns the global command registry
func GetGlobalRegistry() *CommandRegistry {
	return globalRegistry
}

func writeAck(out protocol.OutputBuffer, seq uint8, status uint32) error {
	return protocol.EncodeFrame(out, seq, func(o protocol.OutputBuffer) {
		protocol.EncodeVLQUint(o, protocol.RespAck)
		protocol.EncodeVLQUint(o, status)
	})
}

func statusFor(err error) uint32 {
	var fault *PeripheralFault
	switch {
	case err == nil:
		return protocol.StatusOK
	case errors.Is(err, ErrUnknownCommand):
		return protocol.StatusUnknownCommand
	case errors.Is(err, protocol.ErrBufferTooSmall), errors.Is(err, protocol.ErrInvalidVLQ),
		errors.Is(err, ErrInvalidSlot):
		return protocol.StatusBadArguments
	case errors.Is(err, ErrInvalidFrequency), errors.Is(err, ErrInvalidPrescaler):
		return protocol.StatusInvalidFrequency
	case errors.As(err, &fault):
		return protocol.StatusPeripheralFault
	case errors.Is(err, ErrEngineClaimed):
		return protocol.StatusEngineClaimed
	}
	return protocol.StatusFailed
}
