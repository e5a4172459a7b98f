//go:build atsamd21

package main

import (
	"device/sam"
	"machine"
	"time"

	"github.com/BlaineKTMO/tagtronics/core"
	"github.com/BlaineKTMO/tagtronics/protocol"
	"github.com/BlaineKTMO/tagtronics/radio"
)

var (
	// PWM outputs, one slot each
	pwmPins   = []core.PinID{core.TriplePin1, core.TriplePin2, core.TriplePin3}
	resources = core.ZeroPins

	// Buffers for communication
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	decoder      *protocol.Decoder
	registry     *core.CommandRegistry

	controller *core.Controller
	link       *radio.Link

	// Debug counters
	messagesReceived uint32
	msgerrors        uint32
)

func main() {
	InitUSB()

	core.SetPlatform(core.NewPlatform(&portMux{},
		newTCC(core.TCC0, sam.TCC0),
		newTCC(core.TCC1, sam.TCC1),
		newTCC(core.TCC2, sam.TCC2),
		newTC3(),
	))
	controller = core.NewController(pwmPins,
		core.WithResources(resources),
		core.WithWaitPolicy(core.Bounded(10*time.Millisecond)),
	)

	registry = core.GetGlobalRegistry()
	core.InitPWMCommands(controller)

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()
	decoder = protocol.NewDecoder(handleFrame)

	link = initRadio()

	if err := controller.Begin(core.DefaultFrequencyHz); err != nil {
		msgerrors++
	}

	go usbReaderLoop()

	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			if inputBuffer.Available() > 0 {
				consumed := decoder.Feed(inputBuffer.Data())
				if consumed > 0 {
					inputBuffer.Pop(consumed)
				}
			}
			writeUSB()

			if link != nil {
				if _, err := link.Update(); err != nil {
					msgerrors++
				}
			}
		}()

		// Yield to other goroutines
		time.Sleep(10 * time.Microsecond)
	}
}

// handleFrame dispatches one host frame and queues its response
func handleFrame(seq uint8, payload []byte) {
	messagesReceived++
	if err := registry.HandleFrame(seq, payload, outputBuffer); err != nil {
		msgerrors++
	}
}

// initRadio brings up the RFM69 on SPI0. A missing module leaves the board
// USB-only and returns nil.
func initRadio() *radio.Link {
	cs := machine.D2
	rst := machine.D5
	cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
	rst.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cs.High()

	err := machine.SPI0.Configure(machine.SPIConfig{
		Frequency: 4000000,
		SCK:       machine.SPI0_SCK_PIN,
		SDO:       machine.SPI0_SDO_PIN,
		SDI:       machine.SPI0_SDI_PIN,
	})
	if err != nil {
		return nil
	}

	rfm := radio.NewRFM69(machine.SPI0, cs, rst)
	rfm.Reset()
	err = rfm.Configure(radio.DefaultConfig())
	if err != nil {
		core.DebugPrintln("[RADIO] " + err.Error())
		return nil
	}

	l := radio.NewLink(radio.PWMNode, rfm)
	l.SetHandler(func(p *radio.Packet) {
		if err := core.ApplyRemote(controller, p.Command, p.Message()); err != nil {
			core.DebugPrintln("[RADIO] command " + err.Error())
		}
	})
	return l
}

// usbReaderLoop runs in a goroutine to continuously read USB data
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}
			if inputBuffer.Write([]byte{data}) == 0 {
				// Buffer full
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB drains the output buffer to USB
func writeUSB() {
	result := outputBuffer.Result()
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			// Likely disconnected; drop stale responses
			msgerrors++
			outputBuffer.Reset()
			return
		}
		written += n
	}
	if written > 0 {
		outputBuffer.Reset()
	}
}
