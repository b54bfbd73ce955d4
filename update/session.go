package update

import (
	"sync/atomic"

	"github.com/synthread/go-dbfu/protocol"
)

// Phase is the state of the update state machine
type Phase int32

const (
	Starting Phase = iota
	ReceivingPacket
	Idle
	PacketReceived
	Flashing
	Finishing
	Terminal
)

var phaseNames = map[Phase]string{
	Starting:        "starting",
	ReceivingPacket: "receiving_packet",
	Idle:            "idle",
	PacketReceived:  "packet_received",
	Flashing:        "flashing",
	Finishing:       "finishing",
	Terminal:        "terminal",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "invalid"
}

// Session is a snapshot of the transfer in progress
type Session struct {
	ImageSize    uint32
	PagesToErase uint32
	Address      uint32
	Phase        Phase
}

// Stats counts the work the engine has requested from the platform
type Stats struct {
	EraseRequests  uint64
	ChunksVerified uint64
	WordsWritten   uint64
	SwapAttempts   uint64
}

// flags track outstanding flash work. Each one is set by the polling side
// before the request is issued and cleared either by the completion callback
// (erasing, writing) or by the programmer (chunkWriting).
type flags struct {
	erasing      atomic.Bool
	writing      atomic.Bool
	chunkWriting atomic.Bool
}

func (f *flags) busy() bool {
	return f.erasing.Load() || f.writing.Load() || f.chunkWriting.Load()
}

// chunkCursor exists only while a verified chunk is being programmed
type chunkCursor struct {
	offset int
}

type counters struct {
	erases atomic.Uint64
	chunks atomic.Uint64
	words  atomic.Uint64
	swaps  atomic.Uint64
}

const chunkBufSize = protocol.ChunkFrameSize

const eraseDone = protocol.EraseDoneMarker

// atomicPhase is written by the polling side and, for the Idle to
// PacketReceived edge only, by the receive completion callback
type atomicPhase struct {
	v atomic.Int32
}

func (a *atomicPhase) Load() Phase {
	return Phase(a.v.Load())
}

func (a *atomicPhase) Store(p Phase) {
	a.v.Store(int32(p))
}

func (a *atomicPhase) Swap(p Phase) Phase {
	return Phase(a.v.Swap(int32(p)))
}

func (a *atomicPhase) CompareAndSwap(old, new Phase) bool {
	return a.v.CompareAndSwap(int32(old), int32(new))
}
