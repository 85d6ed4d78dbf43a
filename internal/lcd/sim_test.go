package lcd

import (
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// frame is one bus transfer together with the D/C level seen at the time.
type frame struct {
	data bool
	b    []byte
}

// panelSim is a conn.Conn that decodes the byte stream the way the
// controller does: CASET/RASET latch the window, RAMWR resets the cursor to
// the window origin and every following pair of data bytes writes one
// pixel, wrapping at the window's right edge.
type panelSim struct {
	mu sync.Mutex
	dc *gpiotest.Pin

	maxTx  int
	frames []frame
	cmds   []byte

	cmd    byte
	params []byte

	xs, xe, ys, ye int
	cx, cy         int
	pending        []byte

	ram    [256][256]Color
	writes int
}

func newPanelSim() *panelSim {
	return &panelSim{dc: &gpiotest.Pin{N: "DC", Num: 25}}
}

func (s *panelSim) String() string      { return "panelsim" }
func (s *panelSim) Duplex() conn.Duplex { return conn.Half }

func (s *panelSim) MaxTxSize() int { return s.maxTx }

func (s *panelSim) Tx(w, r []byte) error {
	isData := s.dc.Read() == gpio.High
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame{data: isData, b: append([]byte(nil), w...)})
	for _, b := range w {
		if isData {
			s.dataByte(b)
		} else {
			s.command(b)
		}
	}
	return nil
}

func (s *panelSim) command(b byte) {
	s.cmd = b
	s.params = s.params[:0]
	s.pending = s.pending[:0]
	s.cmds = append(s.cmds, b)
	if b == cmdRAMWR {
		s.cx, s.cy = s.xs, s.ys
	}
}

func (s *panelSim) dataByte(b byte) {
	switch s.cmd {
	case cmdCASET:
		s.params = append(s.params, b)
		if len(s.params) == 4 {
			s.xs = int(s.params[0])<<8 | int(s.params[1])
			s.xe = int(s.params[2])<<8 | int(s.params[3])
		}
	case cmdRASET:
		s.params = append(s.params, b)
		if len(s.params) == 4 {
			s.ys = int(s.params[0])<<8 | int(s.params[1])
			s.ye = int(s.params[2])<<8 | int(s.params[3])
		}
	case cmdRAMWR:
		s.pending = append(s.pending, b)
		if len(s.pending) < 2 {
			return
		}
		c := Color(uint16(s.pending[0])<<8 | uint16(s.pending[1]))
		s.pending = s.pending[:0]
		s.ram[s.cy&0xFF][s.cx&0xFF] = c
		s.writes++
		s.cx++
		if s.cx > s.xe {
			s.cx = s.xs
			s.cy++
		}
	default:
		s.params = append(s.params, b)
	}
}

// lastCmd returns the most recent command byte.
func (s *panelSim) lastCmd() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cmds) == 0 {
		return 0xFF
	}
	return s.cmds[len(s.cmds)-1]
}

func (s *panelSim) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
	s.cmds = nil
	s.writes = 0
}

// wire returns the flattened bytes sent with their D/C tag.
func (s *panelSim) wire() []frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []frame
	for _, f := range s.frames {
		for _, b := range f.b {
			out = append(out, frame{data: f.data, b: []byte{b}})
		}
	}
	return out
}
