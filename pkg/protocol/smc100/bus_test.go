package smc100

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// busPort is an in-memory serial port scripted by a command handler. Writes
// are framed commands; the handler's reply, if any, is queued for the next
// reads. An empty read queue reads as n == 0, the transport's timeout shape.
type busPort struct {
	mu       sync.Mutex
	handler  func(cmd string) (string, bool)
	writes   []string
	attempts int
	writeErr []error
	pending  []byte
	closed   bool
	timeouts []time.Duration
}

func (p *busPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if len(p.writeErr) > 0 {
		err := p.writeErr[0]
		p.writeErr = p.writeErr[1:]
		if err != nil {
			return 0, err
		}
	}
	cmd := strings.TrimSuffix(string(b), terminator)
	p.writes = append(p.writes, cmd)
	if p.handler != nil {
		if reply, ok := p.handler(cmd); ok {
			p.pending = append(p.pending, reply+terminator...)
		}
	}
	return len(b), nil
}

func (p *busPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		return 0, nil
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *busPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *busPort) SetReadTimeout(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeouts = append(p.timeouts, d)
	return nil
}

func (p *busPort) commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.writes))
	copy(out, p.writes)
	return out
}

func (p *busPort) inject(raw []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, raw...)
}

func newTestLink(handler func(cmd string) (string, bool)) (*Link, *busPort) {
	port := &busPort{handler: handler}
	link := NewLink(func() (Port, error) { return port, nil })
	if err := link.Connect(); err != nil {
		panic(err)
	}
	return link, port
}

// axisSim models one controller on the chain: positions, travel limits, the
// TS status word and the state transitions triggered by set commands.
type axisSim struct {
	mu          sync.Mutex
	prefix      string
	state       string
	pos         float64
	min         float64
	max         float64
	vel         float64
	enabled     bool
	autoCheck   bool
	home        string
	homingReads int
	lastError   string
}

func newAxisSim(prefix string) *axisSim {
	return &axisSim{
		prefix:    prefix,
		state:     "32",
		min:       -5,
		max:       25,
		vel:       1.5,
		enabled:   true,
		home:      "1",
		lastError: "0 No error",
	}
}

func (s *axisSim) handle(cmd string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cmd == "TB?" {
		return "TB" + s.lastError, true
	}
	if !strings.HasPrefix(cmd, s.prefix) {
		return "", false
	}
	op := cmd[len(s.prefix):]
	echo := strings.TrimSuffix(cmd, "?")
	switch {
	case op == "TS?":
		code := s.state
		if s.homingReads > 0 {
			s.homingReads--
			code = "1E"
		}
		return echo + "0000" + code, true
	case op == "TP?":
		return echo + strconv.FormatFloat(s.pos, 'f', -1, 64), true
	case op == "SL?":
		return echo + strconv.FormatFloat(s.min, 'f', -1, 64), true
	case op == "SR?":
		return echo + strconv.FormatFloat(s.max, 'f', -1, 64), true
	case op == "VA?":
		return echo + strconv.FormatFloat(s.vel, 'f', -1, 64), true
	case op == "MM?":
		if s.enabled {
			return echo + "1", true
		}
		return echo + "0", true
	case op == "HT?":
		return echo + s.home, true
	case op == "ID?":
		return echo + "URS100BCC", true
	case op == "VE?":
		return echo + "SMC100CC 3.0.5", true
	case op == "ZX2?":
		return echo + "1", true
	case op == "ZX?":
		return echo + "URS100BCC", true
	case op == "ZX3":
		s.autoCheck = true
	case op == "ZX1":
		s.autoCheck = false
	case strings.HasPrefix(op, "PA"):
		s.pos, _ = strconv.ParseFloat(op[2:], 64)
	case op == "MM1":
		s.enabled = true
		if strings.HasPrefix(s.state, "3") {
			s.state = "32"
		}
	case op == "MM0":
		s.enabled = false
		s.state = "3C"
	case op == "OR":
		s.homingReads = 2
		s.state = "32"
	case op == "RS":
		s.state = "0A"
	case op == "PW1":
		s.state = "14"
	case op == "PW0":
		s.state = "0A"
	case strings.HasPrefix(op, "HT"):
		s.home = op[2:]
	case op == "ST":
	}
	return "", false
}

func (s *axisSim) setState(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = code
}

func (s *axisSim) setHome(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.home = value
}

func (s *axisSim) setLastError(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = value
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "write timeout" }
func (timeoutErr) Timeout() bool { return true }
