package smc100

import (
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.bug.st/serial"
	"go.uber.org/atomic"
	"k8s.io/klog/v2"
)

const (
	terminator         = "\r\n"
	writeRetryInterval = 200 * time.Millisecond
	defaultReadTimeout = 2 * time.Second
)

// Port is the byte transport underneath a Link. go.bug.st/serial.Port
// satisfies it; tests substitute an in-memory bus simulator.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// OpenSerial returns a Port opener for one physical serial port. DTR is
// cleared after open, matching the controller wiring.
func OpenSerial(location string, mode *serial.Mode) func() (Port, error) {
	return func() (Port, error) {
		port, err := serial.Open(location, mode)
		if err != nil {
			klog.V(2).InfoS("Failed to open serial port", "location", location, "err", err)
			return nil, err
		}
		if err := port.SetDTR(false); err != nil {
			_ = port.Close()
			return nil, err
		}
		return port, nil
	}
}

// Link owns the serial transport of one SMC100 daisy chain. The bus is
// half-duplex and replies carry no sender tag, so a single mutex serializes
// one full write+read transaction at a time across every controller sharing
// the link.
type Link struct {
	mu        sync.Mutex
	open      func() (Port, error)
	port      Port
	connected *atomic.Bool

	readTimeout time.Duration

	// MaxWriteRetries bounds the write retry loop; 0 retries forever, the
	// historical policy for this low-traffic control bus.
	MaxWriteRetries int
}

func NewLink(open func() (Port, error)) *Link {
	return &Link{
		open:        open,
		connected:   atomic.NewBool(false),
		readTimeout: defaultReadTimeout,
	}
}

// Connect opens the transport. Calling Connect on a connected link is a
// no-op.
func (l *Link) Connect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port != nil {
		return nil
	}
	port, err := l.open()
	if err != nil {
		return &ConnectionError{Op: "open", Err: err}
	}
	if err := port.SetReadTimeout(l.readTimeout); err != nil {
		_ = port.Close()
		return &ConnectionError{Op: "open", Err: err}
	}
	l.port = port
	l.connected.Store(true)
	return nil
}

// Disconnect closes the transport. Idempotent.
func (l *Link) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	l.connected.Store(false)
	if err != nil {
		return &ConnectionError{Op: "close", Err: err}
	}
	return nil
}

func (l *Link) IsConnected() bool {
	return l.connected.Load()
}

// ReadTimeout returns the currently applied read timeout.
func (l *Link) ReadTimeout() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readTimeout
}

// SetReadTimeout applies a new read timeout to the transport. The state
// driver lowers it around a controller reset so the reboot gap is detected
// quickly, then restores it.
func (l *Link) SetReadTimeout(t time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readTimeout = t
	if l.port == nil {
		return nil
	}
	return l.port.SetReadTimeout(t)
}

// RawWrite frames command with CR-LF and writes it as ASCII. A transport
// timeout is retried after a fixed backoff; any other error is surfaced.
// RawWrite takes no lock itself, callers hold the link mutex via Transact.
func (l *Link) RawWrite(command string) error {
	frame := append(encodeASCII(command), terminator...)
	attempts := 0
	for {
		_, err := l.port.Write(frame)
		if err == nil {
			return nil
		}
		if !isTimeout(err) {
			return err
		}
		attempts++
		if l.MaxWriteRetries > 0 && attempts > l.MaxWriteRetries {
			return err
		}
		klog.V(4).InfoS("Serial write timed out, retrying", "command", command, "attempts", attempts)
		time.Sleep(writeRetryInterval)
	}
}

// RawReadLine reads one CR-LF terminated line and returns it without the
// terminator. A zero-byte read means the port read timeout elapsed.
func (l *Link) RawReadLine() ([]byte, error) {
	var line []byte
	buf := make([]byte, 1)
	for {
		n, err := l.port.Read(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrReadTimeout
		}
		if buf[0] == '\n' {
			break
		}
		line = append(line, buf[0])
	}
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, nil
}

// Transact performs one exclusive exchange on the bus: optional error-channel
// check, write, optional re-check, and, for query commands (trailing '?'),
// one reply line decoded as ASCII with U+FFFD substituted for undecodable
// bytes. Reply echo stripping is the caller's concern; the link does not
// parse replies.
func (l *Link) Transact(command string, checkError bool) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port == nil {
		return "", &ConnectionError{Op: "transact"}
	}
	return l.transact(command, checkError)
}

func (l *Link) transact(command string, checkError bool) (string, error) {
	if checkError {
		if err := l.checkLastError(); err != nil {
			return "", err
		}
	}
	if err := l.RawWrite(command); err != nil {
		return "", err
	}
	if checkError {
		if err := l.checkLastError(); err != nil {
			return "", err
		}
	}
	if !strings.HasSuffix(command, "?") {
		// Set commands produce no reply line on this bus.
		return "", nil
	}
	raw, err := l.RawReadLine()
	if err != nil {
		return "", err
	}
	return decodeASCII(raw), nil
}

// ReadLastError queries the link owner's TB error channel. The reply value is
// <code><description> with code '0' meaning no fault.
func (l *Link) ReadLastError() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port == nil {
		return "", &ConnectionError{Op: "transact"}
	}
	return l.readLastError()
}

func (l *Link) readLastError() (string, error) {
	if err := l.RawWrite("TB?"); err != nil {
		return "", err
	}
	raw, err := l.RawReadLine()
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(decodeASCII(raw), "TB"), nil
}

func (l *Link) checkLastError() error {
	value, err := l.readLastError()
	if err != nil {
		return err
	}
	if len(value) == 0 || value[0] == '0' {
		return nil
	}
	return &DeviceError{Code: value[:1], Description: strings.TrimSpace(value[1:])}
}

func encodeASCII(s string) []byte {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 127 {
			r = '?'
		}
		b = append(b, byte(r))
	}
	return b
}

func decodeASCII(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c > 127 {
			sb.WriteRune(utf8.RuneError)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
