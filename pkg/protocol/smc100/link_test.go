package smc100

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkConnectIdempotent(t *testing.T) {
	opened := 0
	port := &busPort{}
	link := NewLink(func() (Port, error) {
		opened++
		return port, nil
	})

	require.NoError(t, link.Connect())
	require.NoError(t, link.Connect())
	assert.Equal(t, 1, opened)

	require.NoError(t, link.Disconnect())
	require.NoError(t, link.Disconnect())
	assert.True(t, port.closed)
}

func TestLinkConnectFailure(t *testing.T) {
	link := NewLink(func() (Port, error) {
		return nil, errors.New("no such device")
	})

	err := link.Connect()
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "open", connErr.Op)
}

func TestTransactNotConnected(t *testing.T) {
	link := NewLink(func() (Port, error) { return &busPort{}, nil })

	_, err := link.Transact("TS?", false)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestTransactSetCommandHasNoReply(t *testing.T) {
	sim := newAxisSim("")
	link, port := newTestLink(sim.handle)

	reply, err := link.Transact("PA1.5", false)
	require.NoError(t, err)
	assert.Empty(t, reply)
	assert.Equal(t, []string{"PA1.5"}, port.commands())
}

func TestTransactQueryReadsReply(t *testing.T) {
	sim := newAxisSim("")
	sim.pos = 7.25
	link, port := newTestLink(sim.handle)

	reply, err := link.Transact("TP?", false)
	require.NoError(t, err)
	assert.Equal(t, "TP7.25", reply)
	assert.Equal(t, []string{"TP?"}, port.commands())
}

func TestTransactQueryTimesOut(t *testing.T) {
	link, _ := newTestLink(nil)

	_, err := link.Transact("TP?", false)
	assert.ErrorIs(t, err, ErrReadTimeout)
}

func TestTransactChecksErrorBufferBeforeWrite(t *testing.T) {
	sim := newAxisSim("")
	sim.setLastError("A Unknown message code")
	link, port := newTestLink(sim.handle)

	_, err := link.Transact("PA1", true)
	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, "A", devErr.Code)
	assert.Equal(t, "Unknown message code", devErr.Description)
	// The stale error aborts the transaction before the command hits the wire.
	assert.Equal(t, []string{"TB?"}, port.commands())
}

func TestTransactChecksErrorBufferAfterWrite(t *testing.T) {
	sim := newAxisSim("")
	armed := false
	link, port := newTestLink(func(cmd string) (string, bool) {
		if cmd == "TB?" && armed {
			return "TBC Parameter missing or out of range", true
		}
		armed = true
		return sim.handle(cmd)
	})

	_, err := link.Transact("PA999", true)
	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, "C", devErr.Code)
	assert.Equal(t, []string{"TB?", "PA999", "TB?"}, port.commands())
}

func TestRawWriteRetriesOnTimeout(t *testing.T) {
	sim := newAxisSim("")
	link, port := newTestLink(sim.handle)
	port.writeErr = []error{timeoutErr{}, timeoutErr{}, nil}

	require.NoError(t, link.RawWrite("ST"))
	assert.Equal(t, 3, port.attempts)
	assert.Equal(t, []string{"ST"}, port.commands())
}

func TestRawWriteRetriesExhausted(t *testing.T) {
	link, port := newTestLink(nil)
	link.MaxWriteRetries = 1
	port.writeErr = []error{timeoutErr{}, timeoutErr{}, timeoutErr{}}

	err := link.RawWrite("ST")
	require.Error(t, err)
	assert.Equal(t, 2, port.attempts)
}

func TestRawWriteNonTimeoutErrorIsFatal(t *testing.T) {
	link, port := newTestLink(nil)
	port.writeErr = []error{errors.New("device unplugged")}

	err := link.RawWrite("ST")
	require.Error(t, err)
	assert.Equal(t, 1, port.attempts)
}

func TestRawReadLineReplacesNonASCII(t *testing.T) {
	link, port := newTestLink(nil)
	port.inject([]byte{'T', 'P', 0xFE, '1', '\r', '\n'})

	line, err := link.RawReadLine()
	require.NoError(t, err)
	assert.Equal(t, []byte{'T', 'P', 0xFE, '1'}, line)
	assert.Equal(t, "TP�1", decodeASCII(line))
}

func TestTransactSerializesConcurrentCallers(t *testing.T) {
	sim := newAxisSim("")
	link, _ := newTestLink(sim.handle)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value := float64(i)
			if _, err := link.Transact(fmt.Sprintf("PA%g", value), false); err != nil {
				errs <- err
				return
			}
			reply, err := link.Transact("TP?", false)
			if err != nil {
				errs <- err
				return
			}
			// Interleaved transactions would surface as a mangled echo.
			if len(reply) < 2 || reply[:2] != "TP" {
				errs <- fmt.Errorf("unexpected reply %q", reply)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestEncodeASCIIReplacesNonASCII(t *testing.T) {
	assert.Equal(t, []byte("PA?"), encodeASCII("PAé"))
}
