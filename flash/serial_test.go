package flash

import (
	"errors"
	"net"
	"testing"
	"time"
)

func pipePorts(t *testing.T) (*Port, *Port) {
	t.Helper()
	a, b := net.Pipe()
	pa, pb := NewPort(a), NewPort(b)
	t.Cleanup(func() {
		pa.Close()
		pb.Close()
	})
	return pa, pb
}

func TestPortReadN(t *testing.T) {
	a, b := pipePorts(t)

	go a.Write([]byte{1, 2}, []byte{3, 4, 5})

	bs, err := b.ReadN(5, time.Second)
	if err != nil {
		t.Fatalf("ReadN() error = %v", err)
	}
	if string(bs) != string([]byte{1, 2, 3, 4, 5}) {
		t.Errorf("ReadN() = %x", bs)
	}
}

func TestPortReadNTimeout(t *testing.T) {
	a, b := pipePorts(t)

	go a.Write([]byte{1})

	start := time.Now()
	if _, err := b.ReadN(3, 50*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("ReadN() error = %v, want ErrTimeout", err)
	}
	// the deadline covers the whole read, not each byte
	if el := time.Since(start); el > time.Second {
		t.Errorf("ReadN() took %s", el)
	}
}

func TestPortReadUntil(t *testing.T) {
	a, b := pipePorts(t)

	go a.Write([]byte("boot v1.2\r\nS"), []byte{0x42})

	if err := b.ReadUntil('S', time.Second); err != nil {
		t.Fatalf("ReadUntil() error = %v", err)
	}
	bs, err := b.ReadN(1, time.Second)
	if err != nil || bs[0] != 0x42 {
		t.Errorf("byte after marker = %x, %v", bs, err)
	}
}

func TestPortClosed(t *testing.T) {
	a, b := pipePorts(t)
	a.Close()

	if _, err := b.ReadN(1, time.Second); !errors.Is(err, ErrClosed) {
		t.Fatalf("ReadN() error = %v, want ErrClosed", err)
	}
	if b.IsOpen() {
		t.Error("IsOpen() = true after the peer closed")
	}
}
