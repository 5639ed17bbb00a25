package retry

import (
	"net"
	"testing"
	"time"
)

func TestDialMonitorReportsOnlineAgainstALiveListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	m := NewDialMonitor(ln.Addr().String(), time.Second, time.Hour)
	m.Start()
	defer m.Stop()

	time.Sleep(50 * time.Millisecond)
	if !m.Online() {
		t.Error("Online() = false, want true against a live listener")
	}
}

func TestDialMonitorSubscribeReceivesTransition(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close() // nothing listening from here on

	m := NewDialMonitor(addr, 100*time.Millisecond, 20*time.Millisecond)
	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()

	m.Start()
	defer m.Stop()

	select {
	case online := <-ch:
		if online {
			t.Error("got online=true transition, want false (nothing is listening)")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("never observed an offline transition")
	}
}
