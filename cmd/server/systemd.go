package main

import (
	"fmt"
	"net"
	"os"
)

// notifySystemd sends READY=1 when started by systemd with Type=notify.
func notifySystemd() error {
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return nil
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		conn.Close()
		return fmt.Errorf("systemd notify failed: write failed: %w", err)
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify failed: close failed: %w", err)
	}
	return nil
}
