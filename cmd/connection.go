// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/Thermoquad/medjc09/internal/config"
	"github.com/Thermoquad/medjc09/pkg/hub"
)

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketConnection carries the hub byte stream over binary WebSocket
// messages. One reader and one writer may use it concurrently.
type WebSocketConnection struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	// If we have buffered data, return it first
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, err
		}

		// The bridge only forwards hub bytes as binary messages
		if messageType != websocket.BinaryMessage {
			continue
		}

		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (*WebSocketConnection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword returns the configured password or prompts for one
func GetPassword(s config.Settings) (string, error) {
	if s.Password != "" {
		return s.Password, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// not a terminal, read a plain line
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens either a serial or WebSocket connection based on settings
func OpenConnection(s config.Settings) (io.ReadWriteCloser, string, error) {
	if s.URL != "" {
		password := ""
		if s.Username != "" {
			var err error
			password, err = GetPassword(s)
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(s.URL, s.Username, password, s.NoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", s.URL), nil
	}

	port, err := hub.OpenSerial(s.Port, s.Baud, hub.DefaultReadTimeout)
	if err != nil {
		return nil, "", err
	}
	return port, fmt.Sprintf("Serial: %s @ %d baud", s.Port, s.Baud), nil
}

// loadSettings resolves and validates connection settings
func loadSettings() (config.Settings, error) {
	return config.Load(viper.GetViper())
}

// openHub connects and starts the request engine
func openHub() (*hub.Hub, string, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, "", err
	}

	conn, connInfo, err := OpenConnection(s)
	if err != nil {
		return nil, "", err
	}

	cfg := hub.DefaultConfig()
	cfg.RequestTimeout = s.Timeout
	cfg.Logger = logger

	logger.Debug().Str("connection", connInfo).Dur("timeout", s.Timeout).Msg("hub opened")
	return hub.New(conn, cfg), connInfo, nil
}
