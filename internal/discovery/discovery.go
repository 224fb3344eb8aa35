package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"
)

const DiscoveryMsg = "DISCOVER_SVSP_UPLOAD"

var ErrNotFound = errors.New("no upload server answered")

// Responder answers discovery requests with the upload URL it advertises.
type Responder struct {
	conn      *net.UDPConn
	advertise string
	logger    *log.Logger
}

// NewResponder binds addr (for example ":9999").
func NewResponder(addr, advertise string, logger *log.Logger) (*Responder, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Responder{conn: conn, advertise: advertise, logger: logger}, nil
}

// Addr is the bound UDP address.
func (r *Responder) Addr() net.Addr { return r.conn.LocalAddr() }

// Serve answers discovery requests until ctx is cancelled.
func (r *Responder) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		r.conn.Close()
	}()

	r.logger.Printf("Discovery responder listening on UDP %s", r.conn.LocalAddr())

	buf := make([]byte, 1024)
	for {
		n, remoteAddr, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			r.logger.Printf("Error reading UDP: %v", err)
			continue
		}

		if string(buf[:n]) != DiscoveryMsg {
			continue
		}
		r.logger.Printf("Received discovery request from %s", remoteAddr)
		if _, err := r.conn.WriteToUDP([]byte(r.advertise), remoteAddr); err != nil {
			r.logger.Printf("Error sending discovery response: %v", err)
		}
	}
}

// BroadcastTarget turns a listen address such as ":9999" into the IPv4
// broadcast address on the same port.
func BroadcastTarget(addr string) (string, error) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort("255.255.255.255", port), nil
}

// FindServer sends a discovery request to target and returns the advertised upload URL.
// If the broadcast cannot be sent it retries on localhost.
func FindServer(ctx context.Context, target string, timeout time.Duration) (string, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return "", fmt.Errorf("listen for discovery response: %w", err)
	}
	defer conn.Close()

	dst, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", target, err)
	}

	msg := []byte(DiscoveryMsg)
	if _, err := conn.WriteTo(msg, dst); err != nil {
		log.Printf("Broadcast failed (%v), trying localhost...", err)
		local := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: dst.Port}
		if _, err := conn.WriteTo(msg, local); err != nil {
			return "", fmt.Errorf("send discovery request: %w", err)
		}
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)

	buf := make([]byte, 1024)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read discovery response: %w", err)
	}

	url := strings.TrimSpace(string(buf[:n]))
	if url == "" {
		return "", ErrNotFound
	}
	return url, nil
}
