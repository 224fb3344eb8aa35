package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"svsp-upload/internal/client"
	"svsp-upload/internal/config"
	"svsp-upload/internal/discovery"
	"svsp-upload/internal/security"
	"svsp-upload/web/handler"
)

// GetLocalIP returns the non-loopback local IP of the host
func GetLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return ""
}

func main() {
	configPath := flag.String("config", "", "Optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	poster, err := client.New(cfg, log.Default())
	if err != nil {
		log.Fatalf("Error creating upload client: %v", err)
	}

	h, err := handler.New(poster, log.Default())
	if err != nil {
		log.Fatal(err)
	}

	// No write timeout: uploads may take as long as the upstream needs.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.GatewayTLS {
		tlsConfig, err := security.GenerateTLSConfig()
		if err != nil {
			log.Fatalf("Error generating TLS certificate: %v", err)
		}
		srv.TLSConfig = tlsConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, srv, cfg); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, srv *http.Server, cfg *config.Config) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return fmt.Errorf("gateway listen: %w", err)
		}
		if srv.TLSConfig != nil {
			ln = tls.NewListener(ln, srv.TLSConfig)
		}

		scheme := "http"
		if srv.TLSConfig != nil {
			scheme = "https"
		}
		log.Printf("Web gateway started at %s://%s:%s, forwarding to %s", scheme, GetLocalIP(), cfg.Port, cfg.UploadURL())

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("gateway shutdown error: %v", err)
		}
		return nil
	})

	if cfg.Discovery.Enabled {
		responder, err := discovery.NewResponder(cfg.Discovery.Addr, cfg.UploadURL(), log.Default())
		if err != nil {
			// Discovery is optional; the gateway keeps serving without it.
			log.Printf("Warning: UDP discovery disabled: %v", err)
		} else {
			g.Go(func() error { return responder.Serve(ctx) })
		}
	}

	return g.Wait()
}
