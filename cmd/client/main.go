package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"svsp-upload/internal/client"
	"svsp-upload/internal/config"
	"svsp-upload/internal/discovery"
	"svsp-upload/internal/protocol"
	"svsp-upload/internal/ui"
	"svsp-upload/internal/upload"
)

const usage = "Usage: client -file [filename] [-server URL] [-config file.yaml] [-discover]"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run uploads the file named by args and returns the process exit code:
// 0 when the form ends in success, 1 otherwise.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	logger := log.New(stderr, "", log.LstdFlags)

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(stderr)
	filename := fs.String("file", "", "File to upload")
	server := fs.String("server", "", "Upload server base URL (overrides UPLOAD_SERVER_URL)")
	configPath := fs.String("config", "", "Optional YAML config file")
	discover := fs.Bool("discover", false, "Find the upload server on the local network")
	plain := fs.Bool("plain", false, "Disable coloured output")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Printf("Error loading configuration: %v", err)
		return 1
	}
	if *server != "" {
		cfg.ServerURL = strings.TrimRight(*server, "/")
		cfg.ServerURLConfigured = true
	}

	poster, err := newPoster(ctx, cfg, wantsDiscovery(cfg, *discover), stdout, logger)
	if err != nil {
		logger.Printf("Error preparing upload: %v", err)
		return 1
	}

	form := upload.NewForm(poster, logger)
	form.OnChange(ui.NewPrinter(stdout, *plain).Print)

	if *filename != "" {
		file, err := upload.FromPath(*filename)
		if err != nil {
			logger.Printf("Error selecting file: %v", err)
			return 1
		}
		logChecksum(file, logger)
		form.Select(file)
	}

	if err := <-form.SubmitAsync(ctx); err != nil {
		if errors.Is(err, upload.ErrNoFile) {
			fmt.Fprintln(stderr, usage)
		}
		return 1
	}
	return 0
}

// wantsDiscovery reports whether the server should be looked up on the LAN:
// only when discovery is requested and no server URL was configured.
func wantsDiscovery(cfg *config.Config, flagged bool) bool {
	return !cfg.ServerURLConfigured && (flagged || cfg.Discovery.Enabled)
}

func newPoster(ctx context.Context, cfg *config.Config, discover bool, stdout io.Writer, logger *log.Logger) (*client.Client, error) {
	c, err := client.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if !discover {
		return c, nil
	}

	target, err := discovery.BroadcastTarget(cfg.Discovery.Addr)
	if err != nil {
		return nil, fmt.Errorf("discovery address: %w", err)
	}
	fmt.Fprintln(stdout, "Broadcasting for upload servers...")
	url, err := discovery.FindServer(ctx, target, cfg.Discovery.Timeout)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(stdout, "Found upload server at %s\n", url)
	return c.WithURL(url), nil
}

func logChecksum(file *upload.File, logger *log.Logger) {
	rc, err := file.Open()
	if err != nil {
		return
	}
	defer rc.Close()
	sum, err := protocol.ComputeChecksum(rc)
	if err != nil {
		logger.Printf("Error computing checksum: %v", err)
		return
	}
	logger.Printf("Selected %s (%d bytes, sha256 %x)", file.Name, file.Size, sum)
}
