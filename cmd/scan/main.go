// Command scan runs the camera QR loop from a terminal: it polls the
// webcam, decodes card links, saves hits to the local album file and
// notifies the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kvistad/russekort/internal/album"
	"github.com/kvistad/russekort/internal/config"
	"github.com/kvistad/russekort/internal/deeplink"
	"github.com/kvistad/russekort/internal/logging"
	"github.com/kvistad/russekort/internal/scan"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Scan error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	device := flag.Int("device", cfg.Scan.Device, "camera device index")
	apiBase := flag.String("api", "http://localhost:8080", "russekort API base URL")
	albumDir := flag.String("album-dir", defaultAlbumDir(), "directory for the local album file")
	interval := flag.Duration("interval", cfg.Scan.Interval, "poll interval between frames")
	once := flag.Bool("once", false, "exit after the first detection")
	flag.Parse()

	resolver := deeplink.NewResolver(cfg.App.PublicBaseURL)
	store := album.NewFileStore(*albumDir)
	client := newAPIClient(*apiBase)
	localAlbum := album.New(store, client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	controller := &scan.Controller{}
	defer controller.Stop()

	logging.Info("Scanning for cards", map[string]interface{}{
		"device":   *device,
		"interval": interval.String(),
	})

	for {
		camera, err := scan.OpenCamera(*device)
		if err != nil {
			return err
		}

		session, err := controller.Start(ctx, camera, scan.NewQRDetector(), *interval)
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case detection := <-session.Result():
			handleDetection(ctx, detection, resolver, localAlbum, client)
			if *once {
				return nil
			}
		}

		// The session released the camera on detection; brief pause so
		// the same code is not re-read immediately.
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func handleDetection(ctx context.Context, detection scan.Detection, resolver deeplink.Resolver, localAlbum *album.Album, client *apiClient) {
	id, ok := deeplink.MatchPayload(detection.Payload)
	if !ok {
		logging.Info("Scanned code is not a card link", map[string]interface{}{
			"payload": detection.Payload,
		})
		return
	}

	if err := localAlbum.Add(ctx, id); err != nil {
		logging.Warn("Saving to album failed", map[string]interface{}{"error": err.Error()})
	}

	// Scan counting is best effort; the card is in the album either way.
	go func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.RecordScan(reqCtx, id); err != nil {
			logging.Warn("Recording scan failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	nav := resolver.Open(id)
	if nav.External {
		fmt.Printf("Card %s: open %s\n", id, nav.URL)
	} else {
		fmt.Printf("Card %s: view at %s\n", id, nav.Path)
	}
}

func defaultAlbumDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/russekort"
	}
	return "."
}
