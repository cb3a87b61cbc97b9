package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Aditya4503/YATRIK/internal/gps"
	"github.com/Aditya4503/YATRIK/internal/quest"
	"github.com/Aditya4503/YATRIK/internal/server"
	"github.com/Aditya4503/YATRIK/internal/story"
	"github.com/Aditya4503/YATRIK/web"
)

func main() {
	configPath := flag.String("config", "/etc/yatrik/config.yaml", "Path to config file")
	demo := flag.Bool("demo", false, "Simulate a visitor walking between the checkpoints")
	listenAddr := flag.String("listen", "", "Override listen address (e.g. :8080)")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] yatrik starting")

	cfg := server.LoadConfig(*configPath)

	if *demo {
		cfg.Location.Type = "demo"
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[main] received %v, shutting down", sig)
		cancel()
	}()

	seed := loadSeed(cfg.Quest.CheckpointsFile)

	// Position source: browsers push their own unless a device GPS is set.
	var provider gps.Provider
	switch cfg.Location.Type {
	case "nmea":
		provider = gps.NewNMEA(gps.NMEAConfig{
			PortPath: cfg.Location.PortPath,
			BaudRate: cfg.Location.BaudRate,
		})
	case "demo":
		provider = gps.NewDemoProvider(quest.Route(seed))
	case "browser", "":
		provider = nil
	default:
		log.Printf("[main] unknown location type %q, using browser", cfg.Location.Type)
	}
	if provider != nil {
		log.Printf("[main] position source: %s", provider.Name())
	} else {
		log.Printf("[main] position source: browser geolocation")
	}

	srv := server.New(cfg, seed, provider, story.Builtin(), web.FS)
	if err := srv.Run(ctx); err != nil {
		log.Printf("[main] server exited: %v", err)
	}
}

// loadSeed reads the checkpoint file, falling back to the built-in seed.
func loadSeed(path string) []quest.Checkpoint {
	if path == "" {
		return quest.DefaultCheckpoints()
	}
	cps, err := quest.LoadCheckpoints(path)
	if err != nil {
		log.Printf("[main] %v, using built-in checkpoints", err)
		return quest.DefaultCheckpoints()
	}
	log.Printf("[main] loaded %d checkpoints from %s", len(cps), path)
	return cps
}
