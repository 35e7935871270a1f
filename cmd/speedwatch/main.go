package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/banshee-data/speedwatch"
	"github.com/banshee-data/speedwatch/internal/api"
	"github.com/banshee-data/speedwatch/internal/config"
	"github.com/banshee-data/speedwatch/internal/db"
	"github.com/banshee-data/speedwatch/internal/httputil"
	"github.com/banshee-data/speedwatch/internal/lookup"
	"github.com/banshee-data/speedwatch/internal/monitoring"
	"github.com/banshee-data/speedwatch/internal/nearby"
	"github.com/banshee-data/speedwatch/internal/position"
	"github.com/banshee-data/speedwatch/internal/recorder"
	"github.com/banshee-data/speedwatch/internal/serialmux"
	"github.com/banshee-data/speedwatch/internal/tracker"
	"github.com/banshee-data/speedwatch/internal/units"
)

var (
	listen      = flag.String("listen", ":8080", "HTTP listen address")
	grpcListen  = flag.String("grpc-listen", "", "gRPC health listen address (disabled when empty)")
	dbPath      = flag.String("db", "speedwatch.db", "Path to the trips database")
	sourceName  = flag.String("source", "push", "Position source: serial, udp, pcap, replay, push or none")
	port        = flag.String("port", "/dev/ttyUSB0", "Serial port of the GPS receiver")
	baud        = flag.Int("baud", serialmux.DefaultBaudRate, "Serial baud rate")
	udpAddr     = flag.String("udp-addr", ":10110", "UDP address to receive NMEA datagrams on")
	replayFile  = flag.String("replay-file", "", "NMEA file to replay (replay source, or serial in dev mode)")
	pcapFile    = flag.String("pcap-file", "", "Packet capture of NMEA datagrams (requires the pcap build tag)")
	pcapPort    = flag.Int("pcap-port", 10110, "UDP port of NMEA datagrams in the capture")
	configFile  = flag.String("config", "", "Path to a tracker config JSON file (defaults apply when empty)")
	unitsFlag   = flag.String("units", units.KPH, "Display units: "+units.GetValidUnitsString())
	timezone    = flag.String("timezone", "UTC", "Timezone for trip charts")
	devMode     = flag.Bool("dev", false, "Serve static files from ./static and simulate the serial receiver")
	debug       = flag.Bool("debug", false, "Log per-sample diagnostics")
	migrateOnly = flag.Bool("migrate-only", false, "Apply database migrations and exit")
)

// trackerConfig maps the tuning file onto the tracker.
func trackerConfig(c *config.TrackerConfig) tracker.Config {
	return tracker.Config{
		OneShot: position.Options{
			HighAccuracy: c.GetHighAccuracy(),
			Timeout:      c.GetOneShotTimeout(),
		},
		Watch: position.Options{
			HighAccuracy: c.GetHighAccuracy(),
			Timeout:      c.GetWatchTimeout(),
		},
		DefaultLimitKMH: c.GetDefaultSpeedLimitKMH(),
		MapZoom:         c.GetMapZoom(),
		LookupTimeout:   c.GetLookupTimeout(),
	}
}

func loadConfig(path string) (*config.TrackerConfig, error) {
	if path == "" {
		return config.EmptyTrackerConfig(), nil
	}
	return config.LoadTrackerConfig(path)
}

func main() {
	flag.Parse()
	monitoring.SetDebug(*debug)

	if flag.Arg(0) == "migrate" {
		if err := db.RunMigrateCommand(flag.Args()[1:], *dbPath, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !units.IsValid(*unitsFlag) {
		log.Fatalf("Invalid units %q, must be one of: %s", *unitsFlag, units.GetValidUnitsString())
	}
	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		log.Fatalf("Invalid timezone %q: %v", *timezone, err)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	if *migrateOnly {
		log.Printf("migrations applied to %s", store.Path())
		return
	}

	hub := position.NewHub(nil, cfg.GetMaxAccuracyM())
	sources, err := newSource(sourceOptions{
		Name:       *sourceName,
		Port:       *port,
		Baud:       *baud,
		UDPAddr:    *udpAddr,
		ReplayFile: *replayFile,
		PCAPFile:   *pcapFile,
		PCAPPort:   *pcapPort,
		Dev:        *devMode,
	}, hub)
	if err != nil {
		log.Fatalf("Failed to set up position source: %v", err)
	}
	if *sourceName == "none" {
		log.Print("**************************************************************")
		log.Print("* No position source configured: speed tracking is disabled. *")
		log.Print("**************************************************************")
	}
	defer sources.Serial.Close()
	if err := sources.Serial.Initialize(); err != nil {
		log.Fatalf("failed to initialize GPS receiver: %v", err)
	}

	client := httputil.NewTimeoutClient(cfg.GetLookupTimeout())
	nominatim := lookup.NewNominatim(client, cfg.GetNominatimURL(), cfg.GetUserAgent())
	overpass := lookup.NewOverpass(client, cfg.GetOverpassURL(), cfg.GetUserAgent())
	overpass.RadiusM = cfg.GetLimitSearchRadiusM()
	overpass.DefaultLimitKMH = cfg.GetDefaultSpeedLimitKMH()
	overpass.Timeout = cfg.GetLookupTimeout()
	finder := nearby.NewFinder(overpass)
	finder.RadiusM = cfg.GetNearbyRadiusM()
	finder.MaxResults = cfg.GetNearbyMaxResults()

	tr := tracker.New(sources.Source, nominatim, overpass, trackerConfig(cfg))

	trip, err := store.CreateTrip(*sourceName, time.Now())
	if err != nil {
		log.Fatalf("Failed to create trip: %v", err)
	}
	log.Printf("recording trip %s", trip.ID)

	// Subscribe before the tracker starts so the first events are recorded.
	rec := recorder.New(store, trip.ID)
	recID, recEvents := tr.Subscribe()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sources.Serial.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	if sources.Runner != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sources.Runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("position source stopped: %v", err)
			}
			log.Printf("%s source routine terminated", *sourceName)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer tr.Unsubscribe(recID)
		rec.Run(ctx, recEvents)
		log.Print("recorder routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tr.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("tracker stopped: %v", err)
		}
		log.Print("tracker routine terminated")
	}()

	if *grpcListen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := serveHealth(ctx, *grpcListen, tr); err != nil {
				log.Printf("gRPC health server error: %v", err)
			}
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		static, err := speedwatch.StaticFS(*devMode)
		if err != nil {
			log.Printf("failed to load static files: %v", err)
		}

		mux := api.NewServer(api.Config{
			Tracker:  tr,
			DB:       store,
			Finder:   finder,
			Push:     sources.Push,
			Static:   static,
			Source:   *sourceName,
			TripID:   trip.ID,
			Units:    *unitsFlag,
			Timezone: loc,
			// A one-shot fix for navigation waits as long as the tracker's.
			LocateTimeout: cfg.GetOneShotTimeout(),
		}).ServeMux()

		store.AttachAdminRoutes(mux)
		sources.Serial.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// The event streams only end when their clients disconnect, so keep
		// the grace period short.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()

	if err := store.EndTrip(trip.ID, time.Now()); err != nil {
		log.Printf("failed to end trip %s: %v", trip.ID, err)
	}
	log.Printf("Graceful shutdown complete")
}

// serveHealth runs the gRPC health service until ctx is done.
func serveHealth(ctx context.Context, addr string, tr *tracker.Tracker) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	hs := health.NewServer()
	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	go watchHealth(ctx, tr, hs)
	go func() {
		<-ctx.Done()
		hs.Shutdown()
		server.GracefulStop()
	}()

	log.Printf("gRPC health server listening on %s", lis.Addr())
	if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
