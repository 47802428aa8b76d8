// Command mowersim-server serves mower coverage simulations.
//
// Modes:
//
//	server (default)  REST API under /api, live updates on /ws and MCP tools on /mcp
//	stdio-mcp         MCP over stdin/stdout, backed by a running server or an
//	                  in-process API on a loopback port
//
// Every config in -config-dir is loaded and placed once at boot; files that
// fail are logged with the offending field or area and skipped by sessions.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mowersim/api"
	"github.com/wricardo/mowersim/sim/config"
	"github.com/wricardo/mowersim/sim/engine"
	"github.com/wricardo/mowersim/sim/service"
	"github.com/wricardo/mowersim/sim/session"
	"github.com/wricardo/mowersim/transport/mcp"
	"github.com/wricardo/mowersim/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Mower Coverage Simulator Server"
)

var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", getEnvDefault("CONFIG_DIR", "configs"), "Directory containing simulation configurations")
	sessionsDir  = flag.String("sessions-dir", getEnvDefault("SESSIONS_DIR", "sessions"), "Directory for persisted sessions")
	historyLimit = flag.Int("history-limit", engine.DefaultHistoryLimit, "Tick records kept per session (0 disables history)")
	sessionTTL   = flag.Duration("session-ttl", 24*time.Hour, "Remove sessions not accessed for this long")
	debug        = flag.Bool("debug", false, "Log scheduler transitions and blocked robots")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Expose the server through an ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or NGROK_AUTHTOKEN)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (or NGROK_DOMAIN)")
)

func getEnvDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [server|stdio-mcp]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -config-dir lawns -history-limit 0\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -debug stdio-mcp\n", os.Args[0])
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		return
	}
	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	mode := "server"
	if flag.NArg() > 0 {
		mode = flag.Arg(0)
	}

	bad := checkConfigs(log.Default(), *configDir)
	log.Printf("Starting %s v%s (mode: %s, %d config files rejected)", AppName, Version, mode, bad)

	simService, sessionManager, err := initializeServices()
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer func() {
		if err := sessionManager.SaveAllSessions(); err != nil {
			log.Printf("Warning: Failed to save sessions: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		err = serveStdioMCP(ctx, simService)
	case "server", "http":
		err = serveHTTP(ctx, simService)
	default:
		err = fmt.Errorf("unknown mode %q, use 'server' or 'stdio-mcp'", mode)
	}
	if err != nil {
		log.Printf("Error: %v", err)
	}
}

// engineOptions turns the simulation flags into options shared by new and
// replayed sessions
func engineOptions() []engine.Option {
	opts := []engine.Option{engine.WithHistoryLimit(*historyLimit)}
	if *debug {
		opts = append(opts, engine.WithLogger(log.Default()))
	}
	return opts
}

// checkConfigs places every config in dir with its own seed and logs the
// outcome per file. It returns the number of rejected files.
func checkConfigs(logger *log.Logger, dir string) int {
	checks, err := config.CheckDir(dir)
	if err != nil {
		logger.Printf("Warning: cannot check configs: %v", err)
		return 0
	}
	bad := 0
	for _, c := range checks {
		name := filepath.Base(c.Path)
		var cfgErr *engine.ConfigError
		var perr *engine.PlacementError
		switch {
		case errors.As(c.Err, &cfgErr):
			logger.Printf("Config %s: invalid %s: %s", name, cfgErr.Field, cfgErr.Reason)
		case errors.As(c.Err, &perr):
			logger.Printf("Config %s: area %d cannot be placed (%s) %s", name, perr.AreaID, perr.Kind, perr.Detail)
		case c.Err != nil:
			logger.Printf("Config %s: %v", name, c.Err)
		default:
			logger.Printf("Config %s: %q %dx%d lawn, %d reachable tiles, %d robots x %d cycles",
				name, c.Config.Name, c.Config.Grid.Rows, c.Config.Grid.Cols, c.Reachable, c.Config.Robot.Count, c.Config.Cycles)
			continue
		}
		bad++
	}
	return bad
}

// initializeServices wires the config manager, session persistence and the
// simulation service, and starts session maintenance.
func initializeServices() (service.SimulationService, *session.Manager, error) {
	configManager, err := config.NewManager(*configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	opts := engineOptions()
	persistence, err := session.NewFilePersistence(*sessionsDir, configManager, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session persistence: %w", err)
	}
	sessionManager := session.NewManagerWithPersistence(persistence, opts...)

	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Printf("Warning: Failed to load persisted sessions: %v", err)
	}
	if expired := sessionManager.CleanupExpiredSessions(*sessionTTL); expired > 0 {
		log.Printf("Dropped %d persisted sessions idle for more than %s", expired, *sessionTTL)
	}

	go maintainSessions(sessionManager, persistence, *sessionTTL)
	return service.NewSimulationService(sessionManager, configManager), sessionManager, nil
}

// maintainSessions expires idle sessions hourly and, every few seconds,
// forgets sessions whose file was removed from the sessions directory
func maintainSessions(manager *session.Manager, persistence session.SessionPersistence, ttl time.Duration) {
	expire := time.NewTicker(time.Hour)
	resync := time.NewTicker(5 * time.Second)
	defer expire.Stop()
	defer resync.Stop()

	for {
		select {
		case <-expire.C:
			if n := manager.CleanupExpiredSessions(ttl); n > 0 {
				log.Printf("Cleaned up %d expired sessions", n)
			}
		case <-resync.C:
			for _, sess := range manager.List() {
				if !persistence.Exists(sess.ID) && manager.DeleteFromMemory(sess.ID) == nil {
					log.Printf("Session %s removed (file deleted)", sess.ID)
				}
			}
		}
	}
}

// newHandler mounts the REST API, the websocket hub and the /mcp endpoint
// backed by an MCP client talking to baseURL
func newHandler(simService service.SimulationService, baseURL string) http.Handler {
	hub := websocket.NewHub()
	go hub.Run()

	mux := http.NewServeMux()
	mux.Handle("/", api.NewServer(simService, hub))
	mux.Handle("/mcp", mcpHandler(mcp.NewClient(baseURL).GetMCPServer()))
	return mux
}

// mcpHandler answers one JSON-RPC message per POST
func mcpHandler(s *server.MCPServer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.HandleMessage(r.Context(), body)); err != nil {
			log.Printf("Warning: failed to write MCP response: %v", err)
		}
	})
}

// serveHTTP runs the server until ctx is cancelled
func serveHTTP(ctx context.Context, simService service.SimulationService) error {
	addr := fmt.Sprintf("%s:%d", *host, *port)
	handler := newHandler(simService, "http://"+addr)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Serving simulations on http://%s (api: /api, live: /ws?session=<id>, mcp: /mcp)", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	if *ngrokEnabled || os.Getenv("NGROK_ENABLED") == "true" || os.Getenv("NGROK_ENABLED") == "1" {
		go func() {
			if err := serveNgrok(ctx, handler); err != nil {
				log.Printf("Ngrok: %v", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// serveNgrok exposes handler through a tunnel until ctx is cancelled
func serveNgrok(ctx context.Context, handler http.Handler) error {
	token := *ngrokAuth
	for _, name := range []string{"NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"} {
		if token == "" {
			token = os.Getenv(name)
		}
	}
	if token == "" {
		return errors.New("enabled but no auth token (use -ngrok-auth or NGROK_AUTHTOKEN)")
	}

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}
	tunnel := ngrokConfig.HTTPEndpoint()
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(token))
	if err != nil {
		return fmt.Errorf("failed to start tunnel: %w", err)
	}
	defer tun.Close()
	log.Printf("Ngrok tunnel: %s (api: /api, mcp: /mcp)", tun.URL())

	go func() {
		<-ctx.Done()
		tun.Close()
	}()
	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// apiAvailable reports whether a simulator API answers its health check at baseURL
func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// serveStdioMCP proxies MCP over stdio to the API on -port, or to an
// in-process API on a loopback port when nothing answers there
func serveStdioMCP(ctx context.Context, simService service.SimulationService) error {
	baseURL := fmt.Sprintf("http://localhost:%d", *port)
	if apiAvailable(baseURL) {
		log.Printf("MCP stdio using simulator API at %s", baseURL)
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to open loopback port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()
		internal := &http.Server{Handler: newHandler(simService, baseURL)}
		go func() {
			if err := internal.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer internal.Close()
		log.Printf("MCP stdio using in-process simulator API at %s", baseURL)
	}

	stdio := server.NewStdioServer(mcp.NewClient(baseURL).GetMCPServer())
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}
