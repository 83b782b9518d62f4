package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/antibyte/c64basic/pkg/auth"
	"github.com/antibyte/c64basic/pkg/basic"
	"github.com/antibyte/c64basic/pkg/configuration"
	"github.com/antibyte/c64basic/pkg/console"
	"github.com/antibyte/c64basic/pkg/logger"
	"github.com/antibyte/c64basic/pkg/resources"
	"github.com/antibyte/c64basic/pkg/terminal"
	tlsmanager "github.com/antibyte/c64basic/pkg/tls"
	"github.com/antibyte/c64basic/pkg/virtualfs"
)

const usage = `usage: c64basic [-config FILE] [-v] [command]

commands:
  (none)     interactive BASIC prompt
  serve      WebSocket server for remote terminals
  run FILE   load FILE and run it
`

func main() {
	configPath := flag.String("config", "basic.cfg", "configuration file")
	verbose := flag.Bool("v", false, "debug log of every area to stderr")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	// Initialize configuration (before all other initializations)
	if err := configuration.Initialize(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	if *verbose {
		logger.SetGlobal(logger.NewWriterLogger(os.Stderr, logger.DEBUG))
	}
	logger.ConfigInfo("Configuration loaded from: %s", *configPath)

	var err error
	switch args := flag.Args(); {
	case len(args) == 0:
		err = runREPL()
	case args[0] == "serve" && len(args) == 1:
		err = serve()
	case args[0] == "run" && len(args) == 2:
		err = runFile(args[1])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		logger.Close()
		os.Exit(1)
	}
}

// runREPL is the local prompt. Ctrl-C breaks a running program; a second
// Ctrl-C at the prompt is ignored like on the C64.
func runREPL() error {
	store, err := virtualfs.OpenFromConfig()
	if err != nil {
		return err
	}
	defer store.Close()

	c := console.New(os.Stdin, os.Stdout, store, console.OptionsFromConfig())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			if !c.Interrupt() {
				logger.Debug(logger.AreaConsole, "Interrupt at the prompt ignored")
			}
		}
	}()

	return c.Run(context.Background())
}

// runFile runs one .bas file through a directory store rooted at its folder.
func runFile(path string) error {
	ext := filepath.Ext(path)
	if ext == "" {
		ext = virtualfs.DefaultExtension
	}
	store, err := virtualfs.NewDirStore(filepath.Dir(path), ext)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := console.New(os.Stdin, os.Stdout, store, console.Options{Interp: basic.OptionsFromConfig()})
	interp := out.Interpreter()
	name := strings.TrimSuffix(filepath.Base(path), ext)
	if err := interp.Load(ctx, name); err != nil {
		return err
	}
	err = interp.Run(ctx)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// serve starts the WebSocket server with session management.
func serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stores terminal.StoreFactory
	store, err := virtualfs.OpenFromConfig()
	if err != nil {
		return err
	}
	defer store.Close()
	switch s := store.(type) {
	case *virtualfs.SQLStore:
		stores = func(owner string) basic.Persistence { return s.ForOwner(owner) }
	default:
		// Verzeichnis-Backend: alle Sessions teilen sich die Programme
		logger.Warn(logger.AreaStorage, "Directory backend is shared by all sessions")
		stores = func(string) basic.Persistence { return store }
	}

	sessions := resources.NewSessionManager(resources.LimitsFromConfig())
	go sessions.Run(ctx)

	handler := terminal.NewHandler(sessions, stores, basic.OptionsFromConfig(), terminal.ConfigFromSettings())
	defer handler.Close()

	register := func(id, name string) error {
		_, err := sessions.Register(id, name, "")
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", auth.HandleCreateSession(register))
	mux.HandleFunc("/api/session/validate", auth.HandleTokenValidation)
	mux.HandleFunc("/api/logout", auth.HandleLogout)
	mux.Handle("/ws", auth.RequireSessionToken(handler.ServeHTTP))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			if _, err := os.Stat("index.html"); err == nil {
				http.ServeFile(w, r, "index.html")
				return
			}
		}
		http.NotFound(w, r)
	})

	tlsManager, err := tlsmanager.NewManager(tlsmanager.ConfigFromSettings())
	if err != nil {
		return err
	}
	log.Printf("c64basic server starting (TLS: %v)", tlsManager.IsEnabled())
	return tlsManager.Serve(ctx, mux)
}
