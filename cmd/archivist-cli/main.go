package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"

	"archivist/internal/config"
	"archivist/internal/diagnose"
	"archivist/internal/importer"
	"archivist/internal/logger"
	"archivist/internal/shell"
	"archivist/internal/storage/sqlite"
)

const historyFile = ".archivist_history"

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  archivist-cli import <dir>")
	fmt.Fprintln(os.Stderr, "  archivist-cli shell [url]")
	fmt.Fprintln(os.Stderr, "  archivist-cli diagnose [url] [health-addr]")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Get()
	closer, err := logger.Setup(cfg.Log)
	if err != nil {
		logrus.Fatalf("failed to set up logging: %v", err)
	}
	defer closer.Close()

	switch os.Args[1] {
	case "import":
		if len(os.Args) != 3 {
			usage()
			os.Exit(2)
		}
		runImport(cfg, os.Args[2])
	case "shell":
		url := "http://" + cfg.Server.Address()
		if len(os.Args) > 2 {
			url = os.Args[2]
		}
		runShell(url)
	case "diagnose":
		url, addr := "http://"+cfg.Server.Address(), cfg.Health.Address()
		if len(os.Args) > 2 {
			url = os.Args[2]
		}
		if len(os.Args) > 3 {
			addr = os.Args[3]
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		ok := diagnose.Run(ctx, os.Stdout, url, addr)
		cancel()
		if !ok {
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func runImport(cfg *config.Config, dir string) {
	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := importer.New(store, cfg.Import, cfg.Metadata).Run(ctx, dir)
	if err != nil {
		logrus.Errorf("import interrupted: %v", err)
	}
	fmt.Printf("Imported %d archives, %d failed.\n", report.Imported, report.Failed)
	for path, ferr := range report.Failures {
		fmt.Printf("  %s: %v\n", path, ferr)
	}
}

func runShell(url string) {
	client := shell.NewClient(url)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Printf("Archivist shell on %s\n", url)
	fmt.Println("Type a query with optional page:N sort:X order:Y, or `archive <id>`. `exit` quits.")
	for {
		input, err := line.Prompt("archivist> ")
		if err != nil {
			// io.EOF on ^D, liner.ErrPromptAborted on ^C
			fmt.Println()
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return
		}
		line.AppendHistory(input)

		if err := shell.Execute(context.Background(), client, os.Stdout, input); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}
