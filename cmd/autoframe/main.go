package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/autoframe/internal/app"
	"github.com/ayusman/autoframe/internal/config"
	"github.com/ayusman/autoframe/internal/log"
	"github.com/ayusman/autoframe/internal/orchestrator"
	"github.com/ayusman/autoframe/internal/tray"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "autoframe:", err)
		os.Exit(1)
	}
}

func run() error {
	defaults := config.Default()

	settingsPath := flag.String("config", filepath.Join(defaults.DataDir, "settings.json"), "settings file")
	dataDir := flag.String("data", "", "data directory (database, captures, hooks)")
	listen := flag.String("listen", "", "HTTP listen address, \"off\" disables the server")
	cameraID := flag.Int("camera", -1, "camera device id")
	imuPort := flag.String("imu", "", "IMU serial port; \"-\" reads samples from stdin")
	engine := flag.String("engine", "", "recommendation engine: heuristic, random, smartcrop, face or subprocess")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn or error")
	logFile := flag.String("log-file", "", "rotating log file instead of stdout")
	withTray := flag.Bool("tray", false, "show the system tray menu")
	writeConfig := flag.Bool("write-config", false, "write the effective settings to -config and exit")
	flag.Parse()

	settings, err := config.Load(*settingsPath)
	if err != nil {
		return err
	}

	if *dataDir != "" {
		settings.DataDir = *dataDir
	}
	switch *listen {
	case "":
	case "off":
		settings.Listen = ""
	default:
		settings.Listen = *listen
	}
	if *cameraID >= 0 {
		settings.Camera.ID = *cameraID
	}
	switch *imuPort {
	case "":
	case "-":
		settings.IMU.Source = config.IMUStdin
	default:
		settings.IMU.Source = config.IMUSerial
		settings.IMU.Port = *imuPort
	}
	if *engine != "" {
		settings.Engine.Kind = *engine
	}
	if *logLevel != "" {
		settings.Log.Level = *logLevel
	}
	if *logFile != "" {
		settings.Log.File = *logFile
	}
	if *withTray {
		settings.Tray = true
	}
	if settings.WebDir == "" {
		settings.WebDir = findWebDir(settings.DataDir)
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	if *writeConfig {
		return settings.Save(*settingsPath)
	}

	log.Init(log.Options{Level: settings.Log.Level, File: settings.Log.File, JSON: settings.Log.JSON})
	log.Info("autoframe starting", "data_dir", settings.DataDir, "listen", settings.Listen, "engine", settings.Engine.Kind)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var t *tray.Tray
	var overrides app.Overrides
	if settings.Tray {
		t = tray.New()
		overrides.Sinks = []orchestrator.Sink{t}
	}

	a, err := app.New(settings, overrides)
	if err != nil {
		return err
	}
	defer a.Close()

	if t == nil {
		return a.Run(ctx)
	}

	// The tray owns the main goroutine.
	t.OnToggle(a.SetEnabled)
	t.OnReset(a.Reset)
	t.OnQuit(stop)
	if settings.Listen != "" {
		t.OnOpen(func() { openBrowser(overlayURL(settings.Listen)) })
	}

	errc := make(chan error, 1)
	go func() {
		errc <- a.Run(ctx)
		t.Quit()
	}()
	t.Run()
	stop()
	return <-errc
}

// findWebDir returns the first overlay directory found: "web" next to the
// working directory, then <dataDir>/web. Empty when none exists.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func overlayURL(listen string) string {
	host := listen
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("open browser failed", "url", url, "error", err)
		return
	}
	go cmd.Wait()
}
