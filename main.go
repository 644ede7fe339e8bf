// Package main provides the entry point for the Mask Editor application.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"mask-editor/internal/app"
	"mask-editor/internal/version"
	"mask-editor/ui/mainwindow"
	"mask-editor/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
)

const (
	appID    = "io.github.maskeditor"
	appTitle = "Mask Editor"
)

func main() {
	configPath := flag.String("config", "", "Path to a JSON session config")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String(appTitle))
		return
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", appTitle, version.Version)

	cfg := app.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = app.LoadConfig(*configPath); err != nil {
			log.Fatalf("Config: %v", err)
		}
	}

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.EditorTheme{})

	session := app.NewSession(cfg)
	appPrefs := prefs.Load()

	win := mainwindow.New(fyneApp, session, appPrefs)
	win.SetTitle(appTitle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := session.StartRenderLoop(ctx, win.MaskCanvas(), nil); err != nil {
		log.Fatalf("Render: %v", err)
	}

	// Handle command line arguments
	if flag.NArg() > 0 {
		win.OpenFile(flag.Arg(0))
	} else if appPrefs.Bool("reopenLastImage", true) {
		win.RestoreLastImage()
	}

	win.ShowAndRun()
}
