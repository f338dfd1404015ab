package main

import (
	"os"
	goruntime "runtime"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
)

func main() {
	app := NewApp()
	appMenu := createMenu(app)

	err := wails.Run(&options.App{
		Title:             "Page Builder Desktop",
		Width:             1440,
		Height:            900,
		MinWidth:          960,
		MinHeight:         640,
		DisableResize:     false,
		Fullscreen:        false,
		Frameless:         false,
		StartHidden:       false,
		HideWindowOnClose: false,
		BackgroundColour:  &options.RGBA{R: 26, G: 26, B: 46, A: 1},
		Menu:              appMenu,
		AssetServer: &assetserver.Options{
			Handler: app.GetHandler(),
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []any{
			app,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: false,
				HideTitle:                  false,
				HideTitleBar:               false,
				FullSizeContent:            false,
				UseToolbar:                 false,
				HideToolbarSeparator:       true,
			},
			About: &mac.AboutInfo{
				Title:   "Page Builder Desktop",
				Message: "Visual storefront layout editor.\n\nBuilt with Wails and Go.",
			},
		},
		Windows: &windows.Options{
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
			DisableWindowIcon:    false,
		},
	})

	if err != nil {
		println("Error:", err.Error())
		os.Exit(1)
	}
}

func createMenu(app *App) *menu.Menu {
	appMenu := menu.NewMenu()

	fileMenu := appMenu.AddSubmenu("File")
	fileMenu.AddText("Open Site...", keys.CmdOrCtrl("o"), func(cd *menu.CallbackData) {
		app.OpenSite()
	})
	fileMenu.AddSeparator()

	if goruntime.GOOS != "darwin" {
		fileMenu.AddText("Exit", keys.OptionOrAlt("F4"), func(cd *menu.CallbackData) {
			os.Exit(0)
		})
	}

	if goruntime.GOOS == "darwin" {
		editMenu := appMenu.AddSubmenu("Edit")
		editMenu.AddText("Undo", keys.CmdOrCtrl("z"), nil)
		editMenu.AddText("Redo", keys.CmdOrCtrl("shift+z"), nil)
		editMenu.AddSeparator()
		editMenu.AddText("Cut", keys.CmdOrCtrl("x"), nil)
		editMenu.AddText("Copy", keys.CmdOrCtrl("c"), nil)
		editMenu.AddText("Paste", keys.CmdOrCtrl("v"), nil)
		editMenu.AddText("Select All", keys.CmdOrCtrl("a"), nil)
	}

	viewMenu := appMenu.AddSubmenu("View")
	viewMenu.AddText("Reload", keys.CmdOrCtrl("r"), func(cd *menu.CallbackData) {
		// Wails handles reload
	})
	viewMenu.AddText("Toggle Full Screen", keys.Key("F11"), func(cd *menu.CallbackData) {
		// Wails handles fullscreen
	})

	helpMenu := appMenu.AddSubmenu("Help")
	helpMenu.AddText("Documentation", nil, func(cd *menu.CallbackData) {
		// Open docs
	})
	if goruntime.GOOS != "darwin" {
		helpMenu.AddSeparator()
		helpMenu.AddText("About Page Builder", nil, func(cd *menu.CallbackData) {
			// Show about dialog
		})
	}

	return appMenu
}
