package main

import (
	"context"
	"fmt"
	"log/slog"

	Bd "github.com/maroda/buffon/display"
	Bo "github.com/maroda/buffon/obvy"
	Bs "github.com/maroda/buffon/sim"
)

func init() {
	User := Bs.FillEnvVar("USER")
	fmt.Printf("Buffon initializing for ... %s\n", User)
}

func main() {
	// Optional run configuration on disk, env overrides always apply
	configFile := Bs.FillEnvVar("BUFFON_CONFIG")
	if configFile == "ENOENT" {
		configFile = ""
	}

	params, err := Bs.RunParams(configFile)
	if err != nil {
		slog.Error("Problem loading run parameters", slog.Any("Error", err))
		panic("Failed to load run parameters")
	}

	// Optional trace export, picked by name
	switch Bs.FillEnvVar("BUFFON_OTEL") {
	case "honeycomb":
		shutdown, err := Bo.InitOTelHNY()
		if err != nil {
			slog.Error("Problem starting OTel", slog.Any("Error", err))
		} else {
			defer shutdown()
		}
	case "grafana":
		tp, err := Bo.InitOTelGRF()
		if err != nil {
			slog.Error("Problem starting OTel", slog.Any("Error", err))
		} else {
			defer tp.Shutdown(context.Background())
		}
	}

	// Headless mode serves the dataserv without the terminal display
	if Bs.FillEnvVar("BUFFON_NOTUI") != "ENOENT" {
		if err := Bd.StartWebNoTUI(params); err != nil {
			slog.Error("Problem starting Buffon web server", slog.Any("Error", err))
			panic("Failed to start buffon web server")
		}
		return
	}

	err = Bd.StartBuffonView(params)
	if err != nil {
		slog.Error("Problem starting BuffonView", slog.Any("Error", err))
		panic("Failed to start buffon view")
	}
}
