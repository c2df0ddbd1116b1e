package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"comanda-system/internal/config"
	"comanda-system/internal/logger"
	"comanda-system/internal/settlement"
	"comanda-system/internal/station/cashier"
	"comanda-system/internal/station/kitchen"
)

func main() {
	mode := flag.String("mode", "", "settlement-service | kitchen-station | cashier-station")
	station := flag.String("station", "", "unique station name (kitchen/cashier modes)")
	port := flag.Int("port", 0, "http port override for settlement-service")
	flag.Parse()

	cfg := config.Load()
	if *port != 0 {
		cfg.ServerPort = strconv.Itoa(*port)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "settlement-service":
		lg := logger.New("settlement-service")
		lg.Info("service_started", map[string]any{"port": cfg.ServerPort, "tables": cfg.TableCount})
		if err := settlement.Run(ctx, cfg, lg); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "kitchen-station":
		name := stationName(*station, cfg, "cocina")
		lg := logger.New("kitchen-station")
		lg.Info("station_started", map[string]any{"station": name})
		if err := kitchen.Run(ctx, cfg, lg, name); err != nil && ctx.Err() == nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "cashier-station":
		name := stationName(*station, cfg, "caja")
		lg := logger.New("cashier-station")
		lg.Info("station_started", map[string]any{"station": name, "tables": cfg.TableCount})
		if err := cashier.Run(ctx, cfg, lg, name); err != nil && ctx.Err() == nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: settlement-service | kitchen-station | cashier-station")
		os.Exit(2)
	}
}

// stationName prefers the flag, then STATION_NAME, then a host-derived
// fallback so two displays on different machines never collide.
func stationName(flagValue string, cfg *config.Config, kind string) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg.StationName != "" {
		return cfg.StationName
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return kind + "-" + host
}
