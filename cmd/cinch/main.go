// Command cinch runs the usb-redirection proxy: it listens for guest
// connections and, for each one, dials the configured host and shuttles
// frames between them through the configured module chain. Grounded on
// original_source/src/main.rs's main/handle_blue_machine, translated
// from getopts/env_logger to the standard flag and log/slog packages.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/daedaluz/cinch/config"
	"github.com/daedaluz/cinch/proxy"
)

func main() {
	configPath := flag.String("c", "", "path to a JSON configuration file")
	flag.Parse()

	var cfg config.Config
	var err error
	if *configPath == "" {
		slog.Info("using default configuration")
		cfg = config.Default()
	} else {
		slog.Info("using configuration file", "path", *configPath)
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		slog.Error("listen failed", "address", cfg.ListenAddress, "err", err)
		os.Exit(1)
	}
	slog.Info("listening", "address", cfg.ListenAddress, "host", cfg.HostAddress)

	for {
		guest, err := listener.Accept()
		if err != nil {
			slog.Error("accept failed", "err", err)
			continue
		}
		slog.Info("guest connected", "remote", guest.RemoteAddr())

		conn, err := proxy.Dial(cfg, guest, slog.Default())
		if err != nil {
			slog.Error("dial host failed", "err", err)
			guest.Close()
			continue
		}

		go func() {
			if err := conn.Run(); err != nil {
				slog.Error("connection ended", "err", err)
			}
		}()
	}
}
