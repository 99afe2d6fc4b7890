// gdp-send delivers one payload to a named endpoint and exits with the
// boundary status code negated (shells cannot return negative values).
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdp-net/gdp-go/internal/config"
	"github.com/gdp-net/gdp-go/internal/log"
	"github.com/gdp-net/gdp-go/pkg/client"
	"github.com/gdp-net/gdp-go/pkg/name"
	"github.com/gdp-net/gdp-go/pkg/routes"
	"github.com/gdp-net/gdp-go/pkg/transport"
)

var (
	configPath = flag.String("config", "", "path to config file (default ~/.gdp/client.toml)")
	destHex    = flag.String("dest", "", "destination name, 64 hex characters")
	message    = flag.String("message", "Hello, World!", "payload to send")
	endpoint   = flag.String("endpoint", "", "sidecar endpoint overriding the config default")
)

func main() {
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadConfig(*configPath)
	} else {
		cfg, err = config.InitConfig()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)
	logger := log.Component("gdp-send")

	dst, err := name.FromHex(*destHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad -dest: %v\n", err)
		os.Exit(1)
	}

	tr, err := transport.NewUDP(
		cfg.ListenAddr,
		cfg.MTU,
		time.Duration(cfg.WriteTimeoutMS)*time.Millisecond,
		time.Duration(cfg.ReplyWaitMS)*time.Millisecond,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bind transport: %v\n", err)
		os.Exit(1)
	}
	defer tr.Close()

	c, err := client.FromConfig(cfg, tr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build client: %v\n", err)
		os.Exit(1)
	}

	sidecar := cfg.SidecarAddr
	if *endpoint != "" {
		sidecar = *endpoint
	}
	c.Routes().Upsert(dst, routes.Route{Endpoint: routes.Endpoint(sidecar), Metric: 1})

	st := c.Send(dst, []byte(*message))
	logger.Info().Str("dst", dst.Short()).Stringer("status", st).Msg("send finished")
	if st != 0 {
		if err := c.LastError(); err != nil {
			fmt.Fprintf(os.Stderr, "send: %v\n", err)
		}
		os.Exit(int(-st))
	}
}
