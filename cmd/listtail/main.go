// listtail follows one or more list event streams and prints every event as
// it arrives. It is the reference consumer for the stream client: one
// deduplicated connection per URL, silent reconnection, heartbeats hidden.
//
//	listtail -server http://localhost:8080 -token <session> 42 7
//
// SIGUSR1 simulates a foreground/visibility signal: stale connections
// reconnect immediately instead of waiting for the heartbeat deadline.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmfalke/sharelist/internal/event"
	"github.com/dmfalke/sharelist/internal/logging"
	"github.com/dmfalke/sharelist/internal/stream"
)

func main() {
	var (
		serverURL = flag.String("server", "http://localhost:8080", "sharelist server base URL")
		token     = flag.String("token", "", "session token (from /api/auth/login)")
		useWS     = flag.Bool("ws", false, "use the WebSocket endpoint instead of SSE")
		logLevel  = flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: listtail [flags] <list-id> [<list-id>...]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *token == "" {
		log.Fatal("a -token is required to read a list stream")
	}

	logger := logging.Setup(*logLevel, "text")

	header := http.Header{}
	header.Set("Authorization", "Bearer "+*token)

	var transport stream.Transport
	endpoint := "events"
	if *useWS {
		transport = &stream.WSTransport{Header: header}
		endpoint = "ws"
	} else {
		transport = &stream.SSETransport{Header: header}
	}

	manager := stream.NewManager(transport, stream.Config{}, logger)
	defer manager.Close()

	for _, listID := range flag.Args() {
		id := listID
		url := fmt.Sprintf("%s/api/lists/%s/%s", *serverURL, id, endpoint)
		manager.Subscribe(url, func(ev event.Event) {
			printEvent(id, ev)
		}, func(err error) {
			logger.Warn("stream error", "list_id", id, "error", err)
		})
	}

	wake := make(chan os.Signal, 1)
	signal.Notify(wake, syscall.SIGUSR1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-wake:
			manager.Wake()
		case <-quit:
			return
		}
	}
}

func printEvent(listID string, ev event.Event) {
	ts := ev.Timestamp.Local().Format(time.TimeOnly)
	switch {
	case ev.Item != nil:
		checked := " "
		if ev.Item.Checked {
			checked = "x"
		}
		fmt.Printf("%s list %s %-21s [%s] %s / %s (by %s)\n",
			ts, listID, ev.Type, checked, ev.Item.Name, ev.Item.Category, ev.UserName)
	case ev.Items != nil:
		fmt.Printf("%s list %s %-21s %d items\n", ts, listID, ev.Type, len(ev.Items))
	default:
		fmt.Printf("%s list %s %-21s deleted=%d (by %s)\n",
			ts, listID, ev.Type, ev.DeletedCount, ev.UserName)
	}
}
