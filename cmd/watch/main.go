// Command watch subscribes to a dashboard hub and logs every state change.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go-dashboard-hub/internal/domain/dashboard"
	"go-dashboard-hub/internal/infrastructure/logger"
	"go-dashboard-hub/internal/subscriber"
)

func main() {
	url := flag.String("url", "ws://localhost:3001/ws", "hub WebSocket endpoint")
	mode := flag.String("mode", string(dashboard.DefaultMode), "dashboard mode: compact, advanced or autopilot")
	origin := flag.String("origin", "", "Origin header sent with the handshake")
	maxInsights := flag.Int("max-insights", subscriber.DefaultMaxInsights, "insights kept in memory")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	lc := logger.NewDefaultConfig()
	if lvl, err := logger.ParseLevel(*level); err == nil {
		lc.Level = lvl
	}
	log := logger.NewLogrusLogger(lc)

	var header http.Header
	if *origin != "" {
		header = http.Header{"Origin": {*origin}}
	}

	sub, err := subscriber.New(subscriber.Config{
		URL:         *url,
		Header:      header,
		Mode:        dashboard.Mode(*mode),
		MaxInsights: *maxInsights,
	}, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	sub.OnChange(func(st subscriber.State) {
		fields := logger.Fields{
			"mode":      st.Mode,
			"connected": st.Connected,
			"stale":     st.Stale,
			"insights":  len(st.Insights),
			"unread":    st.UnreadCount(),
			"messages":  len(st.Messages),
		}
		if wa, ok := st.Statuses[subscriber.EntityWhatsApp]; ok {
			fields["whatsapp"] = wa.Status
		}
		entry := log.WithFields(fields)
		if len(st.Insights) > 0 {
			latest := st.Insights[0]
			entry.Infof("State updated, latest insight: [%s] %s", latest.Severity, latest.Title)
			return
		}
		entry.Info("State updated")
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infof("Watching %s in %s mode", *url, *mode)
	if err := sub.Run(ctx); err != nil {
		log.Errorf("subscriber stopped: %v", err)
		os.Exit(1)
	}
}
