package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/chessboard/internal/boardclient"
	appcfg "github.com/park285/chessboard/internal/config"
	"github.com/park285/chessboard/pkg/boarddto"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	baseURL := flag.String("base", cfg.BaseURL, "board server root")
	clicks := flag.String("clicks", "", "comma separated squares to click, e.g. e2,e4,e7,e5")
	watchFor := flag.Duration("watch", 0, "follow the session feed for this long")
	pngOut := flag.String("png", "", "write the final board image to this file")
	flag.Parse()

	client := boardclient.NewClient(*baseURL, boardclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	st, err := client.CreateSession(ctx)
	if err != nil {
		log.Fatalf("create session error: %v", err)
	}
	log.Printf("session %s created", st.ID)

	for _, sq := range strings.Split(*clicks, ",") {
		sq = strings.TrimSpace(sq)
		if sq == "" {
			continue
		}
		resp, err := client.Click(ctx, st.ID, sq)
		if err != nil {
			log.Fatalf("click %s: %v", sq, err)
		}
		st = resp.State
		log.Printf("click %s -> %s", sq, resp.Result)
	}
	printState(st)

	if *pngOut != "" {
		img, err := client.BoardPNG(ctx, st.ID, 0)
		if err != nil {
			log.Fatalf("board.png: %v", err)
		}
		if err := os.WriteFile(*pngOut, img, 0o644); err != nil {
			log.Fatalf("write %s: %v", *pngOut, err)
		}
		log.Printf("wrote %s (%d bytes)", *pngOut, len(img))
	}

	if *watchFor <= 0 {
		return
	}
	wsURL, err := boardclient.WatchURL(*baseURL, st.ID)
	if err != nil {
		log.Fatalf("ws url: %v", err)
	}
	w := boardclient.NewWatcher(wsURL, 5)
	w.OnStateChange(func(state boardclient.WatchState) {
		log.Printf("WS state: %s", state)
	})
	w.OnMessage(func(msg *boarddto.Message) {
		fmt.Printf("WS %s %s\n", msg.Type, truncate(string(msg.Payload), 160))
	})
	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := w.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	// Observe for a short window
	t := time.NewTimer(*watchFor)
	<-t.C

	_ = w.Close(context.Background())
}

func printState(st *boarddto.SessionState) {
	fmt.Printf("status: %s\n", st.Status.Text)
	if st.Opening != nil {
		fmt.Printf("opening: %s %s\n", st.Opening.Code, st.Opening.Title)
	}
	labels := make([]string, 0, len(st.History))
	for _, h := range st.History {
		labels = append(labels, h.Label)
	}
	fmt.Printf("moves: %s\n", strings.Join(labels, " "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
