package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/hailam/kingfisher/internal/book"
	"github.com/hailam/kingfisher/internal/engine"
	"github.com/hailam/kingfisher/internal/tablebase"
	"github.com/hailam/kingfisher/internal/uci"
)

var (
	hashMB     = flag.Int("hash", 64, "transposition table size in MB")
	threads    = flag.Int("threads", 1, "number of search threads")
	contempt   = flag.Int("contempt", 0, "draw contempt in centipawns")
	bookPath   = flag.String("book", "", "polyglot opening book file")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	downloadTB = flag.String("download-tb", "", "download 5-piece Syzygy tables to the given directory and exit")
)

func main() {
	flag.Parse()

	if *downloadTB != "" {
		downloadTablebases(*downloadTB)
		return
	}

	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	eng := engine.NewEngine(engine.Options{
		HashMB:   *hashMB,
		Threads:  *threads,
		Contempt: *contempt,
	})

	if *bookPath != "" {
		b, err := book.LoadPolyglot(*bookPath)
		if err != nil {
			log.Printf("book not loaded: %v", err)
		} else {
			eng.SetBook(b)
		}
	}

	protocol := uci.New(eng, os.Stdout)
	protocol.Run(os.Stdin)
}

func downloadTablebases(dir string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d := tablebase.NewDownloader(dir)
	progress := make(chan tablebase.Progress, 16)
	go func() {
		for p := range progress {
			switch {
			case p.Error != nil:
				log.Printf("%s: %v", p.File, p.Error)
			case p.Done:
				log.Printf("%s: done", p.File)
			}
		}
	}()

	err := d.DownloadFivePiece(ctx, progress)
	close(progress)
	if err != nil {
		log.Fatal("download failed: ", err)
	}
	log.Printf("tables available: %d", len(d.AvailableTables()))
}
