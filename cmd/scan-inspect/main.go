package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BearBump/ScanPipe/config"
	"github.com/BearBump/ScanPipe/internal/models"
	"github.com/BearBump/ScanPipe/internal/storage/pgscan"
)

// scan-inspect — read-only заглядывание в хранилище воркера: курсор, агрегаты
// посылок, сырые события. Ничего не пишет.
const usage = `Usage: scan-inspect <command> [args]

Commands:
  cursor                    show the processing cursor
  parcels [limit] [offset]  list parcel aggregates
  parcel <parcelId>         show one parcel aggregate
  events <parcelId>         list stored scan events for a parcel
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		fatalf("load config: %v", err)
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st, err := pgscan.New(connString)
	if err != nil {
		fatalf("open storage: %v", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "cursor":
		showCursor(ctx, st)
	case "parcels":
		limit, offset := 50, 0
		if len(args) > 1 {
			limit = atoiOr(args[1], 50)
		}
		if len(args) > 2 {
			offset = atoiOr(args[2], 0)
		}
		listParcels(ctx, st, limit, offset)
	case "parcel":
		if len(args) < 2 {
			fatalf("parcel: parcelId argument is required")
		}
		showParcel(ctx, st, mustParcelID(args[1]))
	case "events":
		if len(args) < 2 {
			fatalf("events: parcelId argument is required")
		}
		listEvents(ctx, st, mustParcelID(args[1]))
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func showCursor(ctx context.Context, st *pgscan.Storage) {
	cur, err := st.GetCursor(ctx)
	if err != nil {
		fatalf("get cursor: %v", err)
	}
	if cur.LastProcessedEventID == nil {
		fmt.Println("cursor: <not set> (feed never processed)")
		return
	}
	fmt.Printf("cursor: %s (saved %s)\n",
		*cur.LastProcessedEventID, cur.LastProcessedAt.Format(time.RFC3339))

	n, err := st.CountScanEvents(ctx)
	if err != nil {
		fatalf("count scan events: %v", err)
	}
	fmt.Printf("stored scan events: %d\n", n)
}

func listParcels(ctx context.Context, st *pgscan.Storage, limit, offset int) {
	parcels, err := st.ListParcelScans(ctx, limit, offset)
	if err != nil {
		fatalf("list parcels: %v", err)
	}
	if len(parcels) == 0 {
		fmt.Println("no parcel records")
		return
	}
	for _, p := range parcels {
		printParcel(p)
	}
	fmt.Printf("%d parcel(s)\n", len(parcels))
}

func showParcel(ctx context.Context, st *pgscan.Storage, parcelID int64) {
	p, err := st.GetParcelScan(ctx, parcelID)
	if err != nil {
		fatalf("get parcel %d: %v", parcelID, err)
	}
	printParcel(p)
}

func listEvents(ctx context.Context, st *pgscan.Storage, parcelID int64) {
	events, err := st.ListScanEvents(ctx, parcelID, 100, 0)
	if err != nil {
		fatalf("list events: %v", err)
	}
	if len(events) == 0 {
		fmt.Printf("no stored events for parcel %d\n", parcelID)
		return
	}
	for _, e := range events {
		fmt.Printf("%s  %-8s %-16s %s  run=%s\n",
			e.OccurredAt.Format(time.RFC3339), e.Kind, e.StatusCode, e.EventID, e.RunID)
	}
}

func printParcel(p *models.ParcelScan) {
	fmt.Printf("parcel %d  %s  pickup=%s delivery=%s last_event=%s\n",
		p.ParcelID, p.TrackingNumber,
		fmtTime(p.PickupAt), fmtTime(p.DeliveryAt), fmtStr(p.LastEventID))
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func fmtStr(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func atoiOr(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func mustParcelID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fatalf("invalid parcelId %q", s)
	}
	return id
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
