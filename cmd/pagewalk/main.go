package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fulldump/goconfig"

	"github.com/fulldump/pagestream/paginator"
)

type Config struct {
	Mode      string `usage:"operation: WALK | STREAM | INTEGRITY"`
	Base      string `usage:"base URL, for example http://localhost:8080"`
	Table     string `usage:"table name"`
	Limit     int    `usage:"page size"`
	Filters   string `usage:"filters as JSON object"`
	Sort      string `usage:"sort column"`
	Direction string `usage:"sort direction: ASC | DESC"`
	BatchSize int    `usage:"stream batch size"`
	MaxPages  int    `usage:"stop after this many pages (0 = no limit)"`
}

func main() {

	c := Config{
		Mode:      "walk",
		Base:      "http://localhost:8080",
		Limit:     50,
		Direction: "ASC",
		BatchSize: 100,
	}
	goconfig.Read(&c)

	filters := map[string]any{}
	if c.Filters != "" {
		err := json.Unmarshal([]byte(c.Filters), &filters)
		if err != nil {
			log.Fatalf("invalid filters: %s", err.Error())
		}
	}

	p, err := paginator.New(c.Base, paginator.Config{
		Table:           c.Table,
		Limit:           c.Limit,
		Filters:         filters,
		SortColumn:      c.Sort,
		SortDirection:   c.Direction,
		DisablePrefetch: true, // walking is sequential already
	}, paginator.Hooks{
		OnError: func(err error) {
			log.Println("ERROR:", err.Error())
		},
	})
	if err != nil {
		log.Fatalf("paginator: %s", err.Error())
	}

	ctx := context.Background()

	switch strings.ToUpper(c.Mode) {
	case "WALK":
		walk(ctx, p, c.MaxPages)
	case "STREAM":
		stream(ctx, p, c.BatchSize)
	case "INTEGRITY":
		integrity(ctx, p)
	default:
		log.Fatalf("Unknown mode %s", c.Mode)
	}
}

func walk(ctx context.Context, p *paginator.Paginator, maxPages int) {

	page, err := p.LoadPage(ctx, "")
	if err != nil {
		log.Fatalf("load page: %s", err.Error())
	}

	e := json.NewEncoder(log.Writer())

	for n := 1; page != nil; n++ {
		fmt.Printf("-- page %d (%d rows, total ~%d, %.3fms)\n", n, len(page.Rows), page.TotalEstimated, page.QueryTimeMS)
		for _, row := range page.Rows {
			e.Encode(row)
		}
		if maxPages > 0 && n >= maxPages {
			break
		}
		page, err = p.LoadNextPage(ctx)
		if err != nil {
			log.Fatalf("load next page: %s", err.Error())
		}
	}
}

func stream(ctx context.Context, p *paginator.Paginator, batchSize int) {

	err := p.StreamAll(ctx,
		func(records []paginator.Row, progress paginator.StreamProgress) {
			fmt.Printf("-- batch: %d records (%d so far, more=%v)\n", len(records), progress.TotalSoFar, progress.HasMore)
		},
		func(summary paginator.StreamSummary) {
			fmt.Printf("-- complete: %d records in %.3fms (%.0f records/s)\n", summary.TotalRecords, summary.ElapsedMS, summary.RecordsPerSecond)
		},
		batchSize,
	)
	if err != nil {
		log.Fatalf("stream: %s", err.Error())
	}

	// The session ends on complete, error or transport failure.
	for p.IsStreaming() {
		time.Sleep(50 * time.Millisecond)
	}
}

func integrity(ctx context.Context, p *paginator.Paginator) {

	page, err := p.LoadPage(ctx, "")
	if err != nil {
		log.Fatalf("load page: %s", err.Error())
	}

	verdict, err := p.CheckIntegrity(ctx, "", page.TotalEstimated)
	if err != nil {
		log.Fatalf("check integrity: %s", err.Error())
	}

	e := json.NewEncoder(log.Writer())
	e.SetIndent("", "    ")
	e.Encode(verdict)
}
