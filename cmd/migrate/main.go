package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/matemarket/pulse/internal/config"
	gormrepo "github.com/matemarket/pulse/internal/infrastructure/persistence/gorm"
	"github.com/matemarket/pulse/pkg/logger"
)

func main() {
	quiet := flag.Bool("quiet", false, "Only report failures")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Server.Environment, cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	// NewDB applies pending migrations before returning.
	db, cleanup, err := gormrepo.NewDB(cfg, zl)
	if err != nil {
		zl.Fatal("failed to migrate database", zap.Error(err))
	}
	defer cleanup()

	if *quiet {
		return
	}

	tables, err := gormrepo.Status(db)
	if err != nil {
		zl.Fatal("failed to read migration status", zap.Error(err))
	}

	fmt.Println("Migrations completed successfully!")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Table", "Exists", "Rows"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, st := range tables {
		table.Append([]string{st.Table, strconv.FormatBool(st.Exists), strconv.FormatInt(st.Rows, 10)})
	}
	table.Render()
}
