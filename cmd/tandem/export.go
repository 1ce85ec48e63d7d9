package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/internal/database"
	gormstorage "github.com/tandemdrive/tandem/internal/storage/gorm"
	"github.com/tandemdrive/tandem/internal/storage/memory"
	"gorm.io/gorm"
)

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	configDir := commonFlags(fs)
	dbPath := fs.String("db", "", "SQLite dump to read; empty uses the configured Postgres database")
	list := fs.Bool("list", false, "list recorded sessions")
	outDir := fs.String("out", "", "output directory, overrides storage.memory.outputDir")
	upload := fs.Bool("upload", false, "upload each exported file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := setup("export", *configDir)
	if *outDir != "" {
		cfg.Storage.Memory.OutputDir = *outDir
	}

	db, err := openRecordings(cfg, *dbPath)
	if err != nil {
		return err
	}

	if *list {
		return listSessions(db)
	}

	ids := fs.Args()
	if len(ids) == 0 {
		return errors.New("no session IDs provided")
	}
	for _, id := range ids {
		txStart := time.Now()
		rec, err := gormstorage.Load(db, id)
		if err != nil {
			return fmt.Errorf("loading session %s: %w", id, err)
		}
		path, err := memory.WriteFile(cfg.Storage.Memory.OutputDir, cfg.Storage.Memory.CompressOutput, rec)
		if err != nil {
			return fmt.Errorf("exporting session %s: %w", id, err)
		}
		Logger.Info("Exported session", "session", id, "path", path,
			"snapshots", len(rec.Snapshots), "events", len(rec.Events), "took", time.Since(txStart))
		fmt.Println(path)

		if *upload {
			if err := uploadFile(ctx, cfg, path, rec.UploadMetadata()); err != nil {
				return fmt.Errorf("uploading session %s: %w", id, err)
			}
		}
	}
	return nil
}

func openRecordings(cfg config.Config, dbPath string) (*gorm.DB, error) {
	if dbPath != "" {
		if _, err := os.Stat(dbPath); err != nil {
			return nil, err
		}
		return database.GetSqliteDB(dbPath)
	}
	db, err := database.GetPostgresDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

func listSessions(db *gorm.DB) error {
	sessions, err := gormstorage.ListSessions(db)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tNAME\tTAG\tSTARTED\tDURATION")
	for _, s := range sessions {
		duration := "-"
		if !s.EndTime.IsZero() {
			duration = s.EndTime.Sub(s.StartTime).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.SessionID, s.Name, s.Tag, s.StartTime.Format(time.RFC3339), duration)
	}
	return w.Flush()
}
