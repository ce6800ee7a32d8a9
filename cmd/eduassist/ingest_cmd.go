package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"eduassist/internal/ingest"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newIngestCmd(debug *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "ingest one or more PDF documents into the vector store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := setupLogger(*debug)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync()

			cfg := loadConfigOrExit(log)

			ctx := context.Background()
			d, err := buildDeps(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("wire dependencies: %w", err)
			}
			defer d.vectors.Close()

			var inputs []ingest.Input
			for _, path := range args {
				raw, err := os.ReadFile(path)
				if err != nil {
					log.Warn("skip unreadable file", zap.String("path", path), zap.Error(err))
					continue
				}
				inputs = append(inputs, ingest.Input{Source: filepath.Base(path), Bytes: raw})
			}

			outcomes := d.orch.IngestBatch(ctx, inputs)
			failed := 0
			for _, o := range outcomes {
				if o.Err != nil {
					failed++
					log.Error("ingest failed", zap.String("source", o.Source), zap.Error(o.Err))
					continue
				}
				log.Info("ingested",
					zap.String("source", o.Source),
					zap.Int("pages", o.Pages),
					zap.Int("chunks_added", o.ChunksAdded),
					zap.Bool("ocr_used", o.OCRUsed),
				)
			}
			if failed == len(outcomes) && len(outcomes) > 0 {
				return fmt.Errorf("all %d file(s) failed to ingest", failed)
			}
			return nil
		},
	}

	return cmd
}
