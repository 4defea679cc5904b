package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/anoixa/photo-relay/config"
	"github.com/anoixa/photo-relay/internal/app"
	"github.com/anoixa/photo-relay/utils"
	"github.com/anoixa/photo-relay/utils/format"
)

// cleanCmd 清理上传目录中未被引用的文件
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove orphan files from the upload directory",
	Long: `Remove orphan files from the upload directory.
A file is an orphan when no photo record references it, e.g. leftovers
from an interrupted replace.`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		if err := runClean(cmd.Context(), dryRun); err != nil {
			log.Fatal().Err(err).Msg("Clean failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().Bool("dry-run", false, "Only show what would be cleaned, don't actually delete")
}

// runClean 执行清理
func runClean(ctx context.Context, dryRun bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	config.InitConfig()
	cfg := config.Get()
	utils.InitLogger(cfg.LogLevel)

	container := app.NewContainer(cfg)
	if err := container.Init(); err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer container.Close()

	svc := container.PhotoService
	orphans, err := svc.Orphans(ctx)
	if err != nil {
		return err
	}

	provider := container.GetStorageFactory().GetDefault()
	var total int64
	for _, p := range orphans {
		size, err := provider.Size(ctx, p)
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("Failed to stat orphan file")
			continue
		}
		total += size
		if dryRun {
			log.Info().Str("path", p).Str("size", format.HumanReadableSize(size)).Msg("[DRY-RUN] Would delete orphan file")
		}
	}

	if dryRun {
		printCleanStats(len(orphans), 0, total, true)
		return nil
	}

	removed, err := svc.RemoveOrphans(ctx)
	for _, p := range removed {
		log.Info().Str("path", p).Msg("Deleted orphan file")
	}
	printCleanStats(len(orphans), len(removed), total, false)
	return err
}

// printCleanStats 打印清理统计
func printCleanStats(found, deleted int, size int64, dryRun bool) {
	fmt.Println()
	fmt.Println("========================================")
	if dryRun {
		fmt.Println("           [DRY RUN MODE]")
	}
	fmt.Println("         Clean Statistics")
	fmt.Println("========================================")
	fmt.Printf("Orphan files found:   %d\n", found)
	fmt.Printf("Orphan files deleted: %d\n", deleted)
	fmt.Printf("Space reclaimable:    %s\n", format.HumanReadableSize(size))
	fmt.Println("========================================")
}
