package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/anoixa/photo-relay/config"
	"github.com/anoixa/photo-relay/database"
	"github.com/anoixa/photo-relay/database/models"
	"github.com/anoixa/photo-relay/utils"
)

// migrateCmd 数据库迁移命令
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tools",
	Long:  `Create or update the schema of the configured database.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSchemaMigration(); err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
	},
}

// migrateCopyCmd 在数据库之间复制照片记录
var migrateCopyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy photo records between databases",
	Long: `Copy photo records from one database to another (e.g., SQLite to PostgreSQL).

Examples:
  photo-relay migrate copy --from-sqlite ./data/photo-relay.db --to-postgres "host=localhost user=postgres password=secret dbname=photo-relay port=5432"`,
	Run: func(cmd *cobra.Command, args []string) {
		fromType, _ := cmd.Flags().GetString("from-type")
		toType, _ := cmd.Flags().GetString("to-type")
		fromDSN, _ := cmd.Flags().GetString("from-dsn")
		toDSN, _ := cmd.Flags().GetString("to-dsn")
		fromSQLite, _ := cmd.Flags().GetString("from-sqlite")
		toPostgres, _ := cmd.Flags().GetString("to-postgres")

		if fromSQLite != "" {
			fromType, fromDSN = "sqlite", fromSQLite
		}
		if toPostgres != "" {
			toType, toDSN = "postgres", toPostgres
		}

		n, err := runCopy(context.Background(), fromType, fromDSN, toType, toDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("Copy failed")
		}
		log.Info().Int64("photos", n).Msg("Copy completed successfully")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateCopyCmd)

	migrateCopyCmd.Flags().String("from-type", "", "Source database type (sqlite, postgres)")
	migrateCopyCmd.Flags().String("to-type", "", "Target database type (sqlite, postgres)")
	migrateCopyCmd.Flags().String("from-dsn", "", "Source database DSN/connection string")
	migrateCopyCmd.Flags().String("to-dsn", "", "Target database DSN/connection string")
	migrateCopyCmd.Flags().String("from-sqlite", "", "Source SQLite file path (shortcut)")
	migrateCopyCmd.Flags().String("to-postgres", "", "Target PostgreSQL connection string (shortcut)")
}

// runSchemaMigration 对配置的数据库执行自动迁移
func runSchemaMigration() error {
	config.InitConfig()
	cfg := config.Get()
	utils.InitLogger(cfg.LogLevel)

	factory, err := database.NewFactory(cfg)
	if err != nil {
		return err
	}
	defer factory.Close()

	if err := factory.AutoMigrate(); err != nil {
		return err
	}
	log.Info().Str("database", factory.GetProvider().Name()).Msg("Schema is up to date")
	return nil
}

// runCopy 复制照片记录，目标中已存在的主键会被覆盖
func runCopy(ctx context.Context, fromType, fromDSN, toType, toDSN string) (int64, error) {
	if fromType == "" || toType == "" {
		return 0, fmt.Errorf("both --from-type and --to-type are required")
	}
	if fromDSN == "" || toDSN == "" {
		return 0, fmt.Errorf("both --from-dsn and --to-dsn (or shortcuts) are required")
	}
	if fromType == toType && fromDSN == toDSN {
		return 0, fmt.Errorf("source and target databases are the same")
	}

	sourceDB, err := openDatabase(fromType, fromDSN)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to source database: %w", err)
	}
	defer closeDatabase(sourceDB)

	targetDB, err := openDatabase(toType, toDSN)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to target database: %w", err)
	}
	defer closeDatabase(targetDB)

	return copyPhotos(ctx, sourceDB, targetDB)
}

// copyPhotos 在单个事务中把源库的照片记录写入目标库
func copyPhotos(ctx context.Context, sourceDB, targetDB *gorm.DB) (int64, error) {
	if err := targetDB.AutoMigrate(&models.Photo{}); err != nil {
		return 0, fmt.Errorf("failed to migrate schema: %w", err)
	}

	var list []models.Photo
	if err := sourceDB.WithContext(ctx).Order("id").Find(&list).Error; err != nil {
		return 0, fmt.Errorf("failed to read photos: %w", err)
	}
	if len(list) == 0 {
		return 0, nil
	}

	err := targetDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 目标库同样只保留一条记录
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Photo{}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&list).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to write photos: %w", err)
	}
	return int64(len(list)), nil
}

// openDatabase 打开数据库连接
func openDatabase(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch dbType {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func closeDatabase(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
