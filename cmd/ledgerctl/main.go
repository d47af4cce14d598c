package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/tair/retail-ledger/internal/config"
	"github.com/tair/retail-ledger/internal/ledger/domain"
	"github.com/tair/retail-ledger/internal/ledger/report"
	"github.com/tair/retail-ledger/internal/ledger/repository"
	"github.com/tair/retail-ledger/internal/ledger/usecase/query"
	"github.com/tair/retail-ledger/pkg/auth"
	"github.com/tair/retail-ledger/pkg/database"
	"github.com/tair/retail-ledger/pkg/logger"
)

type dbKey struct{}

func openDB(c *cli.Context) error {
	cfg := config.Load()
	db, err := database.NewGormConnection(database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	c.Context = context.WithValue(c.Context, dbKey{}, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey{}).(*gorm.DB); ok && db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func unitOfWork(c *cli.Context) domain.UnitOfWork {
	return repository.NewGormUnitOfWork(c.Context.Value(dbKey{}).(*gorm.DB))
}

func clock() domain.Clock {
	return domain.SystemClock{Location: config.Load().Ledger.Location()}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	cfg := config.Load()
	logger.Init(logger.Options{
		Service:     "ledgerctl",
		Environment: cfg.Server.Environment,
		Level:       cfg.Server.LogLevel,
		Output:      os.Stderr,
	})

	app := &cli.App{
		Name:  "ledgerctl",
		Usage: "Operate the retail ledger database",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create or update the ledger tables",
				Before: openDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					if err := repository.AutoMigrate(c.Context.Value(dbKey{}).(*gorm.DB)); err != nil {
						return fmt.Errorf("migration failed: %w", err)
					}
					logger.Logger.Info().Msg("Migrations applied")
					return nil
				},
			},
			{
				Name:   "reconcile",
				Usage:  "Compare current stock with the audit trail",
				Before: openDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					discrepancies, err := query.NewReconcileStockHandler(unitOfWork(c)).Handle(c.Context)
					if err != nil {
						return err
					}
					if len(discrepancies) > 0 {
						if err := printJSON(discrepancies); err != nil {
							return err
						}
						return cli.Exit(fmt.Sprintf("%d products out of balance", len(discrepancies)), 2)
					}
					logger.Logger.Info().Msg("Stock matches the audit trail")
					return nil
				},
			},
			{
				Name:   "reorder",
				Usage:  "Print reorder suggestions",
				Before: openDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					suggestions, err := query.NewReorderSuggestionsHandler(unitOfWork(c), clock()).Handle(c.Context)
					if err != nil {
						return err
					}
					return printJSON(suggestions)
				},
			},
			{
				Name:   "audit-report",
				Usage:  "Print waste and loss rates per product",
				Before: openDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					reports, err := query.NewStockAuditReportHandler(unitOfWork(c)).Handle(c.Context)
					if err != nil {
						return err
					}
					return printJSON(reports)
				},
			},
			{
				Name:  "export-sales",
				Usage: "Write sales to an XLSX workbook",
				Flags: []cli.Flag{
					&cli.TimestampFlag{
						Name:   "from",
						Usage:  "First day to include",
						Layout: "2006-01-02",
					},
					&cli.TimestampFlag{
						Name:   "to",
						Usage:  "Last day to include",
						Layout: "2006-01-02",
					},
					&cli.StringFlag{
						Name:  "channel",
						Usage: "POS or ONLINE",
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Output file",
						Value: "sales.xlsx",
					},
				},
				Before: openDB,
				After:  closeDB,
				Action: exportSales,
			},
			{
				Name:  "token",
				Usage: "Sign a cashier token with JWT_SECRET",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "user-id", Required: true},
					&cli.StringFlag{Name: "username", Value: "cashier"},
					&cli.StringFlag{Name: "role", Value: "cashier"},
					&cli.DurationFlag{Name: "ttl", Value: 12 * time.Hour},
				},
				Action: func(c *cli.Context) error {
					token, err := auth.NewValidator(config.Load().Auth.JWTSecret).
						GenerateToken(c.Uint("user-id"), c.String("username"), c.String("role"), c.Duration("ttl"))
					if err != nil {
						return err
					}
					fmt.Println(token)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Command failed")
	}
}

func exportSales(c *cli.Context) error {
	q := query.ListSalesQuery{Channel: c.String("channel")}
	loc := clock().Now().Location()
	if from := c.Timestamp("from"); from != nil {
		q.From = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	}
	if to := c.Timestamp("to"); to != nil {
		q.To = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	}

	sales, err := query.NewListSalesHandler(unitOfWork(c)).Handle(c.Context, q)
	if err != nil {
		return err
	}

	f, err := os.Create(c.String("out"))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.String("out"), err)
	}
	defer f.Close()

	if err := report.WriteSales(f, sales); err != nil {
		return err
	}
	logger.Logger.Info().
		Int("sales", len(sales)).
		Str("file", c.String("out")).
		Msg("Sales exported")
	return nil
}
