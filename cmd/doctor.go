package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"runtime"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/leadclaw/internal/config"
	"github.com/nextlevelbuilder/leadclaw/pkg/protocol"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("leadclaw doctor")
	fmt.Printf("  Version:  %s (protocol %d)\n", Version, protocol.ProtocolVersion)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Secrets:")
	checkSecret("Gateway token", cfg.Gateway.Token)
	checkSecret("Transport token", cfg.Transport.DefaultToken)
	checkSecret("Generation API key", cfg.Generation.APIKey)

	fmt.Println()
	fmt.Println("  Transport:")
	if cfg.Transport.BaseURL == "" {
		fmt.Printf("    %-12s NOT CONFIGURED\n", "Gateway:")
	} else {
		fmt.Printf("    %-12s %s\n", "Gateway:", cfg.Transport.BaseURL)
	}

	if cfg.IsManagedMode() {
		fmt.Println()
		fmt.Println("  Database:")
		fmt.Printf("    %-12s managed\n", "Mode:")
		db, dbErr := sql.Open("pgx", cfg.Database.PostgresDSN)
		if dbErr != nil {
			fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", dbErr)
			return
		}
		defer db.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if pingErr := db.PingContext(pingCtx); pingErr != nil {
			fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", pingErr)
			return
		}
		fmt.Printf("    %-12s connected\n", "Status:")

		var v int
		var dirty bool
		row := db.QueryRow("SELECT version, dirty FROM schema_migrations LIMIT 1")
		if scanErr := row.Scan(&v, &dirty); scanErr != nil {
			fmt.Printf("    %-12s NOT MIGRATED (run: leadclaw migrate up)\n", "Schema:")
		} else if dirty {
			fmt.Printf("    %-12s v%d (DIRTY, run: leadclaw migrate force %d)\n", "Schema:", v, v-1)
		} else {
			fmt.Printf("    %-12s v%d\n", "Schema:", v)
		}
		return
	}

	fmt.Println()
	fmt.Println("  Storage:")
	dir := config.ExpandHome(cfg.Storage.Dir)
	fmt.Printf("    %-12s %s", "Dir:", dir)
	if _, err := os.Stat(dir); err != nil {
		fmt.Println(" (will be created)")
	} else {
		fmt.Println(" (OK)")
	}
}

func checkSecret(name, value string) {
	status := "NOT SET"
	if value != "" {
		status = "set"
	}
	fmt.Printf("    %-20s %s\n", name+":", status)
}
