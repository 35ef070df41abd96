package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corvids/surgo/core"
	"github.com/corvids/surgo/schema"
)

var (
	configPath string
	schemaPath string
)

var rootCmd = &cobra.Command{
	Use:   "surgo",
	Short: "SurrealDB schema migration tool",
	Long: `surgo reconciles a declarative YAML schema with a live SurrealDB
database. It introspects the current state, computes the minimal set of
DEFINE and ALTER statements, and applies them in one round trip.`,
	SilenceUsage: true,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the statements a migration would run, without executing them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, client *core.Client, s *schema.Schema) error {
			plan, err := client.Migrator().Plan(ctx, s)
			if err != nil {
				return err
			}
			if len(plan) == 0 {
				fmt.Println("-- schema is up to date")
				return nil
			}
			for _, stmt := range plan {
				fmt.Println(stmt + ";")
			}
			return nil
		})
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply pending schema changes to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, client *core.Client, s *schema.Schema) error {
			changed, err := client.Migrator().Migrate(ctx, s)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Println("schema is up to date")
			} else {
				fmt.Println("schema applied")
			}
			return nil
		})
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Report REMOVE statements for objects absent from the schema file",
	Long: `prune lists live fields, indexes, events and tables that the schema
file no longer declares. The statements are printed for review only and
are never executed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, client *core.Client, s *schema.Schema) error {
			drops, err := client.Migrator().PlanDrop(ctx, s)
			if err != nil {
				return err
			}
			if len(drops) == 0 {
				fmt.Println("-- nothing to prune")
				return nil
			}
			fmt.Println("-- review before running; surgo never executes these")
			for _, stmt := range drops {
				fmt.Println(stmt + ";")
			}
			return nil
		})
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Reverse-engineer the live database into a YAML schema file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		cfg.applyEnv()
		out := schemaPath
		if out == "" {
			out = cfg.Schema
		}

		ctx := cmd.Context()
		client, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		live, err := client.Migrator().Introspect(ctx)
		if err != nil {
			return err
		}
		data, err := schema.Dump(live)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write schema file: %w", err)
		}
		fmt.Printf("wrote %d tables to %s\n", len(live.Tables), out)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "surgo.yaml", "path to connection config file")
	rootCmd.PersistentFlags().StringVarP(&schemaPath, "schema", "s", "", "path to schema file (overrides config)")
	rootCmd.AddCommand(planCmd, applyCmd, pruneCmd, pullCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func connect(ctx context.Context, cfg *Config) (*core.Client, error) {
	return core.Open(ctx, cfg.URL, &core.Options{
		Namespace: cfg.Namespace,
		Database:  cfg.Database,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Timeout:   cfg.Timeout,
	})
}

// withClient loads config and schema, opens a connection and runs fn.
func withClient(ctx context.Context, fn func(context.Context, *core.Client, *schema.Schema) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.applyEnv()

	path := schemaPath
	if path == "" {
		path = cfg.Schema
	}
	s, err := schema.LoadFile(path)
	if err != nil {
		return err
	}

	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	return fn(ctx, client, s)
}
