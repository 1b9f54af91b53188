// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command meshql runs one statement against the configured data sources, or
// translates a statement between dialects. It is a one-shot runner; an
// interactive client lives above the engine.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	meshql "github.com/meshql/meshql"
	"github.com/meshql/meshql/connector"
	_ "github.com/meshql/meshql/connector/sqladapter"
	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/dialect"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	var verbose bool

	root := &cobra.Command{
		Use:           "meshql",
		Short:         "Federated SQL engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "meshql.yaml", "data source configuration file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(queryCmd(&configPath, &verbose))
	root.AddCommand(translateCmd())
	return root
}

func queryCmd(configPath *string, verbose *bool) *cobra.Command {
	var costBased bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run one statement against the configured sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logrus.New()
			if *verbose {
				logger.SetLevel(logrus.DebugLevel)
			}

			v := viper.New()
			v.SetConfigFile(*configPath)
			v.SetEnvPrefix("MESHQL")
			v.AutomaticEnv()
			if err := v.ReadInConfig(); err != nil {
				return err
			}
			var cfg connector.Config
			if err := v.UnmarshalKey("dataSources", &cfg.DataSources); err != nil {
				return err
			}

			registry := connector.NewRegistry()
			for _, ds := range cfg.DataSources {
				registry.AddSource(ds)
			}

			engine := meshql.New(registry, &meshql.Config{
				QueryTimeout: timeout,
				CostBased:    costBased,
				Logger:       logrus.NewEntry(logger),
			})
			defer engine.Close()

			ctx, cancel := engine.NewContext(context.Background(), "")
			defer cancel()
			if err := engine.Init(ctx); err != nil {
				logger.Warnf("schema discovery: %v", err)
			}

			result := engine.Execute(context.Background(), args[0])
			if !result.Success {
				return fmt.Errorf("%s", result.ErrorMessage)
			}
			printResult(cmd, result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&costBased, "cost-based", false, "enable cost-based join ordering")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "query timeout (default 300s)")
	return cmd
}

func translateCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "translate <sql>",
		Short: "Render a statement in another dialect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromID, err := dialect.FromName(from)
			if err != nil {
				return err
			}
			toID, err := dialect.FromName(to)
			if err != nil {
				return err
			}
			out, err := meshql.Translate(args[0], fromID, toID)
			if err != nil {
				return err
			}
			cmd.Println(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "ansi", "source dialect")
	cmd.Flags().StringVar(&to, "to", "ansi", "target dialect")
	return cmd
}

func printResult(cmd *cobra.Command, result *sql.QueryResult) {
	if len(result.ColumnNames) > 0 {
		cmd.Println(strings.Join(result.ColumnNames, "\t"))
	}
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprint(v)
			}
		}
		cmd.Println(strings.Join(cells, "\t"))
	}
	for _, w := range result.Warnings {
		cmd.PrintErrf("warning: %s\n", w.Message)
	}
	cmd.PrintErrf("%d rows (%d ms)\n", result.RowCount, result.ExecutionTimeMs)
}
