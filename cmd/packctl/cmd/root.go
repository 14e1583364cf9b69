package cmd

import (
	"fmt"
	"os"

	"boardpacks/internal/config"
	"boardpacks/internal/logging"
	"boardpacks/internal/storage"
	"boardpacks/internal/storage/providers"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "packctl",
		Short:        "packctl manages board pack templates and checks pack storage",
		Long:         "",
		SilenceUsage: true,
	}
	cmd.AddGroup(&cobra.Group{
		ID:    "actions",
		Title: "Actions",
	})

	var cfgFile string
	cmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv("CONFIG_PATH"), "config file (default is ./config/local.yaml)")
	cmd.PersistentFlags().String("database-url", "", "postgres URL, overrides database_url from the config file")
	cmd.PersistentFlags().String("log-level", "warn", "log level")
	cmd.PersistentFlags().BoolP("help", "h", false, "help for packctl")
	_ = viper.BindPFlag("database_url", cmd.PersistentFlags().Lookup("database-url"))
	_ = viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	cmd.CompletionOptions.DisableDescriptions = true
	cobra.OnInitialize(initConfig(&cfgFile))

	return cmd
}

func Execute(command *cobra.Command) {
	err := command.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func initConfig(cfgFile *string) func() {
	return func() {
		viper.SetDefault("log.format", logging.FormatText)
		if *cfgFile != "" {
			viper.SetConfigFile(*cfgFile)
		} else {
			viper.SetConfigName("local")
			viper.SetConfigType("yaml")
			viper.AddConfigPath("./config")
		}
		_ = viper.BindEnv("database_url", "DATABASE_URL")
		viper.AutomaticEnv()

		_ = viper.ReadInConfig()

		logging.Setup(os.Stderr, config.LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		})
	}
}

// openProviders connects to the configured database. The caller closes the pool.
func openProviders() (*providers.Providers, *pgxpool.Pool, error) {
	url := viper.GetString("database_url")
	if url == "" {
		return nil, nil, fmt.Errorf("no database url: set database_url in the config file, DATABASE_URL or --database-url")
	}
	db, err := storage.InitDB(url, storage.PoolConfig{MaxConns: 2})
	if err != nil {
		return nil, nil, err
	}
	return providers.New(db), db, nil
}
