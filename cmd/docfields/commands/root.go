package commands

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/foxxcyber/docfields/internal/config"
	"github.com/foxxcyber/docfields/internal/logging"
)

var (
	envFile string
	verbose bool

	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docfields",
	Short: "Extract named fields from document images and PDFs",
	Long: `docfields recognizes the text of an image or PDF with Tesseract and extracts
the fields described by a schema file, either with pattern rules or with a
generative model. It reads the same environment settings as the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return err
			}
		} else {
			godotenv.Load()
		}

		cfg = config.Load()

		level := "warn"
		if verbose {
			level = "debug"
		}
		log = logging.New(logging.Options{
			Level:       level,
			Format:      "console",
			Output:      os.Stderr,
			ServiceName: "docfields-cli",
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default .env when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
