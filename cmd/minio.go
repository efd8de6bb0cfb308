package cmd

import (
	"context"
	"fmt"
	"os"

	"LiveFM/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioList   bool
	minioDelete bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect the artifact archive bucket",
	Long:  `Show statistics for the archive bucket, list archived artifacts, or delete a prefix.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.MinioEndpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is not set")
		}
		fmt.Printf("MinIO: %s, bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		if err := storage.InitMinio(cfg); err != nil {
			return err
		}
		client, err := storage.NewMinioClient(
			cfg.MinioEndpoint,
			cfg.MinioAccessKey,
			cfg.MinioSecretKey,
			cfg.MinioBucket,
			cfg.MinioUseSSL,
		)
		if err != nil {
			return err
		}

		ctx := context.Background()
		if minioDelete {
			if minioPrefix == "" {
				return fmt.Errorf("--delete needs --prefix")
			}
			n, err := client.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d objects under %s\n", n, minioPrefix)
			return nil
		}
		return client.PrintStats(ctx, os.Stdout, minioPrefix, minioList)
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "object prefix to inspect or delete")
	minioCmd.Flags().BoolVarP(&minioList, "list", "l", false, "list every object")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "delete every object under the prefix")

	minioCmd.Example = `  # bucket statistics
  livefm minio

  # list archived artifacts
  livefm minio -l -p "artifacts/"

  # drop one artifact from the archive
  livefm minio -d -p "artifacts/1234-03ac6742/"`
}
