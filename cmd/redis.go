package cmd

import (
	"context"
	"fmt"
	"time"

	"LiveFM/cache"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis connection and the artifact index",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RedisHost == "" {
			return fmt.Errorf("REDIS_HOST is not set")
		}
		fmt.Printf("Redis: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := cache.ConnectRedis(cfg); err != nil {
			return err
		}
		defer cache.CloseRedis()
		fmt.Println("Connected.")

		if err := cache.TestRedis(); err != nil {
			return fmt.Errorf("read/write check failed: %w", err)
		}
		fmt.Println("Read/write check passed.")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		entries, err := cache.NewArtifactIndex(cache.RedisClient, cache.DefaultArtifactKey).All(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Artifact index %s holds %d entries.\n", cache.DefaultArtifactKey, len(entries))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
